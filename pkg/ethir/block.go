// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ethir

import (
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/evmla"
)

// entryTag keys the prelude before the first tag definition.  The assembler
// numbers real tags from one, so the slot is free.
const entryTag = 0

// sourceBlock is a maximal straight-line run of legacy assembly instructions
// headed by a tag definition.
type sourceBlock struct {
	// Tag is the label under which jumps reach this block.
	Tag uint64
	// Code excludes the leading tag marker.
	Code []evmla.Instruction
	// Next is the fall-through successor, or nil when the block always
	// transfers control explicitly.
	Next *sourceBlock
}

// splitBlocks partitions an instruction stream into blocks delimited by tag
// definitions.  The prelude before the first tag becomes the entry block.
func splitBlocks(code []evmla.Instruction) (map[uint64]*sourceBlock, error) {
	var (
		blocks  = make(map[uint64]*sourceBlock)
		current = &sourceBlock{Tag: entryTag}
	)
	//
	blocks[entryTag] = current
	//
	for i := range code {
		instruction := &code[i]
		if instruction.Name != evmla.NameTag {
			current.Code = append(current.Code, *instruction)
			continue
		}
		//
		tag, err := instruction.Tag()
		//
		switch {
		case err != nil:
			return nil, malformedf("%v", err)
		case blocks[tag] != nil:
			return nil, malformedf("duplicate tag %d in instruction stream", tag)
		}
		//
		next := &sourceBlock{Tag: tag}
		if fallsThrough(current.Code) {
			current.Next = next
		}
		//
		blocks[tag] = next
		current = next
	}
	// Done
	return blocks, nil
}

// fallsThrough reports whether control can run off the end of the given
// code into a successor block.
func fallsThrough(code []evmla.Instruction) bool {
	if len(code) == 0 {
		return true
	}
	//
	last := &code[len(code)-1]
	if last.IsJump() {
		return false
	}
	//
	op, ok := evm.Lookup(last.Name)
	// Done
	return !ok || !op.IsTerminator()
}
