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
package evmla

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/debuginfo"
	"github.com/consensys/go-smelter/pkg/evm"
)

// Pseudo-instruction names the assembler emits alongside plain opcode
// mnemonics.  Plain mnemonics resolve through evm.Lookup.
const (
	// NameTag marks a jump destination; its value is the decimal tag number.
	NameTag = "tag"
	// NamePush is a constant push; its value is unprefixed hexadecimal.
	NamePush = "PUSH"
	// NamePushTag pushes a tag's eventual code offset.
	NamePushTag = "PUSH [tag]"
	// NamePushData pushes the offset of a data-section entry, keyed by its
	// full hexadecimal identifier.
	NamePushData = "PUSH data"
	// NamePushDataOffset pushes the offset of a subordinate object.
	NamePushDataOffset = "PUSH [$]"
	// NamePushDataSize pushes the size of a subordinate object.
	NamePushDataSize = "PUSH #[$]"
	// NamePushSize pushes the total size of the current code object.
	NamePushSize = "PUSHSIZE"
	// NamePushLibrary pushes a library address placeholder.
	NamePushLibrary = "PUSHLIB"
	// NamePushImmutable pushes an immutable placeholder (runtime code).
	NamePushImmutable = "PUSHIMMUTABLE"
	// NameAssignImmutable writes an immutable's value into the runtime code
	// copy (deploy code).
	NameAssignImmutable = "ASSIGNIMMUTABLE"
	// NameJumpIn is a JUMP annotated as a function call.
	NameJumpIn = "JUMP [in]"
	// NameJumpOut is a JUMP annotated as a function return.
	NameJumpOut = "JUMP [out]"
)

// Instruction is one entry of a legacy-assembly code array, as serialized by
// the front-end: a mnemonic with source coordinates and an optional
// mnemonic-specific value.
type Instruction struct {
	Begin  int    `json:"begin"`
	End    int    `json:"end"`
	Name   string `json:"name"`
	Source *int   `json:"source,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Location returns the source coordinates of this instruction.  Instructions
// predating source indices map to source -1, which renders as unknown.
//
//nolint:revive
func (p *Instruction) Location() debuginfo.Location {
	source := -1
	if p.Source != nil {
		source = *p.Source
	}
	// Done
	return debuginfo.Location{SourceID: source, Start: p.Begin, End: p.End}
}

// Tag parses the decimal tag number carried by "tag" and "PUSH [tag]"
// instructions.
//
//nolint:revive
func (p *Instruction) Tag() (uint64, error) {
	tag, err := strconv.ParseUint(p.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed tag %q", p.Value)
	}
	// Done
	return tag, nil
}

// PushValue parses the unprefixed hexadecimal constant of a "PUSH"
// instruction.  The assembler pads values freely, so leading zeros and odd
// digit counts are accepted.
//
//nolint:revive
func (p *Instruction) PushValue() (*uint256.Int, error) {
	text := strings.TrimPrefix(p.Value, "0x")
	if text == "" {
		return nil, fmt.Errorf("malformed hex payload %q", p.Value)
	}
	//
	if len(text)%2 == 1 {
		text = "0" + text
	}
	//
	bytes, err := hex.DecodeString(text)
	if err != nil || len(bytes) > 32 {
		return nil, fmt.Errorf("malformed hex payload %q", p.Value)
	}
	// Done
	return new(uint256.Int).SetBytes(bytes), nil
}

// IsJump reports whether this instruction transfers control through a tag
// operand, including the call/return annotated forms.
//
//nolint:revive
func (p *Instruction) IsJump() bool {
	return p.Name == "JUMP" || p.Name == NameJumpIn || p.Name == NameJumpOut
}

// StackEffect returns the operand arity of this instruction.  Plain
// mnemonics defer to the opcode table; the second result is false for names
// the table does not know.
//
//nolint:revive
func (p *Instruction) StackEffect() (pops uint, pushes uint, ok bool) {
	switch p.Name {
	case NameTag:
		return 0, 0, true
	case NamePush, NamePushTag, NamePushData, NamePushDataOffset,
		NamePushDataSize, NamePushSize, NamePushLibrary, NamePushImmutable:
		return 0, 1, true
	case NameAssignImmutable:
		return 2, 0, true
	case NameJumpIn, NameJumpOut:
		return 1, 0, true
	}
	//
	op, ok := evm.Lookup(p.Name)
	if !ok {
		return 0, 0, false
	}
	//
	pops, pushes = op.StackEffect()
	// Done
	return pops, pushes, true
}

func (p *Instruction) String() string {
	if p.Value == "" {
		return p.Name
	}
	// Done
	return fmt.Sprintf("%s %s", p.Name, p.Value)
}
