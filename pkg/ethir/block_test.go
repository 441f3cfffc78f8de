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
	"strings"
	"testing"

	"github.com/consensys/go-smelter/pkg/evmla"
)

func Test_Split_01(t *testing.T) {
	t.Parallel()
	//
	blocks, err := splitBlocks([]evmla.Instruction{
		op("CALLDATASIZE"),
		opv("tag", "1"), op("JUMPDEST"), op("STOP"),
		opv("tag", "2"), op("JUMPDEST"), op("JUMP"),
	})
	//
	if err != nil {
		t.Fatalf("unexpected split failure: %v", err)
	} else if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	// The prelude falls through into tag 1.
	entry := blocks[entryTag]
	if len(entry.Code) != 1 || entry.Next != blocks[1] {
		t.Errorf("unexpected entry block shape")
	}
	// STOP cannot fall through into tag 2.
	if blocks[1].Next != nil {
		t.Errorf("terminated block must not fall through")
	}
	//
	if blocks[2].Next != nil {
		t.Errorf("final block must not fall through")
	}
}

func Test_Split_02(t *testing.T) {
	t.Parallel()
	// An empty prelude still forms the entry block.
	blocks, err := splitBlocks([]evmla.Instruction{
		opv("tag", "1"), op("JUMPDEST"), op("STOP"),
	})
	//
	if err != nil {
		t.Fatalf("unexpected split failure: %v", err)
	}
	//
	entry := blocks[entryTag]
	if len(entry.Code) != 0 || entry.Next != blocks[1] {
		t.Errorf("unexpected entry block shape")
	}
	// Unconditional jumps end fall-through as well.
	blocks, err = splitBlocks([]evmla.Instruction{
		opv("PUSH [tag]", "1"), op("JUMP"),
		opv("tag", "1"), op("JUMPDEST"),
	})
	//
	if err != nil {
		t.Fatalf("unexpected split failure: %v", err)
	} else if blocks[entryTag].Next != nil {
		t.Errorf("jump-terminated block must not fall through")
	}
}

func Test_Split_03(t *testing.T) {
	t.Parallel()
	//
	_, err := splitBlocks([]evmla.Instruction{
		opv("tag", "1"), op("JUMPDEST"),
		opv("tag", "1"), op("JUMPDEST"),
	})
	//
	if err == nil || !strings.Contains(err.Error(), "duplicate tag 1") {
		t.Errorf("expected duplicate tag failure, got %v", err)
	}
	//
	_, err = splitBlocks([]evmla.Instruction{opv("tag", "banana")})
	if err == nil || !strings.Contains(err.Error(), "malformed tag") {
		t.Errorf("expected malformed tag failure, got %v", err)
	}
}
