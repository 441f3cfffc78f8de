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
package evm

import "testing"

func Test_Opcodes_01(t *testing.T) {
	// Named members of the contiguous ranges must agree with their
	// constructor functions.
	checkOpcode(t, PUSH1, Push(1))
	checkOpcode(t, PUSH2, Push(2))
	checkOpcode(t, PUSH32, Push(32))
	checkOpcode(t, DUP1, Dup(1))
	checkOpcode(t, DUP2, Dup(2))
	checkOpcode(t, DUP3, Dup(3))
	checkOpcode(t, DUP16, Dup(16))
	checkOpcode(t, SWAP1, Swap(1))
	checkOpcode(t, SWAP2, Swap(2))
	checkOpcode(t, SWAP16, Swap(16))
}

func Test_Opcodes_02(t *testing.T) {
	checkOpcodeByte(t, PUSH2, 0x61)
	checkOpcodeByte(t, DUP2, 0x81)
	checkOpcodeByte(t, DUP3, 0x82)
	checkOpcodeByte(t, SWAP2, 0x91)
}

func Test_Opcodes_03(t *testing.T) {
	// Round trip through the mnemonic table.
	for _, op := range []Opcode{PUSH2, DUP2, DUP3, SWAP2} {
		found, ok := Lookup(op.String())
		//
		if !ok {
			t.Errorf("mnemonic %q did not resolve", op.String())
		} else if found != op {
			t.Errorf("mnemonic %q resolved to 0x%02x, expected 0x%02x", op.String(), byte(found), byte(op))
		}
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkOpcode(t *testing.T, got Opcode, expected Opcode) {
	if got != expected {
		t.Errorf("opcode %s is 0x%02x, expected 0x%02x", expected, byte(got), byte(expected))
	}
}

func checkOpcodeByte(t *testing.T, op Opcode, expected byte) {
	if byte(op) != expected {
		t.Errorf("opcode %s is 0x%02x, expected 0x%02x", op, byte(op), expected)
	}
}
