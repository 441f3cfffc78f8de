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
package codegen

import (
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/holiman/uint256"
)

// optimizeCode applies the block-local peephole passes enabled by the given
// settings until a fixpoint is reached.  Each pass preserves the observable
// stack and control effects of the block, hence passes can run in any order
// and as often as they fire.
func optimizeCode(code []Instruction, settings *OptimizerSettings) []Instruction {
	for {
		changed := false
		//
		if settings.BackEnd >= 2 {
			var c bool
			//
			code, c = foldPass(code)
			changed = changed || c
		}
		//
		if settings.MiddleEnd >= 2 {
			var c bool
			//
			code, c = dedupPass(code)
			changed = changed || c
		}
		//
		if settings.MiddleEnd >= 1 {
			var c bool
			//
			code, c = pushPopPass(code)
			changed = changed || c
		}
		//
		if !changed {
			return code
		}
	}
}

// foldPass evaluates pure opcodes whose operands are all literal pushes,
// replacing the operand pushes and the opcode with a single push of the
// result.  Folds cascade within a single scan since the rewritten push lands
// on the tail being inspected.
func foldPass(code []Instruction) ([]Instruction, bool) {
	var (
		out     = make([]Instruction, 0, len(code))
		changed = false
	)
	//
	for _, inst := range code {
		if inst.Kind == InstOpcode && inst.Op.Pure() {
			pops, _ := inst.Op.StackEffect()
			//
			if operands, ok := constantTail(out, pops); ok {
				if value, folded := evalFold(inst.Op, operands); folded {
					out = out[:len(out)-int(pops)]
					out = append(out, Instruction{Kind: InstPush, Value: value, Loc: inst.Loc})
					changed = true
					//
					continue
				}
			}
		}
		//
		out = append(out, inst)
	}
	// Done
	return out, changed
}

// constantTail extracts the last n instructions of code as folding operands,
// top of stack first.  It fails unless all n are literal pushes.
func constantTail(code []Instruction, n uint) ([]*uint256.Int, bool) {
	if uint(len(code)) < n {
		return nil, false
	}
	//
	operands := make([]*uint256.Int, n)
	//
	for i := uint(0); i < n; i++ {
		inst := code[uint(len(code))-1-i]
		if inst.Kind != InstPush {
			return nil, false
		}
		//
		operands[i] = inst.Value
	}
	// Done
	return operands, true
}

// dedupPass rewrites the second of two adjacent identical pushes into DUP1,
// which encodes in one byte instead of repeating the operand.
func dedupPass(code []Instruction) ([]Instruction, bool) {
	var (
		out     = make([]Instruction, 0, len(code))
		changed = false
	)
	//
	for _, inst := range code {
		if len(out) > 0 && samePush(out[len(out)-1], inst) {
			out = append(out, Instruction{Kind: InstOpcode, Op: evm.DUP1, Loc: inst.Loc})
			changed = true
			//
			continue
		}
		//
		out = append(out, inst)
	}
	// Done
	return out, changed
}

// samePush reports whether two instructions push a provably identical value.
func samePush(left Instruction, right Instruction) bool {
	if left.Kind != right.Kind {
		return false
	}
	//
	switch left.Kind {
	case InstPush:
		return left.Value.Eq(right.Value)
	case InstPushTag:
		return left.Target == right.Target
	default:
		return false
	}
}

// pushPopPass removes push-like instructions whose result is immediately
// discarded by POP.  Removals cascade within a single scan, e.g. a DUP1
// produced by dedupPass followed by two POPs collapses fully.
func pushPopPass(code []Instruction) ([]Instruction, bool) {
	var (
		out     = make([]Instruction, 0, len(code))
		changed = false
	)
	//
	for _, inst := range code {
		if inst.Kind == InstOpcode && inst.Op == evm.POP &&
			len(out) > 0 && isPushLike(out[len(out)-1]) {
			out = out[:len(out)-1]
			changed = true
			//
			continue
		}
		//
		out = append(out, inst)
	}
	// Done
	return out, changed
}

// isPushLike reports whether an instruction nets exactly one new stack slot
// without reading state or memory, making a following POP a no-op pair.
func isPushLike(inst Instruction) bool {
	switch inst.Kind {
	case InstOpcode:
		if inst.Op.IsDup() {
			return true
		}
		//
		pops, pushes := inst.Op.StackEffect()
		//
		return pops == 0 && pushes == 1 && inst.Op != evm.PC && inst.Op != evm.MSIZE
	default:
		// All pseudo instructions push exactly one placeholder slot, except
		// for immutable assignment which consumes two operands.
		return inst.Kind != InstSetImmutable
	}
}
