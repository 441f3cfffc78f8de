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

// evalFold evaluates a pure opcode over constant operands.  Operands are
// listed top of stack first, i.e. operands[0] was pushed last.  The second
// result is false when the opcode cannot be folded.
func evalFold(op evm.Opcode, operands []*uint256.Int) (*uint256.Int, bool) {
	var (
		result = new(uint256.Int)
		one    = uint256.NewInt(1)
	)
	//
	boolResult := func(b bool) (*uint256.Int, bool) {
		if b {
			return one, true
		}
		//
		return result, true
	}
	//
	switch op {
	case evm.ISZERO:
		return boolResult(operands[0].IsZero())
	case evm.NOT:
		return result.Not(operands[0]), true
	case evm.ADD:
		return result.Add(operands[0], operands[1]), true
	case evm.MUL:
		return result.Mul(operands[0], operands[1]), true
	case evm.SUB:
		return result.Sub(operands[0], operands[1]), true
	case evm.DIV:
		return result.Div(operands[0], operands[1]), true
	case evm.SDIV:
		return result.SDiv(operands[0], operands[1]), true
	case evm.MOD:
		return result.Mod(operands[0], operands[1]), true
	case evm.SMOD:
		return result.SMod(operands[0], operands[1]), true
	case evm.EXP:
		return result.Exp(operands[0], operands[1]), true
	case evm.SIGNEXTEND:
		return result.ExtendSign(operands[1], operands[0]), true
	case evm.LT:
		return boolResult(operands[0].Lt(operands[1]))
	case evm.GT:
		return boolResult(operands[0].Gt(operands[1]))
	case evm.SLT:
		return boolResult(operands[0].Slt(operands[1]))
	case evm.SGT:
		return boolResult(operands[0].Sgt(operands[1]))
	case evm.EQ:
		return boolResult(operands[0].Eq(operands[1]))
	case evm.AND:
		return result.And(operands[0], operands[1]), true
	case evm.OR:
		return result.Or(operands[0], operands[1]), true
	case evm.XOR:
		return result.Xor(operands[0], operands[1]), true
	case evm.BYTE:
		return result.Set(operands[1]).Byte(operands[0]), true
	case evm.SHL:
		if operands[0].GtUint64(255) {
			return result, true
		}
		//
		return result.Lsh(operands[1], uint(operands[0].Uint64())), true
	case evm.SHR:
		if operands[0].GtUint64(255) {
			return result, true
		}
		//
		return result.Rsh(operands[1], uint(operands[0].Uint64())), true
	case evm.SAR:
		if operands[0].GtUint64(255) {
			if operands[1].Sign() < 0 {
				return result.Not(result), true
			}
			//
			return result, true
		}
		//
		return result.SRsh(operands[1], uint(operands[0].Uint64())), true
	case evm.ADDMOD:
		return result.AddMod(operands[0], operands[1], operands[2]), true
	case evm.MULMOD:
		return result.MulMod(operands[0], operands[1], operands[2]), true
	default:
		return nil, false
	}
}
