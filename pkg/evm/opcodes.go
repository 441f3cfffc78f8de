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

import "fmt"

// Opcode identifies a single instruction of the EVM instruction set.  Opcodes
// are single bytes; PUSH1..PUSH32 carry an immediate operand of 1..32 bytes
// directly after the opcode byte.
type Opcode byte

// The EVM instruction set.  Only instructions which can actually occur in the
// two input representations (Yul builtins and solc legacy assembly) are
// listed; the set is closed and ranges (PUSH, DUP, SWAP, LOG) are contiguous.
const (
	STOP       Opcode = 0x00
	ADD        Opcode = 0x01
	MUL        Opcode = 0x02
	SUB        Opcode = 0x03
	DIV        Opcode = 0x04
	SDIV       Opcode = 0x05
	MOD        Opcode = 0x06
	SMOD       Opcode = 0x07
	ADDMOD     Opcode = 0x08
	MULMOD     Opcode = 0x09
	EXP        Opcode = 0x0a
	SIGNEXTEND Opcode = 0x0b

	LT     Opcode = 0x10
	GT     Opcode = 0x11
	SLT    Opcode = 0x12
	SGT    Opcode = 0x13
	EQ     Opcode = 0x14
	ISZERO Opcode = 0x15
	AND    Opcode = 0x16
	OR     Opcode = 0x17
	XOR    Opcode = 0x18
	NOT    Opcode = 0x19
	BYTE   Opcode = 0x1a
	SHL    Opcode = 0x1b
	SHR    Opcode = 0x1c
	SAR    Opcode = 0x1d

	KECCAK256 Opcode = 0x20

	ADDRESS        Opcode = 0x30
	BALANCE        Opcode = 0x31
	ORIGIN         Opcode = 0x32
	CALLER         Opcode = 0x33
	CALLVALUE      Opcode = 0x34
	CALLDATALOAD   Opcode = 0x35
	CALLDATASIZE   Opcode = 0x36
	CALLDATACOPY   Opcode = 0x37
	CODESIZE       Opcode = 0x38
	CODECOPY       Opcode = 0x39
	GASPRICE       Opcode = 0x3a
	EXTCODESIZE    Opcode = 0x3b
	EXTCODECOPY    Opcode = 0x3c
	RETURNDATASIZE Opcode = 0x3d
	RETURNDATACOPY Opcode = 0x3e
	EXTCODEHASH    Opcode = 0x3f

	BLOCKHASH   Opcode = 0x40
	COINBASE    Opcode = 0x41
	TIMESTAMP   Opcode = 0x42
	NUMBER      Opcode = 0x43
	PREVRANDAO  Opcode = 0x44
	GASLIMIT    Opcode = 0x45
	CHAINID     Opcode = 0x46
	SELFBALANCE Opcode = 0x47
	BASEFEE     Opcode = 0x48
	BLOBHASH    Opcode = 0x49
	BLOBBASEFEE Opcode = 0x4a

	POP      Opcode = 0x50
	MLOAD    Opcode = 0x51
	MSTORE   Opcode = 0x52
	MSTORE8  Opcode = 0x53
	SLOAD    Opcode = 0x54
	SSTORE   Opcode = 0x55
	JUMP     Opcode = 0x56
	JUMPI    Opcode = 0x57
	PC       Opcode = 0x58
	MSIZE    Opcode = 0x59
	GAS      Opcode = 0x5a
	JUMPDEST Opcode = 0x5b
	TLOAD    Opcode = 0x5c
	TSTORE   Opcode = 0x5d
	MCOPY    Opcode = 0x5e
	PUSH0    Opcode = 0x5f

	PUSH1  Opcode = 0x60
	PUSH2  Opcode = 0x61
	PUSH32 Opcode = 0x7f

	DUP1  Opcode = 0x80
	DUP2  Opcode = 0x81
	DUP3  Opcode = 0x82
	DUP16 Opcode = 0x8f

	SWAP1  Opcode = 0x90
	SWAP2  Opcode = 0x91
	SWAP16 Opcode = 0x9f

	LOG0 Opcode = 0xa0
	LOG4 Opcode = 0xa4

	CREATE       Opcode = 0xf0
	CALL         Opcode = 0xf1
	CALLCODE     Opcode = 0xf2
	RETURN       Opcode = 0xf3
	DELEGATECALL Opcode = 0xf4
	CREATE2      Opcode = 0xf5
	STATICCALL   Opcode = 0xfa
	REVERT       Opcode = 0xfd
	INVALID      Opcode = 0xfe
	SELFDESTRUCT Opcode = 0xff
)

// Push returns the PUSHn opcode carrying an n byte immediate, for 0 <= n <=
// 32.
func Push(n uint) Opcode {
	if n > 32 {
		panic(fmt.Sprintf("invalid push width %d", n))
	} else if n == 0 {
		return PUSH0
	}
	//
	return PUSH1 + Opcode(n-1)
}

// Dup returns the DUPn opcode for 1 <= n <= 16.
func Dup(n uint) Opcode {
	if n < 1 || n > 16 {
		panic(fmt.Sprintf("invalid dup depth %d", n))
	}
	//
	return DUP1 + Opcode(n-1)
}

// Swap returns the SWAPn opcode for 1 <= n <= 16.
func Swap(n uint) Opcode {
	if n < 1 || n > 16 {
		panic(fmt.Sprintf("invalid swap depth %d", n))
	}
	//
	return SWAP1 + Opcode(n-1)
}

// IsPush determines whether the given opcode is PUSH1..PUSH32.  PUSH0 is
// excluded since it carries no immediate operand.
func (op Opcode) IsPush() bool {
	return op >= PUSH1 && op <= PUSH32
}

// PushWidth returns the immediate operand width of a PUSH1..PUSH32 opcode,
// and zero for anything else.
func (op Opcode) PushWidth() uint {
	if op.IsPush() {
		return uint(op-PUSH1) + 1
	}
	//
	return 0
}

// IsDup determines whether the given opcode is DUP1..DUP16.
func (op Opcode) IsDup() bool {
	return op >= DUP1 && op <= DUP16
}

// IsSwap determines whether the given opcode is SWAP1..SWAP16.
func (op Opcode) IsSwap() bool {
	return op >= SWAP1 && op <= SWAP16
}

// IsTerminator determines whether the given opcode unconditionally ends a
// basic block.  JUMPI is not a terminator in this sense since execution can
// fall through it.
func (op Opcode) IsTerminator() bool {
	switch op {
	case STOP, JUMP, RETURN, REVERT, INVALID, SELFDESTRUCT:
		return true
	default:
		return false
	}
}

// String returns the canonical mnemonic of the given opcode, as used by solc
// legacy assembly and by textual dumps.
func (op Opcode) String() string {
	if op.IsPush() {
		return fmt.Sprintf("PUSH%d", op.PushWidth())
	} else if op.IsDup() {
		return fmt.Sprintf("DUP%d", uint(op-DUP1)+1)
	} else if op.IsSwap() {
		return fmt.Sprintf("SWAP%d", uint(op-SWAP1)+1)
	} else if op >= LOG0 && op <= LOG4 {
		return fmt.Sprintf("LOG%d", uint(op-LOG0))
	}
	//
	if name, ok := names[op]; ok {
		return name
	}
	//
	return fmt.Sprintf("INVALID(0x%02x)", byte(op))
}

var names = map[Opcode]string{
	STOP: "STOP", ADD: "ADD", MUL: "MUL", SUB: "SUB", DIV: "DIV",
	SDIV: "SDIV", MOD: "MOD", SMOD: "SMOD", ADDMOD: "ADDMOD",
	MULMOD: "MULMOD", EXP: "EXP", SIGNEXTEND: "SIGNEXTEND",
	LT: "LT", GT: "GT", SLT: "SLT", SGT: "SGT", EQ: "EQ",
	ISZERO: "ISZERO", AND: "AND", OR: "OR", XOR: "XOR", NOT: "NOT",
	BYTE: "BYTE", SHL: "SHL", SHR: "SHR", SAR: "SAR",
	KECCAK256: "KECCAK256",
	ADDRESS:   "ADDRESS", BALANCE: "BALANCE", ORIGIN: "ORIGIN",
	CALLER: "CALLER", CALLVALUE: "CALLVALUE", CALLDATALOAD: "CALLDATALOAD",
	CALLDATASIZE: "CALLDATASIZE", CALLDATACOPY: "CALLDATACOPY",
	CODESIZE: "CODESIZE", CODECOPY: "CODECOPY", GASPRICE: "GASPRICE",
	EXTCODESIZE: "EXTCODESIZE", EXTCODECOPY: "EXTCODECOPY",
	RETURNDATASIZE: "RETURNDATASIZE", RETURNDATACOPY: "RETURNDATACOPY",
	EXTCODEHASH: "EXTCODEHASH", BLOCKHASH: "BLOCKHASH",
	COINBASE: "COINBASE", TIMESTAMP: "TIMESTAMP", NUMBER: "NUMBER",
	PREVRANDAO: "PREVRANDAO", GASLIMIT: "GASLIMIT", CHAINID: "CHAINID",
	SELFBALANCE: "SELFBALANCE", BASEFEE: "BASEFEE", BLOBHASH: "BLOBHASH",
	BLOBBASEFEE: "BLOBBASEFEE",
	POP:         "POP", MLOAD: "MLOAD", MSTORE: "MSTORE", MSTORE8: "MSTORE8",
	SLOAD: "SLOAD", SSTORE: "SSTORE", JUMP: "JUMP", JUMPI: "JUMPI",
	PC: "PC", MSIZE: "MSIZE", GAS: "GAS", JUMPDEST: "JUMPDEST",
	TLOAD: "TLOAD", TSTORE: "TSTORE", MCOPY: "MCOPY", PUSH0: "PUSH0",
	CREATE: "CREATE", CALL: "CALL", CALLCODE: "CALLCODE",
	RETURN: "RETURN", DELEGATECALL: "DELEGATECALL", CREATE2: "CREATE2",
	STATICCALL: "STATICCALL", REVERT: "REVERT", INVALID: "INVALID",
	SELFDESTRUCT: "SELFDESTRUCT",
}
