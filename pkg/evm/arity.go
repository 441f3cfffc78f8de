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

// arity captures the stack effect of one opcode: how many operands it pops
// and how many results it pushes.
type arity struct {
	pops, pushes uint
}

// StackEffect returns the number of stack slots the given opcode pops and
// pushes.  PUSH, DUP, SWAP and LOG ranges are computed, everything else is
// table driven.  Unknown opcodes report (0, 0).
func (op Opcode) StackEffect() (pops uint, pushes uint) {
	switch {
	case op == PUSH0 || op.IsPush():
		return 0, 1
	case op.IsDup():
		n := uint(op-DUP1) + 1
		return n, n + 1
	case op.IsSwap():
		n := uint(op-SWAP1) + 1
		return n + 1, n + 1
	case op >= LOG0 && op <= LOG4:
		return uint(op-LOG0) + 2, 0
	}
	//
	a := arities[op]
	//
	return a.pops, a.pushes
}

// Pure determines whether an opcode is a pure function of its operands, with
// no environment or state access.  Pure opcodes with constant operands are
// eligible for constant folding at the higher back-end optimization levels.
func (op Opcode) Pure() bool {
	switch op {
	case ADD, MUL, SUB, DIV, SDIV, MOD, SMOD, ADDMOD, MULMOD, EXP,
		SIGNEXTEND, LT, GT, SLT, SGT, EQ, ISZERO, AND, OR, XOR, NOT,
		BYTE, SHL, SHR, SAR:
		return true
	default:
		return false
	}
}

var arities = map[Opcode]arity{
	STOP:       {0, 0},
	ADD:        {2, 1},
	MUL:        {2, 1},
	SUB:        {2, 1},
	DIV:        {2, 1},
	SDIV:       {2, 1},
	MOD:        {2, 1},
	SMOD:       {2, 1},
	ADDMOD:     {3, 1},
	MULMOD:     {3, 1},
	EXP:        {2, 1},
	SIGNEXTEND: {2, 1},
	//
	LT:     {2, 1},
	GT:     {2, 1},
	SLT:    {2, 1},
	SGT:    {2, 1},
	EQ:     {2, 1},
	ISZERO: {1, 1},
	AND:    {2, 1},
	OR:     {2, 1},
	XOR:    {2, 1},
	NOT:    {1, 1},
	BYTE:   {2, 1},
	SHL:    {2, 1},
	SHR:    {2, 1},
	SAR:    {2, 1},
	//
	KECCAK256: {2, 1},
	//
	ADDRESS:        {0, 1},
	BALANCE:        {1, 1},
	ORIGIN:         {0, 1},
	CALLER:         {0, 1},
	CALLVALUE:      {0, 1},
	CALLDATALOAD:   {1, 1},
	CALLDATASIZE:   {0, 1},
	CALLDATACOPY:   {3, 0},
	CODESIZE:       {0, 1},
	CODECOPY:       {3, 0},
	GASPRICE:       {0, 1},
	EXTCODESIZE:    {1, 1},
	EXTCODECOPY:    {4, 0},
	RETURNDATASIZE: {0, 1},
	RETURNDATACOPY: {3, 0},
	EXTCODEHASH:    {1, 1},
	//
	BLOCKHASH:   {1, 1},
	COINBASE:    {0, 1},
	TIMESTAMP:   {0, 1},
	NUMBER:      {0, 1},
	PREVRANDAO:  {0, 1},
	GASLIMIT:    {0, 1},
	CHAINID:     {0, 1},
	SELFBALANCE: {0, 1},
	BASEFEE:     {0, 1},
	BLOBHASH:    {1, 1},
	BLOBBASEFEE: {0, 1},
	//
	POP:      {1, 0},
	MLOAD:    {1, 1},
	MSTORE:   {2, 0},
	MSTORE8:  {2, 0},
	SLOAD:    {1, 1},
	SSTORE:   {2, 0},
	JUMP:     {1, 0},
	JUMPI:    {2, 0},
	PC:       {0, 1},
	MSIZE:    {0, 1},
	GAS:      {0, 1},
	JUMPDEST: {0, 0},
	TLOAD:    {1, 1},
	TSTORE:   {2, 0},
	MCOPY:    {3, 0},
	//
	CREATE:       {3, 1},
	CALL:         {7, 1},
	CALLCODE:     {7, 1},
	RETURN:       {2, 0},
	DELEGATECALL: {6, 1},
	CREATE2:      {4, 1},
	STATICCALL:   {6, 1},
	REVERT:       {2, 0},
	INVALID:      {0, 0},
	SELFDESTRUCT: {1, 0},
}

// Lookup resolves a canonical mnemonic (e.g. "ADD", "PUSH3", "SWAP16") into
// its opcode.  The second result is false when the mnemonic is unknown.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, 256)
	//
	for op := 0; op < 256; op++ {
		code := Opcode(op)
		if _, ok := names[code]; ok || code.IsPush() || code.IsDup() || code.IsSwap() ||
			(code >= LOG0 && code <= LOG4) {
			m[code.String()] = code
		}
	}
	// Legacy alias still produced by older front-ends.
	m["SHA3"] = KECCAK256
	m["DIFFICULTY"] = PREVRANDAO
	//
	return m
}()
