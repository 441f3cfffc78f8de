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
package yul

import (
	"strings"

	"github.com/consensys/go-smelter/pkg/evm"
)

// builtinKind classifies the callables of the EVM dialect.  Most builtins map
// one-to-one onto an opcode, with arguments evaluated right-to-left; the
// special forms lower structurally.
type builtinKind uint8

const (
	// builtinOpcode maps directly onto a native instruction.
	builtinOpcode builtinKind = iota
	// builtinDataOffset pushes the code offset of a named object.
	builtinDataOffset
	// builtinDataSize pushes the size of a named object.
	builtinDataSize
	// builtinDataCopy copies from the code address space into memory.
	builtinDataCopy
	// builtinSetImmutable patches an immutable value into a runtime code
	// copy held in memory.
	builtinSetImmutable
	// builtinLoadImmutable pushes an immutable value placeholder.
	builtinLoadImmutable
	// builtinLinkerSymbol pushes a library address placeholder.
	builtinLinkerSymbol
	// builtinMemoryGuard reserves the front-end's static memory area.
	builtinMemoryGuard
)

// builtin describes one callable of the dialect.
type builtin struct {
	kind    builtinKind
	op      evm.Opcode
	args    uint
	results uint
}

// specialForms lists the builtins lowered structurally rather than as a
// single instruction.
var specialForms = map[string]builtin{
	"dataoffset":    {kind: builtinDataOffset, args: 1, results: 1},
	"datasize":      {kind: builtinDataSize, args: 1, results: 1},
	"datacopy":      {kind: builtinDataCopy, args: 3, results: 0},
	"setimmutable":  {kind: builtinSetImmutable, args: 3, results: 0},
	"loadimmutable": {kind: builtinLoadImmutable, args: 1, results: 1},
	"linkersymbol":  {kind: builtinLinkerSymbol, args: 1, results: 1},
	"memoryguard":   {kind: builtinMemoryGuard, args: 1, results: 1},
}

// lookupBuiltin resolves a call name against the dialect.  Builtin names are
// lowercase; anything else is a user function.
func lookupBuiltin(name string) (builtin, bool) {
	if form, ok := specialForms[name]; ok {
		return form, true
	}
	//
	if name != strings.ToLower(name) {
		return builtin{}, false
	}
	//
	op, ok := evm.Lookup(strings.ToUpper(name))
	if !ok || !dialectOpcode(op) {
		return builtin{}, false
	}
	//
	pops, pushes := op.StackEffect()
	// Done
	return builtin{kind: builtinOpcode, op: op, args: pops, results: pushes}, true
}

// dialectOpcode reports whether an opcode is callable from source.  The
// stack machine underneath the dialect is not exposed.
func dialectOpcode(op evm.Opcode) bool {
	switch {
	case op == evm.PUSH0 || op.IsPush() || op.IsDup() || op.IsSwap():
		return false
	case op == evm.JUMP || op == evm.JUMPI || op == evm.JUMPDEST:
		return false
	default:
		return true
	}
}
