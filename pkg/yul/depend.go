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
	"github.com/consensys/go-smelter/pkg/ir"
)

// AccumulateDependencies walks one object's code, recording every reference
// to another object, data section or library, canonicalized exactly as the
// lowering canonicalizes them.  An object with a runtime counterpart depends
// on it implicitly, whether or not the code references it.  References the
// lowering would reject are skipped here; the lowering reports them.
func AccumulateDependencies(object *Object, path string, segment ir.CodeSegment) *ir.Dependencies {
	deps := ir.NewDependencies(segment.Identifier(path))
	//
	if object.Runtime() != nil {
		deps.Insert(ir.RuntimeIdentifier(path), false)
	}
	//
	acc := &accumulator{object: object, path: path, deps: deps}
	acc.block(object.Code)
	// Done
	return deps
}

// accumulator mirrors the lowering's descent over the statement tree, but
// only collects references.
type accumulator struct {
	object *Object
	path   string
	deps   *ir.Dependencies
}

//nolint:revive
func (p *accumulator) block(block *Block) {
	for _, statement := range block.Statements {
		p.statement(statement)
	}
}

//nolint:revive
func (p *accumulator) statement(statement Statement) {
	switch s := statement.(type) {
	case *Block:
		p.block(s)
	case *VariableDeclaration:
		if s.Value != nil {
			p.expression(s.Value)
		}
	case *Assignment:
		p.expression(s.Value)
	case *ExpressionStatement:
		p.call(s.Call)
	case *If:
		p.expression(s.Condition)
		p.block(s.Body)
	case *Switch:
		p.expression(s.Expression)
		//
		for _, arm := range s.Cases {
			p.block(arm.Body)
		}
	case *ForLoop:
		p.block(s.Init)
		p.expression(s.Condition)
		p.block(s.Post)
		p.block(s.Body)
	case *FunctionDefinition:
		p.block(s.Body)
	case *Break, *Continue, *Leave:
		// No references.
	default:
		panic("unreachable")
	}
}

//nolint:revive
func (p *accumulator) expression(expression Expression) {
	if call, ok := expression.(*FunctionCall); ok {
		p.call(call)
	}
}

//nolint:revive
func (p *accumulator) call(call *FunctionCall) {
	switch call.Name {
	case "dataoffset", "datasize":
		// The argument is a name, not code.
		if name, ok := stringArgument(call, 0); ok && name != p.object.Name {
			if identifier, err := dataIdentifier(p.object, p.path, name); err == nil {
				p.deps.Insert(identifier, !p.object.IsRuntimeOf(name))
			}
		}
		// Done
		return
	case "linkersymbol":
		if name, ok := stringArgument(call, 0); ok {
			p.deps.Insert(name, true)
		}
		// Done
		return
	}
	//
	for _, argument := range call.Arguments {
		p.expression(argument)
	}
}
