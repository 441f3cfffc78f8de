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

// Package yul parses the EVM dialect of Yul and lowers it into recorded
// modules.  The front-end emitting the source is trusted to have type-checked
// it; the lowering nonetheless rejects anything it cannot realize on the
// stack machine.
package yul

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
)

// Lower lowers one object's code block into a recorded module.  Nested
// objects are not descended into: each compiles as its own unit, with
// references between them resolved at link time.
func Lower(object *Object, path string, segment ir.CodeSegment, settings *codegen.OptimizerSettings) (*codegen.Module, error) {
	var (
		ctx      = codegen.NewContext(segment.Identifier(path), segment, settings)
		lowering = &lowering{
			ctx:      ctx,
			object:   object,
			path:     path,
			declared: make(map[string]*FunctionDefinition),
		}
	)
	// The entry function must come first, so that the code object starts
	// executing at offset zero.
	ctx.BeginEntry()
	//
	if err := lowering.lowerBlock(object.Code); err != nil {
		return nil, err
	}
	//
	ctx.EndEntry()
	// Function bodies lower after the entry; definitions nested inside other
	// bodies join the queue as their enclosing block is reached.
	for i := 0; i < len(lowering.queue); i++ {
		if err := lowering.lowerFunction(lowering.queue[i]); err != nil {
			return nil, err
		}
	}
	// Every loop context pushed during lowering must have been popped.
	if ctx.LoopDepth() != 0 {
		panic("unreachable")
	}
	// Done
	return ctx.Module(), nil
}

// lowering carries the state of one object's descent: the recording context,
// the object whose namespace resolves data references, and the queue of
// function bodies deferred until the entry completes.
type lowering struct {
	ctx    *codegen.Context
	object *Object
	path   string
	//
	queue    []*FunctionDefinition
	declared map[string]*FunctionDefinition
}

// declareFunctions hoists the function definitions of a block, so that calls
// preceding their definition resolve.
//
//nolint:revive
func (p *lowering) declareFunctions(block *Block) error {
	for _, statement := range block.Statements {
		if definition, ok := statement.(*FunctionDefinition); ok {
			if _, exists := p.declared[definition.Name]; exists {
				return backendErrorf("duplicate function %q", definition.Name)
			}
			//
			p.ctx.DeclareFunction(definition.Name,
				uint(len(definition.Params)), uint(len(definition.Returns)), definition.AstID)
			//
			p.declared[definition.Name] = definition
			p.queue = append(p.queue, definition)
		}
	}
	// Done
	return nil
}

//nolint:revive
func (p *lowering) lowerFunction(definition *FunctionDefinition) error {
	fn, ok := p.ctx.GetFunction(definition.Name)
	if !ok {
		panic("unreachable")
	}
	//
	if location, has := definition.source(); has {
		p.ctx.SetLocation(location)
	}
	//
	p.ctx.BeginFunction(fn, definition.Params, definition.Returns)
	//
	if err := p.lowerBlock(definition.Body); err != nil {
		return err
	}
	// Done
	return p.ctx.EndFunction()
}

// lowerBlock opens a scope, hoists function definitions, and lowers the
// statements in order.  Statements after a terminator are unreachable and
// dropped.
//
//nolint:revive
func (p *lowering) lowerBlock(block *Block) error {
	p.ctx.EnterScope()
	//
	if err := p.declareFunctions(block); err != nil {
		return err
	}
	//
	for _, statement := range block.Statements {
		if p.ctx.IsTerminated() {
			break
		}
		//
		if err := p.lowerStatement(statement); err != nil {
			return err
		}
	}
	//
	p.ctx.ExitScope()
	// Done
	return nil
}

//nolint:revive
func (p *lowering) lowerStatement(statement Statement) error {
	// The location becomes current before anything is emitted, even for
	// statements lowering to nothing.
	if location, ok := statement.source(); ok {
		p.ctx.SetLocation(location)
	}
	//
	switch s := statement.(type) {
	case *Block:
		return p.lowerBlock(s)
	case *VariableDeclaration:
		return p.lowerVariableDeclaration(s)
	case *Assignment:
		return p.lowerAssignment(s)
	case *ExpressionStatement:
		return p.lowerCall(s.Call, 0)
	case *If:
		return p.lowerIf(s)
	case *Switch:
		return p.lowerSwitch(s)
	case *ForLoop:
		return p.lowerForLoop(s)
	case *FunctionDefinition:
		// Hoisted already; the body lowers after the entry.
		return nil
	case *Break:
		loop, ok := p.ctx.Loop()
		if !ok {
			return backendErrorf("break outside of a loop")
		}
		//
		if err := p.ctx.PopTo(loop.BreakHeight); err != nil {
			return err
		}
		//
		p.ctx.Branch(loop.Break)
		// Done
		return nil
	case *Continue:
		loop, ok := p.ctx.Loop()
		if !ok {
			return backendErrorf("continue outside of a loop")
		}
		//
		if err := p.ctx.PopTo(loop.ContinueHeight); err != nil {
			return err
		}
		//
		p.ctx.Branch(loop.Continue)
		// Done
		return nil
	case *Leave:
		if !p.ctx.InFunction() {
			return backendErrorf("leave outside of a function")
		}
		//
		return p.ctx.Leave()
	default:
		panic("unreachable")
	}
}

//nolint:revive
func (p *lowering) lowerVariableDeclaration(statement *VariableDeclaration) error {
	if statement.Value == nil {
		// Declared variables are zero-initialized.
		for range statement.Names {
			p.ctx.EmitPush(uint256.NewInt(0))
		}
	} else if err := p.lowerExpression(statement.Value, uint(len(statement.Names))); err != nil {
		return err
	}
	//
	p.ctx.DeclareVariables(statement.Names...)
	// Done
	return nil
}

//nolint:revive
func (p *lowering) lowerAssignment(statement *Assignment) error {
	if err := p.lowerExpression(statement.Value, uint(len(statement.Names))); err != nil {
		return err
	}
	// The last value is on top, so names assign in reverse.
	for i := len(statement.Names) - 1; i >= 0; i-- {
		if err := p.ctx.AssignVariable(statement.Names[i]); err != nil {
			return err
		}
	}
	// Done
	return nil
}

// lowerIf lowers the body inline, guarded by an inverted conditional branch
// over it.  Conditions are words, compared not-equal-to-zero.
//
//nolint:revive
func (p *lowering) lowerIf(statement *If) error {
	join := p.ctx.NewBlock("if_join")
	//
	if err := p.lowerExpression(statement.Condition, 1); err != nil {
		return err
	}
	//
	p.ctx.BranchIfZero(join)
	//
	height := p.ctx.Height()
	//
	if err := p.lowerBlock(statement.Body); err != nil {
		return err
	}
	//
	if !p.ctx.IsTerminated() {
		p.ctx.Branch(join)
	}
	//
	p.ctx.MoveTo(join, height)
	// Done
	return nil
}

// lowerSwitch keeps the scrutinee on the stack through a chain of
// compare-and-branch dispatches; each arm pops it before its body runs.  The
// default arm (or the implicit empty one) lowers inline after the chain.
//
//nolint:revive
func (p *lowering) lowerSwitch(statement *Switch) error {
	if err := p.lowerExpression(statement.Expression, 1); err != nil {
		return err
	}
	// Height with the scrutinee still on the stack.
	height := p.ctx.Height()
	//
	type arm struct {
		block *codegen.Block
		body  *Block
		value *uint256.Int
	}
	//
	var (
		arms        []arm
		defaultBody *Block
	)
	//
	for _, switchCase := range statement.Cases {
		if switchCase.Value == nil {
			defaultBody = switchCase.Body
			continue
		}
		//
		arms = append(arms, arm{p.ctx.NewBlock("switch_case"), switchCase.Body, switchCase.Value.Value})
	}
	//
	join := p.ctx.NewBlock("switch_join")
	// Dispatch chain.
	for _, a := range arms {
		p.ctx.EmitOp(evm.Dup(1))
		p.ctx.EmitPush(a.value)
		p.ctx.EmitOp(evm.EQ)
		p.ctx.BranchIf(a.block)
	}
	// No case matched: drop the scrutinee and run the default arm inline.
	p.ctx.EmitOp(evm.POP)
	//
	if defaultBody != nil {
		if err := p.lowerBlock(defaultBody); err != nil {
			return err
		}
	}
	//
	if !p.ctx.IsTerminated() {
		p.ctx.Branch(join)
	}
	// Matched arms enter with the scrutinee still on the stack.
	for _, a := range arms {
		p.ctx.MoveTo(a.block, height)
		p.ctx.EmitOp(evm.POP)
		//
		if err := p.lowerBlock(a.body); err != nil {
			return err
		}
		//
		if !p.ctx.IsTerminated() {
			p.ctx.Branch(join)
		}
	}
	//
	p.ctx.MoveTo(join, height-1)
	// Done
	return nil
}

// lowerForLoop lowers the canonical loop shape: the initializer runs inline
// and its scope spans the whole loop; the condition block branches to the
// body or the join; the body falls through to the increment block, which
// branches back to the condition.
//
//nolint:revive
func (p *lowering) lowerForLoop(statement *ForLoop) error {
	p.ctx.EnterScope()
	//
	if err := p.declareFunctions(statement.Init); err != nil {
		return err
	}
	//
	for _, initStatement := range statement.Init.Statements {
		if p.ctx.IsTerminated() {
			break
		}
		//
		if err := p.lowerStatement(initStatement); err != nil {
			return err
		}
	}
	//
	var (
		condition = p.ctx.NewBlock("for_condition")
		body      = p.ctx.NewBlock("for_body")
		increment = p.ctx.NewBlock("for_increment")
		join      = p.ctx.NewBlock("for_join")
		height    = p.ctx.Height()
	)
	//
	if !p.ctx.IsTerminated() {
		p.ctx.Branch(condition)
	}
	//
	p.ctx.MoveTo(condition, height)
	//
	if err := p.lowerExpression(statement.Condition, 1); err != nil {
		return err
	}
	//
	p.ctx.BranchIfZero(join)
	p.ctx.Branch(body)
	//
	p.ctx.MoveTo(body, height)
	p.ctx.PushLoop(codegen.LoopContext{
		Continue:       increment,
		Break:          join,
		ContinueHeight: height,
		BreakHeight:    height,
	})
	//
	if err := p.lowerBlock(statement.Body); err != nil {
		return err
	}
	//
	p.ctx.PopLoop()
	//
	if !p.ctx.IsTerminated() {
		p.ctx.Branch(increment)
	}
	//
	p.ctx.MoveTo(increment, height)
	//
	if err := p.lowerBlock(statement.Post); err != nil {
		return err
	}
	//
	if !p.ctx.IsTerminated() {
		p.ctx.Branch(condition)
	}
	//
	p.ctx.MoveTo(join, height)
	p.ctx.ExitScope()
	// Done
	return nil
}

// ============================================================================
// Expressions
// ============================================================================

// lowerExpression lowers an expression required to produce the given number
// of values.  Only a call can produce anything other than one.
//
//nolint:revive
func (p *lowering) lowerExpression(expression Expression, expected uint) error {
	switch e := expression.(type) {
	case *Literal:
		if expected != 1 {
			return backendErrorf("literal produces one value, not %d", expected)
		}
		//
		p.ctx.EmitPush(e.Value)
		// Done
		return nil
	case *Identifier:
		if expected != 1 {
			return backendErrorf("variable %q produces one value, not %d", e.Name, expected)
		}
		//
		return p.ctx.PushVariable(e.Name)
	case *FunctionCall:
		return p.lowerCall(e, expected)
	default:
		panic("unreachable")
	}
}

//nolint:revive
func (p *lowering) lowerCall(call *FunctionCall, expected uint) error {
	if form, ok := lookupBuiltin(call.Name); ok {
		return p.lowerBuiltin(call, form, expected)
	}
	//
	fn, ok := p.ctx.GetFunction(call.Name)
	if !ok {
		return backendErrorf("call to undefined function %q", call.Name)
	}
	//
	if uint(len(call.Arguments)) != fn.Params {
		return backendErrorf("function %q takes %d arguments, got %d", call.Name, fn.Params, len(call.Arguments))
	}
	//
	if fn.Results != expected {
		return backendErrorf("function %q returns %d values, expected %d", call.Name, fn.Results, expected)
	}
	//
	returnBlock := p.ctx.BeginCall(fn)
	// Arguments evaluate right-to-left, leaving the first on top.
	for i := len(call.Arguments) - 1; i >= 0; i-- {
		if err := p.lowerExpression(call.Arguments[i], 1); err != nil {
			return err
		}
	}
	//
	p.ctx.FinishCall(fn, returnBlock)
	// Done
	return nil
}

//nolint:revive
func (p *lowering) lowerBuiltin(call *FunctionCall, form builtin, expected uint) error {
	if uint(len(call.Arguments)) != form.args {
		return backendErrorf("builtin %q takes %d arguments, got %d", call.Name, form.args, len(call.Arguments))
	}
	//
	if form.results != expected {
		return backendErrorf("builtin %q returns %d values, expected %d", call.Name, form.results, expected)
	}
	//
	switch form.kind {
	case builtinOpcode:
		// Arguments evaluate right-to-left, leaving the first on top.
		for i := len(call.Arguments) - 1; i >= 0; i-- {
			if err := p.lowerExpression(call.Arguments[i], 1); err != nil {
				return err
			}
		}
		//
		p.ctx.EmitOp(form.op)
	case builtinDataOffset:
		name, err := p.stringArgument(call, 0)
		if err != nil {
			return err
		}
		//
		return p.lowerDataOffset(name)
	case builtinDataSize:
		name, err := p.stringArgument(call, 0)
		if err != nil {
			return err
		}
		//
		return p.lowerDataSize(name)
	case builtinDataCopy:
		// datacopy reads from the code address space.
		for i := len(call.Arguments) - 1; i >= 0; i-- {
			if err := p.lowerExpression(call.Arguments[i], 1); err != nil {
				return err
			}
		}
		//
		p.ctx.EmitOp(evm.CODECOPY)
	case builtinSetImmutable:
		name, err := p.stringArgument(call, 1)
		if err != nil {
			return err
		}
		// The value lowers first, then the base pointer of the runtime code
		// copy; the name is consumed at record time.
		if err := p.lowerExpression(call.Arguments[2], 1); err != nil {
			return err
		}
		//
		if err := p.lowerExpression(call.Arguments[0], 1); err != nil {
			return err
		}
		//
		p.ctx.EmitSetImmutable(name)
	case builtinLoadImmutable:
		name, err := p.stringArgument(call, 0)
		if err != nil {
			return err
		}
		//
		p.ctx.EmitPushImmutable(name)
	case builtinLinkerSymbol:
		name, err := p.stringArgument(call, 0)
		if err != nil {
			return err
		}
		//
		p.ctx.EmitPushLibrary(name)
	case builtinMemoryGuard:
		return p.lowerMemoryGuard(call)
	default:
		panic("unreachable")
	}
	// Done
	return nil
}

// lowerMemoryGuard reserves the front-end's static memory area, enlarged by
// the configured spill area.
//
//nolint:revive
func (p *lowering) lowerMemoryGuard(call *FunctionCall) error {
	spill := p.ctx.SpillAreaSize()
	//
	if literal, ok := call.Arguments[0].(*Literal); ok {
		p.ctx.EmitPush(new(uint256.Int).AddUint64(literal.Value, spill))
		// Done
		return nil
	}
	//
	if err := p.lowerExpression(call.Arguments[0], 1); err != nil {
		return err
	}
	//
	if spill > 0 {
		p.ctx.EmitPush(uint256.NewInt(spill))
		p.ctx.EmitOp(evm.ADD)
	}
	// Done
	return nil
}

// stringArgument extracts a literal string argument, required by the builtins
// naming objects, immutables and libraries.
func stringArgument(call *FunctionCall, index int) (string, bool) {
	if index < len(call.Arguments) {
		if literal, ok := call.Arguments[index].(*Literal); ok && literal.IsString {
			return literal.Text, true
		}
	}
	// Done
	return "", false
}

//nolint:revive
func (p *lowering) stringArgument(call *FunctionCall, index int) (string, error) {
	if name, ok := stringArgument(call, index); ok {
		return name, nil
	}
	// Done
	return "", backendErrorf("builtin %q requires a literal string argument", call.Name)
}

// lowerDataOffset pushes the code offset of a referenced object or data
// section.  The object's own offset is zero; its runtime counterpart and
// everything else resolve at link time.
//
//nolint:revive
func (p *lowering) lowerDataOffset(name string) error {
	switch {
	case name == p.object.Name:
		p.ctx.EmitPush(uint256.NewInt(0))
	default:
		identifier, err := dataIdentifier(p.object, p.path, name)
		if err != nil {
			return err
		}
		//
		p.ctx.EmitDataOffset(identifier)
	}
	// Done
	return nil
}

// lowerDataSize pushes the size of a referenced object or data section.  The
// object's own size is the program size, resolved at link time once all
// sub-objects are placed.
//
//nolint:revive
func (p *lowering) lowerDataSize(name string) error {
	switch {
	case name == p.object.Name:
		p.ctx.EmitProgramSize()
	default:
		identifier, err := dataIdentifier(p.object, p.path, name)
		if err != nil {
			return err
		}
		//
		p.ctx.EmitDataSize(identifier)
	}
	// Done
	return nil
}

// dataIdentifier canonicalizes a source-level object or data reference into
// a link-time identifier.  The object's own runtime counterpart maps onto the
// runtime naming convention; nested objects and data sections keep their
// source names, resolved within this object's namespace at link time.
func dataIdentifier(object *Object, path, name string) (string, error) {
	switch {
	case object.IsRuntimeOf(name):
		return ir.RuntimeIdentifier(path), nil
	case object.Nested(name) != nil:
		return name, nil
	case object.Data[name] != nil:
		return name, nil
	default:
		return "", backendErrorf("reference to unknown object %q", name)
	}
}

func backendErrorf(format string, args ...any) *codegen.BackendError {
	return &codegen.BackendError{Reason: fmt.Sprintf(format, args...)}
}
