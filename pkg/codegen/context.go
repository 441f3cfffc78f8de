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
	"github.com/consensys/go-smelter/pkg/debuginfo"
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/util/collection/stack"
	"github.com/holiman/uint256"
)

// LoopContext carries the branch targets of the innermost loop during
// structured lowering.  Continue branches to the increment block, break to
// the join block; both record the stack height to unwind to first.
type LoopContext struct {
	Continue       *Block
	Break          *Block
	ContinueHeight uint
	BreakHeight    uint
}

// localVar binds a named variable to its absolute position above the frame
// base.
type localVar struct {
	name     string
	position uint
}

// frame models the compile-time stack of one function during lowering.
// Position 0 is the first slot above the caller's return tag; parameters
// arrive there first, then named results, then scope locals.
type frame struct {
	fn          *Function
	returnBlock *Block
	entry       bool
	height      uint
	vars        []localVar
	scopes      []uint
	results     []string
}

// Context drives structured lowering into a recorded module.  It tracks the
// insertion block, the modeled stack height, variable bindings, the
// loop-context stack and the current debug location.  A Context is
// single-threaded; concurrency lives above, at the code-object level.
type Context struct {
	module    *Module
	current   *Block
	frame     *frame
	loops     *stack.Stack[LoopContext]
	location  debuginfo.Location
	functions map[string]*Function
	spillArea uint64
}

// NewContext constructs a context recording a fresh module for the given
// code object.  The settings contribute record-time parameters only (the
// spill area of the memory guard); emission settings are chosen later, per
// attempt.
func NewContext(name string, segment ir.CodeSegment, settings *OptimizerSettings) *Context {
	return &Context{
		module:    NewModule(name, segment),
		loops:     stack.NewStack[LoopContext](),
		location:  debuginfo.UnknownLocation(),
		functions: make(map[string]*Function),
		spillArea: settings.SpillAreaSize,
	}
}

// Module returns the recorded module.
//
//nolint:revive
func (p *Context) Module() *Module {
	return p.module
}

// SpillAreaSize returns the scratch-memory reservation added to the memory
// guard.
//
//nolint:revive
func (p *Context) SpillAreaSize() uint64 {
	return p.spillArea
}

// ============================================================================
// Debug locations
// ============================================================================

// SetLocation sets the current debug location, stamped onto every
// instruction emitted from here on.
//
//nolint:revive
func (p *Context) SetLocation(location debuginfo.Location) {
	p.location = location
}

// Location returns the current debug location.
//
//nolint:revive
func (p *Context) Location() debuginfo.Location {
	return p.location
}

// ============================================================================
// Blocks
// ============================================================================

// NewBlock appends a fresh block to the current function.
//
//nolint:revive
func (p *Context) NewBlock(label string) *Block {
	return p.module.NewBlock(p.frame.fn, label)
}

// SetBlock moves the insertion point to the given block.
//
//nolint:revive
func (p *Context) SetBlock(block *Block) {
	p.current = block
}

// MoveTo moves the insertion point to the given block and resets the modeled
// stack height to the height at that block's entry.  Structured lowering uses
// this when resuming a join block whose entry height differs from the height
// left behind by a terminated path.
//
//nolint:revive
func (p *Context) MoveTo(block *Block, height uint) {
	p.current = block
	p.frame.height = height
}

// CurrentBlock returns the insertion point.
//
//nolint:revive
func (p *Context) CurrentBlock() *Block {
	return p.current
}

// IsTerminated reports whether the insertion block already ends in a
// terminator.
//
//nolint:revive
func (p *Context) IsTerminated() bool {
	return p.current.IsTerminated()
}

// ============================================================================
// Functions
// ============================================================================

// DeclareFunction registers a function ahead of its body, so that calls and
// bodies can be lowered in any order.
//
//nolint:revive
func (p *Context) DeclareFunction(name string, params, results uint, astID int64) *Function {
	fn := p.module.NewFunction(name, params, results)
	fn.AstID = astID
	p.functions[name] = fn
	// Done
	return fn
}

// GetFunction looks up a declared function.
//
//nolint:revive
func (p *Context) GetFunction(name string) (*Function, bool) {
	fn, ok := p.functions[name]
	return fn, ok
}

// BeginEntry starts lowering the module's entry function.  The entry runs at
// offset zero, is never called and never returns.
//
//nolint:revive
func (p *Context) BeginEntry() *Function {
	fn := p.module.NewFunction("main", 0, 0)
	p.frame = &frame{fn: fn, entry: true}
	p.current = fn.Entry()
	// Done
	return fn
}

// EndEntry finishes the entry function, sealing a fall-through with STOP.
//
//nolint:revive
func (p *Context) EndEntry() {
	if !p.current.IsTerminated() {
		p.EmitOp(evm.STOP)
	}
	//
	p.frame = nil
}

// BeginFunction starts lowering the body of a declared function.  On entry
// the caller has pushed its return tag and then the arguments right-to-left,
// so the first parameter is on top; named results are allocated above the
// parameters, initialized to zero.
//
//nolint:revive
func (p *Context) BeginFunction(fn *Function, params, results []string) {
	p.frame = &frame{fn: fn, results: results}
	p.frame.returnBlock = p.module.NewBlock(fn, fn.Name+"_return")
	p.current = fn.Entry()
	// Parameters sit at positions 0..n-1, last parameter deepest.
	n := uint(len(params))
	p.frame.height = n
	//
	for i, name := range params {
		p.frame.vars = append(p.frame.vars, localVar{name, n - 1 - uint(i)})
	}
	// Results are zero-initialized above the parameters.
	for _, name := range results {
		p.EmitPush(uint256.NewInt(0))
		p.frame.vars = append(p.frame.vars, localVar{name, p.frame.height - 1})
	}
}

// EndFunction finishes a function body: a fall-through joins the return
// block, and the return block shuffles the results over the frame and jumps
// back to the caller.
//
//nolint:revive
func (p *Context) EndFunction() error {
	if !p.current.IsTerminated() {
		if err := p.Leave(); err != nil {
			return err
		}
	}
	// Emit the epilogue.
	p.current = p.frame.returnBlock
	//
	if err := p.emitReturnShuffle(); err != nil {
		return err
	}
	//
	p.EmitOp(evm.JUMP)
	p.frame = nil
	// Done
	return nil
}

// InFunction reports whether lowering is inside a declared function body, as
// opposed to the entry function.
//
//nolint:revive
func (p *Context) InFunction() bool {
	return p.frame != nil && !p.frame.entry
}

// Leave unwinds scope locals and branches to the function's return block.
//
//nolint:revive
func (p *Context) Leave() error {
	canonical := p.frame.fn.Params + p.frame.fn.Results
	//
	if err := p.PopTo(canonical); err != nil {
		return err
	}
	//
	p.Branch(p.frame.returnBlock)
	// Done
	return nil
}

// emitReturnShuffle rearranges [tag, params..., results...] into
// [results..., tag] so that the closing JUMP returns with the results in
// declaration order, last result on top.
//
//nolint:revive
func (p *Context) emitReturnShuffle() error {
	var (
		n       = p.frame.fn.Params
		m       = p.frame.fn.Results
		current = make([]int, 0, n+m+1)
		target  = make([]int, 0, m+1)
	)
	// Slot ids: 0 is the return tag, 1..n the parameters, n+1..n+m the
	// results.
	for i := uint(0); i <= n+m; i++ {
		current = append(current, int(i))
	}
	//
	for i := uint(1); i <= m; i++ {
		target = append(target, int(n+i))
	}
	//
	target = append(target, 0)
	//
	steps, err := shuffle(current, target)
	if err != nil {
		return err
	}
	//
	for _, step := range steps {
		if step.pop {
			p.current.Append(Instruction{Kind: InstOpcode, Op: evm.POP, Loc: p.location})
		} else {
			p.current.Append(Instruction{Kind: InstOpcode, Op: evm.Swap(step.depth), Loc: p.location})
		}
	}
	// Done
	return nil
}

// ============================================================================
// Variables and scopes
// ============================================================================

// EnterScope opens a lexical scope; variables declared inside are popped on
// exit.
//
//nolint:revive
func (p *Context) EnterScope() {
	p.frame.scopes = append(p.frame.scopes, uint(len(p.frame.vars)))
}

// ExitScope closes the innermost scope, popping its locals off the stack.
// When the insertion block already ended in a terminator (break, continue,
// leave, revert) the locals were unwound by the branch; only the bindings are
// dropped.
//
//nolint:revive
func (p *Context) ExitScope() {
	var (
		n    = len(p.frame.scopes) - 1
		mark = p.frame.scopes[n]
	)
	//
	p.frame.scopes = p.frame.scopes[:n]
	//
	if p.current.IsTerminated() {
		p.frame.vars = p.frame.vars[:mark]
		return
	}
	//
	for uint(len(p.frame.vars)) > mark {
		p.frame.vars = p.frame.vars[:len(p.frame.vars)-1]
		p.EmitOp(evm.POP)
	}
}

// DeclareVariables binds the top len(names) stack slots, deepest first, as
// named variables of the current scope.
//
//nolint:revive
func (p *Context) DeclareVariables(names ...string) {
	base := p.frame.height - uint(len(names))
	//
	for i, name := range names {
		p.frame.vars = append(p.frame.vars, localVar{name, base + uint(i)})
	}
}

// lookupVariable resolves a name to its frame position, innermost binding
// first.
//
//nolint:revive
func (p *Context) lookupVariable(name string) (uint, bool) {
	for i := len(p.frame.vars) - 1; i >= 0; i-- {
		if p.frame.vars[i].name == name {
			return p.frame.vars[i].position, true
		}
	}
	//
	return 0, false
}

// IsVariable reports whether the name is bound in the current frame.
//
//nolint:revive
func (p *Context) IsVariable(name string) bool {
	_, ok := p.lookupVariable(name)
	return ok
}

// PushVariable duplicates a variable's slot onto the stack top.
//
//nolint:revive
func (p *Context) PushVariable(name string) error {
	position, ok := p.lookupVariable(name)
	if !ok {
		return backendErrorf("undeclared variable %q", name)
	}
	//
	depth := p.frame.height - position
	if depth > 16 {
		return backendErrorf("variable %q is stack too deep (%d slots)", name, depth)
	}
	//
	p.EmitOp(evm.Dup(depth))
	// Done
	return nil
}

// AssignVariable stores the stack top into a variable's slot.
//
//nolint:revive
func (p *Context) AssignVariable(name string) error {
	position, ok := p.lookupVariable(name)
	if !ok {
		return backendErrorf("undeclared variable %q", name)
	}
	//
	depth := p.frame.height - 1 - position
	if depth > 16 {
		return backendErrorf("variable %q is stack too deep (%d slots)", name, depth)
	}
	//
	p.EmitOp(evm.Swap(depth))
	p.EmitOp(evm.POP)
	// Done
	return nil
}

// Height returns the modeled stack height above the frame base.
//
//nolint:revive
func (p *Context) Height() uint {
	return p.frame.height
}

// PopTo pops stack slots until the modeled height reaches the given target.
//
//nolint:revive
func (p *Context) PopTo(height uint) error {
	if p.frame.height < height {
		return backendErrorf("cannot unwind stack upwards (%d < %d)", p.frame.height, height)
	}
	//
	for p.frame.height > height {
		p.EmitOp(evm.POP)
	}
	// Done
	return nil
}

// ============================================================================
// Loops
// ============================================================================

// PushLoop enters a loop body, making its branch targets visible to break
// and continue.
//
//nolint:revive
func (p *Context) PushLoop(loop LoopContext) {
	p.loops.Push(loop)
}

// PopLoop leaves a loop body.
//
//nolint:revive
func (p *Context) PopLoop() {
	p.loops.Pop()
}

// Loop returns the innermost loop context.
//
//nolint:revive
func (p *Context) Loop() (LoopContext, bool) {
	if p.loops.IsEmpty() {
		return LoopContext{}, false
	}
	//
	return p.loops.Top(), true
}

// LoopDepth returns the nesting depth of the loop-context stack.
//
//nolint:revive
func (p *Context) LoopDepth() uint {
	return p.loops.Len()
}

// ============================================================================
// Instruction emission
// ============================================================================

// EmitOp appends a native EVM instruction, updating the modeled height.
//
//nolint:revive
func (p *Context) EmitOp(op evm.Opcode) {
	pops, pushes := op.StackEffect()
	//
	if p.frame.height < pops {
		panic("stack underflow during lowering")
	}
	//
	p.frame.height = p.frame.height - pops + pushes
	p.current.Append(Instruction{Kind: InstOpcode, Op: op, Loc: p.location})
}

// EmitPush pushes a constant.
//
//nolint:revive
func (p *Context) EmitPush(value *uint256.Int) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstPush, Value: value, Loc: p.location})
}

// EmitPushTag pushes the code offset of a block.
//
//nolint:revive
func (p *Context) EmitPushTag(target *Block) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstPushTag, Target: target, Loc: p.location})
}

// EmitDataOffset pushes the link-time offset of a data object.
//
//nolint:revive
func (p *Context) EmitDataOffset(identifier string) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstDataOffset, Ident: identifier, Loc: p.location})
}

// EmitDataSize pushes the link-time size of a data object.
//
//nolint:revive
func (p *Context) EmitDataSize(identifier string) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstDataSize, Ident: identifier, Loc: p.location})
}

// EmitProgramSize pushes the link-time total size of this code object.
//
//nolint:revive
func (p *Context) EmitProgramSize() {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstProgramSize, Loc: p.location})
}

// EmitPushLibrary pushes a 20-byte placeholder recorded for link-time
// patching.
//
//nolint:revive
func (p *Context) EmitPushLibrary(name string) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstPushLibrary, Ident: name, Loc: p.location})
}

// EmitPushImmutable pushes a 32-byte placeholder whose operand offsets
// populate the immutables table.
//
//nolint:revive
func (p *Context) EmitPushImmutable(name string) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstPushImmutable, Ident: name, Loc: p.location})
}

// EmitSetImmutable consumes [value, pointer] and stores the value at every
// reference of the named immutable within the runtime code copy at pointer.
//
//nolint:revive
func (p *Context) EmitSetImmutable(name string) {
	if p.frame.height < 2 {
		panic("stack underflow during lowering")
	}
	//
	p.frame.height -= 2
	p.current.Append(Instruction{Kind: InstSetImmutable, Ident: name, Loc: p.location})
}

// EmitConstRef pushes the code offset of a private constant.
//
//nolint:revive
func (p *Context) EmitConstRef(constant *Constant) {
	p.frame.height++
	p.current.Append(Instruction{Kind: InstConstRef, Const: constant, Loc: p.location})
}

// ============================================================================
// Control flow
// ============================================================================

// Branch jumps unconditionally to the target block.
//
//nolint:revive
func (p *Context) Branch(target *Block) {
	p.EmitPushTag(target)
	p.EmitOp(evm.JUMP)
}

// BranchIf consumes the stack top and jumps to the target when it is
// non-zero.
//
//nolint:revive
func (p *Context) BranchIf(target *Block) {
	p.EmitPushTag(target)
	p.EmitOp(evm.JUMPI)
}

// BranchIfZero consumes the stack top and jumps to the target when it is
// zero.
//
//nolint:revive
func (p *Context) BranchIfZero(target *Block) {
	p.EmitOp(evm.ISZERO)
	p.BranchIf(target)
}

// BeginCall pushes the return tag of a function call and returns the block
// the callee will return to.  Arguments are lowered after this, right-to-
// left, then FinishCall jumps to the callee.
//
//nolint:revive
func (p *Context) BeginCall(fn *Function) *Block {
	returnBlock := p.NewBlock(fn.Name + "_call_return")
	p.EmitPushTag(returnBlock)
	// Done
	return returnBlock
}

// FinishCall jumps to the callee and continues lowering in the return
// block, with the callee's results replacing the call frame on the modeled
// stack.
//
//nolint:revive
func (p *Context) FinishCall(fn *Function, returnBlock *Block) {
	p.Branch(fn.Entry())
	// The callee consumes the arguments and the return tag, and pushes its
	// results.
	p.frame.height = p.frame.height - 1 - fn.Params + fn.Results
	p.current = returnBlock
}
