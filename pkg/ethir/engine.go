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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/evmla"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/util/collection/hash"
)

// VisitedElement keys the expansion memo: one source tag within one segment,
// together with the fingerprint of the stack shape it was entered under.
type VisitedElement struct {
	// Segment disambiguates deploy and runtime tag namespaces.
	Segment ir.CodeSegment
	// Tag is the source block tag.
	Tag uint64
	// StackHash fingerprints the entry stack shape.
	StackHash uint64
}

// Equals implementation for the hash.Hasher interface.
func (p VisitedElement) Equals(other VisitedElement) bool {
	return p == other
}

// Hash implementation for the hash.Hasher interface.
func (p VisitedElement) Hash() uint64 {
	return hash.Fnv64a(uint64(p.Segment), p.Tag, p.StackHash)
}

// Instance is one materialization of a source block under a concrete entry
// stack shape.  A source block entered under two different shapes yields two
// instances, each translated independently.
type Instance struct {
	// ID is the materialization order, starting at one.
	ID uint
	// Tag identifies the source block.
	Tag uint64
	// Ordinal numbers the instances of one tag, starting at zero.
	Ordinal uint
	// StackHash fingerprints the entry stack shape.
	StackHash uint64
	// Entry renders the entry stack shape for diagnostics.
	Entry string
	// Function names the defined function beginning at this block when the
	// assembler metadata identifies one.
	Function string
	// Block receives the translated instructions.
	Block *codegen.Block

	source *sourceBlock
	stack  *Stack
}

// Engine reconstructs one code segment of a legacy assembly artifact into a
// lowering module.  Starting from the entry prelude under an empty stack, it
// symbolically executes each reachable block, resolving every jump to the
// tag element on top of the modeled stack, and schedules the successors it
// discovers until the reachable control flow is exhausted.
type Engine struct {
	assembly *evmla.Assembly
	path     string
	segment  ir.CodeSegment
	// blocks indexes source blocks by tag.
	blocks map[uint64]*sourceBlock
	// canonical assigns a lowering block to each pushed tag before any
	// instance of it is materialized, so pushed tag values keep a concrete
	// code offset.
	canonical map[uint64]*codegen.Block
	// materialized counts instances per tag.
	materialized map[uint64]uint
	// visited memoizes the (tag, stack shape) pairs already materialized.
	visited *hash.Map[VisitedElement, *Instance]
	// instances records materialization order for dumps.
	instances []*Instance
	// worklist queues materialized instances pending expansion.
	worklist []*Instance
	// ctx is the lowering context of the module under construction.
	ctx *codegen.Context
}

// NewEngine constructs a reconstruction engine for one code segment of the
// given legacy assembly artifact.
func NewEngine(assembly *evmla.Assembly, path string, segment ir.CodeSegment) *Engine {
	return &Engine{
		assembly:     assembly,
		path:         path,
		segment:      segment,
		canonical:    make(map[uint64]*codegen.Block),
		materialized: make(map[uint64]uint),
		visited:      hash.NewMap[VisitedElement, *Instance](256),
	}
}

// Lower reconstructs the segment into a module ready for emission.
//
//nolint:revive
func (p *Engine) Lower(settings *codegen.OptimizerSettings) (*codegen.Module, error) {
	var err error
	//
	if p.blocks, err = splitBlocks(p.assembly.Code); err != nil {
		return nil, err
	}
	//
	p.ctx = codegen.NewContext(p.segment.Identifier(p.path), p.segment, settings)
	p.ctx.BeginEntry()
	// The prelude before the first tag runs under an empty stack.
	if err := p.expand(p.blocks[entryTag], NewStack()); err != nil {
		return nil, err
	}
	// Drain the worklist; expansion may append further instances.
	for i := 0; i < len(p.worklist); i++ {
		instance := p.worklist[i]
		p.ctx.MoveTo(instance.Block, instance.stack.Len())
		//
		if err := p.expand(instance.source, instance.stack); err != nil {
			return nil, err
		}
	}
	//
	p.trapUnreachable()
	p.ctx.EndEntry()
	// Done
	return p.ctx.Module(), nil
}

// Dump renders the reconstructed control flow for diagnostics: one line per
// materialized instance with its entry stack shape and, where the assembler
// metadata names one, the defined function beginning there.
//
//nolint:revive
func (p *Engine) Dump() string {
	var builder strings.Builder
	//
	fmt.Fprintf(&builder, "ethereal ir for %q:\n", p.segment.Identifier(p.path))
	//
	for _, instance := range p.instances {
		fmt.Fprintf(&builder, "  block %s", instance.Block.Label)
		//
		if instance.Function != "" {
			fmt.Fprintf(&builder, " function %s", instance.Function)
		}
		//
		fmt.Fprintf(&builder, " stack %s\n", instance.Entry)
	}
	// Done
	return builder.String()
}

// expand translates one source block under the given entry stack, emitting
// into the current insertion point and scheduling newly discovered
// successors.
func (p *Engine) expand(block *sourceBlock, stack *Stack) error {
	for i := range block.Code {
		instruction := &block.Code[i]
		p.ctx.SetLocation(instruction.Location())
		//
		done, err := p.translate(block, instruction, stack)
		//
		if err != nil {
			return err
		} else if done {
			return nil
		}
	}
	// Control ran off the end of the stream.
	if block.Next == nil {
		p.ctx.EmitOp(evm.STOP)
		return nil
	}
	//
	target, err := p.resolve(block.Next.Tag, stack)
	if err != nil {
		return err
	}
	//
	p.ctx.Branch(target)
	// Done
	return nil
}

// translate emits the lowering of a single instruction, mirroring its stack
// effect on the symbolic stack.  It reports true when the instruction ends
// the block.
func (p *Engine) translate(block *sourceBlock, instruction *evmla.Instruction, stack *Stack) (bool, error) {
	switch {
	case instruction.Name == evmla.NameTag:
		panic("unreachable")
	case instruction.Name == evmla.NamePush:
		value, err := instruction.PushValue()
		if err != nil {
			return false, malformedf("%v", err)
		}
		//
		p.ctx.EmitPush(value)
		stack.Push(ConstantElement(value))
	case instruction.Name == evmla.NamePushTag:
		return false, p.pushTag(instruction, stack)
	case instruction.Name == evmla.NamePushData,
		instruction.Name == evmla.NamePushDataOffset,
		instruction.Name == evmla.NamePushDataSize:
		return false, p.pushData(instruction, stack)
	case instruction.Name == evmla.NamePushSize:
		p.ctx.EmitProgramSize()
		stack.Push(UnknownElement())
	case instruction.Name == evmla.NamePushLibrary:
		p.ctx.EmitPushLibrary(instruction.Value)
		stack.Push(UnknownElement())
	case instruction.Name == evmla.NamePushImmutable:
		p.ctx.EmitPushImmutable(instruction.Value)
		stack.Push(UnknownElement())
	case instruction.Name == evmla.NameAssignImmutable:
		if !stack.PopN(2) {
			return false, p.underflow(block, instruction)
		}
		//
		p.ctx.EmitSetImmutable(instruction.Value)
	case instruction.IsJump():
		return true, p.jump(block, instruction, stack)
	case instruction.Name == "JUMPI":
		return false, p.jumpi(block, instruction, stack)
	case instruction.Name == "JUMPDEST":
		// Block entry points are re-established at emission time.
	case instruction.Name == "CODECOPY":
		return false, p.codecopy(block, instruction, stack)
	default:
		return p.opcode(block, instruction, stack)
	}
	// Done
	return false, nil
}

// opcode translates a native EVM instruction.
func (p *Engine) opcode(block *sourceBlock, instruction *evmla.Instruction, stack *Stack) (bool, error) {
	op, ok := evm.Lookup(instruction.Name)
	// Sized pushes carry their operand inline and never appear in the
	// assembler's output.
	if !ok || op.IsPush() {
		return false, malformedf("unsupported instruction %q in %s code", instruction.Name, p.segment)
	}
	//
	switch {
	case op == evm.PUSH0:
		p.ctx.EmitOp(op)
		stack.Push(ConstantElement(uint256.NewInt(0)))
	case op.IsDup():
		if !stack.Dup(uint(op-evm.DUP1) + 1) {
			return false, p.underflow(block, instruction)
		}
		//
		p.ctx.EmitOp(op)
	case op.IsSwap():
		if !stack.Swap(uint(op-evm.SWAP1) + 1) {
			return false, p.underflow(block, instruction)
		}
		//
		p.ctx.EmitOp(op)
	default:
		pops, pushes := op.StackEffect()
		if !stack.PopN(pops) {
			return false, p.underflow(block, instruction)
		}
		//
		for n := uint(0); n < pushes; n++ {
			stack.Push(UnknownElement())
		}
		//
		p.ctx.EmitOp(op)
	}
	// Done
	return op.IsTerminator(), nil
}

// pushTag translates PUSH [tag], binding the pushed value to the canonical
// block of the destination.
func (p *Engine) pushTag(instruction *evmla.Instruction, stack *Stack) error {
	tag, err := instruction.Tag()
	if err != nil {
		return malformedf("%v", err)
	}
	//
	p.ctx.EmitPushTag(p.canonicalBlock(tag))
	stack.Push(TagElement(tag))
	// Done
	return nil
}

// pushData translates the data reference pushes.  Plain PUSH data keeps hex
// payloads symbolic so that a following CODECOPY can rematerialize them as
// module constants.
func (p *Engine) pushData(instruction *evmla.Instruction, stack *Stack) error {
	identifier, err := evmla.DataIdentifier(p.assembly, p.path, p.segment, instruction.Value)
	if err != nil {
		return malformedf("%v", err)
	}
	//
	switch instruction.Name {
	case evmla.NamePushDataSize:
		p.ctx.EmitDataSize(identifier)
		stack.Push(UnknownElement())
	case evmla.NamePushDataOffset:
		p.ctx.EmitDataOffset(identifier)
		stack.Push(UnknownElement())
	default:
		p.ctx.EmitDataOffset(identifier)
		//
		entry := p.assembly.Data[instruction.Value]
		if entry == nil || entry.Hex == "" {
			stack.Push(UnknownElement())
			return nil
		}
		//
		payload, err := hex.DecodeString(entry.Hex)
		if err != nil {
			return malformedf("malformed hex payload %q of data entry %q", entry.Hex, instruction.Value)
		}
		//
		stack.Push(DataElement(payload))
	}
	// Done
	return nil
}

// jump translates an unconditional jump.  The destination must be a tag
// element; the runtime address is dropped in favour of a direct branch to
// the instance resolved for the current stack shape.
func (p *Engine) jump(block *sourceBlock, instruction *evmla.Instruction, stack *Stack) error {
	destination, ok := stack.Pop()
	//
	switch {
	case !ok:
		return p.underflow(block, instruction)
	case destination.Kind != ElemTag:
		return p.unresolved(block, instruction)
	}
	//
	p.ctx.EmitOp(evm.POP)
	//
	target, err := p.resolve(destination.Tag, stack)
	if err != nil {
		return err
	}
	//
	p.ctx.Branch(target)
	// Done
	return nil
}

// jumpi translates a conditional jump.  Control continues in the same block
// on the fall-through path.
func (p *Engine) jumpi(block *sourceBlock, instruction *evmla.Instruction, stack *Stack) error {
	destination, ok := stack.Pop()
	if !ok {
		return p.underflow(block, instruction)
	}
	//
	if _, ok := stack.Pop(); !ok {
		return p.underflow(block, instruction)
	}
	//
	if destination.Kind != ElemTag {
		return p.unresolved(block, instruction)
	}
	// Drop the address placeholder, leaving the condition on top.
	p.ctx.EmitOp(evm.POP)
	// The taken path enters the destination with both operands consumed.
	target, err := p.resolve(destination.Tag, stack.Clone())
	if err != nil {
		return err
	}
	//
	p.ctx.BranchIf(target)
	// Done
	return nil
}

// codecopy translates CODECOPY, rewriting copies whose source operand is a
// static data payload into a reference to a module constant.  Such copies
// address compile-time tables whose code offsets would be meaningless after
// reconstruction.
func (p *Engine) codecopy(block *sourceBlock, instruction *evmla.Instruction, stack *Stack) error {
	if _, ok := stack.Pop(); !ok { // destination offset
		return p.underflow(block, instruction)
	}
	//
	source, ok := stack.Pop()
	if !ok {
		return p.underflow(block, instruction)
	}
	//
	if _, ok := stack.Pop(); !ok { // length
		return p.underflow(block, instruction)
	}
	//
	if source.Kind != ElemData {
		p.ctx.EmitOp(evm.CODECOPY)
		return nil
	}
	// Replace the source offset and length operands with the constant's
	// offset and actual payload length.
	var (
		constant = p.ctx.Module().AddConstant(source.Payload)
		length   = uint256.NewInt(uint64(len(source.Payload)))
	)
	//
	p.ctx.EmitOp(evm.SWAP2)
	p.ctx.EmitOp(evm.POP)
	p.ctx.EmitOp(evm.POP)
	p.ctx.EmitPush(length)
	p.ctx.EmitConstRef(constant)
	p.ctx.EmitOp(evm.SWAP1)
	p.ctx.EmitOp(evm.SWAP2)
	p.ctx.EmitOp(evm.CODECOPY)
	// Done
	return nil
}

// resolve returns the lowering block for a provable jump to the given tag
// under the given entry stack, materializing a fresh instance when this
// (tag, stack shape) pair has not been seen before.
func (p *Engine) resolve(tag uint64, stack *Stack) (*codegen.Block, error) {
	key := VisitedElement{Segment: p.segment, Tag: tag, StackHash: stack.Hash()}
	//
	if instance, ok := p.visited.Get(key); ok {
		return instance.Block, nil
	}
	//
	source, ok := p.blocks[tag]
	if !ok {
		return nil, &UnresolvedTargetError{Segment: p.segment, Tag: tag, Reason: "jump to undefined tag"}
	}
	// Done
	return p.materialize(source, stack, key).Block, nil
}

// materialize creates, memoizes and schedules a block instance.
func (p *Engine) materialize(source *sourceBlock, stack *Stack, key VisitedElement) *Instance {
	var (
		ordinal = p.materialized[source.Tag]
		block   *codegen.Block
	)
	// The first instance of a tag adopts the canonical block, so that tag
	// values already pushed resolve to it.
	if canonical, ok := p.canonical[source.Tag]; ok && ordinal == 0 {
		block = canonical
	} else if ordinal == 0 {
		block = p.ctx.NewBlock(fmt.Sprintf("tag_%d", source.Tag))
	} else {
		block = p.ctx.NewBlock(fmt.Sprintf("tag_%d_%d", source.Tag, ordinal))
	}
	//
	instance := &Instance{
		ID:        uint(len(p.instances)) + 1,
		Tag:       source.Tag,
		Ordinal:   ordinal,
		StackHash: key.StackHash,
		Entry:     stack.String(),
		Block:     block,
		source:    source,
		stack:     stack,
	}
	//
	if fn := p.assembly.Metadata.Get(p.segment, source.Tag); fn != nil {
		instance.Function = fn.Name
		block.FunctionName = fn.Name
	}
	//
	p.materialized[source.Tag] = ordinal + 1
	p.visited.Insert(key, instance)
	p.instances = append(p.instances, instance)
	p.worklist = append(p.worklist, instance)
	// Done
	return instance
}

// canonicalBlock returns the lowering block representing the given tag for
// address purposes, creating it on first use.
func (p *Engine) canonicalBlock(tag uint64) *codegen.Block {
	block, ok := p.canonical[tag]
	if !ok {
		block = p.ctx.NewBlock(fmt.Sprintf("tag_%d", tag))
		p.canonical[tag] = block
	}
	// Done
	return block
}

// trapUnreachable fills canonical blocks whose tags were pushed but never
// provably jumped to.  Their addresses remain referenced by the emitted
// code, so they become explicit traps rather than dangling labels.
func (p *Engine) trapUnreachable() {
	for tag, block := range p.canonical {
		if p.materialized[tag] == 0 {
			p.ctx.MoveTo(block, 0)
			p.ctx.EmitOp(evm.INVALID)
		}
	}
}

func (p *Engine) underflow(block *sourceBlock, instruction *evmla.Instruction) error {
	return malformedf("stack underflow at %q in block tag_%d of %s code", instruction, block.Tag, p.segment)
}

func (p *Engine) unresolved(block *sourceBlock, instruction *evmla.Instruction) error {
	return &UnresolvedTargetError{
		Segment: p.segment,
		Tag:     block.Tag,
		Reason:  fmt.Sprintf("unresolvable %s target", instruction.Name),
	}
}
