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

// Package codegen records lowered code objects as stack-oriented modules and
// emits them as EVM bytecode.  The lowering engines drive a Context (for
// structured sources) or append to blocks directly (for reconstructed
// control flow); emission resolves block tags, applies the optimization
// levels of the attempt, and drives the one-shot size fallback.
package codegen

import (
	"fmt"
	"strings"

	"github.com/consensys/go-smelter/pkg/debuginfo"
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/util/collection/set"
	"github.com/holiman/uint256"
)

// InstructionKind discriminates recorded instructions.  Most instructions
// are plain EVM opcodes; the remaining kinds are pushes whose operands are
// resolved at emission or link time.
type InstructionKind uint8

const (
	// InstOpcode is a native EVM instruction.
	InstOpcode InstructionKind = iota
	// InstPush pushes a constant with minimal operand width.
	InstPush
	// InstPushTag pushes the code offset of a block.
	InstPushTag
	// InstDataOffset pushes the link-time offset of a data object.
	InstDataOffset
	// InstDataSize pushes the link-time size of a data object.
	InstDataSize
	// InstProgramSize pushes the link-time total size of this code object.
	InstProgramSize
	// InstPushLibrary pushes a 20-byte placeholder for a library address.
	InstPushLibrary
	// InstPushImmutable pushes a 32-byte placeholder for an immutable value.
	InstPushImmutable
	// InstSetImmutable stores an immutable value into the runtime code copy
	// held in memory; expanded at emission using the runtime's immutable
	// reference offsets.
	InstSetImmutable
	// InstConstRef pushes the code offset of a private constant.
	InstConstRef
)

// Instruction is one recorded operation of a block.
type Instruction struct {
	Kind   InstructionKind
	Op     evm.Opcode
	Value  *uint256.Int
	Target *Block
	Ident  string
	Const  *Constant
	Loc    debuginfo.Location
}

// IsTerminator reports whether control cannot continue past this
// instruction.
func (p *Instruction) IsTerminator() bool {
	return p.Kind == InstOpcode && p.Op.IsTerminator()
}

func (p *Instruction) String() string {
	switch p.Kind {
	case InstOpcode:
		return p.Op.String()
	case InstPush:
		return fmt.Sprintf("PUSH 0x%s", p.Value.Hex()[2:])
	case InstPushTag:
		return fmt.Sprintf("PUSH [tag_%d]", p.Target.ID)
	case InstDataOffset:
		return fmt.Sprintf("PUSH [offset %s]", p.Ident)
	case InstDataSize:
		return fmt.Sprintf("PUSH [size %s]", p.Ident)
	case InstProgramSize:
		return "PUSHSIZE"
	case InstPushLibrary:
		return fmt.Sprintf("PUSHLIB %s", p.Ident)
	case InstPushImmutable:
		return fmt.Sprintf("PUSHIMMUTABLE %s", p.Ident)
	case InstSetImmutable:
		return fmt.Sprintf("ASSIGNIMMUTABLE %s", p.Ident)
	case InstConstRef:
		return fmt.Sprintf("PUSH [const_%d]", p.Const.ID)
	default:
		panic("unknown instruction kind")
	}
}

// Constant is a private constant placed in the code address space after the
// instruction stream.
type Constant struct {
	ID   uint
	Data []byte
}

// Block is a labelled sequence of instructions ending (at most) in one
// terminator.  Blocks are jump targets; their tags resolve to code offsets
// at emission.
type Block struct {
	// ID is the module-unique tag number.
	ID uint
	// Label is a diagnostic name ("for_condition", "tag_5" ...).
	Label string
	// FunctionName annotates blocks that begin a reconstructed function.
	FunctionName string
	// Code is the recorded instruction sequence.
	Code []Instruction
}

// Append one instruction to this block.
//
//nolint:revive
func (p *Block) Append(instruction Instruction) {
	p.Code = append(p.Code, instruction)
}

// IsTerminated reports whether the block already ends in a terminator.
//
//nolint:revive
func (p *Block) IsTerminated() bool {
	n := len(p.Code)
	return n > 0 && p.Code[n-1].IsTerminator()
}

// Function groups the blocks of one callable unit.  Blocks[0] is the entry.
type Function struct {
	Name    string
	AstID   int64
	Params  uint
	Results uint
	Blocks  []*Block
}

// Entry returns the function's entry block.
//
//nolint:revive
func (p *Function) Entry() *Block {
	return p.Blocks[0]
}

// Module is the recorded form of one code object.  It is immutable during
// emission, which allows the size fallback to re-emit the identical input
// under different settings.
type Module struct {
	// Name is the code object identifier.
	Name string
	// Segment is the code segment being compiled.
	Segment ir.CodeSegment
	// Functions holds the entry function first, then Yul-defined functions
	// in declaration order.
	Functions []*Function
	// Constants are private constants appended after the instruction
	// stream, in the code address space.
	Constants []*Constant
	// Immutables carries the runtime segment's immutable reference offsets
	// when this module is a deploy segment storing immutables.
	Immutables map[string]*set.SortedSet[uint64]

	tags      uint
	constants map[string]*Constant
}

// NewModule constructs an empty module for the given code object.
func NewModule(name string, segment ir.CodeSegment) *Module {
	return &Module{
		Name:      name,
		Segment:   segment,
		constants: make(map[string]*Constant),
	}
}

// NewFunction appends a function with a fresh entry block.
//
//nolint:revive
func (p *Module) NewFunction(name string, params, results uint) *Function {
	fn := &Function{Name: name, AstID: -1, Params: params, Results: results}
	p.Functions = append(p.Functions, fn)
	p.NewBlock(fn, name+"_entry")
	// Done
	return fn
}

// NewBlock appends a fresh block to the given function.
//
//nolint:revive
func (p *Module) NewBlock(fn *Function, label string) *Block {
	block := &Block{ID: p.tags, Label: label}
	p.tags++
	fn.Blocks = append(fn.Blocks, block)
	// Done
	return block
}

// AddConstant interns the given bytes as a private constant, reusing an
// existing constant with identical contents.
//
//nolint:revive
func (p *Module) AddConstant(data []byte) *Constant {
	if existing, ok := p.constants[string(data)]; ok {
		return existing
	}
	//
	constant := &Constant{ID: uint(len(p.Constants)), Data: data}
	p.Constants = append(p.Constants, constant)
	p.constants[string(data)] = constant
	// Done
	return constant
}

// Entry returns the module's entry function.
//
//nolint:revive
func (p *Module) Entry() *Function {
	return p.Functions[0]
}

// String renders the module as an assembly listing.
//
//nolint:revive
func (p *Module) String() string {
	var builder strings.Builder
	//
	fmt.Fprintf(&builder, "object %q %s:\n", p.Name, p.Segment)
	//
	for _, fn := range p.Functions {
		if fn.Params > 0 || fn.Results > 0 {
			fmt.Fprintf(&builder, "  function %s(%d) -> %d:\n", fn.Name, fn.Params, fn.Results)
		} else {
			fmt.Fprintf(&builder, "  function %s:\n", fn.Name)
		}
		//
		for _, block := range fn.Blocks {
			fmt.Fprintf(&builder, "    tag_%d", block.ID)
			if block.Label != "" {
				fmt.Fprintf(&builder, " [%s]", block.Label)
			}
			//
			if block.FunctionName != "" {
				fmt.Fprintf(&builder, " <%s>", block.FunctionName)
			}
			//
			builder.WriteString(":\n")
			//
			for i := range block.Code {
				fmt.Fprintf(&builder, "      %s\n", block.Code[i].String())
			}
		}
	}
	//
	for _, constant := range p.Constants {
		fmt.Fprintf(&builder, "  const_%d: %X\n", constant.ID, constant.Data)
	}
	// Done
	return builder.String()
}
