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
	"github.com/consensys/go-smelter/pkg/util/collection/set"
)

// EVMEmitter realizes recorded modules as EVM bytecode.  Emission never
// mutates the module: blocks are copied before optimization, hence the size
// fallback re-emits the identical input.
type EVMEmitter struct{}

// NewEVMEmitter constructs the default bytecode emitter.
func NewEVMEmitter() *EVMEmitter {
	return &EVMEmitter{}
}

// Emit the given module under the given settings.
//
//nolint:revive
func (p *EVMEmitter) Emit(module *Module, settings *OptimizerSettings) (*Build, error) {
	e := &emission{
		module:   module,
		settings: settings,
		index:    make(map[*Block]*emitUnit),
	}
	//
	if err := e.validate(); err != nil {
		return nil, err
	}
	//
	e.linearize()
	//
	if settings.SizeLevel != SizeLevelNone {
		e.eliminateFallthroughs()
	}
	//
	e.markJumpdests()
	//
	if err := e.layout(); err != nil {
		return nil, err
	}
	// Done
	return e.assemble()
}

// emitUnit is the emission state of one block: an optimized copy of its code,
// the operand widths of its tag pushes and its resolved code offset.
type emitUnit struct {
	block *Block
	code  []Instruction
	// widths holds the operand width of each tag push, indexed in parallel
	// with code.  Entries of non-tag instructions stay zero.
	widths []uint
	// jumpdest is set when some tag push references this block.
	jumpdest bool
	// offset of the block within the instruction stream.
	offset uint64
}

// emission is the transient state of one Emit call.
type emission struct {
	module   *Module
	settings *OptimizerSettings
	// units in final linear order: functions as recorded, entry first, and
	// blocks in creation order within each function.
	units []*emitUnit
	index map[*Block]*emitUnit
	// codeSize of the laid-out instruction stream, excluding constants.
	codeSize uint64
	// constOffsets maps constant IDs to offsets relative to codeSize.
	constOffsets []uint64
}

// validate rejects instructions that are not legal in the module's segment.
// Immutable reads only exist in runtime code; immutable assignment writes
// into the runtime code copy held in memory and therefore only exists in
// deploy code.
func (p *emission) validate() error {
	for _, fn := range p.module.Functions {
		for _, block := range fn.Blocks {
			for i := range block.Code {
				inst := &block.Code[i]
				//
				switch inst.Kind {
				case InstPushImmutable:
					if p.module.Segment != ir.Runtime {
						return backendErrorf("immutable %q read outside the runtime segment", inst.Ident)
					}
				case InstSetImmutable:
					if p.module.Segment != ir.Deploy {
						return backendErrorf("immutable %q assigned outside the deploy segment", inst.Ident)
					}
				}
			}
		}
	}
	// Done
	return nil
}

// linearize copies and optimizes every block into an emission unit.
//
//nolint:revive
func (p *emission) linearize() {
	for _, fn := range p.module.Functions {
		for _, block := range fn.Blocks {
			code := make([]Instruction, len(block.Code))
			copy(code, block.Code)
			//
			unit := &emitUnit{
				block: block,
				code:  optimizeCode(code, p.settings),
			}
			//
			unit.widths = make([]uint, len(unit.code))
			p.units = append(p.units, unit)
			p.index[block] = unit
		}
	}
}

// eliminateFallthroughs removes a trailing "push tag; JUMP" pair whose target
// is the next block in linear order, letting control fall through instead.
//
//nolint:revive
func (p *emission) eliminateFallthroughs() {
	for i, unit := range p.units {
		n := len(unit.code)
		if i+1 == len(p.units) || n < 2 {
			continue
		}
		//
		var (
			push = unit.code[n-2]
			jump = unit.code[n-1]
		)
		//
		if jump.Kind == InstOpcode && jump.Op == evm.JUMP &&
			push.Kind == InstPushTag && push.Target == p.units[i+1].block {
			unit.code = unit.code[:n-2]
			unit.widths = unit.widths[:n-2]
		}
	}
}

// markJumpdests flags every block some surviving tag push refers to.  Only
// flagged blocks receive a JUMPDEST; fall-through entry costs nothing.
//
//nolint:revive
func (p *emission) markJumpdests() {
	for _, unit := range p.units {
		for i := range unit.code {
			if unit.code[i].Kind == InstPushTag {
				p.index[unit.code[i].Target].jumpdest = true
			}
		}
	}
}

// layout resolves block offsets and tag operand widths.  Under a size level
// the widths start minimal and grow until no tag offset outgrows its operand;
// widths only ever grow, so the relaxation terminates.  Without a size level
// every tag is a fixed two-byte operand and larger offsets are an error.
//
//nolint:revive
func (p *emission) layout() error {
	relax := p.settings.SizeLevel != SizeLevelNone
	//
	for _, unit := range p.units {
		for i := range unit.code {
			if unit.code[i].Kind == InstPushTag {
				if relax {
					unit.widths[i] = 1
				} else {
					unit.widths[i] = 2
				}
			}
		}
	}
	//
	for {
		offset := uint64(0)
		//
		for _, unit := range p.units {
			unit.offset = offset
			offset += p.unitSize(unit)
		}
		//
		p.codeSize = offset
		grown := false
		//
		for _, unit := range p.units {
			for i := range unit.code {
				if unit.code[i].Kind != InstPushTag {
					continue
				}
				//
				var (
					target = p.index[unit.code[i].Target]
					need   = byteWidth(target.offset)
				)
				//
				if !relax {
					if need > 2 {
						return backendErrorf("tag_%d offset %d exceeds the two-byte operand",
							target.block.ID, target.offset)
					}
				} else if need > unit.widths[i] {
					unit.widths[i] = need
					grown = true
				}
			}
		}
		//
		if !grown {
			break
		}
	}
	// Constants live in the code address space behind the instructions.
	offset := p.codeSize
	p.constOffsets = make([]uint64, len(p.module.Constants))
	//
	for _, constant := range p.module.Constants {
		p.constOffsets[constant.ID] = offset - p.codeSize
		offset += uint64(len(constant.Data))
	}
	// Done
	return nil
}

// unitSize is the encoded size of one block, including its JUMPDEST.
//
//nolint:revive
func (p *emission) unitSize(unit *emitUnit) uint64 {
	size := uint64(0)
	if unit.jumpdest {
		size++
	}
	//
	for i := range unit.code {
		size += p.instSize(&unit.code[i], unit.widths[i])
	}
	// Done
	return size
}

// instSize is the encoded size of one instruction given its tag width.
//
//nolint:revive
func (p *emission) instSize(inst *Instruction, tagWidth uint) uint64 {
	switch inst.Kind {
	case InstOpcode:
		return 1
	case InstPush:
		return 1 + uint64(inst.Value.ByteLen())
	case InstPushTag:
		return 1 + uint64(tagWidth)
	case InstDataOffset, InstDataSize, InstProgramSize, InstConstRef:
		return 3
	case InstPushLibrary:
		return 21
	case InstPushImmutable:
		return 33
	case InstSetImmutable:
		// DUP2; PUSH2 offset; DUP3; ADD; MSTORE per reference, then the two
		// operands are popped.
		return 7*uint64(p.immutableRefs(inst.Ident).Len()) + 2
	default:
		panic("unknown instruction kind")
	}
}

// immutableRefs returns the runtime reference offsets of the given immutable.
// An immutable that is assigned but never read has no references; its
// assignment degenerates to dropping the operands.
//
//nolint:revive
func (p *emission) immutableRefs(name string) *set.SortedSet[uint64] {
	if refs, ok := p.module.Immutables[name]; ok {
		return refs
	}
	// Done
	return set.NewSortedSet[uint64]()
}

// assemble renders the laid-out units into bytecode, the source map and the
// link-time reference tables.
//
//nolint:revive
func (p *emission) assemble() (*Build, error) {
	var (
		bytecode  = make([]byte, 0, p.codeSize)
		sourceMap debuginfo.SourceMap
		build     = &Build{
			Identifier: p.module.Name,
			Segment:    p.module.Segment,
		}
	)
	//
	emitOp := func(op evm.Opcode, loc debuginfo.Location) {
		bytecode = append(bytecode, byte(op))
		sourceMap.Add(loc)
	}
	// placeholder emits a zeroed push operand and records the offset of its
	// first operand byte for the linker.
	placeholder := func(width uint, loc debuginfo.Location) uint64 {
		operand := uint64(len(bytecode)) + 1
		emitOp(evm.Push(width), loc)
		bytecode = append(bytecode, make([]byte, width)...)
		// Done
		return operand
	}
	//
	for _, unit := range p.units {
		if p.settings.VerifyEach && uint64(len(bytecode)) != unit.offset {
			return nil, backendErrorf("tag_%d laid out at %d but emitted at %d",
				unit.block.ID, unit.offset, len(bytecode))
		}
		//
		if unit.jumpdest {
			emitOp(evm.JUMPDEST, debuginfo.UnknownLocation())
		}
		//
		for i := range unit.code {
			inst := &unit.code[i]
			//
			switch inst.Kind {
			case InstOpcode:
				emitOp(inst.Op, inst.Loc)
			case InstPush:
				width := uint(inst.Value.ByteLen())
				emitOp(evm.Push(width), inst.Loc)
				bytecode = append(bytecode, inst.Value.Bytes()...)
			case InstPushTag:
				var (
					width  = unit.widths[i]
					target = p.index[inst.Target]
				)
				//
				emitOp(evm.Push(width), inst.Loc)
				bytecode = appendUint(bytecode, target.offset, width)
			case InstDataOffset:
				offset := placeholder(2, inst.Loc)
				build.DataOffsetRefs = recordRef(build.DataOffsetRefs, inst.Ident, offset)
			case InstDataSize:
				offset := placeholder(2, inst.Loc)
				build.DataSizeRefs = recordRef(build.DataSizeRefs, inst.Ident, offset)
			case InstProgramSize:
				build.ProgramSizeRefs = append(build.ProgramSizeRefs, placeholder(2, inst.Loc))
			case InstPushLibrary:
				offset := placeholder(20, inst.Loc)
				build.LibraryRefs = recordRef(build.LibraryRefs, inst.Ident, offset)
			case InstPushImmutable:
				offset := placeholder(32, inst.Loc)
				//
				if build.Immutables == nil {
					build.Immutables = make(map[string]*set.SortedSet[uint64])
				}
				//
				if _, ok := build.Immutables[inst.Ident]; !ok {
					build.Immutables[inst.Ident] = set.NewSortedSet[uint64]()
				}
				//
				build.Immutables[inst.Ident].Insert(offset)
			case InstSetImmutable:
				// The base offset of the runtime copy is on top of the stack,
				// the value below it; each reference stores the value at its
				// offset within the copy.
				for _, ref := range *p.immutableRefs(inst.Ident) {
					if ref > 0xFFFF {
						return nil, backendErrorf("immutable %q reference offset %d exceeds the two-byte operand",
							inst.Ident, ref)
					}
					//
					emitOp(evm.DUP2, inst.Loc)
					emitOp(evm.PUSH2, inst.Loc)
					bytecode = appendUint(bytecode, ref, 2)
					emitOp(evm.DUP3, inst.Loc)
					emitOp(evm.ADD, inst.Loc)
					emitOp(evm.MSTORE, inst.Loc)
				}
				//
				emitOp(evm.POP, inst.Loc)
				emitOp(evm.POP, inst.Loc)
			case InstConstRef:
				target := p.codeSize + p.constOffsets[inst.Const.ID]
				if target > 0xFFFF {
					return nil, backendErrorf("const_%d at offset %d exceeds the two-byte operand",
						inst.Const.ID, target)
				}
				//
				emitOp(evm.PUSH2, inst.Loc)
				bytecode = appendUint(bytecode, target, 2)
			default:
				panic("unknown instruction kind")
			}
		}
	}
	// Constants carry no source map entries.
	for _, constant := range p.module.Constants {
		bytecode = append(bytecode, constant.Data...)
	}
	//
	build.Bytecode = bytecode
	build.DebugInfo = sourceMap.Bytes()
	// Done
	return build, nil
}

// recordRef appends a reference offset under the given identifier,
// initializing the table on first use.
func recordRef(table map[string][]uint64, ident string, offset uint64) map[string][]uint64 {
	if table == nil {
		table = make(map[string][]uint64)
	}
	//
	table[ident] = append(table[ident], offset)
	// Done
	return table
}

// byteWidth is the minimal push operand width holding the given value, at
// least one byte.
func byteWidth(value uint64) uint {
	width := uint(1)
	//
	for value > 0xFF {
		value >>= 8
		width++
	}
	// Done
	return width
}

// appendUint appends value as a big-endian operand of the given width.
func appendUint(bytecode []byte, value uint64, width uint) []byte {
	for i := int(width) - 1; i >= 0; i-- {
		bytecode = append(bytecode, byte(value>>(8*uint(i))))
	}
	// Done
	return bytecode
}
