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

// Package ethir reconstructs structured control flow (Ethereal IR) from the
// flat legacy assembly the upstream compiler produces.  The engine walks the
// instruction stream symbolically, tracking which stack slots hold block
// tags, and materializes one lowering block per reachable combination of
// source tag and entry stack shape.
package ethir

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// ElementKind classifies the values the symbolic evaluator tracks.
type ElementKind uint8

const (
	// ElemUnknown marks a slot whose value is only known at run time.
	ElemUnknown ElementKind = iota
	// ElemConstant marks a compile-time constant word.
	ElemConstant
	// ElemTag marks a block tag pushed for a later jump.
	ElemTag
	// ElemData marks the offset of a static data payload.
	ElemData
)

// Element is one symbolically tracked stack slot.
type Element struct {
	// Kind determines which payload field is meaningful.
	Kind ElementKind
	// Value holds the constant word (ElemConstant only).
	Value *uint256.Int
	// Tag holds the destination tag number (ElemTag only).
	Tag uint64
	// Payload holds the decoded bytes of a static data entry (ElemData
	// only).
	Payload []byte
}

// UnknownElement constructs a slot with no compile-time information.
func UnknownElement() Element {
	return Element{Kind: ElemUnknown}
}

// ConstantElement constructs a slot holding a known constant.
func ConstantElement(value *uint256.Int) Element {
	return Element{Kind: ElemConstant, Value: value}
}

// TagElement constructs a slot holding a jump destination.
func TagElement(tag uint64) Element {
	return Element{Kind: ElemTag, Tag: tag}
}

// DataElement constructs a slot holding the offset of a static payload.
func DataElement(payload []byte) Element {
	return Element{Kind: ElemData, Payload: payload}
}

// hashWords folds this element into words for the stack shape hash.  Two
// elements contribute identical words exactly when the evaluator cannot
// distinguish them.
func (p Element) hashWords() []uint64 {
	switch p.Kind {
	case ElemConstant:
		return []uint64{uint64(p.Kind), p.Value[0], p.Value[1], p.Value[2], p.Value[3]}
	case ElemTag:
		return []uint64{uint64(p.Kind), p.Tag}
	case ElemData:
		words := []uint64{uint64(p.Kind), uint64(len(p.Payload))}
		//
		for i := 0; i < len(p.Payload); i += 8 {
			var chunk [8]byte
			//
			copy(chunk[:], p.Payload[i:])
			words = append(words, binary.LittleEndian.Uint64(chunk[:]))
		}
		// Done
		return words
	default:
		return []uint64{uint64(p.Kind)}
	}
}

func (p Element) String() string {
	switch p.Kind {
	case ElemConstant:
		return p.Value.Hex()
	case ElemTag:
		return fmt.Sprintf("tag_%d", p.Tag)
	case ElemData:
		return fmt.Sprintf("data(%d)", len(p.Payload))
	default:
		return "?"
	}
}
