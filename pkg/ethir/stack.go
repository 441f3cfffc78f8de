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
	"strings"

	"github.com/consensys/go-smelter/pkg/util/collection/hash"
)

// Stack is the symbolic operand stack the reconstruction engine evaluates
// while expanding source blocks.  Every slot carries an Element rather than a
// value, and the stack as a whole hashes to a shape fingerprint used to
// memoize block expansion.
type Stack struct {
	elements []Element
}

// NewStack constructs an empty symbolic stack.
func NewStack() *Stack {
	return &Stack{}
}

// Len returns the number of slots.
//
//nolint:revive
func (p *Stack) Len() uint {
	return uint(len(p.elements))
}

// Push a fresh element on top.
//
//nolint:revive
func (p *Stack) Push(element Element) {
	p.elements = append(p.elements, element)
}

// Pop the top element, reporting false on underflow.
//
//nolint:revive
func (p *Stack) Pop() (Element, bool) {
	n := len(p.elements)
	if n == 0 {
		return Element{}, false
	}
	//
	element := p.elements[n-1]
	p.elements = p.elements[:n-1]
	// Done
	return element, true
}

// PopN discards the top n elements, reporting false on underflow.
//
//nolint:revive
func (p *Stack) PopN(n uint) bool {
	if uint(len(p.elements)) < n {
		return false
	}
	//
	p.elements = p.elements[:uint(len(p.elements))-n]
	// Done
	return true
}

// Dup pushes a copy of the n'th element (1 = top), reporting false on
// underflow.
//
//nolint:revive
func (p *Stack) Dup(n uint) bool {
	if uint(len(p.elements)) < n {
		return false
	}
	//
	p.elements = append(p.elements, p.elements[uint(len(p.elements))-n])
	// Done
	return true
}

// Swap exchanges the top element with the n'th element below it, reporting
// false on underflow.
//
//nolint:revive
func (p *Stack) Swap(n uint) bool {
	if uint(len(p.elements)) < n+1 {
		return false
	}
	//
	var (
		top   = uint(len(p.elements)) - 1
		other = top - n
	)
	//
	p.elements[top], p.elements[other] = p.elements[other], p.elements[top]
	// Done
	return true
}

// Clone returns an independent copy.  Elements are immutable once pushed, so
// a shallow slot copy suffices.
//
//nolint:revive
func (p *Stack) Clone() *Stack {
	elements := make([]Element, len(p.elements))
	copy(elements, p.elements)
	// Done
	return &Stack{elements: elements}
}

// Hash fingerprints the stack shape.  Two stacks hash equal exactly when
// they have the same depth and indistinguishable elements slot for slot.
//
//nolint:revive
func (p *Stack) Hash() uint64 {
	words := []uint64{uint64(len(p.elements))}
	//
	for _, element := range p.elements {
		words = append(words, element.hashWords()...)
	}
	// Done
	return hash.Fnv64a(words...)
}

func (p *Stack) String() string {
	rendered := make([]string, len(p.elements))
	//
	for i, element := range p.elements {
		rendered[i] = element.String()
	}
	// Done
	return "[" + strings.Join(rendered, " ") + "]"
}
