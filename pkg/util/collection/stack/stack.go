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
package stack

// Stack is a LIFO stack over a slice.  Popping or reading the top of an empty
// stack is an internal invariant violation and panics.
type Stack[T any] struct {
	items []T
}

// NewStack constructs an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Len returns the number of items held.
func (p *Stack[T]) Len() uint {
	return uint(len(p.items))
}

// IsEmpty reports whether the stack holds no items.
func (p *Stack[T]) IsEmpty() bool {
	return len(p.items) == 0
}

// Top returns the most recently pushed item without removing it.
func (p *Stack[T]) Top() T {
	if len(p.items) == 0 {
		panic("top of empty stack")
	}
	// Done
	return p.items[len(p.items)-1]
}

// Push places an item on top of the stack.
func (p *Stack[T]) Push(item T) {
	p.items = append(p.items, item)
}

// Pop removes and returns the item on top of the stack.
func (p *Stack[T]) Pop() T {
	n := len(p.items)
	//
	if n == 0 {
		panic("pop of empty stack")
	}
	//
	item := p.items[n-1]
	p.items = p.items[:n-1]
	// Done
	return item
}
