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

import "slices"

// shuffleStep is one SWAP or POP of a stack shuffle.
type shuffleStep struct {
	pop   bool
	depth uint
}

// shuffle computes the SWAP/POP sequence rearranging the current stack into
// the target stack.  Slots are identified by integers; both stacks list
// slots bottom to top.  Target slots must be distinct and present in the
// current stack; current slots absent from the target are dropped.  Swaps
// deeper than the EVM's reach of 16 are Backend errors.
func shuffle(current, target []int) ([]shuffleStep, error) {
	var (
		steps []shuffleStep
		state = slices.Clone(current)
	)
	//
	swap := func(depth int) error {
		top := len(state) - 1
		//
		if depth < 1 || depth > 16 {
			return backendErrorf("stack shuffle needs SWAP%d, beyond the EVM's reach", depth)
		}
		//
		state[top], state[top-depth] = state[top-depth], state[top]
		steps = append(steps, shuffleStep{false, uint(depth)})
		// Done
		return nil
	}
	//
	pop := func() {
		state = state[:len(state)-1]
		steps = append(steps, shuffleStep{pop: true})
	}
	// Phase 1: drop slots that have no place in the target.
	for len(state) > len(target) {
		top := len(state) - 1
		//
		if !slices.Contains(target, state[top]) {
			pop()
			continue
		}
		// Top is needed: dig out the deepest junk slot instead.
		junk := -1
		//
		for i := top - 1; i >= 0; i-- {
			if !slices.Contains(target, state[i]) {
				junk = i
				break
			}
		}
		//
		if junk < 0 {
			panic("unreachable")
		}
		//
		if err := swap(top - junk); err != nil {
			return nil, err
		}
	}
	// Phase 2: fix the permutation, deepest mismatch first.
	for {
		mismatch := -1
		//
		for i := range state {
			if state[i] != target[i] {
				mismatch = i
				break
			}
		}
		//
		if mismatch < 0 {
			break
		}
		// Locate the slot that belongs at the mismatch.
		var (
			top      = len(state) - 1
			position = slices.Index(state, target[mismatch])
		)
		//
		if position != top {
			// Bring it to the top first.
			if err := swap(top - position); err != nil {
				return nil, err
			}
		}
		// Swap it into place, unless the mismatch was the top itself.
		if mismatch != top {
			if err := swap(top - mismatch); err != nil {
				return nil, err
			}
		}
	}
	// Done
	return steps, nil
}
