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
package ir

// Dependency is a single reference from one code object to another.  Implicit
// references are those which are always present regardless of the source
// program (e.g. deploy code referencing its own runtime counterpart), whilst
// explicit references arise from the program itself (contract creation, or a
// linked library placeholder).
type Dependency struct {
	// Identifier of the referenced code object.
	Identifier string
	// Explicit indicates a user-visible reference, as opposed to a
	// structural one.
	Explicit bool
}

// Dependencies is the ordered, deduplicated collection of identifiers a given
// code object references.  Order is insertion order; re-inserting an existing
// identifier keeps the original entry (and its tag) untouched.
type Dependencies struct {
	// Identifier of the code object owning these dependencies.
	owner string
	// Referenced identifiers, in first-insertion order.
	entries []Dependency
	// Positions of known identifiers within entries.
	index map[string]int
}

// NewDependencies constructs an empty dependency record owned by the code
// object with the given identifier.
func NewDependencies(owner string) *Dependencies {
	return &Dependencies{
		owner: owner,
		index: make(map[string]int),
	}
}

// Owner returns the identifier of the code object owning this record.
func (p *Dependencies) Owner() string {
	return p.owner
}

// Insert records a reference to the given identifier.  Duplicate insertions
// are ignored, keeping the first entry's position and tag.
func (p *Dependencies) Insert(identifier string, explicit bool) {
	if _, ok := p.index[identifier]; ok {
		return
	}
	//
	p.index[identifier] = len(p.entries)
	p.entries = append(p.entries, Dependency{identifier, explicit})
}

// Merge appends all entries of another dependency record into this one,
// preserving their order and tags.  Typically used to fold a runtime code
// object's dependencies into those of its deploy code.
func (p *Dependencies) Merge(other *Dependencies) {
	if other == nil {
		return
	}
	//
	for _, dep := range other.entries {
		p.Insert(dep.Identifier, dep.Explicit)
	}
}

// Contains determines whether the given identifier is already referenced.
func (p *Dependencies) Contains(identifier string) bool {
	_, ok := p.index[identifier]
	return ok
}

// Entries returns the recorded references in insertion order.  The returned
// slice must not be mutated.
func (p *Dependencies) Entries() []Dependency {
	return p.entries
}

// Identifiers returns just the referenced identifiers, in insertion order.
func (p *Dependencies) Identifiers() []string {
	ids := make([]string, len(p.entries))
	//
	for i, dep := range p.entries {
		ids[i] = dep.Identifier
	}
	//
	return ids
}

// Len returns the number of distinct references recorded.
func (p *Dependencies) Len() int {
	return len(p.entries)
}
