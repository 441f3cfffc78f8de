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

// Package linker resolves the references between code objects and assembles
// final bytecode: subordinate objects and data payloads are appended behind
// the owning object's code, and the 2-byte offset/size placeholders left by
// emission are patched with their concrete values.
package linker

import (
	"sync"

	"github.com/consensys/go-smelter/pkg/ir"
)

// Graph holds one dependency record per code object together with the global
// namespace of known identifiers.  Registration is append-only and safe for
// concurrent use, so independently compiled objects can publish their
// records in parallel.
type Graph struct {
	// records maps owner identifiers to their dependency records.
	records map[string]*ir.Dependencies
	// known is the namespace of identifiers resolution accepts.
	known map[string]bool
	// mutex required to ensure thread safety.
	mux sync.RWMutex
}

// NewGraph constructs an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		records: make(map[string]*ir.Dependencies),
		known:   make(map[string]bool),
	}
}

// Register the given identifiers into the namespace.  Data-section leaves
// and library names are registered directly; code objects are registered by
// Add.
//
//nolint:revive
func (p *Graph) Register(identifiers ...string) {
	p.mux.Lock()
	//
	for _, identifier := range identifiers {
		p.known[identifier] = true
	}
	//
	p.mux.Unlock()
}

// Add publishes a code object's dependency record and registers its owner
// into the namespace.  Re-adding an owner replaces its record.
//
//nolint:revive
func (p *Graph) Add(record *ir.Dependencies) {
	p.mux.Lock()
	//
	p.records[record.Owner()] = record
	p.known[record.Owner()] = true
	//
	p.mux.Unlock()
}

// Dependencies returns the record published for the given owner, or nil.
//
//nolint:revive
func (p *Graph) Dependencies(owner string) *ir.Dependencies {
	p.mux.RLock()
	record := p.records[owner]
	p.mux.RUnlock()
	// Done
	return record
}

// Known reports whether the given identifier is in the namespace.
//
//nolint:revive
func (p *Graph) Known(identifier string) bool {
	p.mux.RLock()
	known := p.known[identifier]
	p.mux.RUnlock()
	// Done
	return known
}

// Resolve checks every reference of the given owner against the namespace.
// An unresolved explicit reference is a link error; an unresolved implicit
// reference indicates a broken structural invariant and is reported as
// internal.
//
//nolint:revive
func (p *Graph) Resolve(owner string) error {
	record := p.Dependencies(owner)
	if record == nil {
		return nil
	}
	//
	for _, dependency := range record.Entries() {
		if p.Known(dependency.Identifier) {
			continue
		}
		// Done
		return &UnresolvedReferenceError{
			Owner:      owner,
			Identifier: dependency.Identifier,
			Internal:   !dependency.Explicit,
		}
	}
	// Done
	return nil
}
