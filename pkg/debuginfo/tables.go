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
package debuginfo

import (
	"sort"

	"github.com/google/btree"
)

// Node records the span of one front-end AST node, so that lowered code
// carrying only a character offset can be mapped back to the node enclosing
// it.
type Node struct {
	// AstID of the node within the front-end AST.
	AstID int
	// Location of the node.
	Location Location
	// Mapped form of the location, when source text was available.
	Mapped MappedLocation
}

// ContractDefinition records where a contract was defined.
type ContractDefinition struct {
	// AstID of the definition.
	AstID int
	// Name of the contract.
	Name string
	// Location of the definition.
	Location Location
	// Mapped form of the location.
	Mapped MappedLocation
}

// FunctionDefinition records where a function was defined.
type FunctionDefinition struct {
	// AstID of the definition.
	AstID int
	// Name of the function.
	Name string
	// Location of the definition.
	Location Location
	// Mapped form of the location.
	Mapped MappedLocation
}

// Tables aggregates the debug information collected for one compilation,
// keyed in two levels: first by source file identifier, then by the item's
// own key (contract name, function AST identifier, or node start offset).
type Tables struct {
	// Source file paths, keyed by source identifier.
	sources map[int]string
	// Contract definitions, keyed by name within each source.
	contracts map[int]map[string]ContractDefinition
	// Function definitions, keyed by AST identifier within each source.
	functions map[int]map[int]FunctionDefinition
	// AST nodes, ordered by start offset within each source.
	nodes map[int]*btree.BTreeG[Node]
}

// NewTables constructs a set of empty debug tables.
func NewTables() *Tables {
	return &Tables{
		sources:   make(map[int]string),
		contracts: make(map[int]map[string]ContractDefinition),
		functions: make(map[int]map[int]FunctionDefinition),
		nodes:     make(map[int]*btree.BTreeG[Node]),
	}
}

// AddSource registers the path of a source file under its front-end
// identifier.  Later registrations overwrite earlier ones.
func (p *Tables) AddSource(id int, path string) {
	p.sources[id] = path
}

// SourcePath returns the path registered for a source identifier.
func (p *Tables) SourcePath(id int) (string, bool) {
	path, ok := p.sources[id]
	return path, ok
}

// SourceIDs returns all registered source identifiers in ascending order.
func (p *Tables) SourceIDs() []int {
	ids := make([]int, 0, len(p.sources))
	//
	for id := range p.sources {
		ids = append(ids, id)
	}
	//
	sort.Ints(ids)
	// Done
	return ids
}

// AddContract records a contract definition.
func (p *Tables) AddContract(def ContractDefinition) {
	inner, ok := p.contracts[def.Location.SourceID]
	if !ok {
		inner = make(map[string]ContractDefinition)
		p.contracts[def.Location.SourceID] = inner
	}
	//
	inner[def.Name] = def
}

// Contract looks up a contract definition by name within a source file.
func (p *Tables) Contract(sourceID int, name string) (ContractDefinition, bool) {
	def, ok := p.contracts[sourceID][name]
	return def, ok
}

// AddFunction records a function definition.
func (p *Tables) AddFunction(def FunctionDefinition) {
	inner, ok := p.functions[def.Location.SourceID]
	if !ok {
		inner = make(map[int]FunctionDefinition)
		p.functions[def.Location.SourceID] = inner
	}
	//
	inner[def.AstID] = def
}

// Function looks up a function definition by AST identifier within a source
// file.
func (p *Tables) Function(sourceID int, astID int) (FunctionDefinition, bool) {
	def, ok := p.functions[sourceID][astID]
	return def, ok
}

// AddNode records an AST node span.  The node must carry a known start
// offset, since that is its key.
func (p *Tables) AddNode(node Node) {
	if node.Location.Start < 0 {
		panic("AST node without start offset")
	}
	//
	tree, ok := p.nodes[node.Location.SourceID]
	if !ok {
		tree = btree.NewG(2, func(l, r Node) bool { return l.Location.Start < r.Location.Start })
		p.nodes[node.Location.SourceID] = tree
	}
	//
	tree.ReplaceOrInsert(node)
}

// NodeAt finds the AST node whose start offset most closely precedes (or
// equals) the given offset within a source file.  This recovers the node
// enclosing a lowered instruction when only the instruction's offset
// survived lowering.
func (p *Tables) NodeAt(sourceID int, offset int) (Node, bool) {
	var (
		found Node
		ok    bool
	)
	//
	tree := p.nodes[sourceID]
	if tree == nil {
		return Node{}, false
	}
	//
	pivot := Node{Location: Location{SourceID: sourceID, Start: offset}}
	//
	tree.DescendLessOrEqual(pivot, func(node Node) bool {
		found, ok = node, true
		return false
	})
	// Done
	return found, ok
}

// RetainSourceIDs discards every table entry whose source file is not in the
// given set.  This prunes debug information inherited from sources which a
// given contract never references.
func (p *Tables) RetainSourceIDs(keep []int) {
	retained := make(map[int]bool, len(keep))
	//
	for _, id := range keep {
		retained[id] = true
	}
	//
	for id := range p.sources {
		if !retained[id] {
			delete(p.sources, id)
		}
	}
	//
	for id := range p.contracts {
		if !retained[id] {
			delete(p.contracts, id)
		}
	}
	//
	for id := range p.functions {
		if !retained[id] {
			delete(p.functions, id)
		}
	}
	//
	for id := range p.nodes {
		if !retained[id] {
			delete(p.nodes, id)
		}
	}
}
