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

// Package project drives whole-contract compilation.  It owns the contract
// model with its closed set of code representations, compiles contracts in
// parallel through the lowering engine each representation selects, records
// cross-object dependencies, and links the resulting builds into final
// bytecode with metadata trailers appended.
package project

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/linker"
	"github.com/consensys/go-smelter/pkg/metadata"
)

// metadataSection is the reserved name of the data section holding a
// front-end metadata trailer.  The trailer is appended behind the owning
// object's bytecode and never enters the link namespace.
const metadataSection = ".metadata"

// defaultVersionKey keys the trailer's version field when the caller leaves
// it unset, matching the reference compiler's convention.
const defaultVersionKey = "solc"

// Options configure one project compilation.
type Options struct {
	// HashType selects the metadata hash embedded in the trailer.
	HashType metadata.HashType
	// AppendCBOR appends the driver's own metadata trailer to each
	// contract's runtime bytecode, superseding any front-end trailer.
	// Requires at least one version entry.
	AppendCBOR bool
	// VersionKey keys the trailer's version field; empty selects "solc".
	VersionKey string
	// Versions are the component versions recorded in the trailer.
	Versions []metadata.NamedVersion
	// Libraries maps fully qualified library names to their 20-byte
	// deployed addresses.
	Libraries map[string][]byte
	// Workers bounds the number of contracts compiled concurrently; zero or
	// negative spawns one goroutine per contract.
	Workers int
	// Emitter realizes recorded modules; nil selects the EVM emitter.
	Emitter codegen.Emitter
	// DumpAssembly attaches the recorded module listing to every build.
	DumpAssembly bool
	// DumpEVMLA attaches the legacy-assembly listing to builds lowered from
	// legacy assembly.
	DumpEVMLA bool
	// DumpEthIR attaches the reconstructed Ethereal IR listing to builds
	// lowered from legacy assembly.
	DumpEthIR bool
}

// Project is a set of contracts compiled and linked together.  A project
// compiles once; construct a fresh one to recompile.
type Project struct {
	contracts []*Contract
	paths     map[string]bool
	settings  *codegen.OptimizerSettings
	options   Options
	emitter   codegen.Emitter
	graph     *linker.Graph
	// mux guards the object and leaf indexes during parallel compilation.
	mux     sync.Mutex
	objects map[string]*Object
	leaves  map[string][]byte
}

// NewProject constructs an empty project compiling under the given settings.
func NewProject(settings *codegen.OptimizerSettings, options Options) *Project {
	emitter := options.Emitter
	//
	if emitter == nil {
		emitter = codegen.NewEVMEmitter()
	}
	//
	if options.VersionKey == "" {
		options.VersionKey = defaultVersionKey
	}
	// Done
	return &Project{
		paths:    make(map[string]bool),
		settings: settings,
		options:  options,
		emitter:  emitter,
		graph:    linker.NewGraph(),
		objects:  make(map[string]*Object),
		leaves:   make(map[string][]byte),
	}
}

// AddContract adds a contract to the project.  Contract paths must be unique
// and the representation present.
//
//nolint:revive
func (p *Project) AddContract(contract *Contract) error {
	if contract.IR == nil {
		return fmt.Errorf("contract %q has no code representation", contract.Path)
	}
	//
	if p.paths[contract.Path] {
		return fmt.Errorf("duplicate contract %q", contract.Path)
	}
	//
	p.paths[contract.Path] = true
	p.contracts = append(p.contracts, contract)
	// Done
	return nil
}

// Compile compiles every contract and links the resulting code objects.
// Failures stay contract-local: one failing contract never aborts its
// siblings.  Use Build.Errors to inspect the failures.
//
//nolint:revive
func (p *Project) Compile() *Build {
	var (
		group  errgroup.Group
		builds = make([]*ContractBuild, len(p.contracts))
	)
	//
	if p.options.Workers > 0 {
		group.SetLimit(p.options.Workers)
	}
	//
	log.Debugf("compiling %d contract(s) under %s", len(p.contracts), p.settings)
	//
	for i, contract := range p.contracts {
		i, contract := i, contract
		group.Go(func() error {
			builds[i] = p.compileContract(contract)
			// Failures are recorded per contract.
			return nil
		})
	}
	//
	_ = group.Wait()
	// Linking runs sequentially once every object is indexed: subordinate
	// objects link before their owners, and each object links exactly once.
	for _, contract := range builds {
		p.linkContract(contract)
	}
	//
	build := &Build{
		Contracts: make(map[string]*ContractBuild, len(builds)),
		objects:   p.objects,
	}
	//
	for _, contract := range builds {
		build.Contracts[contract.Path] = contract
	}
	// Done
	return build
}

// linkContract links a contract's code objects, recording the first failure.
//
//nolint:revive
func (p *Project) linkContract(contract *ContractBuild) {
	if contract.Err != nil {
		return
	}
	//
	if contract.Runtime != nil {
		if err := p.linkObject(contract.Runtime); err != nil {
			contract.Err = fail(contract.Path, ir.Runtime, err)
			return
		}
	}
	//
	if contract.Deploy != nil {
		if err := p.linkObject(contract.Deploy); err != nil {
			contract.Err = fail(contract.Path, ir.Deploy, err)
		}
	}
}

// linkObject assembles one code object, linking referenced subordinate
// objects first.  Ownership forms a strict tree, so the recursion always
// descends; assembly is memoised so shared subordinates link once.
//
//nolint:revive
func (p *Project) linkObject(object *Object) error {
	if object.Linked != nil {
		return nil
	}
	//
	if err := p.graph.Resolve(object.Identifier); err != nil {
		return err
	}
	//
	payloads := make(map[string][]byte)
	//
	if record := p.graph.Dependencies(object.Identifier); record != nil {
		for _, identifier := range record.Identifiers() {
			switch {
			case p.leaves[identifier] != nil:
				payloads[identifier] = p.leaves[identifier]
			case p.objects[identifier] != nil:
				subordinate := p.objects[identifier]
				//
				if err := p.linkObject(subordinate); err != nil {
					return err
				}
				//
				payloads[identifier] = subordinate.Bytecode()
			}
			// A registered name with no payload behind it is a library;
			// its placeholders are patched rather than appended.
		}
	}
	//
	linked, err := p.graph.Link(object.Build, payloads, p.options.Libraries)
	if err != nil {
		return err
	}
	//
	object.Linked = linked
	//
	log.Debugf("linked %s: %d bytes", object.Identifier, len(linked.Bytecode))
	// Done
	return nil
}
