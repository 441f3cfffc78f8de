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
package project

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/metadata"
)

// compileContract compiles one contract's code objects with the engine its
// representation selects.
//
//nolint:revive
func (p *Project) compileContract(contract *Contract) *ContractBuild {
	var (
		build = &ContractBuild{Path: contract.Path}
		err   error
	)
	//
	switch representation := contract.IR.(type) {
	case *YulIR:
		build.Deploy, build.Runtime, err = p.compileYul(contract, representation.Object, contract.Path, true)
	case *LegacyAssemblyIR:
		build.Deploy, build.Runtime, err = p.compileAssembly(contract, representation.Assembly, contract.Path, true)
	case *TextIR:
		build.Deploy, build.Runtime, err = p.compileText(contract, representation, contract.Path)
	default:
		panic("unreachable")
	}
	//
	build.Err = err
	// Done
	return build
}

// compileObject emits one recorded module through the size-fallback driver
// and publishes the outcome: the object enters the project index, its
// dependency record enters the graph, and its library names enter the link
// namespace.
//
//nolint:revive
func (p *Project) compileObject(path string, segment ir.CodeSegment, module *codegen.Module,
	record *ir.Dependencies, trailer []byte) (*Object, error) {
	settings := p.settingsFor(trailer)
	//
	build, err := codegen.Run(module, settings, p.emitter)
	if err != nil {
		return nil, fail(path, segment, err)
	}
	//
	if p.options.DumpAssembly {
		build.Assembly = module.String()
	}
	//
	object := &Object{
		Identifier: module.Name,
		Path:       path,
		Segment:    segment,
		Build:      build,
		trailer:    trailer,
	}
	//
	if err := p.register(object); err != nil {
		return nil, malformed(path, segment, err)
	}
	//
	p.graph.Add(record)
	//
	for name := range build.LibraryRefs {
		p.graph.Register(name)
	}
	//
	log.Debugf("compiled %s: %d bytes", object.Identifier, len(build.Bytecode))
	// Done
	return object, nil
}

// settingsFor clones the project settings for one emission, charging the
// object's trailer against its size limit.
//
//nolint:revive
func (p *Project) settingsFor(trailer []byte) *codegen.OptimizerSettings {
	settings := *p.settings
	settings.MetadataSize = uint64(len(trailer))
	// Done
	return &settings
}

// trailer selects the metadata trailer of one runtime object: the driver's
// own CBOR payload for a contract's root pair when enabled, otherwise
// whatever verbatim trailer the front-end shipped.  Nested creation units
// never receive a driver trailer.
//
//nolint:revive
func (p *Project) trailer(contract *Contract, frontend []byte, root bool) []byte {
	if root && p.options.AppendCBOR {
		var hash *metadata.HashField
		//
		if contract.Metadata != nil {
			hash = metadata.HashFieldFor(p.options.HashType, contract.Metadata)
		}
		// Done
		return metadata.NewCBOR(hash, p.options.VersionKey, p.options.Versions).Encode()
	}
	// Done
	return frontend
}

// register indexes a compiled code object.  Identifiers are global to the
// project: a collision means two code objects claim the same name.
//
//nolint:revive
func (p *Project) register(object *Object) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	if p.objects[object.Identifier] != nil {
		return fmt.Errorf("duplicate code object %q", object.Identifier)
	}
	//
	p.objects[object.Identifier] = object
	// Done
	return nil
}

// registerLeaf publishes a static data section into the link namespace.
// Re-registration with identical content is a no-op, keeping sections shared
// between segments legal.
//
//nolint:revive
func (p *Project) registerLeaf(identifier string, payload []byte) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	if existing, ok := p.leaves[identifier]; ok {
		if !bytes.Equal(existing, payload) {
			return fmt.Errorf("conflicting data sections %q", identifier)
		}
		// Done
		return nil
	}
	//
	p.leaves[identifier] = payload
	p.graph.Register(identifier)
	// Done
	return nil
}
