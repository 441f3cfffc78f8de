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
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/yul"
)

// compileYul compiles one Yul object pair and, recursively, every nested
// creation object as a unit of its own.  The runtime counterpart compiles
// first: the deploy emission needs its immutable reference offsets.
//
//nolint:revive
func (p *Project) compileYul(contract *Contract, object *yul.Object, path string, root bool) (*Object, *Object, error) {
	var (
		deployObject  *Object
		runtimeObject *Object
		runtime       = object.Runtime()
	)
	//
	if err := p.registerYulData(object); err != nil {
		return nil, nil, malformed(path, ir.Deploy, err)
	}
	//
	record := yul.AccumulateDependencies(object, path, ir.Deploy)
	//
	if runtime != nil {
		if err := p.registerYulData(runtime); err != nil {
			return nil, nil, malformed(path, ir.Runtime, err)
		}
		//
		trailer := p.trailer(contract, runtime.Data[metadataSection], root)
		//
		module, err := yul.Lower(runtime, path, ir.Runtime, p.settings)
		if err != nil {
			return nil, nil, fail(path, ir.Runtime, err)
		}
		// The deploy record subsumes the runtime's dependencies, since the
		// runtime ships inside the deploy bytecode.
		runtimeRecord := yul.AccumulateDependencies(runtime, path, ir.Runtime)
		record.Merge(runtimeRecord)
		//
		runtimeObject, err = p.compileObject(path, ir.Runtime, module, runtimeRecord, trailer)
		if err != nil {
			return nil, nil, err
		}
	}
	//
	module, err := yul.Lower(object, path, ir.Deploy, p.settings)
	if err != nil {
		return nil, nil, fail(path, ir.Deploy, err)
	}
	// The deploy code patches immutable values into its runtime copy at the
	// offsets the runtime emission recorded.
	if runtimeObject != nil {
		module.Immutables = runtimeObject.Build.Immutables
	}
	//
	deployObject, err = p.compileObject(path, ir.Deploy, module, record, nil)
	if err != nil {
		return nil, nil, err
	}
	// Nested creation objects compile as units of their own, named by their
	// source names.
	for _, nested := range creationObjects(object) {
		if _, _, err := p.compileYul(contract, nested, nested.Name, false); err != nil {
			return nil, nil, err
		}
	}
	// Done
	return deployObject, runtimeObject, nil
}

// registerYulData publishes an object's static data sections, keeping the
// reserved metadata section out of the link namespace.
//
//nolint:revive
func (p *Project) registerYulData(object *yul.Object) error {
	for name, payload := range object.Data {
		if name == metadataSection {
			continue
		}
		//
		if err := p.registerLeaf(name, payload); err != nil {
			return err
		}
	}
	// Done
	return nil
}

// creationObjects returns the nested objects compiled as units of their own:
// every nested object of the pair except the runtime counterpart itself.
func creationObjects(object *yul.Object) []*yul.Object {
	var nested []*yul.Object
	//
	for _, candidate := range object.Objects {
		if !object.IsRuntimeOf(candidate.Name) {
			nested = append(nested, candidate)
		}
	}
	//
	if runtime := object.Runtime(); runtime != nil {
		for _, candidate := range runtime.Objects {
			if !runtime.IsRuntimeOf(candidate.Name) {
				nested = append(nested, candidate)
			}
		}
	}
	// Done
	return nested
}
