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
	"encoding/hex"
	"fmt"

	"github.com/consensys/go-smelter/pkg/ethir"
	"github.com/consensys/go-smelter/pkg/evmla"
	"github.com/consensys/go-smelter/pkg/ir"
)

// compileAssembly compiles one legacy-assembly pair and, recursively, every
// nested creation assembly as a unit of its own.  The runtime counterpart
// compiles first: the deploy emission needs its immutable reference offsets.
//
//nolint:revive
func (p *Project) compileAssembly(contract *Contract, assembly *evmla.Assembly, path string, root bool) (*Object, *Object, error) {
	var (
		deployObject  *Object
		runtimeObject *Object
		runtime       *evmla.Assembly
	)
	// Data index "0" of a deploy assembly is reserved for the runtime
	// counterpart; a contract without one is legal.
	if entry := assembly.Data["0"]; entry != nil {
		if entry.Assembly == nil {
			return nil, nil, malformed(path, ir.Deploy,
				fmt.Errorf("data index \"0\" must hold the runtime assembly"))
		}
		//
		runtime = entry.Assembly
	}
	//
	record := evmla.AccumulateDependencies(assembly, path, ir.Deploy)
	//
	if runtime != nil {
		frontend, err := frontendTrailer(runtime)
		if err != nil {
			return nil, nil, malformed(path, ir.Runtime, err)
		}
		//
		trailer := p.trailer(contract, frontend, root)
		//
		engine := ethir.NewEngine(runtime, path, ir.Runtime)
		//
		module, err := engine.Lower(p.settings)
		if err != nil {
			return nil, nil, fail(path, ir.Runtime, err)
		}
		// The deploy record subsumes the runtime's dependencies, since the
		// runtime ships inside the deploy bytecode.
		runtimeRecord := evmla.AccumulateDependencies(runtime, path, ir.Runtime)
		record.Merge(runtimeRecord)
		//
		runtimeObject, err = p.compileObject(path, ir.Runtime, module, runtimeRecord, trailer)
		if err != nil {
			return nil, nil, err
		}
		//
		p.dumpAssemblyArtifacts(runtimeObject, runtime, engine)
	}
	//
	engine := ethir.NewEngine(assembly, path, ir.Deploy)
	//
	module, err := engine.Lower(p.settings)
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
	//
	p.dumpAssemblyArtifacts(deployObject, assembly, engine)
	// Subordinate data entries follow: nested creation assemblies compile as
	// units of their own, hex entries enter the namespace as leaves.
	if err := p.compileAssemblyData(contract, assembly, path, ir.Deploy); err != nil {
		return nil, nil, err
	}
	//
	if runtime != nil {
		if err := p.compileAssemblyData(contract, runtime, path, ir.Runtime); err != nil {
			return nil, nil, err
		}
	}
	// Done
	return deployObject, runtimeObject, nil
}

// compileAssemblyData processes the data section of one assembly.
//
//nolint:revive
func (p *Project) compileAssemblyData(contract *Contract, assembly *evmla.Assembly, path string, segment ir.CodeSegment) error {
	for _, index := range assembly.DataIndexes() {
		if segment == ir.Deploy && index == "0" {
			continue
		}
		//
		identifier, err := evmla.DataIdentifier(assembly, path, segment, index)
		if err != nil {
			panic("unreachable")
		}
		//
		entry := assembly.Data[index]
		// Nested assemblies carry their own tag namespace; the owner's
		// extra metadata does not apply to them.
		if entry.Assembly != nil {
			if _, _, err := p.compileAssembly(contract, entry.Assembly, identifier, false); err != nil {
				return err
			}
			//
			continue
		}
		//
		payload, err := hex.DecodeString(entry.Hex)
		if err != nil {
			return malformed(path, segment,
				fmt.Errorf("malformed hex payload at data index %q: %v", index, err))
		}
		//
		if err := p.registerLeaf(identifier, payload); err != nil {
			return malformed(path, segment, err)
		}
	}
	// Done
	return nil
}

// dumpAssemblyArtifacts attaches the requested textual dumps to a build
// lowered from legacy assembly.
//
//nolint:revive
func (p *Project) dumpAssemblyArtifacts(object *Object, assembly *evmla.Assembly, engine *ethir.Engine) {
	if p.options.DumpEVMLA {
		object.Build.EVMLA = assembly.String()
	}
	//
	if p.options.DumpEthIR {
		object.Build.EthIR = engine.Dump()
	}
}

// frontendTrailer decodes the verbatim trailer the front-end attached to an
// assembly, if any.
func frontendTrailer(assembly *evmla.Assembly) ([]byte, error) {
	if assembly.AuxData == "" {
		return nil, nil
	}
	//
	trailer, err := hex.DecodeString(assembly.AuxData)
	if err != nil {
		return nil, fmt.Errorf("malformed auxdata %q: %v", assembly.AuxData, err)
	}
	// Done
	return trailer, nil
}
