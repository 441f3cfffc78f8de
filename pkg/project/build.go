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
	"sort"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/linker"
)

// Object is the compiled artifact of one code object.
type Object struct {
	// Identifier of the code object within the project namespace.
	Identifier string
	// Path of the owning contract.
	Path string
	// Segment this object belongs to.
	Segment ir.CodeSegment
	// Build is the unlinked emission artifact.
	Build *codegen.Build
	// Linked is the assembled form, once linking succeeds.
	Linked *linker.Linked
	// trailer is appended behind the linked bytecode.
	trailer []byte
}

// Bytecode returns the final bytecode of a linked object: the assembled code
// with the metadata trailer appended.  Nil until the object links.
//
//nolint:revive
func (p *Object) Bytecode() []byte {
	if p.Linked == nil {
		return nil
	}
	//
	if len(p.trailer) == 0 {
		return p.Linked.Bytecode
	}
	//
	bytecode := make([]byte, 0, len(p.Linked.Bytecode)+len(p.trailer))
	bytecode = append(bytecode, p.Linked.Bytecode...)
	bytecode = append(bytecode, p.trailer...)
	// Done
	return bytecode
}

// ContractBuild is the outcome of one contract's compilation: the root code
// object pair and the first failure, if any.  Nested creation units are
// indexed on the project Build instead.
type ContractBuild struct {
	// Path of the contract.
	Path string
	// Deploy code object, when compilation reached it.
	Deploy *Object
	// Runtime code object, when the contract has one.
	Runtime *Object
	// Err is the first failure affecting this contract, nil on success.
	Err error
}

// Build collects the artifacts of one project compilation.
type Build struct {
	// Contracts maps contract paths to their outcomes.
	Contracts map[string]*ContractBuild
	// objects indexes every compiled code object by identifier, nested
	// creation units included.
	objects map[string]*Object
}

// Object returns the compiled code object carrying the given identifier, or
// nil when no such object exists.
//
//nolint:revive
func (p *Build) Object(identifier string) *Object {
	return p.objects[identifier]
}

// HasErrors reports whether any contract failed.
//
//nolint:revive
func (p *Build) HasErrors() bool {
	for _, contract := range p.Contracts {
		if contract.Err != nil {
			return true
		}
	}
	// Done
	return false
}

// Errors returns every contract failure, ordered by contract path.
//
//nolint:revive
func (p *Build) Errors() []error {
	paths := make([]string, 0, len(p.Contracts))
	//
	for path, contract := range p.Contracts {
		if contract.Err != nil {
			paths = append(paths, path)
		}
	}
	//
	sort.Strings(paths)
	//
	errs := make([]error, len(paths))
	//
	for i, path := range paths {
		errs[i] = p.Contracts[path].Err
	}
	// Done
	return errs
}
