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
	"github.com/consensys/go-smelter/pkg/evmla"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/yul"
)

// Contract is one unit of compilation: a deploy code object exclusively
// owning its runtime counterpart, with the representation fixed at
// construction.
type Contract struct {
	// Path identifies the contract, "file.sol:Name" by front-end convention.
	Path string
	// IR is the contract's code representation.
	IR IR
	// Metadata is the front-end's metadata payload, fingerprinted by the
	// trailer hash.  Optional.
	Metadata []byte
}

// NewContract wraps an already-built representation.
func NewContract(path string, representation IR) *Contract {
	return &Contract{Path: path, IR: representation}
}

// NewYulContract parses Yul source text into a contract.
func NewYulContract(path, source string) (*Contract, error) {
	object, err := yul.Parse(path, source)
	if err != nil {
		return nil, malformed(path, ir.Deploy, err)
	}
	// Done
	return NewContract(path, &YulIR{Object: object}), nil
}

// NewLegacyAssemblyContract deserializes a legacy-assembly contract together
// with its optional extra-metadata side table.  The table is shared
// read-only with the runtime assembly, whose tag namespace it also
// describes.
func NewLegacyAssemblyContract(path string, assembly, extraMetadata []byte) (*Contract, error) {
	parsed, err := evmla.Parse(assembly)
	if err != nil {
		return nil, malformed(path, ir.Deploy, err)
	}
	//
	if extraMetadata != nil {
		table, err := evmla.ParseExtraMetadata(extraMetadata)
		if err != nil {
			return nil, malformed(path, ir.Deploy, err)
		}
		//
		parsed.Metadata = table
		//
		if runtime, err := parsed.RuntimeCode(); err == nil {
			runtime.Metadata = table
		}
	}
	// Done
	return NewContract(path, &LegacyAssemblyIR{Assembly: parsed}), nil
}

// NewTextContract wraps pre-lowered deploy and runtime listings.  An empty
// runtime listing means the contract has no runtime counterpart.
func NewTextContract(path, deploy, runtime string) *Contract {
	text := &TextIR{Source: deploy}
	//
	if runtime != "" {
		text.Runtime = &TextIR{Source: runtime}
	}
	// Done
	return NewContract(path, text)
}
