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
package evmla

import (
	"fmt"

	"github.com/consensys/go-smelter/pkg/ir"
)

// DataIdentifier canonicalizes a data-section reference of the given
// assembly.  Index "0" of a deploy assembly is its runtime code; every other
// index names a subordinate entry scoped by the owning segment's identifier,
// so equal indexes in deploy and runtime data sections stay distinct.  The
// reconstruction engine and the dependency accumulator below must agree on
// this mapping.
func DataIdentifier(assembly *Assembly, path string, segment ir.CodeSegment, index string) (string, error) {
	if segment == ir.Deploy && index == "0" {
		return ir.RuntimeIdentifier(path), nil
	}
	//
	if assembly.Data[index] == nil {
		return "", fmt.Errorf("reference to unknown data entry %q of %q", index, path)
	}
	// Done
	return fmt.Sprintf("%s.%s", segment.Identifier(path), index), nil
}

// AccumulateDependencies collects the identifiers the assembly references:
// its runtime code (implicitly, for deploy assemblies), subordinate data
// entries, and libraries.  The traversal mirrors the reconstruction engine's
// instruction walk.
func AccumulateDependencies(assembly *Assembly, path string, segment ir.CodeSegment) *ir.Dependencies {
	deps := ir.NewDependencies(segment.Identifier(path))
	// Deploy code depends on its runtime code however it is referenced.
	if segment == ir.Deploy {
		if _, err := assembly.RuntimeCode(); err == nil {
			deps.Insert(ir.RuntimeIdentifier(path), false)
		}
	}
	//
	for i := range assembly.Code {
		instruction := &assembly.Code[i]
		//
		switch instruction.Name {
		case NamePushDataOffset, NamePushDataSize, NamePushData:
			identifier, err := DataIdentifier(assembly, path, segment, instruction.Value)
			if err != nil {
				// The reconstruction engine reports unresolved entries.
				continue
			}
			//
			explicit := !(segment == ir.Deploy && instruction.Value == "0")
			deps.Insert(identifier, explicit)
		case NamePushLibrary:
			deps.Insert(instruction.Value, true)
		}
	}
	// Done
	return deps
}
