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
	"encoding/json"
	"fmt"

	"github.com/consensys/go-smelter/pkg/ir"
)

// ExtraMetadata is the side table the front-end emits alongside a contract's
// legacy assembly, recovering function boundaries the instruction stream
// does not make explicit.  It is parsed once and consulted read-only during
// reconstruction.
type ExtraMetadata struct {
	// DefinedFunctions lists the functions with known block tags.
	DefinedFunctions []DefinedFunction `json:"recursiveFunctions"`
}

// DefinedFunction maps a function to its entry tags.  The deploy and runtime
// segments carry distinct tag namespaces, hence two optional tags.
type DefinedFunction struct {
	// Name of the function.
	Name string `json:"name"`
	// AstID of the function's definition node, when known.
	AstID *int64 `json:"astId,omitempty"`
	// CreationTag is the entry tag within the deploy code.
	CreationTag *uint64 `json:"creationTag,omitempty"`
	// RuntimeTag is the entry tag within the runtime code.
	RuntimeTag *uint64 `json:"runtimeTag,omitempty"`
	// InputSize is the number of stack slots consumed.
	InputSize uint `json:"totalParamSize"`
	// OutputSize is the number of stack slots produced.
	OutputSize uint `json:"totalRetParamSize"`
}

// ParseExtraMetadata deserializes the side table from its JSON form.
func ParseExtraMetadata(raw []byte) (*ExtraMetadata, error) {
	metadata := new(ExtraMetadata)
	//
	if err := json.Unmarshal(raw, metadata); err != nil {
		return nil, fmt.Errorf("malformed extra metadata: %v", err)
	}
	// Done
	return metadata, nil
}

// Get returns the function whose entry tag in the given segment is tag, or
// nil when the tag marks no function boundary.
//
//nolint:revive
func (p *ExtraMetadata) Get(segment ir.CodeSegment, tag uint64) *DefinedFunction {
	if p == nil {
		return nil
	}
	//
	for i := range p.DefinedFunctions {
		function := &p.DefinedFunctions[i]
		//
		switch segment {
		case ir.Deploy:
			if function.CreationTag != nil && *function.CreationTag == tag {
				return function
			}
		case ir.Runtime:
			if function.RuntimeTag != nil && *function.RuntimeTag == tag {
				return function
			}
		}
	}
	// Done
	return nil
}
