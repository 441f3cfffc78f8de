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
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/metadata"
	"github.com/consensys/go-smelter/pkg/project"
)

// buildMetadata assembles the solc-style metadata payload of one contract,
// which the trailer hash fingerprints: the compiler version, the source
// language, the effective optimizer settings and the keccak256 of the
// source text.
func buildMetadata(contract *project.Contract, source []byte, settings *codegen.OptimizerSettings) []byte {
	payload := map[string]any{
		"compiler": map[string]any{
			"version": fmt.Sprintf("smelter-%s", releaseVersion()),
		},
		"language": contractLanguage(contract.IR),
		"settings": map[string]any{
			"optimizer": map[string]any{
				"mode":         string(settings.MiddleEndChar()),
				"sizeFallback": settings.FallbackToSize,
			},
		},
		"sources": map[string]any{
			contract.Path: map[string]any{
				"keccak256": metadata.Keccak256Hex(source),
			},
		},
	}
	// Maps marshal with sorted keys, keeping the payload deterministic.
	bytes, err := json.Marshal(payload)
	if err != nil {
		panic("unreachable")
	}
	// Done
	return bytes
}

// contractLanguage names the source language of a code representation.
func contractLanguage(representation project.IR) string {
	switch representation.(type) {
	case *project.YulIR:
		return "Yul"
	case *project.LegacyAssemblyIR:
		return "EVMAssembly"
	case *project.TextIR:
		return "Assembly"
	default:
		panic("unreachable")
	}
}
