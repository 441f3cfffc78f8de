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
package codegen

import (
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/util/collection/set"
)

// Build is the artifact of one successful compilation attempt of one code
// object.  A size-fallback retry produces a second, replacing Build; the
// two are never merged.
type Build struct {
	// Identifier of the code object.
	Identifier string `json:"identifier"`
	// Segment being compiled.
	Segment ir.CodeSegment `json:"segment"`
	// Bytecode is the unlinked object code.  Link-time placeholders are
	// zeroed; their offsets are recorded in the reference tables below.
	Bytecode []byte `json:"bytecode"`
	// DebugInfo is the source map: one start:length:file triplet per
	// emitted instruction, joined with ';'.
	DebugInfo []byte `json:"debugInfo,omitempty"`
	// Assembly is the recorded module listing, when requested.
	Assembly string `json:"assembly,omitempty"`
	// EVMLA is the legacy-assembly dump, when requested.
	EVMLA string `json:"evmla,omitempty"`
	// EthIR is the Ethereal IR dump, when requested.
	EthIR string `json:"ethir,omitempty"`
	// Immutables maps immutable names to the ascending byte offsets of
	// their 32-byte placeholders.  Populated on runtime segments only.
	Immutables map[string]*set.SortedSet[uint64] `json:"immutables,omitempty"`
	// IsSizeFallback is set when this Build came from the size-fallback
	// retry.
	IsSizeFallback bool `json:"isSizeFallback"`
	// Warnings carries non-fatal diagnostics.
	Warnings []Warning `json:"warnings,omitempty"`

	// DataOffsetRefs maps dependency identifiers to byte offsets of 2-byte
	// offset placeholders, patched by the linker.
	DataOffsetRefs map[string][]uint64 `json:"dataOffsetRefs,omitempty"`
	// DataSizeRefs maps dependency identifiers to byte offsets of 2-byte
	// size placeholders, patched by the linker.
	DataSizeRefs map[string][]uint64 `json:"dataSizeRefs,omitempty"`
	// LibraryRefs maps library names to byte offsets of 20-byte address
	// placeholders, patched at link time or reported unlinked.
	LibraryRefs map[string][]uint64 `json:"libraryRefs,omitempty"`
	// ProgramSizeRefs are byte offsets of 2-byte total-size placeholders.
	ProgramSizeRefs []uint64 `json:"programSizeRefs,omitempty"`
}

// SizeLimit returns the EVM bytecode limit of the given segment.
func SizeLimit(segment ir.CodeSegment) uint64 {
	if segment == ir.Deploy {
		return evm.DeployCodeSizeLimit
	}
	// Done
	return evm.RuntimeCodeSizeLimit
}

// Emitter realizes a recorded module as bytecode.  Implementations must not
// mutate the module, so that a retry sees the identical input.
type Emitter interface {
	// Emit the module under the given settings.
	Emit(module *Module, settings *OptimizerSettings) (*Build, error)
}

// Run emits the module and drives the size fallback: when the bytecode
// exceeds the segment limit, the fallback is enabled and the settings are
// not already at maximum size level, the identical module is re-emitted
// exactly once under size settings.  A retry that still exceeds the limit is
// a SizeOverflowError; without the fallback an over-limit build only carries
// a warning.
func Run(module *Module, settings *OptimizerSettings, emitter Emitter) (*Build, error) {
	build, err := emitter.Emit(module, settings)
	if err != nil {
		return nil, err
	}
	//
	var (
		limit = SizeLimit(module.Segment)
		size  = uint64(len(build.Bytecode)) + settings.MetadataSize
	)
	//
	if size <= limit {
		return build, nil
	}
	// Over the limit: retry under size settings, or warn.
	if settings.FallbackToSize && !settings.IsMaxSize() {
		retry := settings.SwitchToSizeFallback()
		log.Debugf("%s %s: %d bytes over the %d-byte limit, retrying with %s",
			module.Name, module.Segment, size, limit, retry)
		//
		build, err = emitter.Emit(module, retry)
		if err != nil {
			return nil, err
		}
		//
		build.IsSizeFallback = true
		//
		if size = uint64(len(build.Bytecode)) + retry.MetadataSize; size > limit {
			return nil, &SizeOverflowError{module.Name, module.Segment, size, limit}
		}
		// Done
		return build, nil
	}
	//
	build.Warnings = append(build.Warnings, NewCodeSizeWarning(module.Name, module.Segment, size, limit))
	// Done
	return build, nil
}
