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
	"errors"
	"fmt"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/ethir"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/linker"
)

// ErrorKind classifies code-object failures.  The classes are disjoint and
// exhaustive: every failure of a compile or link step maps onto exactly one.
type ErrorKind uint8

const (
	// MalformedInput marks unparseable or ill-formed inputs: syntax errors,
	// malformed hex payloads, colliding object names.
	MalformedInput ErrorKind = iota
	// UnresolvedReference marks identifiers absent from the link namespace
	// and jump targets the reconstruction cannot resolve.
	UnresolvedReference
	// SizeOverflow marks bytecode still over its segment limit once the size
	// fallback is exhausted, and linked values beyond placeholder range.
	SizeOverflow
	// Backend marks emissions the instruction backend rejects.  Lowering is
	// deterministic, so retrying the same input cannot succeed.
	Backend
)

func (p ErrorKind) String() string {
	switch p {
	case MalformedInput:
		return "malformed input"
	case UnresolvedReference:
		return "unresolved reference"
	case SizeOverflow:
		return "size overflow"
	case Backend:
		return "backend"
	default:
		panic("unknown error kind")
	}
}

// Error tags one code object's failure with its class and origin.  Failures
// never cross code objects: a contract fails alone while its siblings
// compile.
type Error struct {
	// Kind is the failure class.
	Kind ErrorKind
	// Path of the owning contract.
	Path string
	// Segment under compilation or linking when the failure arose.
	Segment ir.CodeSegment
	// Err is the underlying failure.
	Err error
}

//nolint:revive
func (p *Error) Error() string {
	return fmt.Sprintf("%s: %s code of %q: %v", p.Kind, p.Segment, p.Path, p.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
//
//nolint:revive
func (p *Error) Unwrap() error {
	return p.Err
}

// classify maps an engine, emitter or linker failure onto its class.
func classify(err error) ErrorKind {
	var (
		input     *ethir.MalformedInputError
		target    *ethir.UnresolvedTargetError
		reference *linker.UnresolvedReferenceError
		size      *codegen.SizeOverflowError
		value     *linker.OverflowError
	)
	//
	switch {
	case errors.As(err, &input):
		return MalformedInput
	case errors.As(err, &target) || errors.As(err, &reference):
		return UnresolvedReference
	case errors.As(err, &size) || errors.As(err, &value):
		return SizeOverflow
	default:
		return Backend
	}
}

// fail wraps a failure with its code object's context, passing through
// failures already tagged by a nested step.
func fail(path string, segment ir.CodeSegment, err error) *Error {
	var tagged *Error
	//
	if errors.As(err, &tagged) {
		return tagged
	}
	// Done
	return &Error{Kind: classify(err), Path: path, Segment: segment, Err: err}
}

// malformed wraps a failure whose inputs cannot produce any other class.
func malformed(path string, segment ir.CodeSegment, err error) *Error {
	return &Error{Kind: MalformedInput, Path: path, Segment: segment, Err: err}
}
