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

package ethir

import (
	"fmt"

	"github.com/consensys/go-smelter/pkg/ir"
)

// MalformedInputError reports legacy assembly the reconstruction engine
// cannot model: unparseable payloads, unsupported instructions, duplicate
// tags, or stack underflow during symbolic evaluation.
type MalformedInputError struct {
	// Reason describes the offending construct.
	Reason string
}

func (p *MalformedInputError) Error() string {
	return p.Reason
}

// malformedf constructs a MalformedInputError from a format string.
func malformedf(format string, args ...any) error {
	return &MalformedInputError{Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedTargetError reports a jump whose destination could not be proven
// to be a known tag during symbolic evaluation.  Such jumps cannot be given
// structured successors, so reconstruction of the segment aborts.
type UnresolvedTargetError struct {
	// Segment is the code segment under reconstruction.
	Segment ir.CodeSegment
	// Tag locates the failure in the source block structure.
	Tag uint64
	// Reason describes the failing jump.
	Reason string
}

func (p *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("%s at tag %d of the %s segment", p.Reason, p.Tag, p.Segment)
}
