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
	"fmt"

	"github.com/consensys/go-smelter/pkg/ir"
)

// SizeOverflowError reports bytecode that still exceeds its segment limit
// after the size fallback has been exhausted.
type SizeOverflowError struct {
	Identifier string
	Segment    ir.CodeSegment
	Size       uint64
	Limit      uint64
}

func (p *SizeOverflowError) Error() string {
	return fmt.Sprintf("%s code of %q is %d bytes even with size optimizations, exceeding the EVM limit of %d bytes",
		p.Segment, p.Identifier, p.Size, p.Limit)
}

// BackendError reports a recorded module the emitter cannot realize, e.g. a
// stack shuffle deeper than the EVM's reach or a code offset beyond the tag
// operand width.
type BackendError struct {
	Reason string
}

func (p *BackendError) Error() string {
	return p.Reason
}

func backendErrorf(format string, args ...any) *BackendError {
	return &BackendError{fmt.Sprintf(format, args...)}
}
