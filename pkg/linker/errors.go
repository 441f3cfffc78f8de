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

package linker

import "fmt"

// UnresolvedReferenceError reports a reference whose identifier is absent
// from the link namespace.  Internal marks implicit references, whose
// absence indicates a broken structural invariant rather than a problem
// with the source program.
type UnresolvedReferenceError struct {
	// Owner is the code object holding the reference.
	Owner string
	// Identifier is the unresolved reference.
	Identifier string
	// Internal marks implicit references.
	Internal bool
}

func (p *UnresolvedReferenceError) Error() string {
	if p.Internal {
		return fmt.Sprintf("internal: implicit reference %q of %q is missing from the link namespace",
			p.Identifier, p.Owner)
	}
	// Done
	return fmt.Sprintf("unresolved reference %q of %q", p.Identifier, p.Owner)
}

// OverflowError reports a linked offset or size that does not fit the 2-byte
// placeholders emission leaves in the bytecode.
type OverflowError struct {
	// Owner is the code object being linked.
	Owner string
	// Value is the offending offset or size.
	Value uint64
}

func (p *OverflowError) Error() string {
	return fmt.Sprintf("linked value %d of %q exceeds 2-byte addressing", p.Value, p.Owner)
}
