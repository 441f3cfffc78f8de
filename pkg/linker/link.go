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

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/consensys/go-smelter/pkg/codegen"
)

// Extent locates one appended payload within linked bytecode.
type Extent struct {
	// Offset of the payload's first byte.
	Offset uint64
	// Size of the payload in bytes.
	Size uint64
}

// Linked is the assembled form of one code object.
type Linked struct {
	// Bytecode with all placeholders patched and referenced payloads
	// appended.
	Bytecode []byte
	// Layout locates each appended payload.
	Layout map[string]Extent
	// Unlinked lists library names whose placeholders remain zeroed, in
	// lexicographic order.
	Unlinked []string
}

// Link assembles the final bytecode of one compiled code object.  Referenced
// payloads (subordinate objects, data sections) are appended behind the code
// in first-reference order, the offset/size/total placeholders are patched,
// and library placeholders are filled from the given address table.  Library
// names without an address stay zeroed and are reported as unlinked.
// Addresses must be 20 bytes.
//
//nolint:revive
func (p *Graph) Link(build *codegen.Build, payloads map[string][]byte, libraries map[string][]byte) (*Linked, error) {
	var (
		code   = make([]byte, len(build.Bytecode))
		layout = make(map[string]Extent)
	)
	//
	copy(code, build.Bytecode)
	//
	order, err := p.linkOrder(build)
	if err != nil {
		return nil, err
	}
	// Append the referenced payloads.
	for _, identifier := range order {
		payload, ok := payloads[identifier]
		if !ok {
			return nil, &UnresolvedReferenceError{Owner: build.Identifier, Identifier: identifier, Internal: true}
		}
		//
		layout[identifier] = Extent{Offset: uint64(len(code)), Size: uint64(len(payload))}
		code = append(code, payload...)
	}
	// Patch the data references.
	for identifier, offsets := range build.DataOffsetRefs {
		if err := patch(code, offsets, layout[identifier].Offset, build.Identifier); err != nil {
			return nil, err
		}
	}
	//
	for identifier, offsets := range build.DataSizeRefs {
		if err := patch(code, offsets, layout[identifier].Size, build.Identifier); err != nil {
			return nil, err
		}
	}
	//
	if err := patch(code, build.ProgramSizeRefs, uint64(len(code)), build.Identifier); err != nil {
		return nil, err
	}
	// Patch the library addresses.
	var unlinked []string
	//
	for name, offsets := range build.LibraryRefs {
		address, ok := libraries[name]
		if !ok {
			unlinked = append(unlinked, name)
			continue
		} else if len(address) != 20 {
			panic("malformed library address")
		}
		//
		for _, offset := range offsets {
			copy(code[offset:offset+20], address)
		}
	}
	//
	sort.Strings(unlinked)
	// Done
	return &Linked{Bytecode: code, Layout: layout, Unlinked: unlinked}, nil
}

// linkOrder returns the identifiers the build references, in the dependency
// record's first-reference order.  Emission and accumulation walk the same
// input, so a reference the record does not cover indicates the traversals
// diverged.
func (p *Graph) linkOrder(build *codegen.Build) ([]string, error) {
	referenced := make(map[string]bool)
	//
	for identifier := range build.DataOffsetRefs {
		referenced[identifier] = true
	}
	//
	for identifier := range build.DataSizeRefs {
		referenced[identifier] = true
	}
	//
	if len(referenced) == 0 {
		return nil, nil
	}
	//
	var (
		record = p.Dependencies(build.Identifier)
		order  []string
	)
	//
	if record != nil {
		for _, dependency := range record.Entries() {
			if referenced[dependency.Identifier] {
				order = append(order, dependency.Identifier)
				delete(referenced, dependency.Identifier)
			}
		}
	}
	//
	if len(referenced) != 0 {
		missing := make([]string, 0, len(referenced))
		for identifier := range referenced {
			missing = append(missing, identifier)
		}
		//
		sort.Strings(missing)
		// Done
		return nil, &UnresolvedReferenceError{Owner: build.Identifier, Identifier: missing[0], Internal: true}
	}
	// Done
	return order, nil
}

// patch writes the given value into each 2-byte big-endian placeholder.
func patch(code []byte, offsets []uint64, value uint64, owner string) error {
	if len(offsets) > 0 && value > math.MaxUint16 {
		return &OverflowError{Owner: owner, Value: value}
	}
	//
	for _, offset := range offsets {
		binary.BigEndian.PutUint16(code[offset:], uint16(value))
	}
	// Done
	return nil
}
