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
package debuginfo

import (
	"fmt"
	"strconv"
	"strings"
)

// Ordering determines how the three fields of a textual source location
// triplet are arranged.  The front-end AST uses "start:length:file", whilst
// Yul debug annotations use "file:start:end".
type Ordering uint8

const (
	// OrderingAst is the "start:length:file" arrangement.
	OrderingAst Ordering = iota
	// OrderingYul is the "file:start:end" arrangement.
	OrderingYul
)

// Location identifies a character span within one front-end source file.
// Start and End are absolute character offsets, not line/column pairs; either
// may be -1 when the front-end withheld them.
type Location struct {
	// SourceID is the front-end's identifier for the source file.
	SourceID int
	// Start offset within the source file.
	Start int
	// End offset within the source file.
	End int
}

// NewLocation constructs a location with unknown offsets.
func NewLocation(sourceID int) Location {
	return Location{SourceID: sourceID, Start: -1, End: -1}
}

// UnknownLocation constructs a location carrying no information at all.
func UnknownLocation() Location {
	return Location{SourceID: -1, Start: -1, End: -1}
}

// ParseLocation parses a source location triplet under the given field
// ordering.
func ParseLocation(text string, ordering Ordering) (Location, error) {
	parts := strings.SplitN(text, ":", 3)
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("malformed source location %q", text)
	}
	//
	fields := make([]int, 3)
	//
	for i, part := range parts {
		val, err := strconv.Atoi(part)
		if err != nil {
			return Location{}, fmt.Errorf("malformed source location %q: %v", text, err)
		}
		//
		fields[i] = val
	}
	//
	switch ordering {
	case OrderingAst:
		start, length, source := fields[0], fields[1], fields[2]
		return Location{SourceID: source, Start: start, End: start + length}, nil
	case OrderingYul:
		return Location{SourceID: fields[0], Start: fields[1], End: fields[2]}, nil
	default:
		panic("unknown location ordering")
	}
}

// Known determines whether this location carries usable offsets.
func (p Location) Known() bool {
	return p.Start >= 0 && p.End >= 0
}

// Length returns the span length, or zero when offsets are unknown.
func (p Location) Length() int {
	if !p.Known() || p.End < p.Start {
		return 0
	}
	//
	return p.End - p.Start
}

// String renders the location in the Yul annotation ordering.
func (p Location) String() string {
	return fmt.Sprintf("%d:%d:%d", p.SourceID, p.Start, p.End)
}
