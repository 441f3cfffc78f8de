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
	"strings"
)

// MappedLocation is a source location resolved against the source text
// itself, suitable for human-readable diagnostics.  Line and column are
// one-based; both are zero when the underlying offsets were unknown or the
// source text was unavailable.
type MappedLocation struct {
	// Path of the source file.
	Path string
	// Line number (one-based), or zero when unknown.
	Line int
	// Column number (one-based), or zero when unknown.
	Column int
	// Length of the span in characters.
	Length int
	// SourceLine holds the text of the line containing the span, when
	// available.
	SourceLine string
}

// Map resolves a character-offset location against the text of its source
// file.  Passing empty text yields a path-only mapping.
func Map(path string, text string, loc Location) MappedLocation {
	mapped := MappedLocation{Path: path}
	//
	if !loc.Known() || loc.Start >= len(text) {
		return mapped
	}
	// Count lines up to the start offset.
	prefix := text[:loc.Start]
	line := strings.Count(prefix, "\n") + 1
	column := loc.Start - strings.LastIndexByte(prefix, '\n')
	// Extract the enclosing line.
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	lineEnd := strings.IndexByte(text[loc.Start:], '\n')
	//
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += loc.Start
	}
	//
	mapped.Line = line
	mapped.Column = column
	mapped.Length = loc.Length()
	mapped.SourceLine = text[lineStart:lineEnd]
	// Done
	return mapped
}

// String renders the mapped location as "path:line:column".  Unknown line
// information degrades to the bare path.
func (p MappedLocation) String() string {
	if p.Line == 0 {
		return p.Path
	}
	//
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Column)
}
