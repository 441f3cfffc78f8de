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

// SourceMap accumulates one start:length:file triplet per emitted
// instruction, in emission order.  Unknown locations map to -1 fields.
type SourceMap struct {
	entries []string
}

// Add appends the triplet of the given location.
//
//nolint:revive
func (p *SourceMap) Add(loc Location) {
	if !loc.Known() {
		p.entries = append(p.entries, fmt.Sprintf("-1:-1:%d", loc.SourceID))
		return
	}
	//
	p.entries = append(p.entries, fmt.Sprintf("%d:%d:%d", loc.Start, loc.Length(), loc.SourceID))
}

// Len returns the number of entries accumulated so far.
//
//nolint:revive
func (p *SourceMap) Len() int {
	return len(p.entries)
}

// Bytes renders the source map with ';' separators.
//
//nolint:revive
func (p *SourceMap) Bytes() []byte {
	return []byte(strings.Join(p.entries, ";"))
}
