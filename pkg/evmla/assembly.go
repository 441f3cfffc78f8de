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

// Package evmla models the unstructured "legacy assembly" a Solidity
// front-end serializes for each contract: a flat instruction stream with
// symbolic jump tags, a data section holding subordinate assemblies and
// static payloads, and a side table recovering function boundaries.  The
// model is consumed by the Ethereal-IR reconstruction engine.
package evmla

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Assembly is one code object of a legacy-assembly tree: the deploy code at
// the root, with the runtime code and nested creation assemblies in the data
// section.
type Assembly struct {
	// Code is the instruction stream.
	Code []Instruction `json:".code"`
	// Data maps hexadecimal identifiers to subordinate assemblies or static
	// hex payloads.  Index "0" of a deploy assembly is its runtime code.
	Data map[string]*DataEntry `json:".data,omitempty"`
	// AuxData is the trailing hex payload appended verbatim by the
	// front-end, if any.
	AuxData string `json:".auxdata,omitempty"`

	// Metadata recovers function boundaries during reconstruction.  It is
	// attached after parsing and shared read-only with the runtime code.
	Metadata *ExtraMetadata `json:"-"`
}

// DataEntry is one data-section value: either a subordinate assembly or a
// static hex payload.  Exactly one of the fields is set.
type DataEntry struct {
	Assembly *Assembly
	Hex      string
}

//nolint:revive
func (p *DataEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Hex)
	}
	//
	p.Assembly = new(Assembly)
	// Done
	return json.Unmarshal(data, p.Assembly)
}

//nolint:revive
func (p *DataEntry) MarshalJSON() ([]byte, error) {
	if p.Assembly != nil {
		return json.Marshal(p.Assembly)
	}
	// Done
	return json.Marshal(p.Hex)
}

// Parse deserializes a legacy-assembly object from the front-end's JSON
// form.
func Parse(raw []byte) (*Assembly, error) {
	assembly := new(Assembly)
	//
	if err := json.Unmarshal(raw, assembly); err != nil {
		return nil, fmt.Errorf("malformed legacy assembly: %v", err)
	}
	// Done
	return assembly, nil
}

// RuntimeCode returns the runtime assembly held at data index "0" of this
// deploy assembly.
//
//nolint:revive
func (p *Assembly) RuntimeCode() (*Assembly, error) {
	entry := p.Data["0"]
	if entry == nil || entry.Assembly == nil {
		return nil, fmt.Errorf("legacy assembly is missing runtime code")
	}
	// Done
	return entry.Assembly, nil
}

// DataIndexes returns the data-section identifiers in deterministic order.
//
//nolint:revive
func (p *Assembly) DataIndexes() []string {
	indexes := make([]string, 0, len(p.Data))
	//
	for index := range p.Data {
		indexes = append(indexes, index)
	}
	//
	sort.Strings(indexes)
	// Done
	return indexes
}

// String renders the assembly listing, nested data sections indented, for
// the EVMLA dump of a Build.
//
//nolint:revive
func (p *Assembly) String() string {
	var builder strings.Builder
	//
	p.render(&builder, 0)
	// Done
	return builder.String()
}

//nolint:revive
func (p *Assembly) render(builder *strings.Builder, depth int) {
	indent := strings.Repeat("    ", depth)
	//
	fmt.Fprintf(builder, "%s.code\n", indent)
	//
	for i := range p.Code {
		fmt.Fprintf(builder, "%s  %s\n", indent, p.Code[i].String())
	}
	//
	for _, index := range p.DataIndexes() {
		fmt.Fprintf(builder, "%s.data %s\n", indent, index)
		//
		if entry := p.Data[index]; entry.Assembly != nil {
			entry.Assembly.render(builder, depth+1)
		} else {
			fmt.Fprintf(builder, "%s  %s\n", indent, entry.Hex)
		}
	}
	//
	if p.AuxData != "" {
		fmt.Fprintf(builder, "%s.auxdata %s\n", indent, p.AuxData)
	}
}
