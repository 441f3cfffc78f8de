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

import "testing"

func TestLocation_ParseAst(t *testing.T) {
	t.Parallel()
	// "start:length:file"
	loc, err := ParseLocation("10:5:2", OrderingAst)
	//
	if err != nil {
		t.Fatal(err)
	}
	//
	checkLocation(t, loc, 2, 10, 15)
}

func TestLocation_ParseYul(t *testing.T) {
	t.Parallel()
	// "file:start:end"
	loc, err := ParseLocation("2:10:15", OrderingYul)
	//
	if err != nil {
		t.Fatal(err)
	}
	//
	checkLocation(t, loc, 2, 10, 15)
}

func TestLocation_ParseUnknownOffsets(t *testing.T) {
	t.Parallel()
	//
	loc, err := ParseLocation("0:-1:-1", OrderingYul)
	//
	if err != nil {
		t.Fatal(err)
	} else if loc.Known() {
		t.Errorf("expected unknown location, got %s", loc)
	} else if loc.Length() != 0 {
		t.Errorf("expected zero length, got %d", loc.Length())
	}
}

func TestLocation_ParseMalformed(t *testing.T) {
	t.Parallel()
	//
	for _, text := range []string{"", "1:2", "a:b:c", "1:2:3:4:"} {
		if _, err := ParseLocation(text, OrderingYul); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestMapped_LineColumn(t *testing.T) {
	t.Parallel()
	//
	text := "contract C {\n    function f() {}\n}\n"
	// span of "function"
	loc := Location{SourceID: 0, Start: 17, End: 25}
	mapped := Map("test.sol", text, loc)
	//
	if mapped.Line != 2 || mapped.Column != 5 {
		t.Errorf("expected 2:5, got %d:%d", mapped.Line, mapped.Column)
	}
	//
	if mapped.SourceLine != "    function f() {}" {
		t.Errorf("unexpected source line %q", mapped.SourceLine)
	}
	//
	if mapped.String() != "test.sol:2:5" {
		t.Errorf("unexpected rendering %q", mapped.String())
	}
}

func TestMapped_UnknownOffsets(t *testing.T) {
	t.Parallel()
	//
	mapped := Map("test.sol", "contract C {}", NewLocation(0))
	//
	if mapped.Line != 0 || mapped.Column != 0 {
		t.Errorf("expected unmapped location, got %s", mapped)
	}
	//
	if mapped.String() != "test.sol" {
		t.Errorf("unexpected rendering %q", mapped.String())
	}
}

func TestTables_NodeFloorLookup(t *testing.T) {
	t.Parallel()
	//
	tables := NewTables()
	tables.AddNode(Node{AstID: 1, Location: Location{SourceID: 0, Start: 0, End: 40}})
	tables.AddNode(Node{AstID: 2, Location: Location{SourceID: 0, Start: 10, End: 30}})
	tables.AddNode(Node{AstID: 3, Location: Location{SourceID: 0, Start: 20, End: 25}})
	// Exact hit
	checkNode(t, tables, 10, 2)
	// Floor between nodes
	checkNode(t, tables, 15, 2)
	checkNode(t, tables, 35, 3)
	// Before the first node
	if _, ok := tables.NodeAt(0, -1); ok {
		t.Error("expected no node before the first offset")
	}
	// Unknown source
	if _, ok := tables.NodeAt(9, 10); ok {
		t.Error("expected no node for unknown source")
	}
}

func TestTables_Definitions(t *testing.T) {
	t.Parallel()
	//
	tables := NewTables()
	tables.AddContract(ContractDefinition{AstID: 7, Name: "Counter", Location: Location{SourceID: 1, Start: 0, End: 10}})
	tables.AddFunction(FunctionDefinition{AstID: 9, Name: "increment", Location: Location{SourceID: 1, Start: 12, End: 30}})
	//
	if def, ok := tables.Contract(1, "Counter"); !ok || def.AstID != 7 {
		t.Errorf("contract lookup failed: %v, %v", def, ok)
	}
	//
	if def, ok := tables.Function(1, 9); !ok || def.Name != "increment" {
		t.Errorf("function lookup failed: %v, %v", def, ok)
	}
	//
	if _, ok := tables.Contract(1, "Missing"); ok {
		t.Error("expected missing contract")
	}
}

func TestTables_RetainSourceIDs(t *testing.T) {
	t.Parallel()
	//
	tables := NewTables()
	tables.AddSource(0, "a.sol")
	tables.AddSource(1, "b.sol")
	tables.AddSource(2, "c.sol")
	tables.AddNode(Node{AstID: 1, Location: Location{SourceID: 0, Start: 0, End: 5}})
	tables.AddNode(Node{AstID: 2, Location: Location{SourceID: 2, Start: 0, End: 5}})
	//
	tables.RetainSourceIDs([]int{0, 1})
	//
	if ids := tables.SourceIDs(); len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Errorf("unexpected retained sources %v", ids)
	}
	//
	if _, ok := tables.NodeAt(0, 0); !ok {
		t.Error("expected node in retained source")
	}
	//
	if _, ok := tables.NodeAt(2, 0); ok {
		t.Error("expected node in dropped source to be gone")
	}
}

func checkLocation(t *testing.T, loc Location, sourceID, start, end int) {
	t.Helper()
	//
	if loc.SourceID != sourceID || loc.Start != start || loc.End != end {
		t.Errorf("expected %d:%d:%d, got %s", sourceID, start, end, loc)
	}
}

func checkNode(t *testing.T, tables *Tables, offset, astID int) {
	t.Helper()
	//
	node, ok := tables.NodeAt(0, offset)
	//
	if !ok {
		t.Errorf("expected node at offset %d", offset)
	} else if node.AstID != astID {
		t.Errorf("expected node %d at offset %d, got %d", astID, offset, node.AstID)
	}
}
