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
package yul

import (
	"testing"

	"github.com/consensys/go-smelter/pkg/ir"
)

func Test_Deps_01(t *testing.T) {
	t.Parallel()
	//
	object := check_Parse(t, `
		object "A" {
			code {
				datacopy(0, dataoffset("A_deployed"), datasize("A_deployed"))
				return(0, datasize("A_deployed"))
			}
			object "A_deployed" {
				code {
					pop(linkersymbol("src/L.sol:L"))
					pop(create(0, dataoffset("Child"), datasize("Child")))
				}
				object "Child" {
					code { stop() }
				}
			}
		}`)
	// The deploy segment always depends on its own runtime, implicitly,
	// however it is referenced.
	deploy := AccumulateDependencies(object, "test:A", ir.Deploy)
	//
	if deploy.Owner() != "test:A" {
		t.Errorf("unexpected owner %q", deploy.Owner())
	}
	//
	if deploy.Len() != 1 {
		t.Fatalf("expected 1 dependency, got %d", deploy.Len())
	}
	//
	entry := deploy.Entries()[0]
	if entry.Identifier != "test:A.runtime" || entry.Explicit {
		t.Errorf("unexpected dependency %v", entry)
	}
	// The runtime segment depends on its libraries and nested objects,
	// explicitly, in first-reference order.
	runtime := AccumulateDependencies(object.Runtime(), "test:A", ir.Runtime)
	//
	if runtime.Owner() != "test:A.runtime" {
		t.Errorf("unexpected owner %q", runtime.Owner())
	}
	//
	if runtime.Len() != 2 {
		t.Fatalf("expected 2 dependencies, got %d", runtime.Len())
	}
	//
	entries := runtime.Entries()
	if entries[0].Identifier != "src/L.sol:L" || !entries[0].Explicit {
		t.Errorf("unexpected dependency %v", entries[0])
	}
	//
	if entries[1].Identifier != "Child" || !entries[1].Explicit {
		t.Errorf("unexpected dependency %v", entries[1])
	}
}

func Test_Deps_02(t *testing.T) {
	t.Parallel()
	// Repeated references deduplicate; unresolvable names are left for the
	// lowering to report.
	object := check_Parse(t, `{
		pop(dataoffset("missing"))
		pop(linkersymbol("src/L.sol:L"))
		pop(linkersymbol("src/L.sol:L"))
	}`)
	//
	deps := AccumulateDependencies(object, "test", ir.Runtime)
	//
	if deps.Len() != 1 {
		t.Fatalf("expected 1 dependency, got %d", deps.Len())
	}
	//
	if !deps.Contains("src/L.sol:L") || deps.Contains("missing") {
		t.Errorf("unexpected dependencies %v", deps.Identifiers())
	}
	// Data sections resolve against the object's own namespace, but still
	// count as explicit references.
	object = check_Parse(t, `
		object "B" {
			code {
				codecopy(0, dataoffset("table"), datasize("table"))
			}
			data "table" hex"00010203"
		}`)
	//
	deps = AccumulateDependencies(object, "test:B", ir.Deploy)
	//
	if deps.Len() != 1 || !deps.Contains("table") {
		t.Fatalf("expected the data section dependency, got %v", deps.Identifiers())
	}
	// A self reference is not a dependency.
	object = check_Parse(t, `
		object "C" {
			code { return(0, datasize("C")) }
		}`)
	//
	if deps = AccumulateDependencies(object, "test:C", ir.Deploy); deps.Len() != 0 {
		t.Errorf("expected no dependencies, got %v", deps.Identifiers())
	}
}

func Test_Deps_03(t *testing.T) {
	t.Parallel()
	// Merging the runtime's dependencies into the deploy's produces the
	// transitive set used for compile ordering.
	object := check_Parse(t, `
		object "A" {
			code {
				datacopy(0, dataoffset("A_deployed"), datasize("A_deployed"))
			}
			object "A_deployed" {
				code {
					pop(linkersymbol("src/L.sol:L"))
				}
			}
		}`)
	//
	var (
		deploy  = AccumulateDependencies(object, "test:A", ir.Deploy)
		runtime = AccumulateDependencies(object.Runtime(), "test:A", ir.Runtime)
	)
	//
	deploy.Merge(runtime)
	//
	if deploy.Owner() != "test:A" {
		t.Errorf("merge must not change the owner")
	}
	//
	for _, entry := range runtime.Entries() {
		if !deploy.Contains(entry.Identifier) {
			t.Errorf("missing merged dependency %q", entry.Identifier)
		}
	}
	//
	if !deploy.Contains("test:A.runtime") {
		t.Errorf("missing implicit runtime dependency")
	}
}
