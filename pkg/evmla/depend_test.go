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
package evmla

import (
	"testing"

	"github.com/consensys/go-smelter/pkg/ir"
)

func Test_Deps_01(t *testing.T) {
	t.Parallel()
	//
	assembly := check_Assembly(t, deployFixture)
	// Deploy code depends on its runtime implicitly, however many data
	// references the stream carries.
	deploy := AccumulateDependencies(assembly, "test:C", ir.Deploy)
	//
	if deploy.Owner() != "test:C" {
		t.Errorf("unexpected owner %q", deploy.Owner())
	}
	//
	if deploy.Len() != 1 {
		t.Fatalf("expected 1 dependency, got %d", deploy.Len())
	}
	//
	entry := deploy.Entries()[0]
	if entry.Identifier != "test:C.runtime" || entry.Explicit {
		t.Errorf("unexpected dependency %v", entry)
	}
	// Runtime code depends on its libraries and subordinate data entries,
	// explicitly.
	runtime, err := assembly.RuntimeCode()
	if err != nil {
		t.Fatalf("runtime code not found: %v", err)
	}
	//
	deps := AccumulateDependencies(runtime, "test:C", ir.Runtime)
	//
	if deps.Owner() != "test:C.runtime" {
		t.Errorf("unexpected owner %q", deps.Owner())
	}
	//
	if deps.Len() != 2 {
		t.Fatalf("expected 2 dependencies, got %v", deps.Identifiers())
	}
	//
	entries := deps.Entries()
	if entries[0].Identifier != "src/L.sol:L" || !entries[0].Explicit {
		t.Errorf("unexpected dependency %v", entries[0])
	}
	//
	if entries[1].Identifier != "test:C.runtime.1" || !entries[1].Explicit {
		t.Errorf("unexpected dependency %v", entries[1])
	}
	// The merged graph covers both segments.
	deploy.Merge(deps)
	//
	for _, identifier := range []string{"test:C.runtime", "src/L.sol:L", "test:C.runtime.1"} {
		if !deploy.Contains(identifier) {
			t.Errorf("missing merged dependency %q", identifier)
		}
	}
}

func Test_Deps_02(t *testing.T) {
	t.Parallel()
	//
	assembly := check_Assembly(t, deployFixture)
	// Index "0" of deploy code canonicalizes onto the runtime identifier;
	// unknown indexes are left for the reconstruction to report.
	identifier, err := DataIdentifier(assembly, "test:C", ir.Deploy, "0")
	if err != nil || identifier != "test:C.runtime" {
		t.Errorf("unexpected identifier %q (%v)", identifier, err)
	}
	//
	if _, err = DataIdentifier(assembly, "test:C", ir.Deploy, "5"); err == nil {
		t.Errorf("expected unknown data entry error")
	}
	// Within runtime code, index "1" is a plain subordinate entry scoped by
	// the runtime identifier.
	runtime, _ := assembly.RuntimeCode()
	//
	identifier, err = DataIdentifier(runtime, "test:C", ir.Runtime, "1")
	if err != nil || identifier != "test:C.runtime.1" {
		t.Errorf("unexpected identifier %q (%v)", identifier, err)
	}
}
