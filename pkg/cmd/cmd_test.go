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
package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/metadata"
	"github.com/consensys/go-smelter/pkg/project"
)

func Test_Cmd_01(t *testing.T) {
	t.Parallel()
	//
	source := "object \"C\" { code { stop() } }"
	//
	contract, err := project.NewYulContract("C.yul", source)
	check_NoError(t, err)
	//
	var (
		payload = buildMetadata(contract, []byte(source), codegen.CyclesSettings())
		decoded map[string]any
	)
	//
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("malformed metadata payload: %v", err)
	}
	//
	if language := decoded["language"]; language != "Yul" {
		t.Errorf("unexpected language %v", language)
	}
	//
	sources := decoded["sources"].(map[string]any)
	fields := sources["C.yul"].(map[string]any)
	//
	if hash := fields["keccak256"]; hash != metadata.Keccak256Hex([]byte(source)) {
		t.Errorf("unexpected source hash %v", hash)
	}
	//
	settings := decoded["settings"].(map[string]any)
	optimizer := settings["optimizer"].(map[string]any)
	//
	if mode := optimizer["mode"]; mode != "3" {
		t.Errorf("unexpected optimizer mode %v", mode)
	}
	//
	if fallback := optimizer["sizeFallback"]; fallback != false {
		t.Errorf("unexpected size fallback %v", fallback)
	}
}

func Test_Cmd_02(t *testing.T) {
	t.Parallel()
	//
	if language := contractLanguage(&project.YulIR{}); language != "Yul" {
		t.Errorf("unexpected language %q", language)
	}
	//
	if language := contractLanguage(&project.LegacyAssemblyIR{}); language != "EVMAssembly" {
		t.Errorf("unexpected language %q", language)
	}
	//
	if language := contractLanguage(&project.TextIR{}); language != "Assembly" {
		t.Errorf("unexpected language %q", language)
	}
}

func Test_Cmd_03(t *testing.T) {
	t.Parallel()
	//
	var (
		dir     = t.TempDir()
		yulFile = filepath.Join(dir, "C.yul")
		cfg     = compileConfig{settings: codegen.CyclesSettings()}
	)
	//
	check_WriteFile(t, yulFile, "object \"C\" { code { stop() } }")
	//
	contract, err := readContractFile(yulFile, cfg)
	check_NoError(t, err)
	//
	if _, ok := contract.IR.(*project.YulIR); !ok {
		t.Errorf("unexpected representation %T", contract.IR)
	}
	//
	if contract.Metadata == nil {
		t.Errorf("missing metadata payload")
	}
	// Forced Yul parsing overrides the extension.
	listing := filepath.Join(dir, "C.easm")
	check_WriteFile(t, listing, "object \"C\" { code { stop() } }")
	//
	cfg.yul = true
	//
	forced, err := readContractFile(listing, cfg)
	check_NoError(t, err)
	//
	if _, ok := forced.IR.(*project.YulIR); !ok {
		t.Errorf("unexpected representation %T", forced.IR)
	}
}

func Test_Cmd_04(t *testing.T) {
	t.Parallel()
	//
	var (
		dir     = t.TempDir()
		deploy  = filepath.Join(dir, "L.easm")
		runtime = filepath.Join(dir, "L.runtime.easm")
	)
	//
	check_WriteFile(t, deploy, "PUSH 0x0\nSTOP\n")
	check_WriteFile(t, runtime, "STOP\n")
	// Sibling runtime listing is attached to the deploy listing.
	contract := readTextContract(deploy, "PUSH 0x0\nSTOP\n")
	text := contract.IR.(*project.TextIR)
	//
	if text.Runtime == nil {
		t.Errorf("missing runtime listing")
	}
	// A runtime listing read on its own stays deploy-only.
	standalone := readTextContract(runtime, "STOP\n")
	//
	if standalone.IR.(*project.TextIR).Runtime != nil {
		t.Errorf("unexpected runtime listing")
	}
}

func Test_Cmd_05(t *testing.T) {
	t.Parallel()
	//
	libraries := parseLibraries([]string{
		"src/L.sol:L=0x1111111111111111111111111111111111111111",
		"M=2222222222222222222222222222222222222222",
	})
	//
	if n := len(libraries); n != 2 {
		t.Fatalf("unexpected library count %d", n)
	}
	//
	if address := libraries["src/L.sol:L"]; len(address) != 20 || address[0] != 0x11 {
		t.Errorf("unexpected address %x", address)
	}
	//
	if address := libraries["M"]; len(address) != 20 || address[0] != 0x22 {
		t.Errorf("unexpected address %x", address)
	}
}

func Test_Cmd_06(t *testing.T) {
	t.Parallel()
	//
	if sanitized := sanitizePath("src/A.sol:A"); sanitized != "src_A_sol:A" {
		t.Errorf("unexpected stem %q", sanitized)
	}
	//
	if !(outputSelection{}).empty() {
		t.Errorf("empty selection not recognized")
	}
	//
	if (outputSelection{binRuntime: true}).empty() {
		t.Errorf("non-empty selection not recognized")
	}
}

func Test_Cmd_07(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()
	//
	Version = "v1.2.3"
	if version := releaseVersion(); version.String() != "1.2.3" {
		t.Errorf("unexpected version %s", version)
	}
	//
	Version = "nightly"
	if version := releaseVersion(); version.String() != "0.0.0" {
		t.Errorf("unexpected fallback version %s", version)
	}
}

func Test_Cmd_08(t *testing.T) {
	t.Parallel()
	//
	cfg := compileConfig{
		settings: codegen.CyclesSettings(),
		options: project.Options{
			AppendCBOR: true,
			HashType:   metadata.HashTypeIPFS,
			Versions: []metadata.NamedVersion{
				{Name: "smelter", Version: semver.MustParse("0.1.0")},
			},
		},
	}
	//
	contracts := readContractFiles([]string{
		filepath.Join("testdata", "counter.yul"),
		filepath.Join("testdata", "counter.json"),
	}, cfg)
	//
	build := compileContracts(contracts, cfg)
	//
	if build.HasErrors() {
		t.Fatalf("unexpected errors: %v", build.Errors())
	}
	//
	for _, path := range sortedContractPaths(build) {
		contract := build.Contracts[path]
		//
		if contract.Deploy == nil || contract.Runtime == nil {
			t.Fatalf("missing code objects for %q", path)
		}
		// Both runtimes end with a parseable driver trailer.
		if _, _, err := metadata.ParseTrailer(contract.Runtime.Bytecode()); err != nil {
			t.Errorf("missing trailer for %q: %v", path, err)
		}
	}
}

// ===================================================================
// Helpers
// ===================================================================

func check_NoError(t *testing.T, err error) {
	t.Helper()
	//
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func check_WriteFile(t *testing.T, filename, content string) {
	t.Helper()
	//
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
