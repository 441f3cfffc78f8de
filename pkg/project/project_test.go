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
package project

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/ir"
	"github.com/consensys/go-smelter/pkg/metadata"
)

func Test_Project_01(t *testing.T) {
	t.Parallel()
	//
	contract := check_Yul(t, "src/A.sol:A", `
		object "A" {
			code {
				datacopy(0, dataoffset("A_deployed"), datasize("A_deployed"))
				return(0, datasize("A_deployed"))
			}
			object "A_deployed" {
				code {
					datacopy(0, dataoffset("B"), datasize("B"))
					pop(create(0, 0, datasize("B")))
					stop()
				}
				object "B" {
					code {
						datacopy(0, dataoffset("B_deployed"), datasize("B_deployed"))
						return(0, datasize("B_deployed"))
					}
					object "B_deployed" {
						code { stop() }
					}
				}
			}
		}`)
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project, contract)
	check_Success(t, build)
	//
	outcome := build.Contracts["src/A.sol:A"]
	if outcome == nil || outcome.Deploy == nil || outcome.Runtime == nil {
		t.Fatalf("missing root code objects")
	}
	//
	if outcome.Deploy.Identifier != "src/A.sol:A" {
		t.Errorf("unexpected deploy identifier %q", outcome.Deploy.Identifier)
	}
	if outcome.Runtime.Identifier != "src/A.sol:A.runtime" {
		t.Errorf("unexpected runtime identifier %q", outcome.Runtime.Identifier)
	}
	// The nested object compiles as a unit of its own, indexed by name.
	nested := build.Object("B")
	if nested == nil || nested.Segment != ir.Deploy {
		t.Fatalf("missing nested creation object")
	}
	if build.Object("B.runtime") == nil {
		t.Fatalf("missing nested runtime object")
	}
	// The runtime ships the nested deploy bytecode verbatim.
	extent, ok := outcome.Runtime.Linked.Layout["B"]
	if !ok {
		t.Fatalf("nested object missing from the runtime layout")
	}
	//
	payload := outcome.Runtime.Bytecode()[extent.Offset : extent.Offset+extent.Size]
	if !bytes.Equal(payload, nested.Bytecode()) {
		t.Errorf("nested payload differs from the nested bytecode")
	}
	// The deploy bytecode ships the runtime as its sole payload.
	if _, ok := outcome.Deploy.Linked.Layout["src/A.sol:A.runtime"]; !ok {
		t.Fatalf("runtime missing from the deploy layout")
	}
	if !bytes.HasSuffix(outcome.Deploy.Bytecode(), outcome.Runtime.Bytecode()) {
		t.Errorf("deploy bytecode must end with the runtime payload")
	}
}

func Test_Project_02(t *testing.T) {
	t.Parallel()
	//
	contract := check_Yul(t, "test:C", `
		object "C" {
			code {
				datacopy(0, dataoffset("C_deployed"), datasize("C_deployed"))
				return(0, datasize("C_deployed"))
			}
			object "C_deployed" {
				code { sstore(0, caller()) }
			}
		}`)
	contract.Metadata = []byte(`{"compiler": "test"}`)
	//
	project := NewProject(check_Settings(t, '3'), Options{
		HashType:   metadata.HashTypeIPFS,
		AppendCBOR: true,
		Versions: []metadata.NamedVersion{
			{Name: "solc", Version: semver.MustParse("0.8.30")},
			{Name: "smelter", Version: semver.MustParse("0.1.0")},
		},
	})
	//
	build := check_Compile(t, project, contract)
	check_Success(t, build)
	//
	var (
		outcome  = build.Contracts["test:C"]
		bytecode = outcome.Runtime.Bytecode()
	)
	// The trailer sits behind the linked code and parses back.
	payload, total, err := metadata.ParseTrailer(bytecode)
	if err != nil {
		t.Fatalf("unexpected trailer failure: %v", err)
	}
	if total != len(bytecode)-len(outcome.Runtime.Linked.Bytecode) {
		t.Errorf("unexpected trailer size %d", total)
	}
	//
	if payload.Hash == nil || payload.Hash.Name != "ipfs" {
		t.Fatalf("missing ipfs hash field")
	}
	//
	expected := metadata.IPFSHash(contract.Metadata)
	if !bytes.Equal(payload.Hash.Bytes, expected[:]) {
		t.Errorf("unexpected metadata hash %X", payload.Hash.Bytes)
	}
	//
	if payload.VersionKey != "solc" || len(payload.Versions) != 2 {
		t.Fatalf("unexpected version field %+v", payload)
	}
	if payload.Versions[1].Name != "smelter" || !payload.Versions[1].Version.Equal(semver.MustParse("0.1.0")) {
		t.Errorf("unexpected version entry %+v", payload.Versions[1])
	}
	// The deploy size placeholders cover the trailer.
	extent := outcome.Deploy.Linked.Layout["test:C.runtime"]
	if extent.Size != uint64(len(bytecode)) {
		t.Errorf("runtime payload size %d does not cover the trailer", extent.Size)
	}
	// Deploy objects never carry a trailer.
	if !bytes.Equal(outcome.Deploy.Bytecode(), outcome.Deploy.Linked.Bytecode) {
		t.Errorf("unexpected deploy trailer")
	}
}

func Test_Project_03(t *testing.T) {
	t.Parallel()
	//
	contract := check_Yul(t, "test:I", `
		object "I" {
			code {
				let size := datasize("I_deployed")
				datacopy(0, dataoffset("I_deployed"), size)
				setimmutable(0, "owner", caller())
				return(0, size)
			}
			object "I_deployed" {
				code {
					sstore(0, loadimmutable("owner"))
					sstore(1, loadimmutable("owner"))
				}
			}
		}`)
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project, contract)
	check_Success(t, build)
	//
	outcome := build.Contracts["test:I"]
	//
	refs := outcome.Runtime.Build.Immutables["owner"]
	if refs == nil || refs.Len() != 2 {
		t.Fatalf("expected 2 immutable references, got %v", refs)
	}
	// The deploy code patches each recorded offset: every expansion pushes
	// the offset as a two-byte immediate.
	for _, offset := range *refs {
		operand := []byte{0x61, byte(offset >> 8), byte(offset)}
		if !bytes.Contains(outcome.Deploy.Build.Bytecode, operand) {
			t.Errorf("deploy bytecode misses the patch at offset %d", offset)
		}
	}
}

func Test_Project_04(t *testing.T) {
	t.Parallel()
	//
	contract, err := NewLegacyAssemblyContract("test:D",
		[]byte(assemblyFixture),
		[]byte(`{"recursiveFunctions": [{"name": "handle", "totalParamSize": 0, "totalRetParamSize": 0}]}`))
	if err != nil {
		t.Fatalf("unexpected parse failure: %v", err)
	}
	// The side table is shared read-only with the runtime assembly.
	representation := contract.IR.(*LegacyAssemblyIR)
	if representation.Assembly.Metadata == nil {
		t.Fatalf("missing extra metadata")
	}
	//
	runtimeAssembly, err := representation.Assembly.RuntimeCode()
	if err != nil || runtimeAssembly.Metadata != representation.Assembly.Metadata {
		t.Fatalf("extra metadata must be shared with the runtime assembly")
	}
	//
	project := NewProject(check_Settings(t, '0'), Options{
		DumpAssembly: true,
		DumpEVMLA:    true,
		DumpEthIR:    true,
	})
	//
	build := check_Compile(t, project, contract)
	check_Success(t, build)
	//
	outcome := build.Contracts["test:D"]
	if outcome.Deploy == nil || outcome.Runtime == nil {
		t.Fatalf("missing root code objects")
	}
	// The front-end auxdata passes through verbatim behind the runtime.
	auxdata := []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}
	if !bytes.HasSuffix(outcome.Runtime.Bytecode(), auxdata) {
		t.Errorf("runtime bytecode must end with the front-end auxdata")
	}
	// The runtime's hex data entry is appended as a payload.
	extent, ok := outcome.Runtime.Linked.Layout["test:D.runtime.1"]
	if !ok || extent.Size != 4 {
		t.Fatalf("unexpected data payload layout %+v", extent)
	}
	// The deploy size placeholders cover code, payloads and auxdata.
	if size := outcome.Deploy.Linked.Layout["test:D.runtime"].Size; size != uint64(len(outcome.Runtime.Bytecode())) {
		t.Errorf("runtime payload size %d does not cover the auxdata", size)
	}
	// Requested dumps are attached to the builds.
	if !strings.Contains(outcome.Runtime.Build.EVMLA, "JUMPDEST") {
		t.Errorf("missing legacy assembly dump")
	}
	if !strings.Contains(outcome.Runtime.Build.EthIR, "ethereal ir") {
		t.Errorf("missing ethereal ir dump")
	}
	if outcome.Runtime.Build.Assembly == "" || outcome.Deploy.Build.Assembly == "" {
		t.Errorf("missing module dumps")
	}
}

func Test_Project_05(t *testing.T) {
	t.Parallel()
	// Syntax errors surface at construction, classified as malformed input.
	_, err := NewYulContract("bad.yul", `object "A" {`)
	check_Failure(t, err, MalformedInput, "bad.yul")
	// Unsupported instructions fail the owning contract alone.
	bogus, err := NewLegacyAssemblyContract("test:bogus",
		[]byte(`{".code": [{"begin": 0, "end": 1, "name": "BOGUS"}]}`), nil)
	if err != nil {
		t.Fatalf("unexpected parse failure: %v", err)
	}
	//
	dangling, err := NewLegacyAssemblyContract("test:dangling",
		[]byte(`{".code": [
			{"begin": 0, "end": 1, "name": "PUSH [tag]", "value": "7"},
			{"begin": 0, "end": 1, "name": "JUMP"}
		]}`), nil)
	if err != nil {
		t.Fatalf("unexpected parse failure: %v", err)
	}
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project, bogus, dangling, NewTextContract("test:fine", "STOP", ""))
	//
	if !build.HasErrors() {
		t.Fatalf("expected contract failures")
	}
	if failures := build.Errors(); len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	// The unsupported instruction is malformed input from the engine.
	failure := check_Failure(t, build.Contracts["test:bogus"].Err, MalformedInput, "BOGUS")
	if failure.Segment != ir.Deploy {
		t.Errorf("unexpected failing segment %v", failure.Segment)
	}
	// The dangling tag is an unresolved reference.
	check_Failure(t, build.Contracts["test:dangling"].Err, UnresolvedReference, "tag")
	// The sibling contract compiles regardless.
	fine := build.Contracts["test:fine"]
	if fine.Err != nil || fine.Deploy == nil || fine.Deploy.Linked == nil {
		t.Errorf("sibling contract must compile: %v", fine.Err)
	}
	// Registration rejects duplicates and empty representations.
	if err := project.AddContract(NewTextContract("test:fine", "STOP", "")); err == nil {
		t.Errorf("expected a duplicate path failure")
	}
	if err := project.AddContract(&Contract{Path: "test:empty"}); err == nil {
		t.Errorf("expected a missing representation failure")
	}
}

func Test_Project_06(t *testing.T) {
	t.Parallel()
	// 8300 PUSH/POP pairs overflow the runtime segment unoptimized, and
	// vanish entirely under the size preset.
	var listing strings.Builder
	for i := 0; i < 8300; i++ {
		listing.WriteString("PUSH 0x1\nPOP\n")
	}
	listing.WriteString("STOP\n")
	//
	settings := check_Settings(t, '0')
	settings.FallbackToSize = true
	//
	project := NewProject(settings, Options{})
	build := check_Compile(t, project, NewTextContract("test:F", "STOP", listing.String()))
	check_Success(t, build)
	//
	runtime := build.Contracts["test:F"].Runtime
	if !runtime.Build.IsSizeFallback {
		t.Errorf("expected the size fallback to engage")
	}
	if size := len(runtime.Bytecode()); size > 24576 {
		t.Errorf("bytecode still over the segment limit: %d bytes", size)
	}
	if len(runtime.Build.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", runtime.Build.Warnings)
	}
	//
	fallbackSize := len(runtime.Bytecode())
	// Without the fallback the oversized build succeeds under a warning.
	relaxed := NewProject(check_Settings(t, '0'), Options{})
	build = check_Compile(t, relaxed, NewTextContract("test:F", "STOP", listing.String()))
	check_Success(t, build)
	//
	runtime = build.Contracts["test:F"].Runtime
	if runtime.Build.IsSizeFallback {
		t.Errorf("fallback must stay disengaged")
	}
	if len(runtime.Build.Warnings) != 1 {
		t.Errorf("expected a code size warning, got %v", runtime.Build.Warnings)
	}
	// The retry never produces a larger artifact than the first attempt.
	if firstSize := len(runtime.Bytecode()); fallbackSize > firstSize {
		t.Errorf("fallback grew the bytecode: %d > %d bytes", fallbackSize, firstSize)
	}
}

func Test_Project_07(t *testing.T) {
	t.Parallel()
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project,
		NewTextContract("test:T", "PUSH 0x2A\nPUSH 0x0\nMSTORE\n; store the answer\nSTOP", ""),
		NewTextContract("test:t", "push 0x1\npop\nstop", ""),
		NewTextContract("bad:1", "BANANA", ""),
		NewTextContract("bad:2", "POP", ""),
		NewTextContract("bad:3", "PUSH 1", ""),
		NewTextContract("bad:4", "PUSH5", ""),
		NewTextContract("bad:5", "MSTORE 0x1", ""))
	//
	outcome := build.Contracts["test:T"]
	if outcome.Err != nil {
		t.Fatalf("unexpected failure: %v", outcome.Err)
	}
	if outcome.Runtime != nil {
		t.Errorf("unexpected runtime object")
	}
	//
	expected := []byte{0x60, 0x2A, 0x5F, 0x52, 0x00}
	if !bytes.Equal(outcome.Deploy.Build.Bytecode, expected) {
		t.Errorf("unexpected bytecode %X", outcome.Deploy.Build.Bytecode)
	}
	if !bytes.Equal(outcome.Deploy.Bytecode(), expected) {
		t.Errorf("unexpected linked bytecode %X", outcome.Deploy.Bytecode())
	}
	// Mnemonics are case-insensitive.
	if err := build.Contracts["test:t"].Err; err != nil {
		t.Errorf("lowercase listing must compile: %v", err)
	}
	// Each malformed listing fails alone, classified as malformed input.
	check_Failure(t, build.Contracts["bad:1"].Err, MalformedInput, "unknown instruction")
	check_Failure(t, build.Contracts["bad:2"].Err, MalformedInput, "stack underflow")
	check_Failure(t, build.Contracts["bad:3"].Err, MalformedInput, "malformed immediate")
	check_Failure(t, build.Contracts["bad:4"].Err, MalformedInput, "unknown instruction")
	check_Failure(t, build.Contracts["bad:5"].Err, MalformedInput, "malformed instruction")
}

func Test_Project_08(t *testing.T) {
	t.Parallel()
	//
	compile := func(workers int) *Build {
		project := NewProject(check_Settings(t, '3'), Options{Workers: workers})
		//
		var contracts []*Contract
		for i := 0; i < 8; i++ {
			contracts = append(contracts, NewTextContract(
				fmt.Sprintf("test:P%d", i),
				fmt.Sprintf("PUSH 0x%X\nPUSH 0x0\nSSTORE\nSTOP", i+1), ""))
		}
		//
		build := check_Compile(t, project, contracts...)
		check_Success(t, build)
		// Done
		return build
	}
	//
	bounded := compile(2)
	unbounded := compile(0)
	// Identical inputs produce identical bytecode regardless of scheduling.
	for path, outcome := range bounded.Contracts {
		var (
			first  = outcome.Deploy.Bytecode()
			second = unbounded.Contracts[path].Deploy.Bytecode()
		)
		//
		if !bytes.Equal(first, second) {
			t.Errorf("%s: bytecode differs across runs", path)
		}
		if build := bounded.Object(path); build != outcome.Deploy {
			t.Errorf("%s: object index out of step", path)
		}
	}
}

func Test_Project_09(t *testing.T) {
	t.Parallel()
	//
	source := `
		object "M" {
			code {
				datacopy(0, dataoffset("M_deployed"), datasize("M_deployed"))
				return(0, datasize("M_deployed"))
			}
			object "M_deployed" {
				code { sstore(0, linkersymbol("src/L.sol:L")) }
			}
		}`
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project, check_Yul(t, "src/M.sol:M", source))
	check_Success(t, build)
	//
	outcome := build.Contracts["src/M.sol:M"]
	// The deploy record subsumes the runtime record.
	var (
		deployRecord  = project.graph.Dependencies("src/M.sol:M")
		runtimeRecord = project.graph.Dependencies("src/M.sol:M.runtime")
	)
	//
	if deployRecord == nil || runtimeRecord == nil {
		t.Fatalf("missing dependency records")
	}
	if !deployRecord.Contains("src/M.sol:M.runtime") {
		t.Errorf("deploy record misses the implicit runtime reference")
	}
	//
	for _, identifier := range runtimeRecord.Identifiers() {
		if !deployRecord.Contains(identifier) {
			t.Errorf("deploy record misses %q", identifier)
		}
	}
	// Without an address the library stays unlinked with a zeroed
	// placeholder.
	if unlinked := outcome.Runtime.Linked.Unlinked; len(unlinked) != 1 || unlinked[0] != "src/L.sol:L" {
		t.Fatalf("unexpected unlinked list %v", unlinked)
	}
	//
	var (
		offset = outcome.Runtime.Build.LibraryRefs["src/L.sol:L"][0]
		zeroes = make([]byte, 20)
	)
	//
	if !bytes.Equal(outcome.Runtime.Linked.Bytecode[offset:offset+20], zeroes) {
		t.Errorf("unlinked placeholder must stay zeroed")
	}
	// Supplying the address patches every placeholder.
	address := bytes.Repeat([]byte{0x11}, 20)
	//
	linked := NewProject(check_Settings(t, '0'), Options{
		Libraries: map[string][]byte{"src/L.sol:L": address},
	})
	//
	build = check_Compile(t, linked, check_Yul(t, "src/M.sol:M", source))
	check_Success(t, build)
	//
	outcome = build.Contracts["src/M.sol:M"]
	if len(outcome.Runtime.Linked.Unlinked) != 0 {
		t.Errorf("unexpected unlinked libraries %v", outcome.Runtime.Linked.Unlinked)
	}
	if !bytes.Contains(outcome.Runtime.Linked.Bytecode, address) {
		t.Errorf("library address missing from the linked bytecode")
	}
}

func Test_Project_10(t *testing.T) {
	t.Parallel()
	// End to end: a deploy assembly copying a single-byte runtime payload.
	// The copy length operand patches to exactly 1.
	contract, err := NewLegacyAssemblyContract("test:S", []byte(`{
		".code": [
			{"begin": 0, "end": 10, "name": "PUSH #[$]", "source": 0, "value": "0"},
			{"begin": 0, "end": 10, "name": "PUSH [$]", "source": 0, "value": "0"},
			{"begin": 0, "end": 10, "name": "PUSH", "source": 0, "value": "2A"},
			{"begin": 0, "end": 10, "name": "CODECOPY", "source": 0},
			{"begin": 0, "end": 10, "name": "STOP", "source": 0}
		],
		".data": {
			"0": {
				".code": [
					{"begin": 0, "end": 10, "name": "STOP", "source": 0}
				]
			}
		}
	}`), nil)
	if err != nil {
		t.Fatalf("unexpected parse failure: %v", err)
	}
	//
	project := NewProject(check_Settings(t, '0'), Options{})
	build := check_Compile(t, project, contract)
	check_Success(t, build)
	//
	outcome := build.Contracts["test:S"]
	if !bytes.Equal(outcome.Runtime.Bytecode(), []byte{0x00}) {
		t.Fatalf("expected a single-byte runtime, got %X", outcome.Runtime.Bytecode())
	}
	//
	extent := outcome.Deploy.Linked.Layout["test:S.runtime"]
	if extent.Size != 1 {
		t.Errorf("expected a 1-byte payload extent, got %d", extent.Size)
	}
	if extent.Offset != uint64(len(outcome.Deploy.Build.Bytecode)) {
		t.Errorf("payload must sit directly behind the deploy code")
	}
	// Every size placeholder patches to the payload length.
	refs := outcome.Deploy.Build.DataSizeRefs["test:S.runtime"]
	if len(refs) != 1 {
		t.Fatalf("expected 1 size reference, got %d", len(refs))
	}
	//
	for _, offset := range refs {
		if operand := outcome.Deploy.Bytecode()[offset : offset+2]; !bytes.Equal(operand, []byte{0x00, 0x01}) {
			t.Errorf("unexpected length operand %X", operand)
		}
	}
	// The copy destination survives unoptimized.
	if !bytes.Contains(outcome.Deploy.Bytecode(), []byte{0x60, 0x2A}) {
		t.Errorf("missing the copy destination push")
	}
}

// assemblyFixture is a deploy assembly whose runtime owns a hex data entry
// and a front-end auxdata trailer.
const assemblyFixture = `{
	".code": [
		{"begin": 0, "end": 90, "name": "PUSH #[$]", "source": 0, "value": "0"},
		{"begin": 0, "end": 90, "name": "PUSH #[$]", "source": 0, "value": "0"},
		{"begin": 0, "end": 90, "name": "PUSH [$]", "source": 0, "value": "0"},
		{"begin": 0, "end": 90, "name": "PUSH", "source": 0, "value": "0"},
		{"begin": 0, "end": 90, "name": "CODECOPY", "source": 0},
		{"begin": 0, "end": 90, "name": "PUSH", "source": 0, "value": "0"},
		{"begin": 0, "end": 90, "name": "RETURN", "source": 0}
	],
	".data": {
		"0": {
			".code": [
				{"begin": 10, "end": 80, "name": "PUSH", "source": 0, "value": "0"},
				{"begin": 10, "end": 80, "name": "CALLDATALOAD", "source": 0},
				{"begin": 10, "end": 80, "name": "PUSH [tag]", "source": 0, "value": "1"},
				{"begin": 10, "end": 80, "name": "JUMPI", "source": 0},
				{"begin": 10, "end": 80, "name": "PUSH", "source": 0, "value": "0"},
				{"begin": 10, "end": 80, "name": "PUSH", "source": 0, "value": "0"},
				{"begin": 10, "end": 80, "name": "REVERT", "source": 0},
				{"begin": 10, "end": 80, "name": "tag", "source": 0, "value": "1"},
				{"begin": 10, "end": 80, "name": "JUMPDEST", "source": 0},
				{"begin": 10, "end": 80, "name": "PUSH #[$]", "source": 0, "value": "1"},
				{"begin": 10, "end": 80, "name": "POP", "source": 0},
				{"begin": 10, "end": 80, "name": "STOP", "source": 0}
			],
			".data": {
				"1": "deadbeef"
			},
			".auxdata": "a26469706673"
		}
	}
}`

// ============================================================================
// Helpers
// ============================================================================

func check_Settings(t *testing.T, preset byte) *codegen.OptimizerSettings {
	t.Helper()
	//
	settings, err := codegen.SettingsFromCLI(preset)
	if err != nil {
		t.Fatalf("unexpected settings failure: %v", err)
	}
	// Done
	return settings
}

func check_Yul(t *testing.T, path, source string) *Contract {
	t.Helper()
	//
	contract, err := NewYulContract(path, source)
	if err != nil {
		t.Fatalf("unexpected parse failure: %v", err)
	}
	// Done
	return contract
}

func check_Compile(t *testing.T, project *Project, contracts ...*Contract) *Build {
	t.Helper()
	//
	for _, contract := range contracts {
		if err := project.AddContract(contract); err != nil {
			t.Fatalf("unexpected registration failure: %v", err)
		}
	}
	// Done
	return project.Compile()
}

func check_Success(t *testing.T, build *Build) {
	t.Helper()
	//
	for _, err := range build.Errors() {
		t.Fatalf("unexpected compile failure: %v", err)
	}
}

func check_Failure(t *testing.T, err error, kind ErrorKind, fragment string) *Error {
	t.Helper()
	//
	var failure *Error
	//
	if !errors.As(err, &failure) {
		t.Fatalf("expected a classified failure, got %v", err)
	}
	if failure.Kind != kind {
		t.Errorf("expected a %v failure, got %v", kind, failure.Kind)
	}
	if !strings.Contains(failure.Error(), fragment) {
		t.Errorf("unexpected failure message %q", failure.Error())
	}
	// Done
	return failure
}
