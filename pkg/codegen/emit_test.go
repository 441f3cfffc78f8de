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
package codegen

import (
	"bytes"
	"errors"
	"testing"

	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
)

func Test_Emit_01(t *testing.T) {
	t.Parallel()
	// Straight-line code without optimization.
	module := NewModule("test", ir.Runtime)
	entry := module.NewFunction("main", 0, 0).Entry()
	//
	entry.Append(push(2))
	entry.Append(push(3))
	entry.Append(op(evm.ADD))
	entry.Append(op(evm.STOP))
	//
	settings, _ := SettingsFromCLI('0')
	build := check_Emit(t, module, settings)
	//
	expected := []byte{0x60, 0x02, 0x60, 0x03, 0x01, 0x00}
	if !bytes.Equal(build.Bytecode, expected) {
		t.Errorf("expected %X, got %X", expected, build.Bytecode)
	}
	// One source map entry per instruction.
	if n := bytes.Count(build.DebugInfo, []byte{';'}); n != 3 {
		t.Errorf("expected 4 source map entries, got %d separators", n)
	}
}

func Test_Emit_02(t *testing.T) {
	t.Parallel()
	// The same block folds to a single push at full optimization.
	module := NewModule("test", ir.Runtime)
	entry := module.NewFunction("main", 0, 0).Entry()
	//
	entry.Append(push(2))
	entry.Append(push(3))
	entry.Append(op(evm.ADD))
	entry.Append(op(evm.STOP))
	//
	build := check_Emit(t, module, CyclesSettings())
	//
	expected := []byte{0x60, 0x05, 0x00}
	if !bytes.Equal(build.Bytecode, expected) {
		t.Errorf("expected %X, got %X", expected, build.Bytecode)
	}
}

func Test_Emit_03(t *testing.T) {
	t.Parallel()
	// A branch to the next block: cycles mode keeps the jump with a fixed
	// two-byte tag, size mode falls through and drops the JUMPDEST.
	build := func(settings *OptimizerSettings) *Build {
		var (
			module = NewModule("test", ir.Runtime)
			fn     = module.NewFunction("main", 0, 0)
			entry  = fn.Entry()
			next   = module.NewBlock(fn, "join")
		)
		//
		entry.Append(Instruction{Kind: InstPushTag, Target: next})
		entry.Append(op(evm.JUMP))
		next.Append(op(evm.STOP))
		//
		return check_Emit(t, module, settings)
	}
	//
	cycles := build(CyclesSettings())
	expected := []byte{0x61, 0x00, 0x04, 0x56, 0x5B, 0x00}
	//
	if !bytes.Equal(cycles.Bytecode, expected) {
		t.Errorf("expected %X, got %X", expected, cycles.Bytecode)
	}
	//
	size := build(SizeSettings())
	//
	if !bytes.Equal(size.Bytecode, []byte{0x00}) {
		t.Errorf("expected a bare STOP, got %X", size.Bytecode)
	}
}

func Test_Emit_04(t *testing.T) {
	t.Parallel()
	// Tag operands relax to the width their offsets need.
	var (
		module = NewModule("test", ir.Runtime)
		fn     = module.NewFunction("main", 0, 0)
		entry  = fn.Entry()
		filler = module.NewBlock(fn, "filler")
		far    = module.NewBlock(fn, "far")
	)
	//
	entry.Append(Instruction{Kind: InstPushTag, Target: far})
	entry.Append(op(evm.JUMP))
	//
	for i := 0; i < 300; i++ {
		filler.Append(push(0))
	}
	//
	far.Append(op(evm.STOP))
	//
	build := check_Emit(t, module, SizeSettings())
	// The far block lands beyond 0xFF, so its tag needs two bytes: PUSH2
	// 0x0130 JUMP, 300 filler bytes, JUMPDEST STOP.
	if len(build.Bytecode) != 306 {
		t.Fatalf("expected 306 bytes, got %d", len(build.Bytecode))
	}
	//
	if build.Bytecode[0] != 0x61 || build.Bytecode[1] != 0x01 || build.Bytecode[2] != 0x30 {
		t.Errorf("expected PUSH2 0x0130, got %X", build.Bytecode[:3])
	}
	//
	if build.Bytecode[304] != 0x5B {
		t.Errorf("expected JUMPDEST at 304, got 0x%02X", build.Bytecode[304])
	}
}

func Test_Emit_05(t *testing.T) {
	t.Parallel()
	// Without a size level, a tag offset beyond two bytes is an error.
	var (
		module = NewModule("test", ir.Runtime)
		fn     = module.NewFunction("main", 0, 0)
		entry  = fn.Entry()
		filler = module.NewBlock(fn, "filler")
		far    = module.NewBlock(fn, "far")
	)
	//
	entry.Append(Instruction{Kind: InstPushTag, Target: far})
	entry.Append(op(evm.JUMP))
	//
	for i := 0; i < 0x10000; i++ {
		filler.Append(push(0))
	}
	//
	far.Append(op(evm.STOP))
	//
	_, err := NewEVMEmitter().Emit(module, CyclesSettings())
	//
	var backendError *BackendError
	if !errors.As(err, &backendError) {
		t.Fatalf("expected a backend error, got %v", err)
	}
}

func Test_Emit_06(t *testing.T) {
	t.Parallel()
	// Link-time placeholders are zeroed pushes; the reference tables point at
	// their operands.
	module := NewModule("test", ir.Runtime)
	entry := module.NewFunction("main", 0, 0).Entry()
	//
	entry.Append(Instruction{Kind: InstDataOffset, Ident: "child"})
	entry.Append(Instruction{Kind: InstDataSize, Ident: "child"})
	entry.Append(Instruction{Kind: InstProgramSize})
	entry.Append(Instruction{Kind: InstPushLibrary, Ident: "lib.sol:Math"})
	entry.Append(op(evm.STOP))
	//
	settings, _ := SettingsFromCLI('0')
	build := check_Emit(t, module, settings)
	//
	if len(build.Bytecode) != 31 {
		t.Fatalf("expected 31 bytes, got %d", len(build.Bytecode))
	}
	//
	check_Refs(t, "data offset", build.DataOffsetRefs["child"], 1)
	check_Refs(t, "data size", build.DataSizeRefs["child"], 4)
	check_Refs(t, "program size", build.ProgramSizeRefs, 7)
	check_Refs(t, "library", build.LibraryRefs["lib.sol:Math"], 10)
	// The library placeholder is a PUSH20 of zeros.
	if build.Bytecode[9] != 0x73 {
		t.Errorf("expected PUSH20 at 9, got 0x%02X", build.Bytecode[9])
	}
	//
	for i := 10; i < 30; i++ {
		if build.Bytecode[i] != 0 {
			t.Errorf("expected zeroed placeholder at %d", i)
		}
	}
}

func Test_Emit_07(t *testing.T) {
	t.Parallel()
	// Immutable reads are PUSH32 placeholders recorded per name; assignment
	// in deploy code expands against the runtime's reference offsets.
	runtime := NewModule("test"+ir.RuntimeSuffix, ir.Runtime)
	entry := runtime.NewFunction("main", 0, 0).Entry()
	//
	entry.Append(Instruction{Kind: InstPushImmutable, Ident: "owner"})
	entry.Append(op(evm.POP))
	entry.Append(op(evm.STOP))
	//
	settings, _ := SettingsFromCLI('0')
	build := check_Emit(t, runtime, settings)
	//
	if build.Bytecode[0] != 0x7F {
		t.Errorf("expected PUSH32, got 0x%02X", build.Bytecode[0])
	}
	//
	refs, ok := build.Immutables["owner"]
	if !ok || refs.Len() != 1 || !refs.Contains(1) {
		t.Fatalf("expected immutable reference at 1, got %v", build.Immutables)
	}
	// Deploy side: store the value at every recorded reference.
	deploy := NewModule("test", ir.Deploy)
	deploy.Immutables = build.Immutables
	entry = deploy.NewFunction("main", 0, 0).Entry()
	//
	entry.Append(push(0xAA)) // value
	entry.Append(push(0))    // base offset of the runtime copy
	entry.Append(Instruction{Kind: InstSetImmutable, Ident: "owner"})
	entry.Append(op(evm.STOP))
	//
	build = check_Emit(t, deploy, settings)
	//
	expected := []byte{
		0x60, 0xAA, // PUSH1 0xAA
		0x5F,             // PUSH0
		0x81,             // DUP2
		0x61, 0x00, 0x01, // PUSH2 1
		0x82, // DUP3
		0x01, // ADD
		0x52, // MSTORE
		0x50, // POP
		0x50, // POP
		0x00, // STOP
	}
	//
	if !bytes.Equal(build.Bytecode, expected) {
		t.Errorf("expected %X, got %X", expected, build.Bytecode)
	}
}

func Test_Emit_08(t *testing.T) {
	t.Parallel()
	// Segment checks: immutables are read in runtime code and assigned in
	// deploy code, never the other way around.
	deploy := NewModule("test", ir.Deploy)
	deploy.NewFunction("main", 0, 0).Entry().Append(Instruction{Kind: InstPushImmutable, Ident: "owner"})
	//
	settings, _ := SettingsFromCLI('0')
	//
	var backendError *BackendError
	if _, err := NewEVMEmitter().Emit(deploy, settings); !errors.As(err, &backendError) {
		t.Errorf("expected a backend error, got %v", err)
	}
	//
	runtime := NewModule("test"+ir.RuntimeSuffix, ir.Runtime)
	runtime.NewFunction("main", 0, 0).Entry().Append(Instruction{Kind: InstSetImmutable, Ident: "owner"})
	//
	if _, err := NewEVMEmitter().Emit(runtime, settings); !errors.As(err, &backendError) {
		t.Errorf("expected a backend error, got %v", err)
	}
}

func Test_Emit_09(t *testing.T) {
	t.Parallel()
	// Private constants follow the instruction stream; references resolve to
	// absolute code offsets.
	module := NewModule("test", ir.Runtime)
	entry := module.NewFunction("main", 0, 0).Entry()
	constant := module.AddConstant([]byte{0xDE, 0xAD})
	//
	entry.Append(Instruction{Kind: InstConstRef, Const: constant})
	entry.Append(op(evm.STOP))
	//
	settings, _ := SettingsFromCLI('0')
	build := check_Emit(t, module, settings)
	//
	expected := []byte{0x61, 0x00, 0x04, 0x00, 0xDE, 0xAD}
	if !bytes.Equal(build.Bytecode, expected) {
		t.Errorf("expected %X, got %X", expected, build.Bytecode)
	}
	// Constants carry no source map entries.
	if n := bytes.Count(build.DebugInfo, []byte{';'}); n != 1 {
		t.Errorf("expected 2 source map entries, got %d separators", n)
	}
}

func Test_Emit_10(t *testing.T) {
	t.Parallel()
	// Size-optimized output never exceeds the cycles-optimized output, since
	// its passes are a strict superset.
	var (
		module = NewModule("test", ir.Runtime)
		fn     = module.NewFunction("main", 0, 0)
		entry  = fn.Entry()
		body   = module.NewBlock(fn, "body")
		join   = module.NewBlock(fn, "join")
	)
	//
	entry.Append(push(1))
	entry.Append(push(1))
	entry.Append(Instruction{Kind: InstPushTag, Target: body})
	entry.Append(op(evm.JUMP))
	//
	body.Append(op(evm.ADD))
	body.Append(Instruction{Kind: InstPushTag, Target: join})
	body.Append(op(evm.JUMP))
	//
	join.Append(op(evm.POP))
	join.Append(op(evm.STOP))
	//
	var (
		cycles = check_Emit(t, module, CyclesSettings())
		size   = check_Emit(t, module, SizeSettings())
	)
	//
	if len(size.Bytecode) > len(cycles.Bytecode) {
		t.Errorf("size-optimized %d bytes exceeds cycles-optimized %d bytes",
			len(size.Bytecode), len(cycles.Bytecode))
	}
}

// ============================================================================
// Size fallback
// ============================================================================

// fallbackModule emits 6 bytes under cycles settings and 1 byte under size
// settings: a branch to the next block collapses into fall-through.
func fallbackModule() *Module {
	var (
		module = NewModule("test", ir.Runtime)
		fn     = module.NewFunction("main", 0, 0)
		entry  = fn.Entry()
		next   = module.NewBlock(fn, "join")
	)
	//
	entry.Append(Instruction{Kind: InstPushTag, Target: next})
	entry.Append(op(evm.JUMP))
	next.Append(op(evm.STOP))
	// Done
	return module
}

func Test_Run_01(t *testing.T) {
	t.Parallel()
	// The metadata trailer counts against the limit; the retry fits exactly.
	settings := CyclesSettings()
	settings.FallbackToSize = true
	settings.MetadataSize = evm.RuntimeCodeSizeLimit - 1
	//
	build, err := Run(fallbackModule(), settings, NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	if !build.IsSizeFallback {
		t.Errorf("expected the size-fallback build")
	}
	//
	if !bytes.Equal(build.Bytecode, []byte{0x00}) {
		t.Errorf("expected a bare STOP, got %X", build.Bytecode)
	}
	//
	if len(build.Warnings) != 0 {
		t.Errorf("a fitting retry carries no warnings")
	}
}

func Test_Run_02(t *testing.T) {
	t.Parallel()
	// Even the size-optimized build stays over the limit.
	settings := CyclesSettings()
	settings.FallbackToSize = true
	settings.MetadataSize = evm.RuntimeCodeSizeLimit
	//
	_, err := Run(fallbackModule(), settings, NewEVMEmitter())
	//
	var overflow *SizeOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected a size overflow error, got %v", err)
	}
	//
	if overflow.Limit != evm.RuntimeCodeSizeLimit {
		t.Errorf("expected limit %d, got %d", evm.RuntimeCodeSizeLimit, overflow.Limit)
	}
}

func Test_Run_03(t *testing.T) {
	t.Parallel()
	// Without the fallback an over-limit build only carries a warning.
	settings := CyclesSettings()
	settings.MetadataSize = evm.RuntimeCodeSizeLimit
	//
	build, err := Run(fallbackModule(), settings, NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	if build.IsSizeFallback {
		t.Errorf("no fallback ran")
	}
	//
	if len(build.Warnings) != 1 || build.Warnings[0].Code != WarningRuntimeCodeSize {
		t.Fatalf("expected the runtime code size warning, got %v", build.Warnings)
	}
}

func Test_Run_04(t *testing.T) {
	t.Parallel()
	// Settings already at maximum size cannot fall back; the build is
	// returned with a warning instead of retrying.
	settings := SizeSettings()
	settings.FallbackToSize = true
	settings.MetadataSize = evm.RuntimeCodeSizeLimit
	//
	build, err := Run(fallbackModule(), settings, NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	if build.IsSizeFallback {
		t.Errorf("maximum size settings cannot fall back")
	}
	//
	if len(build.Warnings) != 1 {
		t.Fatalf("expected the code size warning, got %v", build.Warnings)
	}
}

func Test_Run_05(t *testing.T) {
	t.Parallel()
	// Under the limit, the first attempt is the build.
	build, err := Run(fallbackModule(), CyclesSettings(), NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	if build.IsSizeFallback || len(build.Warnings) != 0 {
		t.Errorf("expected a clean first-attempt build")
	}
	//
	if len(build.Bytecode) != 6 {
		t.Errorf("expected 6 bytes, got %d", len(build.Bytecode))
	}
}

func Test_Run_06(t *testing.T) {
	t.Parallel()
	// A unit already at maximum size level re-emits to identical bytecode:
	// emission never mutates the module, so a second run is a no-op.
	settings := SizeSettings()
	settings.FallbackToSize = true
	//
	module := fallbackModule()
	//
	first, err := Run(module, settings, NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	second, err := Run(module, settings, NewEVMEmitter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	if !bytes.Equal(first.Bytecode, second.Bytecode) {
		t.Errorf("recompilation changed the bytecode: %X vs %X", first.Bytecode, second.Bytecode)
	}
	//
	if first.IsSizeFallback || second.IsSizeFallback {
		t.Errorf("maximum size settings never engage the fallback")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func check_Emit(t *testing.T, module *Module, settings *OptimizerSettings) *Build {
	t.Helper()
	// Self-checks on in every test emission.
	verified := *settings
	verified.VerifyEach = true
	//
	build, err := NewEVMEmitter().Emit(module, &verified)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	//
	return build
}

func check_Refs(t *testing.T, name string, refs []uint64, expected ...uint64) {
	t.Helper()
	//
	if len(refs) != len(expected) {
		t.Fatalf("expected %d %s references, got %v", len(expected), name, refs)
	}
	//
	for i := range expected {
		if refs[i] != expected[i] {
			t.Errorf("expected %s reference at %d, got %d", name, expected[i], refs[i])
		}
	}
}
