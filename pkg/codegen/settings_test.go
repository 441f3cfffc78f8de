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
	"testing"
)

func Test_Settings_01(t *testing.T) {
	t.Parallel()
	// Each preset maps to its documented levels.
	for _, item := range []struct {
		preset    byte
		middleEnd uint32
		sizeLevel SizeLevel
		backEnd   uint32
	}{
		{'0', 0, SizeLevelNone, 0},
		{'1', 1, SizeLevelNone, 1},
		{'2', 2, SizeLevelNone, 2},
		{'3', 3, SizeLevelNone, 3},
		{'s', 2, SizeLevelS, 3},
		{'z', 2, SizeLevelZ, 3},
	} {
		settings, err := SettingsFromCLI(item.preset)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		//
		if settings.MiddleEnd != item.middleEnd || settings.SizeLevel != item.sizeLevel ||
			settings.BackEnd != item.backEnd {
			t.Errorf("preset %q: expected (%d,%s,%d), got (%d,%s,%d)", string(item.preset),
				item.middleEnd, item.sizeLevel, item.backEnd,
				settings.MiddleEnd, settings.SizeLevel, settings.BackEnd)
		}
	}
	//
	if _, err := SettingsFromCLI('x'); err == nil {
		t.Errorf("expected error for unknown preset")
	}
}

func Test_Settings_02(t *testing.T) {
	t.Parallel()
	// The named settings match their presets.
	three, _ := SettingsFromCLI('3')
	if !CyclesSettings().Equal(three) {
		t.Errorf("cycles settings should equal preset '3'")
	}
	//
	z, _ := SettingsFromCLI('z')
	if !SizeSettings().Equal(z) {
		t.Errorf("size settings should equal preset 'z'")
	}
	//
	if CyclesSettings().IsMaxSize() {
		t.Errorf("cycles settings are not max size")
	}
	//
	if !SizeSettings().IsMaxSize() {
		t.Errorf("size settings are max size")
	}
}

func Test_Settings_03(t *testing.T) {
	t.Parallel()
	// The size fallback switches levels but preserves auxiliary flags.
	settings := CyclesSettings()
	settings.VerifyEach = true
	settings.SpillAreaSize = 64
	settings.MetadataSize = 53
	//
	fallback := settings.SwitchToSizeFallback()
	//
	if !fallback.Equal(SizeSettings()) {
		t.Errorf("fallback should carry size levels, got %s", fallback)
	}
	//
	if !fallback.FallbackToSize {
		t.Errorf("fallback settings keep the fallback enabled")
	}
	//
	if !fallback.VerifyEach || fallback.SpillAreaSize != 64 || fallback.MetadataSize != 53 {
		t.Errorf("fallback should preserve auxiliary flags")
	}
	// The original attempt is untouched.
	if settings.SizeLevel != SizeLevelNone {
		t.Errorf("switching must not mutate the original settings")
	}
}

func Test_Settings_04(t *testing.T) {
	t.Parallel()
	// Equality compares levels only.
	left := CyclesSettings()
	right := CyclesSettings()
	right.FallbackToSize = true
	right.DebugLogging = true
	//
	if !left.Equal(right) {
		t.Errorf("auxiliary flags must not distinguish attempts")
	}
	//
	if left.Equal(SizeSettings()) {
		t.Errorf("different levels are different attempts")
	}
}

func Test_Settings_05(t *testing.T) {
	t.Parallel()
	//
	for _, item := range []struct {
		preset   byte
		expected string
	}{
		{'0', "M0B0"},
		{'3', "M3B3"},
		{'s', "MsB3"},
		{'z', "MzB3"},
	} {
		settings, _ := SettingsFromCLI(item.preset)
		if settings.String() != item.expected {
			t.Errorf("expected %q, got %q", item.expected, settings.String())
		}
	}
}
