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

import "fmt"

// SizeLevel controls how aggressively emission trades execution cost for
// bytecode size.
type SizeLevel uint8

const (
	// SizeLevelNone performs no size-driven transformations.
	SizeLevelNone SizeLevel = iota
	// SizeLevelS prefers size over speed where the trade is cheap.
	SizeLevelS
	// SizeLevelZ minimizes size wherever possible.
	SizeLevelZ
)

func (p SizeLevel) String() string {
	switch p {
	case SizeLevelNone:
		return "none"
	case SizeLevelS:
		return "s"
	case SizeLevelZ:
		return "z"
	default:
		panic("unknown size level")
	}
}

// OptimizerSettings selects the optimization pipeline of one compilation
// attempt.  Settings are fixed once an attempt starts; the size fallback
// constructs a fresh value rather than mutating a running attempt.
type OptimizerSettings struct {
	// MiddleEnd is the module-level optimization level (0-3).
	MiddleEnd uint32
	// SizeLevel is the size optimization level.
	SizeLevel SizeLevel
	// BackEnd is the instruction-selection optimization level (0-3).
	BackEnd uint32

	// FallbackToSize enables one size-optimized retry when an attempt
	// exceeds the segment's bytecode limit.
	FallbackToSize bool
	// VerifyEach runs emitter self-checks after every pass.
	VerifyEach bool
	// DebugLogging enables emitter pass logging.
	DebugLogging bool

	// SpillAreaSize reserves extra bytes of scratch memory below the Yul
	// memory guard.  Zero reserves nothing.
	SpillAreaSize uint64
	// MetadataSize is the length of the metadata trailer that will be
	// appended to the runtime bytecode; it counts against the size limit.
	MetadataSize uint64
}

// NewOptimizerSettings constructs settings with the given levels and all
// auxiliary flags cleared.
func NewOptimizerSettings(middleEnd uint32, sizeLevel SizeLevel, backEnd uint32) *OptimizerSettings {
	return &OptimizerSettings{
		MiddleEnd: middleEnd,
		SizeLevel: sizeLevel,
		BackEnd:   backEnd,
	}
}

// SettingsFromCLI maps a one-character preset to optimizer settings.  Each
// performance preset maps to a distinct back-end level so that exhaustive
// mode enumeration stays distinct.
func SettingsFromCLI(preset byte) (*OptimizerSettings, error) {
	switch preset {
	case '0':
		return NewOptimizerSettings(0, SizeLevelNone, 0), nil
	case '1':
		return NewOptimizerSettings(1, SizeLevelNone, 1), nil
	case '2':
		return NewOptimizerSettings(2, SizeLevelNone, 2), nil
	case '3':
		return NewOptimizerSettings(3, SizeLevelNone, 3), nil
	case 's':
		return NewOptimizerSettings(2, SizeLevelS, 3), nil
	case 'z':
		return NewOptimizerSettings(2, SizeLevelZ, 3), nil
	default:
		return nil, fmt.Errorf("unknown optimization preset %q", string(preset))
	}
}

// CyclesSettings returns the settings optimizing for execution cost ('3').
func CyclesSettings() *OptimizerSettings {
	settings, err := SettingsFromCLI('3')
	if err != nil {
		panic("unreachable")
	}
	//
	return settings
}

// SizeSettings returns the settings optimizing for bytecode size ('z').
func SizeSettings() *OptimizerSettings {
	settings, err := SettingsFromCLI('z')
	if err != nil {
		panic("unreachable")
	}
	//
	return settings
}

// SwitchToSizeFallback derives the settings of a size-fallback retry: the
// levels of SizeSettings with this attempt's auxiliary flags preserved.
//
//nolint:revive
func (p *OptimizerSettings) SwitchToSizeFallback() *OptimizerSettings {
	settings := *p
	//
	size := SizeSettings()
	settings.MiddleEnd = size.MiddleEnd
	settings.SizeLevel = size.SizeLevel
	settings.BackEnd = size.BackEnd
	settings.FallbackToSize = true
	// Done
	return &settings
}

// IsMaxSize reports whether these settings already optimize for size as
// aggressively as possible, i.e. a size fallback could not change anything.
//
//nolint:revive
func (p *OptimizerSettings) IsMaxSize() bool {
	return p.SizeLevel == SizeLevelZ
}

// Equal compares optimization levels only; auxiliary flags do not
// distinguish attempts.
//
//nolint:revive
func (p *OptimizerSettings) Equal(other *OptimizerSettings) bool {
	return p.MiddleEnd == other.MiddleEnd &&
		p.SizeLevel == other.SizeLevel &&
		p.BackEnd == other.BackEnd
}

// MiddleEndChar renders the middle-end level as its preset character.
//
//nolint:revive
func (p *OptimizerSettings) MiddleEndChar() byte {
	switch p.SizeLevel {
	case SizeLevelS:
		return 's'
	case SizeLevelZ:
		return 'z'
	default:
		return '0' + byte(p.MiddleEnd)
	}
}

//nolint:revive
func (p *OptimizerSettings) String() string {
	return fmt.Sprintf("M%cB%d", p.MiddleEndChar(), p.BackEnd)
}
