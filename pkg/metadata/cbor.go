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

// Package metadata provides the CBOR metadata trailer appended to runtime
// bytecode, along with the hash functions used to fingerprint contract
// metadata (keccak256 and IPFS CIDv0).
package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NamedVersion pairs a component name with its semantic version for the
// version field of the trailer.
type NamedVersion struct {
	Name    string
	Version *semver.Version
}

// HashField is the optional leading field of the trailer, holding the
// metadata hash under its type name (e.g. "ipfs").
type HashField struct {
	Name  string
	Bytes []byte
}

// CBOR is the metadata trailer payload.  Its encoding is a fixed-layout CBOR
// map: an optional hash field keyed by hash type name, followed by a version
// field keyed by VersionKey whose value is "name:semver" pairs joined with
// ';'.  The encoded map is suffixed with its own big-endian 16-bit length so
// that consumers can strip it from the bytecode tail.
type CBOR struct {
	Hash       *HashField
	VersionKey string
	Versions   []NamedVersion
}

// NewCBOR constructs a trailer payload.  At least one version entry is
// required.
func NewCBOR(hash *HashField, versionKey string, versions []NamedVersion) *CBOR {
	if len(versions) == 0 {
		panic("version data cannot be empty")
	}
	//
	return &CBOR{hash, versionKey, versions}
}

// Encode returns the CBOR-encoded trailer, including the trailing 2-byte
// length.
//
//nolint:revive
func (p *CBOR) Encode() []byte {
	fieldCount := byte(1)
	if p.Hash != nil {
		fieldCount++
	}
	//
	cbor := make([]byte, 0, 64)
	cbor = append(cbor, 0xA0+fieldCount)
	// Optional hash field: short text key, byte string value.
	if p.Hash != nil {
		cbor = append(cbor, 0x60+byte(len(p.Hash.Name)))
		cbor = append(cbor, p.Hash.Name...)
		cbor = append(cbor, 0x58, byte(len(p.Hash.Bytes)))
		cbor = append(cbor, p.Hash.Bytes...)
	}
	// Version field: short text key, one-byte-length text value.
	cbor = append(cbor, 0x60+byte(len(p.VersionKey)))
	cbor = append(cbor, p.VersionKey...)
	//
	versions := make([]string, len(p.Versions))
	for i, v := range p.Versions {
		versions[i] = fmt.Sprintf("%s:%s", v.Name, v.Version)
	}
	//
	joined := strings.Join(versions, ";")
	cbor = append(cbor, 0x78, byte(len(joined)))
	cbor = append(cbor, joined...)
	// Suffix with the overall length.
	cbor = binary.BigEndian.AppendUint16(cbor, uint16(len(cbor)))
	// Done
	return cbor
}

// ParseTrailer decodes the trailer from the tail of the given bytecode,
// returning the payload and the total number of trailing bytes it occupies
// (including the 2-byte length suffix).
func ParseTrailer(code []byte) (*CBOR, int, error) {
	if len(code) < 2 {
		return nil, 0, fmt.Errorf("bytecode too short for metadata trailer")
	}
	//
	length := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	total := length + 2
	//
	if length == 0 || total > len(code) {
		return nil, 0, fmt.Errorf("invalid metadata trailer length %d", length)
	}
	//
	trailer := code[len(code)-total : len(code)-2]
	payload, err := decodeTrailer(trailer)
	//
	if err != nil {
		return nil, 0, err
	}
	// Done
	return payload, total, nil
}

func decodeTrailer(trailer []byte) (*CBOR, error) {
	if len(trailer) == 0 || trailer[0]&0xE0 != 0xA0 {
		return nil, fmt.Errorf("malformed metadata trailer: missing map header")
	}
	//
	var (
		payload    CBOR
		fieldCount = int(trailer[0] & 0x1F)
		offset     = 1
	)
	//
	for i := 0; i < fieldCount; i++ {
		key, n, err := decodeShortText(trailer[offset:])
		if err != nil {
			return nil, err
		}
		//
		offset += n
		if offset >= len(trailer) {
			return nil, fmt.Errorf("malformed metadata trailer: truncated field %q", key)
		}
		//
		switch trailer[offset] {
		case 0x58:
			// One-byte-length byte string: the hash field.
			value, n, err := decodeBytes(trailer[offset:])
			if err != nil {
				return nil, err
			}
			//
			payload.Hash = &HashField{key, value}
			offset += n
		case 0x78:
			// One-byte-length text: the version field.
			value, n, err := decodeLongText(trailer[offset:])
			if err != nil {
				return nil, err
			}
			//
			payload.VersionKey = key
			offset += n
			//
			if err := payload.parseVersions(value); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("malformed metadata trailer: unexpected value header 0x%02X", trailer[offset])
		}
	}
	//
	if offset != len(trailer) {
		return nil, fmt.Errorf("malformed metadata trailer: %d stray bytes", len(trailer)-offset)
	} else if payload.VersionKey == "" {
		return nil, fmt.Errorf("malformed metadata trailer: missing version field")
	}
	// Done
	return &payload, nil
}

//nolint:revive
func (p *CBOR) parseVersions(data string) error {
	for _, pair := range strings.Split(data, ";") {
		name, version, found := strings.Cut(pair, ":")
		if !found {
			return fmt.Errorf("malformed metadata version entry %q", pair)
		}
		//
		parsed, err := semver.NewVersion(version)
		if err != nil {
			return fmt.Errorf("malformed metadata version entry %q: %w", pair, err)
		}
		//
		p.Versions = append(p.Versions, NamedVersion{name, parsed})
	}
	//
	return nil
}

// Decode a CBOR short-form text string (length embedded in the header byte).
func decodeShortText(data []byte) (string, int, error) {
	if len(data) == 0 || data[0]&0xE0 != 0x60 || data[0]&0x1F >= 24 {
		return "", 0, fmt.Errorf("malformed metadata trailer: expected short text header")
	}
	//
	length := int(data[0] & 0x1F)
	if 1+length > len(data) {
		return "", 0, fmt.Errorf("malformed metadata trailer: truncated text")
	}
	// Done
	return string(data[1 : 1+length]), 1 + length, nil
}

// Decode a CBOR text string with a one-byte length prefix (header 0x78).
func decodeLongText(data []byte) (string, int, error) {
	if len(data) < 2 {
		return "", 0, fmt.Errorf("malformed metadata trailer: truncated text")
	}
	//
	length := int(data[1])
	if 2+length > len(data) {
		return "", 0, fmt.Errorf("malformed metadata trailer: truncated text")
	}
	// Done
	return string(data[2 : 2+length]), 2 + length, nil
}

// Decode a CBOR byte string with a one-byte length prefix (header 0x58).
func decodeBytes(data []byte) ([]byte, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("malformed metadata trailer: truncated byte string")
	}
	//
	length := int(data[1])
	if 2+length > len(data) {
		return nil, 0, fmt.Errorf("malformed metadata trailer: truncated byte string")
	}
	//
	value := make([]byte, length)
	copy(value, data[2:2+length])
	// Done
	return value, 2 + length, nil
}
