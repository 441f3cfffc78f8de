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
package metadata

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// HashType selects the metadata hash embedded in the trailer.
type HashType uint8

const (
	// HashTypeNone omits the hash field from the trailer.
	HashTypeNone HashType = iota
	// HashTypeIPFS embeds an IPFS CIDv0 multihash.
	HashTypeIPFS
	// HashTypeKeccak256 embeds a keccak256 digest.
	HashTypeKeccak256
)

// ParseHashType parses the CLI spelling of a hash type.
func ParseHashType(name string) (HashType, error) {
	switch name {
	case "none":
		return HashTypeNone, nil
	case "ipfs":
		return HashTypeIPFS, nil
	case "keccak256":
		return HashTypeKeccak256, nil
	default:
		return HashTypeNone, fmt.Errorf("unknown metadata hash type %q", name)
	}
}

func (p HashType) String() string {
	switch p {
	case HashTypeNone:
		return "none"
	case HashTypeIPFS:
		return "ipfs"
	case HashTypeKeccak256:
		return "keccak256"
	default:
		panic("unknown metadata hash type")
	}
}

// HashFieldFor computes the trailer hash field for the given metadata bytes,
// or nil when hashing is disabled.
func HashFieldFor(kind HashType, preimage []byte) *HashField {
	switch kind {
	case HashTypeNone:
		return nil
	case HashTypeIPFS:
		hash := IPFSHash(preimage)
		return &HashField{kind.String(), hash[:]}
	case HashTypeKeccak256:
		hash := Keccak256(preimage)
		return &HashField{kind.String(), hash[:]}
	default:
		panic("unknown metadata hash type")
	}
}

// Keccak256 computes the keccak256 digest of the given preimage.
func Keccak256(preimage []byte) [32]byte {
	var digest [32]byte
	//
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(preimage)
	copy(digest[:], hasher.Sum(nil))
	// Done
	return digest
}

// Keccak256Hex returns the 0x-prefixed hexadecimal form of the keccak256
// digest.
func Keccak256Hex(preimage []byte) string {
	digest := Keccak256(preimage)
	return "0x" + hex.EncodeToString(digest[:])
}

// IPFSHash computes the CIDv0 multihash for the given content: the sha256
// digest of a single-chunk UnixFS file node, prefixed with the sha2-256
// multihash header.  Content is never chunked since metadata payloads are
// far below the IPFS chunk size.
func IPFSHash(content []byte) [34]byte {
	var (
		cid    [34]byte
		length = uint64(len(content))
	)
	// UnixFS Data message: Type=File(2), Data, filesize.
	unixfs := []byte{0x08, 0x02, 0x12}
	unixfs = binary.AppendUvarint(unixfs, length)
	unixfs = append(unixfs, content...)
	unixfs = append(unixfs, 0x18)
	unixfs = binary.AppendUvarint(unixfs, length)
	// dag-pb node: Data field wrapping the UnixFS message.
	dagpb := []byte{0x0A}
	dagpb = binary.AppendUvarint(dagpb, uint64(len(unixfs)))
	dagpb = append(dagpb, unixfs...)
	//
	digest := sha256.Sum256(dagpb)
	// Multihash header: sha2-256, 32 bytes.
	cid[0], cid[1] = 0x12, 0x20
	copy(cid[2:], digest[:])
	// Done
	return cid
}

// IPFSHashBase58 returns the canonical base58 ("Qm...") rendering of the
// CIDv0 multihash.
func IPFSHashBase58(content []byte) string {
	hash := IPFSHash(content)
	return base58.Encode(hash[:])
}
