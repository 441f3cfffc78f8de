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
package ir

// CodeSegment distinguishes the two halves of a contract's lifecycle: the
// deploy (constructor) code executed exactly once, and the runtime code
// stored on chain.
type CodeSegment uint8

const (
	// Deploy is the constructor code segment.
	Deploy CodeSegment = iota
	// Runtime is the on-chain code segment.
	Runtime
)

// RuntimeSuffix is appended to a deploy code identifier to name its runtime
// counterpart.  This naming convention is the sole mechanism by which deploy
// code locates its paired runtime code during dependency resolution.
const RuntimeSuffix = ".runtime"

// RuntimeIdentifier returns the identifier of the runtime code object paired
// with the deploy code object at the given path.
func RuntimeIdentifier(path string) string {
	return path + RuntimeSuffix
}

// Identifier returns the code object identifier for the given path under this
// segment.
func (p CodeSegment) Identifier(path string) string {
	if p == Runtime {
		return RuntimeIdentifier(path)
	}
	//
	return path
}

func (p CodeSegment) String() string {
	switch p {
	case Deploy:
		return "deploy"
	case Runtime:
		return "runtime"
	default:
		panic("unknown code segment")
	}
}
