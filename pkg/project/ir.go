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
	"github.com/consensys/go-smelter/pkg/evmla"
	"github.com/consensys/go-smelter/pkg/yul"
)

// IR is the closed set of representations a contract's code can take.  The
// variant is fixed at construction and selects the lowering engine; the
// compile driver matches the concrete variants exhaustively.
type IR interface {
	// irVariant seals the union.
	irVariant()
}

// YulIR holds a parsed Yul object tree.  The runtime counterpart is the
// nested object named by the "_deployed" convention; any other nested object
// is creation code, compiled as a unit of its own.
type YulIR struct {
	// Object is the deploy object rooting the tree.
	Object *yul.Object
}

// LegacyAssemblyIR holds a deserialized legacy-assembly tree.  The runtime
// counterpart sits at data index "0"; any other assembly entry is creation
// code, compiled as a unit of its own.
type LegacyAssemblyIR struct {
	// Assembly is the deploy assembly rooting the tree.
	Assembly *evmla.Assembly
}

// TextIR holds a pre-lowered flat instruction listing passed through to the
// backend without a lowering engine: one instruction per line, a mnemonic
// optionally followed by a hexadecimal PUSH immediate, with ';' comments.
type TextIR struct {
	// Source is this code object's listing.
	Source string
	// Runtime is the owned runtime counterpart, if any.
	Runtime *TextIR
}

func (p *YulIR) irVariant() {}

func (p *LegacyAssemblyIR) irVariant() {}

func (p *TextIR) irVariant() {}
