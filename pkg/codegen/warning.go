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
	"fmt"

	"github.com/consensys/go-smelter/pkg/ir"
)

// WarningCode identifies a class of non-fatal build diagnostics.
type WarningCode uint8

const (
	// WarningDeployCodeSize flags deploy code exceeding the initcode limit.
	WarningDeployCodeSize WarningCode = iota
	// WarningRuntimeCodeSize flags runtime code exceeding the deployed-code
	// limit.
	WarningRuntimeCodeSize
)

func (p WarningCode) String() string {
	switch p {
	case WarningDeployCodeSize:
		return "DeployCodeSize"
	case WarningRuntimeCodeSize:
		return "RuntimeCodeSize"
	default:
		panic("unknown warning code")
	}
}

// Warning is a non-fatal diagnostic attached to a Build.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// NewCodeSizeWarning constructs the over-limit warning for the given segment.
func NewCodeSizeWarning(identifier string, segment ir.CodeSegment, size, limit uint64) Warning {
	code := WarningRuntimeCodeSize
	if segment == ir.Deploy {
		code = WarningDeployCodeSize
	}
	//
	message := fmt.Sprintf("%s code of %q is %d bytes, exceeding the EVM limit of %d bytes",
		segment, identifier, size, limit)
	// Done
	return Warning{code, message}
}

func (p Warning) String() string {
	return fmt.Sprintf("warning[%s]: %s", p.Code, p.Message)
}
