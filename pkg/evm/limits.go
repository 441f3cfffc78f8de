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
package evm

const (
	// RuntimeCodeSizeLimit is the EIP-170 cap on deployed code.
	RuntimeCodeSizeLimit = 24576
	// DeployCodeSizeLimit is the EIP-3860 cap on initcode.
	DeployCodeSizeLimit = 2 * RuntimeCodeSizeLimit
)
