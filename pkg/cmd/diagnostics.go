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
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/consensys/go-smelter/pkg/codegen"
)

// Severity prefixes are colored only when stderr is attached to a terminal,
// so that captured output stays clean.
var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
)

// printError writes an error diagnostic to stderr.
func printError(err error) {
	printDiagnostic(errorColor, "error", err.Error())
}

// printWarning writes a warning diagnostic to stderr.
func printWarning(warning codegen.Warning) {
	printDiagnostic(warningColor, fmt.Sprintf("warning[%s]", warning.Code), warning.Message)
}

func printDiagnostic(severity *color.Color, prefix, message string) {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		severity.Fprintf(os.Stderr, "%s:", prefix)
		fmt.Fprintf(os.Stderr, " %s\n", message)
		//
		return
	}
	//
	fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, message)
}
