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
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/evm"
	"github.com/consensys/go-smelter/pkg/ir"
)

// compileText compiles a pre-lowered listing pair.  Listings cannot
// reference other code objects; an owned runtime counterpart still enters
// the deploy dependency record implicitly.
//
//nolint:revive
func (p *Project) compileText(contract *Contract, text *TextIR, path string) (*Object, *Object, error) {
	var (
		deployObject  *Object
		runtimeObject *Object
		record        = ir.NewDependencies(path)
	)
	//
	if text.Runtime != nil {
		record.Insert(ir.RuntimeIdentifier(path), false)
		//
		trailer := p.trailer(contract, nil, true)
		//
		module, err := lowerText(text.Runtime.Source, path, ir.Runtime, p.settings)
		if err != nil {
			return nil, nil, malformed(path, ir.Runtime, err)
		}
		//
		runtimeObject, err = p.compileObject(path, ir.Runtime, module,
			ir.NewDependencies(ir.RuntimeIdentifier(path)), trailer)
		if err != nil {
			return nil, nil, err
		}
	}
	//
	module, err := lowerText(text.Source, path, ir.Deploy, p.settings)
	if err != nil {
		return nil, nil, malformed(path, ir.Deploy, err)
	}
	//
	deployObject, err = p.compileObject(path, ir.Deploy, module, record, nil)
	if err != nil {
		return nil, nil, err
	}
	// Done
	return deployObject, runtimeObject, nil
}

// lowerText parses a flat instruction listing into a recorded module: one
// instruction per line, a mnemonic optionally followed by a hexadecimal PUSH
// immediate, with ';' starting a comment.  The listing is trusted to manage
// its own control flow; only stack arithmetic is checked.
func lowerText(source, path string, segment ir.CodeSegment, settings *codegen.OptimizerSettings) (*codegen.Module, error) {
	ctx := codegen.NewContext(segment.Identifier(path), segment, settings)
	//
	ctx.BeginEntry()
	//
	for i, line := range strings.Split(source, "\n") {
		if comment := strings.IndexByte(line, ';'); comment >= 0 {
			line = line[:comment]
		}
		//
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		//
		name := strings.ToUpper(fields[0])
		//
		switch {
		case name == "PUSH" && len(fields) == 2:
			value, err := uint256.FromHex(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: malformed immediate %q", i+1, fields[1])
			}
			//
			ctx.EmitPush(value)
		case len(fields) == 1:
			op, ok := evm.Lookup(name)
			// Width-explicit pushes are rejected: immediates always travel
			// through the PUSH form above.
			if !ok || op.IsPush() {
				return nil, fmt.Errorf("line %d: unknown instruction %q", i+1, fields[0])
			}
			//
			if pops, _ := op.StackEffect(); ctx.Height() < pops {
				return nil, fmt.Errorf("line %d: stack underflow at %q", i+1, fields[0])
			}
			//
			ctx.EmitOp(op)
		default:
			return nil, fmt.Errorf("line %d: malformed instruction %q", i+1, strings.TrimSpace(line))
		}
	}
	//
	ctx.EndEntry()
	// Done
	return ctx.Module(), nil
}
