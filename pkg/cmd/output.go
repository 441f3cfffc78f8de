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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/consensys/go-smelter/pkg/project"
)

// outputSelection captures which artifacts an invocation asked for.
type outputSelection struct {
	// Linked deploy bytecode, hex-encoded.
	bin bool
	// Linked runtime bytecode, hex-encoded.
	binRuntime bool
	// Backend assembly listings.
	assembly bool
	// Reconstructed legacy-assembly dumps.
	evmla bool
	// Ethereal IR dumps.
	ethir bool
	// Source map of the deploy segment.
	debugInfo bool
	// Source map of the runtime segment.
	debugInfoRuntime bool
	// Contract metadata payload.
	metadata bool
}

// empty checks whether no artifact was selected at all.
func (p outputSelection) empty() bool {
	return !(p.bin || p.binRuntime || p.assembly || p.evmla || p.ethir ||
		p.debugInfo || p.debugInfoRuntime || p.metadata)
}

// writeTerminal prints the selected artifacts of every linked contract to
// stdout, one labeled section per artifact.
func writeTerminal(selection outputSelection, build *project.Build, contracts []*project.Contract) {
	index := contractsByPath(contracts)
	//
	for _, path := range sortedContractPaths(build) {
		contract := build.Contracts[path]
		if contract.Err != nil {
			continue
		}
		//
		var (
			deploy  = contract.Deploy
			runtime = contract.Runtime
		)
		//
		fmt.Printf("\n======= %s =======\n", path)
		//
		if selection.assembly {
			printSection("Deploy EVM assembly:", deploy.Build.Assembly)
			//
			if runtime != nil {
				printSection("Runtime EVM assembly:", runtime.Build.Assembly)
			}
		}
		//
		if selection.bin {
			printSection("Binary:", hex.EncodeToString(deploy.Bytecode()))
		}
		//
		if selection.binRuntime && runtime != nil {
			printSection("Binary of the runtime part:", hex.EncodeToString(runtime.Bytecode()))
		}
		//
		if selection.debugInfo {
			printSection("Debug info:", string(deploy.Build.DebugInfo))
		}
		//
		if selection.debugInfoRuntime && runtime != nil {
			printSection("Debug info of the runtime part:", string(runtime.Build.DebugInfo))
		}
		//
		if selection.evmla {
			printSection("Deploy EVM legacy assembly:", deploy.Build.EVMLA)
			//
			if runtime != nil {
				printSection("Runtime EVM legacy assembly:", runtime.Build.EVMLA)
			}
		}
		//
		if selection.ethir {
			printSection("Deploy Ethereal IR:", deploy.Build.EthIR)
			//
			if runtime != nil {
				printSection("Runtime Ethereal IR:", runtime.Build.EthIR)
			}
		}
		//
		if selection.metadata {
			printSection("Metadata:", string(index[path].Metadata))
		}
	}
}

// printSection writes one labeled artifact section, skipping artifacts the
// contract does not carry.
func printSection(label, artifact string) {
	if artifact != "" {
		fmt.Printf("%s\n%s\n", label, artifact)
	}
}

// writeDirectory writes the selected artifacts of every linked contract
// into the output directory, one file per artifact.
func writeDirectory(cfg compileConfig, build *project.Build, contracts []*project.Contract) {
	if err := os.MkdirAll(cfg.outputDir, 0755); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	var (
		selection = cfg.selection
		index     = contractsByPath(contracts)
	)
	//
	for _, path := range sortedContractPaths(build) {
		contract := build.Contracts[path]
		if contract.Err != nil {
			continue
		}
		//
		var (
			deploy  = contract.Deploy
			runtime = contract.Runtime
			base    = sanitizePath(path)
		)
		//
		if selection.assembly {
			writeArtifact(cfg, base+".asm", deploy.Build.Assembly)
			//
			if runtime != nil {
				writeArtifact(cfg, base+".asm-runtime", runtime.Build.Assembly)
			}
		}
		//
		if selection.bin {
			writeArtifact(cfg, base+".bin", hex.EncodeToString(deploy.Bytecode()))
		}
		//
		if selection.binRuntime && runtime != nil {
			writeArtifact(cfg, base+".bin-runtime", hex.EncodeToString(runtime.Bytecode()))
		}
		//
		if selection.debugInfo {
			writeArtifact(cfg, base+".debuginfo", string(deploy.Build.DebugInfo))
		}
		//
		if selection.debugInfoRuntime && runtime != nil {
			writeArtifact(cfg, base+".debuginfo-runtime", string(runtime.Build.DebugInfo))
		}
		//
		if selection.evmla {
			writeArtifact(cfg, base+".evmla", deploy.Build.EVMLA)
			//
			if runtime != nil {
				writeArtifact(cfg, base+".evmla-runtime", runtime.Build.EVMLA)
			}
		}
		//
		if selection.ethir {
			writeArtifact(cfg, base+".ethir", deploy.Build.EthIR)
			//
			if runtime != nil {
				writeArtifact(cfg, base+".ethir-runtime", runtime.Build.EthIR)
			}
		}
		//
		if selection.metadata {
			writeArtifact(cfg, base+"_meta.json", string(index[path].Metadata))
		}
	}
	//
	fmt.Printf("Compiler run successful. Artifact(s) can be found in directory %q.\n", cfg.outputDir)
}

// writeArtifact writes one artifact file, skipping artifacts the contract
// does not carry.
func writeArtifact(cfg compileConfig, filename, artifact string) {
	if artifact == "" {
		return
	}
	//
	writeOutputFile(filepath.Join(cfg.outputDir, filename), []byte(artifact), cfg.overwrite)
}

// Write data to an output file, refusing to overwrite an existing file
// unless requested.
func writeOutputFile(filename string, data []byte, overwrite bool) {
	if !overwrite {
		if _, err := os.Stat(filename); err == nil {
			fmt.Printf("refusing to overwrite existing file %q (use --overwrite to force)\n", filename)
			os.Exit(2)
		}
	}
	//
	if err := os.WriteFile(filename, data, 0644); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

// Flatten a contract path into a file-name stem: path separators and dots
// become underscores, keeping the contract name readable.
func sanitizePath(path string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ".", "_").Replace(path)
}

// sortedContractPaths lists the build's contract paths in lexicographic
// order, keeping output deterministic.
func sortedContractPaths(build *project.Build) []string {
	paths := make([]string, 0, len(build.Contracts))
	//
	for path := range build.Contracts {
		paths = append(paths, path)
	}
	//
	sort.Strings(paths)
	// Done
	return paths
}

// contractsByPath indexes the parsed contracts by path, for artifact lookup
// after compilation.
func contractsByPath(contracts []*project.Contract) map[string]*project.Contract {
	index := make(map[string]*project.Contract, len(contracts))
	//
	for _, contract := range contracts {
		index[contract.Path] = contract
	}
	// Done
	return index
}
