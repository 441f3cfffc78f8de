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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-smelter/pkg/codegen"
	"github.com/consensys/go-smelter/pkg/metadata"
	"github.com/consensys/go-smelter/pkg/project"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] contract_file(s)",
	Short: "compile EVM contracts into linked bytecode.",
	Long: `Compile a given set of contract file(s) into linked EVM bytecode.
	 Contracts can be given as Yul source (.yul), solc legacy-assembly JSON
	 (.json) or textual instruction listings (.easm, with an optional
	 sibling .runtime.easm listing).`,
	Run: func(cmd *cobra.Command, args []string) {
		var cfg compileConfig
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		cfg.yul = GetFlag(cmd, "yul")
		cfg.settings = optimizerSettings(cmd)
		cfg.selection = outputSelection{
			bin:              GetFlag(cmd, "bin"),
			binRuntime:       GetFlag(cmd, "bin-runtime"),
			assembly:         GetFlag(cmd, "asm"),
			evmla:            GetFlag(cmd, "evmla"),
			ethir:            GetFlag(cmd, "ethir"),
			debugInfo:        GetFlag(cmd, "debug-info"),
			debugInfoRuntime: GetFlag(cmd, "debug-info-runtime"),
			metadata:         GetFlag(cmd, "metadata"),
		}
		cfg.options = projectOptions(cmd, cfg.selection)
		cfg.outputDir = GetString(cmd, "output-dir")
		cfg.overwrite = GetFlag(cmd, "overwrite")
		// Parse contracts
		contracts := readContractFiles(args, cfg)
		// Compile and link
		build := compileContracts(contracts, cfg)
		// Report diagnostics
		if reportDiagnostics(build) {
			os.Exit(1)
		}
		// Write artifacts
		if cfg.selection.empty() {
			fmt.Println("Compiler run successful. No output generated.")
			return
		}
		//
		if cfg.outputDir != "" {
			writeDirectory(cfg, build, contracts)
		} else {
			writeTerminal(cfg.selection, build, contracts)
		}
	},
}

// compile config encapsulates the flag-derived parameters of one compiler
// invocation.
type compileConfig struct {
	// Forces Yul parsing regardless of file extension.
	yul bool
	// Optimizer settings shared by every contract.
	settings *codegen.OptimizerSettings
	// Project options shared by every contract.
	options project.Options
	// Artifacts requested on stdout or in the output directory.
	selection outputSelection
	// Target directory; empty writes artifacts to the terminal.
	outputDir string
	// Allows clobbering existing artifact files.
	overwrite bool
}

// Determine the optimizer settings from the command-line flags.
func optimizerSettings(cmd *cobra.Command) *codegen.OptimizerSettings {
	preset := GetString(cmd, "optimization")
	if len(preset) != 1 {
		fmt.Printf("unknown optimization preset %q\n", preset)
		os.Exit(2)
	}
	//
	settings, err := codegen.SettingsFromCLI(preset[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	settings.FallbackToSize = GetFlag(cmd, "optimization-size-fallback")
	// Done
	return settings
}

// Determine the project options from the command-line flags.
func projectOptions(cmd *cobra.Command, selection outputSelection) project.Options {
	hashType, err := metadata.ParseHashType(GetString(cmd, "metadata-hash"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// Done
	return project.Options{
		HashType:   hashType,
		AppendCBOR: !GetFlag(cmd, "no-cbor-metadata"),
		Versions: []metadata.NamedVersion{
			{Name: "smelter", Version: releaseVersion()},
		},
		Libraries:    parseLibraries(GetStringArray(cmd, "libraries")),
		Workers:      int(GetUint(cmd, "threads")),
		DumpAssembly: selection.assembly,
		DumpEVMLA:    selection.evmla,
		DumpEthIR:    selection.ethir,
	}
}

// Parse library definitions of the form "path:Name=0xaddress" into concrete
// 20-byte addresses.
func parseLibraries(items []string) map[string][]byte {
	if len(items) == 0 {
		return nil
	}
	//
	libraries := make(map[string][]byte, len(items))
	//
	for _, item := range items {
		split := strings.LastIndex(item, "=")
		if split <= 0 {
			fmt.Printf("malformed library definition %q\n", item)
			os.Exit(2)
		}
		//
		address, err := hex.DecodeString(strings.TrimPrefix(item[split+1:], "0x"))
		if err != nil || len(address) != 20 {
			fmt.Printf("malformed library address in %q\n", item)
			os.Exit(2)
		}
		//
		libraries[item[:split]] = address
	}
	// Done
	return libraries
}

// Compile all contracts under one project, reporting duplicate paths as
// usage errors.
func compileContracts(contracts []*project.Contract, cfg compileConfig) *project.Build {
	driver := project.NewProject(cfg.settings, cfg.options)
	//
	for _, contract := range contracts {
		if err := driver.AddContract(contract); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
	// Go!
	return driver.Compile()
}

// Report per-contract diagnostics, returning true when any contract failed.
func reportDiagnostics(build *project.Build) bool {
	for _, path := range sortedContractPaths(build) {
		contract := build.Contracts[path]
		//
		if contract.Err != nil {
			printError(contract.Err)
			continue
		}
		//
		for _, object := range []*project.Object{contract.Deploy, contract.Runtime} {
			if object == nil {
				continue
			}
			//
			for _, warning := range object.Build.Warnings {
				printWarning(warning)
			}
		}
	}
	// Done
	return build.HasErrors()
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Bool("yul", false, "treat every input file as Yul source regardless of extension")
	compileCmd.Flags().StringP("optimization", "O", "3", "set optimization preset (0-3, s, z)")
	compileCmd.Flags().Bool("optimization-size-fallback", false,
		"recompile with -Oz when bytecode exceeds the EVM size limit")
	compileCmd.Flags().String("metadata-hash", "ipfs", "set metadata hash type (none, ipfs, keccak256)")
	compileCmd.Flags().Bool("no-cbor-metadata", false, "do not append the CBOR metadata trailer")
	compileCmd.Flags().StringArrayP("libraries", "l", []string{}, "deploy-time library address as \"path:Name=0xaddress\"")
	compileCmd.Flags().UintP("threads", "t", 0, "number of parallel contract compilations (0 for unbounded)")
	compileCmd.Flags().Bool("bin", false, "output deploy bytecode")
	compileCmd.Flags().Bool("bin-runtime", false, "output runtime bytecode")
	compileCmd.Flags().Bool("asm", false, "output backend assembly listings")
	compileCmd.Flags().Bool("evmla", false, "output reconstructed legacy assembly")
	compileCmd.Flags().Bool("ethir", false, "output Ethereal IR")
	compileCmd.Flags().Bool("debug-info", false, "output the deploy source map")
	compileCmd.Flags().Bool("debug-info-runtime", false, "output the runtime source map")
	compileCmd.Flags().Bool("metadata", false, "output contract metadata")
	compileCmd.Flags().StringP("output-dir", "o", "", "write artifacts into the given directory")
	compileCmd.Flags().Bool("overwrite", false, "overwrite existing artifact files")
}
