package cmd

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/consensys/go-smelter/pkg/project"
	"github.com/spf13/cobra"
)

// Get an expected flag, or exit if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected string flag, or exit if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected uint flag, or exit if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected string-array flag, or exit if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// runtimeListingSuffix marks the sibling file holding the runtime listing of
// a textual deploy listing.
const runtimeListingSuffix = ".runtime.easm"

// Parse a contract file using a representation based on the extension of the
// filename, attaching the metadata payload fingerprinting its source.
func readContractFile(filename string, cfg compileConfig) (*project.Contract, error) {
	var contract *project.Contract
	//
	bytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// Check file extension, unless Yul parsing is forced.
	ext := path.Ext(filename)
	if cfg.yul {
		ext = ".yul"
	}
	//
	switch ext {
	case ".yul":
		contract, err = project.NewYulContract(filename, string(bytes))
	case ".json":
		contract, err = project.NewLegacyAssemblyContract(filename, bytes, nil)
	case ".easm":
		contract = readTextContract(filename, string(bytes))
	default:
		fmt.Printf("unknown contract file format: %s\n", ext)
		os.Exit(2)
	}
	//
	if err != nil {
		return nil, err
	}
	//
	contract.Metadata = buildMetadata(contract, bytes, cfg.settings)
	// Done
	return contract, nil
}

// Read a textual instruction listing, attaching the sibling runtime listing
// when one exists alongside the deploy listing.
func readTextContract(filename, source string) *project.Contract {
	if !strings.HasSuffix(filename, runtimeListingSuffix) {
		sibling := strings.TrimSuffix(filename, ".easm") + runtimeListingSuffix
		//
		if bytes, err := os.ReadFile(sibling); err == nil {
			return project.NewTextContract(filename, source, string(bytes))
		}
	}
	//
	return project.NewTextContract(filename, source, "")
}

// Parse all contract files, reporting every malformed input before exiting.
func readContractFiles(filenames []string, cfg compileConfig) []*project.Contract {
	var (
		contracts = make([]*project.Contract, 0, len(filenames))
		failed    bool
	)
	//
	for _, filename := range filenames {
		contract, err := readContractFile(filename, cfg)
		if err != nil {
			printError(err)

			failed = true

			continue
		}
		//
		contracts = append(contracts, contract)
	}
	//
	if failed {
		os.Exit(1)
	}
	// Done
	return contracts
}
