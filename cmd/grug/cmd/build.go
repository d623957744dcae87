package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grugscript/grug/internal/checker"
	"github.com/grugscript/grug/internal/codegen"
	"github.com/grugscript/grug/internal/elflink"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/parser"
	"github.com/spf13/cobra"
)

var (
	buildModAPI     string
	buildEntityType string
	buildOutput     string
	buildVerbose    bool
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a grug mod file to a native shared object",
	Long: `Compile a grug mod file straight through lexing, parsing,
type-checking, x86-64 code generation, and ELF linking, producing a
".so" the game host can dlopen directly.

Examples:
  # Compile a mod file
  grug build weapon-Weapon.grug

  # Compile with a custom output path
  grug build weapon-Weapon.grug -o build/weapon-Weapon.so`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildModAPI, "mod-api", "mod_api.json", "path to the mod API manifest")
	buildCmd.Flags().StringVar(&buildEntityType, "entity-type", "", "entity type this file implements (default: derived from the filename)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output file (default: <input> with a .so extension)")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "verbose output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	filename := args[0]

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	man, err := manifest.Load(buildModAPI)
	if err != nil {
		return fmt.Errorf("failed to load mod API manifest %s: %w", buildModAPI, err)
	}

	entityType := buildEntityType
	if entityType == "" {
		entityType, err = entityTypeFromFilename(filename)
		if err != nil {
			return err
		}
	}

	if buildVerbose {
		fmt.Fprintf(os.Stderr, "Compiling %s as entity type %s...\n", filename, entityType)
	}

	prog, err := parser.New(string(content), filename).ParseProgram()
	if err != nil {
		reportCompileError(err)
		return fmt.Errorf("parsing %s failed", filename)
	}

	if err := checker.New(filename, string(content), man, entityType).Check(prog); err != nil {
		reportCompileError(err)
		return fmt.Errorf("type-checking %s failed", filename)
	}

	obj, err := codegen.Compile(prog, man, entityType)
	if err != nil {
		reportCompileError(err)
		return fmt.Errorf("code generation for %s failed", filename)
	}

	soBytes, err := elflink.Link(obj, man.Entities[entityType])
	if err != nil {
		reportCompileError(err)
		return fmt.Errorf("linking %s failed", filename)
	}

	outFile := buildOutput
	if outFile == "" {
		ext := filepath.Ext(filename)
		outFile = strings.TrimSuffix(filename, ext) + ".so"
	}

	if err := os.WriteFile(outFile, soBytes, 0o755); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outFile, err)
	}

	if buildVerbose {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", outFile, len(soBytes))
	} else {
		fmt.Printf("Compiled %s -> %s\n", filename, outFile)
	}

	return nil
}
