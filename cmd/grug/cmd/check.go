package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grugscript/grug/internal/checker"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/modtree"
	"github.com/grugscript/grug/internal/parser"
	"github.com/spf13/cobra"
)

var checkModAPI string
var checkEntityType string

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Type-check a grug mod file against a mod API manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkModAPI, "mod-api", "mod_api.json", "path to the mod API manifest")
	checkCmd.Flags().StringVar(&checkEntityType, "entity-type", "", "entity type this file implements (default: derived from the filename)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	man, err := manifest.Load(checkModAPI)
	if err != nil {
		return fmt.Errorf("failed to load mod API manifest %s: %w", checkModAPI, err)
	}

	entityType := checkEntityType
	if entityType == "" {
		entityType, err = entityTypeFromFilename(filename)
		if err != nil {
			return err
		}
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

	fmt.Printf("%s: OK\n", filename)
	return nil
}

// entityTypeFromFilename derives a standalone file's entity type from its
// own name, mirroring how the watcher derives it from a mod-tree walk
// (modtree.ParseFilename) — useful here since `check`/`build` may run
// against a single file outside of any mod directory.
func entityTypeFromFilename(filename string) (string, error) {
	parsed, err := modtree.ParseFilename(filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("cannot derive entity type from %s: %w", filename, err)
	}
	return parsed.EntityType, nil
}
