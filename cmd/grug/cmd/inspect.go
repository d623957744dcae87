package cmd

import (
	"fmt"

	"github.com/grugscript/grug/internal/manifest"
	"github.com/spf13/cobra"
)

var inspectModAPI string

var inspectCmd = &cobra.Command{
	Use:   "inspect <entity-type>",
	Short: "Dump a manifest entity's declared hooks as pretty-printed JSON",
	Long: `Dump one entity type's on_ hooks and their parameter lists,
exactly as the mod API manifest declares them. Useful for checking what
a mod file is expected to implement without re-reading the manifest by
hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectModAPI, "mod-api", "mod_api.json", "path to the mod API manifest")
}

func runInspect(cmd *cobra.Command, args []string) error {
	entityType := args[0]

	man, err := manifest.Load(inspectModAPI)
	if err != nil {
		return fmt.Errorf("failed to load mod API manifest %s: %w", inspectModAPI, err)
	}

	ent, ok := man.Entities[entityType]
	if !ok {
		return fmt.Errorf("no entity type %q in %s", entityType, inspectModAPI)
	}

	out, err := manifest.DumpEntityDebug(ent)
	if err != nil {
		return fmt.Errorf("failed to dump entity %q: %w", entityType, err)
	}

	fmt.Println(out)
	return nil
}
