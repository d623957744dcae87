package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "grug",
	Short: "Compiler and hot-reloader for the grug mod language",
	Long: `grug is a Go implementation of the grug mod-scripting toolchain.

grug is a small, statement-oriented language for game mods:
  - Global variable declarations, then on_ hooks, then helper functions
  - Static types: bool, i32, f32, string, id, resource, entity
  - Every mod file compiles straight to a native ELF shared object

This CLI drives the same pipeline the game host embeds via pkg/grug:
lex, parse, type-check, build and watch.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
