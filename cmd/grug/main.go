// Command grug is the compiler/watcher CLI around pkg/grug: tokenize,
// parse, type-check, build, and watch a mod directory from the shell
// (cmd/grug/cmd holds the actual subcommands).
package main

import (
	"os"

	"github.com/grugscript/grug/cmd/grug/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
