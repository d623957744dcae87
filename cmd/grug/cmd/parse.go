package cmd

import (
	"fmt"
	"os"

	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a grug mod file and print the recovered source",
	Long: `Parse a grug mod file into an AST and print it back out.

Since grug's printer and parser round-trip (parse . print == identity,
modulo the formatting rules the parser already enforces), this is also
the fastest way to check whether a file parses at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	prog, err := parser.New(string(content), filename).ParseProgram()
	if err != nil {
		reportCompileError(err)
		return fmt.Errorf("parsing %s failed", filename)
	}

	fmt.Println(prog.String())
	return nil
}

func reportCompileError(err error) {
	if cerr, ok := err.(*errors.CompilerError); ok {
		fmt.Fprintln(os.Stderr, cerr.Format(true))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
