package cmd

import (
	"fmt"
	"os"

	"github.com/grugscript/grug/internal/lexer"
	"github.com/grugscript/grug/internal/token"
	"github.com/spf13/cobra"
)

var (
	lexShowPos    bool
	lexOnlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Tokenize a grug mod file",
	Long: `Tokenize a grug mod file and print the resulting tokens.

Examples:
  # Tokenize a mod file
  grug lex weapon-Weapon.grug

  # Show token positions (line:column)
  grug lex --show-pos weapon-Weapon.grug

  # Show only illegal tokens
  grug lex --only-errors weapon-Weapon.grug`,
	Args: cobra.ExactArgs(1),
	RunE: lexFile,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().BoolVar(&lexShowPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&lexOnlyErrors, "only-errors", false, "show only illegal tokens")
}

func lexFile(cmd *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	l := lexer.New(string(content))
	toks := l.Tokenize()

	errorCount := 0
	for _, tok := range toks {
		isIllegal := tok.Type == token.ILLEGAL
		if isIllegal {
			errorCount++
		}
		if lexOnlyErrors && !isIllegal {
			continue
		}
		printToken(tok)
	}

	for _, e := range l.Errors() {
		fmt.Fprintln(os.Stderr, e.Error())
	}

	if errorCount > 0 || len(l.Errors()) > 0 {
		return fmt.Errorf("lexing %s produced %d illegal token(s)", filename, errorCount)
	}

	return nil
}

func printToken(tok token.Token) {
	if tok.Type == token.EOF {
		fmt.Print("EOF")
	} else if tok.Literal == "" {
		fmt.Printf("[%s]", tok.Type)
	} else {
		fmt.Printf("[%s] %q", tok.Type, tok.Literal)
	}

	if lexShowPos {
		fmt.Printf(" @%s", tok.Pos)
	}
	fmt.Println()
}
