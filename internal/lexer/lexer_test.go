package lexer

import (
	"testing"

	"github.com/grugscript/grug/internal/token"
)

func typesOf(toks []token.Token) []token.Type {
	types := make([]token.Type, len(toks))
	for i, t := range toks {
		types[i] = t.Type
	}
	return types
}

func TestTokenizeMinimalOnFn(t *testing.T) {
	src := "on_start() {\n}\n"
	toks := New(src).Tokenize()

	want := []token.Type{
		token.IDENT, token.LPAREN, token.RPAREN, token.SPACE, token.LBRACE, token.NEWLINE,
		token.RBRACE, token.NEWLINE, token.EOF,
	}
	got := typesOf(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIndentMustBeMultipleOfFour(t *testing.T) {
	l := New("   x\n")
	l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected an indentation error for a 3-space run")
	}
}

func TestIndentAcceptsMultiplesOfFour(t *testing.T) {
	l := New("        return x\n")
	toks := l.Tokenize()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", l.Errors())
	}
	if toks[0].Type != token.INDENT || toks[0].Literal != "        " {
		t.Fatalf("expected an 8-space INDENT token, got %v", toks[0])
	}
}

func TestKeywordRequiresWordBoundary(t *testing.T) {
	toks := New("ifx").Tokenize()
	if toks[0].Type != token.IDENT || toks[0].Literal != "ifx" {
		t.Fatalf("expected ifx to lex as a single identifier, got %v", toks[0])
	}
}

func TestFloatRequiresDigitAfterDot(t *testing.T) {
	l := New("1.")
	l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected an error for a float literal with no digit after '.'")
	}
}

func TestCommentRequiresSingleSpace(t *testing.T) {
	l := New("#no space\n")
	l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected an error for a comment missing its single space")
	}
}

func TestStringLiteralMustCloseOnSameLine(t *testing.T) {
	l := New("\"unterminated\n")
	l.Tokenize()
	if len(l.Errors()) == 0 {
		t.Fatal("expected an unterminated string error")
	}
}

func TestOperatorsTokenizeAsSingleTokens(t *testing.T) {
	toks := New("== != >= <= = > <").Tokenize()
	want := []token.Type{
		token.EQ, token.SPACE, token.NOT_EQ, token.SPACE, token.GT_EQ, token.SPACE,
		token.LT_EQ, token.SPACE, token.ASSIGN, token.SPACE, token.GT, token.SPACE, token.LT, token.EOF,
	}
	got := typesOf(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}
