package parser

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/lexer"
	"github.com/grugscript/grug/internal/token"
)

// parseAbort unwinds the recursive descent to ParseProgram on the first
// syntax or layout error. grug's public API only ever surfaces the first
// compile error for a file (spec.md §7), so there is no value in the
// teacher pipeline's synchronize-and-continue recovery here: one error
// object, raised once, is the whole contract.
type parseAbort struct{ err *errors.CompilerError }

// Parser parses one grug source file into an *ast.Program.
type Parser struct {
	c    *cursor
	ctx  blockContext
	path string
	src  string
}

// New creates a Parser over src, identified as path for error messages.
func New(src, path string) *Parser {
	toks := lexer.New(src).Tokenize()
	return &Parser{
		c:    newCursor(toks),
		path: path,
		src:  src,
	}
}

func (p *Parser) fail(line int, format string, args ...any) {
	panic(parseAbort{err: p.newError(errors.KindSyntax, line, format, args...)})
}

func (p *Parser) failWhitespace(line int, format string, args ...any) {
	panic(parseAbort{err: p.newError(errors.KindWhitespace, line, format, args...)})
}

func (p *Parser) newError(kind errors.Kind, line int, format string, args ...any) *errors.CompilerError {
	e := errors.New(kind, p.path, line, format, args...)
	e.Source = p.src
	if col := p.columnAt(line); col > 0 {
		e.Column = col
	}
	return e
}

// columnAt finds the column of the current cursor token if it sits on
// line, used so a newly constructed error points at the offending token
// rather than column 0.
func (p *Parser) columnAt(line int) int {
	t := p.c.peek(0)
	if t.Pos.Line == line {
		return t.Pos.Column
	}
	return 0
}

// ParseProgram parses the whole token stream into an *ast.Program,
// enforcing that every source file is globals, then on_ functions, then
// helper functions, in that order (spec.md §3.2, §4.2), with a blank
// line required between every pair of consecutive top-level units.
func (p *Parser) ParseProgram() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(parseAbort)
			if !ok {
				panic(r)
			}
			err = abort.err
		}
	}()

	prog = &ast.Program{}

	stage := stageGlobals
	first := true
	for !p.c.atEOF() {
		if !first {
			p.requireBlankLineBetweenUnits()
		}
		first = false

		switch {
		case p.is(token.IDENT) && p.peekIsGlobalDecl():
			if stage > stageGlobals {
				p.fail(p.c.peek(0).Pos.Line, "global variable declarations must come before on_ and helper functions")
			}
			prog.Globals = append(prog.Globals, p.parseGlobalVarDecl())
		case p.is(token.IDENT) && isOnFnName(p.c.peek(0).Literal):
			if stage > stageOnFns {
				p.fail(p.c.peek(0).Pos.Line, "on_ function declarations must come before helper functions")
			}
			stage = stageOnFns
			prog.OnFns = append(prog.OnFns, p.parseOnFnDecl())
		case p.is(token.IDENT):
			stage = stageHelpers
			fn := p.parseHelperFnDecl()
			prog.HelperFns = append(prog.HelperFns, fn)
		default:
			got := p.c.peek(0)
			p.fail(got.Pos.Line, "expected a declaration, got %s %q", got.Type, got.Literal)
		}
	}

	p.checkHelperForwardRefs(prog.HelperFns)

	return prog, nil
}

const (
	stageGlobals = iota
	stageOnFns
	stageHelpers
)

func isOnFnName(name string) bool {
	return len(name) > 3 && name[:3] == "on_"
}

// peekIsGlobalDecl looks ahead from an IDENT to see whether it begins a
// `name: type = expr` global declaration (as opposed to a function
// declaration `name(...)`), without consuming any tokens.
func (p *Parser) peekIsGlobalDecl() bool {
	return p.c.peek(1).Type == token.COLON
}

// requireBlankLineBetweenUnits enforces spec.md §4.2's "exactly one
// blank line separates every pair of top-level units" rule: the previous
// unit's closing NEWLINE must be followed by a second, otherwise-empty
// NEWLINE before the next declaration starts.
func (p *Parser) requireBlankLineBetweenUnits() {
	if !p.is(token.NEWLINE) {
		got := p.c.peek(0)
		p.failWhitespace(got.Pos.Line, "expected a blank line between top-level declarations")
		return
	}
	p.c.next()
}
