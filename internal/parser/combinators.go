package parser

import "github.com/grugscript/grug/internal/token"

// is reports whether the next token has type tt, without consuming it.
func (p *Parser) is(tt token.Type) bool {
	return p.c.peek(0).Type == tt
}

// accept consumes and returns the next token if it has type tt.
func (p *Parser) accept(tt token.Type) (token.Token, bool) {
	if p.is(tt) {
		return p.c.next(), true
	}
	return token.Token{}, false
}

// expect consumes the next token, raising a syntax error if it is not
// of type tt.
func (p *Parser) expect(tt token.Type) token.Token {
	if p.is(tt) {
		return p.c.next()
	}
	got := p.c.peek(0)
	p.fail(got.Pos.Line, "expected %s, got %s %q", tt, got.Type, got.Literal)
	return got
}

// expectSpace consumes exactly one SPACE token. Two SPACE tokens in a
// row, or none at all, are both layout errors (spec.md §4.1: "exactly
// one space" around binary operators and between statement keywords and
// their operands).
func (p *Parser) expectSpace() {
	if !p.is(token.SPACE) {
		got := p.c.peek(0)
		p.failWhitespace(got.Pos.Line, "expected exactly one space, found none")
		return
	}
	p.c.next()
	if p.is(token.SPACE) {
		got := p.c.peek(0)
		p.failWhitespace(got.Pos.Line, "expected exactly one space, found two or more")
	}
}

// skipOptionalSpace consumes a single SPACE token if present; used
// before the opening '{' of a function body or an if/while block.
func (p *Parser) skipOptionalSpace() {
	p.accept(token.SPACE)
}

// expectNewline consumes the statement-terminating NEWLINE.
func (p *Parser) expectNewline() {
	p.expect(token.NEWLINE)
}

// expectIndent consumes an INDENT token matching the current depth.
func (p *Parser) expectIndent() {
	if !p.is(token.INDENT) {
		if p.ctx.depth == 0 {
			return
		}
		got := p.c.peek(0)
		p.failWhitespace(got.Pos.Line, "expected indentation at depth %d", p.ctx.depth)
		return
	}
	tok := p.c.next()
	want := p.ctx.depth * 4
	if len(tok.Literal) != want {
		p.failWhitespace(tok.Pos.Line, "expected %d spaces of indentation, got %d", want, len(tok.Literal))
	}
}
