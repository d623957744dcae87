// Package parser turns a grug token stream into an *ast.Program by
// recursive descent, with a Pratt/precedence-climbing expression parser
// and explicit enforcement of the language's layout rules (spec.md
// §4.1, §4.2): single spaces around binary operators, four-space
// indentation per block depth, same-line opening braces, and a blank
// line between every pair of top-level units.
package parser

import "github.com/grugscript/grug/internal/token"

// cursor is a read-only, backtrackable view over a token slice. It never
// mutates the underlying slice, so Save/Restore is just an index swap.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	return &cursor{toks: toks}
}

// peek returns the token offset tokens ahead of the cursor without
// consuming it. peek(0) is the next token that next() would return.
func (c *cursor) peek(offset int) token.Token {
	i := c.pos + offset
	if i < 0 || i >= len(c.toks) {
		return c.toks[len(c.toks)-1] // EOF is always last
	}
	return c.toks[i]
}

func (c *cursor) next() token.Token {
	t := c.peek(0)
	if c.pos < len(c.toks)-1 {
		c.pos++
	}
	return t
}

func (c *cursor) atEOF() bool {
	return c.peek(0).Type == token.EOF
}

// mark/reset implement the backtracking the declaration-ordering checks
// need: tentatively parse ahead, then rewind if it turns out to be the
// wrong production.
func (c *cursor) mark() int        { return c.pos }
func (c *cursor) reset(mark int)   { c.pos = mark }
