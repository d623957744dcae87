package parser

import (
	"strconv"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// precedence is a marker type only; grug's grammar is unambiguous enough
// that each level gets its own function rather than a table-driven Pratt
// loop (spec.md §4.2: or < and < equality < comparison < term < factor <
// unary < call < primary).
type precedence int

const precLowest precedence = 0

// maxExprDepth bounds recursive descent into nested parenthesized or
// call-argument expressions, matching the codegen's expression-stack
// depth limit (spec.md §4.2, §7 KindArenaExhausted).
const maxExprDepth = 100

func (p *Parser) parseExpression(_ precedence) ast.Expression {
	return p.parseExpressionDepth(0)
}

func (p *Parser) parseExpressionDepth(depth int) ast.Expression {
	if depth > maxExprDepth {
		p.fail(p.c.peek(0).Pos.Line, "expression nested too deeply (max depth %d)", maxExprDepth)
	}
	return p.parseOr(depth)
}

// binaryOpAt reports the operator token type if the cursor is currently
// sitting on " <op> " (a single space, one of wantedOps, a single
// space), without consuming anything. Returns (ILLEGAL, false) otherwise.
func (p *Parser) binaryOpAt(wantedOps ...token.Type) (token.Type, bool) {
	if p.c.peek(0).Type != token.SPACE {
		return token.ILLEGAL, false
	}
	op := p.c.peek(1).Type
	for _, want := range wantedOps {
		if op == want {
			return op, true
		}
	}
	return token.ILLEGAL, false
}

func (p *Parser) consumeBinaryOp() token.Type {
	p.c.next() // space before
	op := p.c.next().Type
	p.expectSpace()
	return op
}

func (p *Parser) parseOr(depth int) ast.Expression {
	left := p.parseAnd(depth)
	for {
		if _, ok := p.binaryOpAt(token.OR); !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseAnd(depth)
		e := &ast.LogicalExpr{Left: left, Op: token.OR, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

func (p *Parser) parseAnd(depth int) ast.Expression {
	left := p.parseEquality(depth)
	for {
		if _, ok := p.binaryOpAt(token.AND); !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseEquality(depth)
		e := &ast.LogicalExpr{Left: left, Op: token.AND, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

func (p *Parser) parseEquality(depth int) ast.Expression {
	left := p.parseComparison(depth)
	for {
		op, ok := p.binaryOpAt(token.EQ, token.NOT_EQ)
		if !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseComparison(depth)
		e := &ast.BinaryExpr{Left: left, Op: op, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

func (p *Parser) parseComparison(depth int) ast.Expression {
	left := p.parseTerm(depth)
	for {
		op, ok := p.binaryOpAt(token.GT, token.GT_EQ, token.LT, token.LT_EQ)
		if !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseTerm(depth)
		e := &ast.BinaryExpr{Left: left, Op: op, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

func (p *Parser) parseTerm(depth int) ast.Expression {
	left := p.parseFactor(depth)
	for {
		op, ok := p.binaryOpAt(token.PLUS, token.MINUS)
		if !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseFactor(depth)
		e := &ast.BinaryExpr{Left: left, Op: op, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

func (p *Parser) parseFactor(depth int) ast.Expression {
	left := p.parseUnary(depth)
	for {
		op, ok := p.binaryOpAt(token.STAR, token.SLASH, token.PERCENT)
		if !ok {
			return left
		}
		p.consumeBinaryOp()
		right := p.parseUnary(depth)
		e := &ast.BinaryExpr{Left: left, Op: op, Right: right}
		e.Position = left.Pos()
		left = e
	}
}

// parseUnary parses `-x` and `not x`. Unlike binary operators, a unary
// `-` attaches directly to its operand with no space (spec.md §4.2).
func (p *Parser) parseUnary(depth int) ast.Expression {
	if p.is(token.MINUS) {
		tok := p.c.next()
		operand := p.parseUnary(depth)
		e := &ast.UnaryExpr{Op: token.MINUS, Operand: operand}
		e.Position = tok.Pos
		return e
	}
	if p.is(token.NOT) {
		tok := p.c.next()
		p.expectSpace()
		operand := p.parseUnary(depth)
		e := &ast.UnaryExpr{Op: token.NOT, Operand: operand}
		e.Position = tok.Pos
		return e
	}
	return p.parseCallOrPrimary(depth)
}

func (p *Parser) parseCallOrPrimary(depth int) ast.Expression {
	if p.is(token.IDENT) && p.c.peek(1).Type == token.LPAREN {
		nameTok := p.c.next()
		return p.parseCallExprFrom(nameTok, depth)
	}
	return p.parsePrimary(depth)
}

func (p *Parser) parseCallExprFrom(nameTok token.Token, depth ...int) *ast.CallExpr {
	d := 0
	if len(depth) > 0 {
		d = depth[0]
	}
	callee := &ast.Identifier{Tok: nameTok, Name: nameTok.Literal}
	callee.Position = nameTok.Pos

	p.expect(token.LPAREN)
	var args []ast.Expression
	if !p.is(token.RPAREN) {
		for {
			args = append(args, p.parseExpressionDepth(d+1))
			if p.is(token.COMMA) {
				p.c.next()
				p.expectSpace()
				continue
			}
			break
		}
	}
	p.expect(token.RPAREN)

	e := &ast.CallExpr{Callee: callee, Args: args}
	e.Position = nameTok.Pos
	return e
}

func (p *Parser) parsePrimary(depth int) ast.Expression {
	tok := p.c.peek(0)
	switch tok.Type {
	case token.LPAREN:
		p.c.next()
		inner := p.parseExpressionDepth(depth + 1)
		p.expect(token.RPAREN)
		e := &ast.ParenExpr{Inner: inner}
		e.Position = tok.Pos
		return e
	case token.IDENT:
		p.c.next()
		e := &ast.Identifier{Tok: tok, Name: tok.Literal}
		e.Position = tok.Pos
		return e
	case token.INT:
		p.c.next()
		n, err := strconv.ParseInt(tok.Literal, 10, 32)
		if err != nil {
			p.fail(tok.Pos.Line, "invalid integer literal %q: %v", tok.Literal, err)
		}
		e := &ast.Literal{Tok: tok, Kind: types.I32, IntValue: int32(n)}
		e.Position = tok.Pos
		return e
	case token.FLOAT:
		p.c.next()
		f, err := strconv.ParseFloat(tok.Literal, 32)
		if err != nil {
			p.fail(tok.Pos.Line, "invalid float literal %q: %v", tok.Literal, err)
		}
		e := &ast.Literal{Tok: tok, Kind: types.F32, FloatValue: float32(f)}
		e.Position = tok.Pos
		return e
	case token.STRING:
		p.c.next()
		e := &ast.Literal{Tok: tok, Kind: types.String, StringValue: tok.Literal}
		e.Position = tok.Pos
		return e
	case token.TRUE:
		p.c.next()
		e := &ast.Literal{Tok: tok, Kind: types.Bool, BoolValue: true}
		e.Position = tok.Pos
		return e
	case token.FALSE:
		p.c.next()
		e := &ast.Literal{Tok: tok, Kind: types.Bool, BoolValue: false}
		e.Position = tok.Pos
		return e
	default:
		p.fail(tok.Pos.Line, "expected an expression, got %s %q", tok.Type, tok.Literal)
		return nil
	}
}
