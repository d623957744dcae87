package parser

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/token"
)

// atBlockEnd reports whether the upcoming line is the current block's
// closing brace rather than another statement, without consuming
// anything. A statement line always starts with an INDENT (or nothing,
// at depth 0) followed by a statement-starting token; RBRACE can only
// appear there as the block terminator.
func (p *Parser) atBlockEnd() bool {
	idx := 0
	if p.c.peek(idx).Type == token.INDENT {
		idx++
	}
	return p.c.peek(idx).Type == token.RBRACE
}

// parseStatementList parses the body of a block already past its
// opening `{` and NEWLINE, up to (but not consuming) the closing brace's
// line. ctx.depth must already reflect the body's nesting level.
func (p *Parser) parseStatementList() []ast.Statement {
	var stmts []ast.Statement
	for !p.atBlockEnd() {
		if p.is(token.NEWLINE) {
			pos := p.c.peek(0).Pos
			p.c.next()
			s := &ast.EmptyLineStmt{}
			s.Position = pos
			stmts = append(stmts, s)
			continue
		}
		p.expectIndent()
		if p.is(token.COMMENT) {
			tok := p.c.next()
			p.expectNewline()
			s := &ast.CommentStmt{Text: tok.Literal}
			s.Position = tok.Pos
			stmts = append(stmts, s)
			continue
		}
		stmts = append(stmts, p.parseStatement())
	}
	return stmts
}

// parseStatement parses one statement, including its trailing NEWLINE.
// The caller has already consumed the statement's leading INDENT.
func (p *Parser) parseStatement() ast.Statement {
	tok := p.c.peek(0)
	switch tok.Type {
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		p.c.next()
		p.expectNewline()
		s := &ast.BreakStmt{}
		s.Position = tok.Pos
		if !p.ctx.inLoop() {
			p.fail(tok.Pos.Line, "break outside of a while loop")
		}
		return s
	case token.CONTINUE:
		p.c.next()
		p.expectNewline()
		s := &ast.ContinueStmt{}
		s.Position = tok.Pos
		if !p.ctx.inLoop() {
			p.fail(tok.Pos.Line, "continue outside of a while loop")
		}
		return s
	case token.IDENT:
		return p.parseIdentStatement()
	default:
		p.fail(tok.Pos.Line, "expected a statement, got %s %q", tok.Type, tok.Literal)
		return nil
	}
}

// parseIdentStatement disambiguates between an assignment
// (`name = expr` or `name: type = expr`) and a call statement
// (`name(args...)`) by looking one token ahead.
func (p *Parser) parseIdentStatement() ast.Statement {
	nameTok := p.expect(token.IDENT)
	switch {
	case p.is(token.COLON):
		p.c.next()
		p.expectSpace()
		typ := p.parseTypeName()
		p.expectSpace()
		p.expect(token.ASSIGN)
		p.expectSpace()
		value := p.parseExpression(precLowest)
		p.expectNewline()
		s := &ast.AssignStmt{Name: nameTok.Literal, Typed: true, Type: typ, Value: value}
		s.Position = nameTok.Pos
		return s
	case p.is(token.SPACE) && p.c.peek(1).Type == token.ASSIGN:
		p.c.next() // space
		p.c.next() // '='
		p.expectSpace()
		value := p.parseExpression(precLowest)
		p.expectNewline()
		s := &ast.AssignStmt{Name: nameTok.Literal, Value: value}
		s.Position = nameTok.Pos
		return s
	case p.is(token.LPAREN):
		call := p.parseCallExprFrom(nameTok)
		p.expectNewline()
		s := &ast.CallStmt{Call: call}
		s.Position = nameTok.Pos
		return s
	default:
		got := p.c.peek(0)
		p.fail(got.Pos.Line, "expected ':', '=' or '(' after identifier %q, got %s", nameTok.Literal, got.Type)
		return nil
	}
}

// parseBlock parses `{` NEWLINE <statements> <indent> `}` for a fresh
// nesting level, leaving the trailing NEWLINE after the closing brace
// unconsumed so callers that chain onto `else` can look ahead first.
func (p *Parser) parseBlock() []ast.Statement {
	p.expect(token.LBRACE)
	p.expectNewline()
	p.ctx.enter()
	body := p.parseStatementList()
	p.ctx.leave()
	p.expectIndent()
	p.expect(token.RBRACE)
	return body
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	ifTok := p.expect(token.IF)
	p.expectSpace()
	cond := p.parseExpression(precLowest)
	p.skipOptionalSpace()
	then := p.parseBlock()

	s := &ast.IfStmt{Cond: cond, Then: then}
	s.Position = ifTok.Pos

	if p.is(token.SPACE) && p.c.peek(1).Type == token.ELSE {
		p.c.next() // space
		p.c.next() // else
		p.expectSpace()
		if p.is(token.IF) {
			s.Else = []ast.Statement{p.parseIfStmt()}
			return s
		}
		s.Else = p.parseBlock()
	}
	p.expectNewline()
	return s
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	whileTok := p.expect(token.WHILE)
	p.expectSpace()
	cond := p.parseExpression(precLowest)
	p.skipOptionalSpace()

	p.ctx.enterLoop()
	body := p.parseBlock()
	p.ctx.leaveLoop()

	p.expectNewline()

	s := &ast.WhileStmt{Cond: cond, Body: body}
	s.Position = whileTok.Pos
	return s
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	retTok := p.expect(token.RETURN)
	s := &ast.ReturnStmt{}
	s.Position = retTok.Pos
	if p.is(token.SPACE) {
		p.c.next()
		s.Value = p.parseExpression(precLowest)
	}
	p.expectNewline()
	return s
}
