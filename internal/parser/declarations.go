package parser

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// parseGlobalVarDecl parses `name: type = expr`. The parser does not
// reject a non-constant initializer expression here (calls, `me`); that
// is the checker's job (spec.md §4.3), since it requires knowing which
// identifiers name functions versus variables.
func (p *Parser) parseGlobalVarDecl() *ast.GlobalVarDecl {
	nameTok := p.expect(token.IDENT)
	p.expect(token.COLON)
	p.expectSpace()
	typ := p.parseTypeName()
	p.expectSpace()
	p.expect(token.ASSIGN)
	p.expectSpace()
	value := p.parseExpression(precLowest)
	p.expectNewline()

	g := &ast.GlobalVarDecl{Name: nameTok.Literal, Type: typ, Value: value}
	g.Position = nameTok.Pos
	return g
}

func (p *Parser) parseTypeName() types.Type {
	tok := p.expect(token.IDENT)
	switch tok.Literal {
	case "bool":
		return types.TBool
	case "i32":
		return types.TI32
	case "f32":
		return types.TF32
	case "string":
		return types.TStr
	case "id":
		return types.TId("")
	default:
		p.fail(tok.Pos.Line, "unknown type %q", tok.Literal)
		return types.Type{}
	}
}

// parseOnFnDecl parses `on_name(params...) {` followed by an indented
// body and a closing `}` on its own line (spec.md §4.2: the opening
// brace shares the signature's line, the closing brace is alone on its
// own line at the enclosing depth).
func (p *Parser) parseOnFnDecl() *ast.OnFnDecl {
	nameTok := p.expect(token.IDENT)
	params := p.parseParamList()
	p.skipOptionalSpace()
	body := p.parseBlock()
	p.expectNewline()

	return &ast.OnFnDecl{
		Position: nameTok.Pos,
		Name:     nameTok.Literal,
		Params:   params,
		Body:     body,
	}
}

// parseHelperFnDecl parses `helper_name(params...) [type] {`. Forward
// references to a helper declared later in the file are rejected once
// the whole file has been parsed, by checkHelperForwardRefs; self-
// recursion is allowed.
func (p *Parser) parseHelperFnDecl() *ast.HelperFnDecl {
	nameTok := p.expect(token.IDENT)
	params := p.parseParamList()

	var retType *types.Type
	if p.is(token.SPACE) && p.c.peek(1).Type == token.IDENT {
		p.c.next()
		t := p.parseTypeName()
		retType = &t
	}

	p.skipOptionalSpace()
	body := p.parseBlock()
	p.expectNewline()

	return &ast.HelperFnDecl{
		Position:   nameTok.Pos,
		Name:       nameTok.Literal,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}
}

// parseParamList parses `(name: type, name: type)`.
func (p *Parser) parseParamList() []ast.Param {
	p.expect(token.LPAREN)
	var params []ast.Param
	if p.is(token.RPAREN) {
		p.c.next()
		return params
	}
	for {
		nameTok := p.expect(token.IDENT)
		p.expect(token.COLON)
		p.expectSpace()
		typ := p.parseTypeName()
		params = append(params, ast.Param{Name: nameTok.Literal, Type: typ})

		if p.is(token.COMMA) {
			p.c.next()
			p.expectSpace()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return params
}
