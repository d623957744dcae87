// Package ast defines the Abstract Syntax Tree node types for the grug
// mod language: the small literal/identifier/unary/binary/logical/call
// expression set, the closed statement set, and the three top-level unit
// kinds (global variable, on_ function, helper function) spec.md §3.2
// describes.
package ast

import (
	"bytes"
	"strings"

	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// Node is the base interface every AST node implements.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() token.Position
}

// Expression is any node that produces a value. Every Expression carries
// a ResultType once the checker has run; it is the zero Type before that.
type Expression interface {
	Node
	expressionNode()
	ResultType() types.Type
	SetResultType(types.Type)
}

// Statement performs an action but does not produce a value.
type Statement interface {
	Node
	statementNode()
}

// exprBase factors the position/result-type bookkeeping shared by every
// expression node. Position is exported so parser code outside this
// package can set it directly when constructing a node.
type exprBase struct {
	Position   token.Position
	resultType types.Type
}

func (e *exprBase) Pos() token.Position        { return e.Position }
func (e *exprBase) ResultType() types.Type     { return e.resultType }
func (e *exprBase) SetResultType(t types.Type) { e.resultType = t }
func (e *exprBase) expressionNode()            {}

// Program is the parsed root of one source file: its top-level units in
// source order (globals, then on_ functions, then helper functions —
// the parser enforces that ordering, see spec.md §4.2).
type Program struct {
	Globals   []*GlobalVarDecl
	OnFns     []*OnFnDecl
	HelperFns []*HelperFnDecl
}

func (p *Program) TokenLiteral() string { return "program" }
func (p *Program) Pos() token.Position {
	if len(p.Globals) > 0 {
		return p.Globals[0].Pos()
	}
	if len(p.OnFns) > 0 {
		return p.OnFns[0].Pos()
	}
	if len(p.HelperFns) > 0 {
		return p.HelperFns[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

func (p *Program) String() string {
	var out bytes.Buffer
	parts := make([]string, 0, len(p.Globals)+len(p.OnFns)+len(p.HelperFns))
	for _, g := range p.Globals {
		parts = append(parts, g.String())
	}
	for _, f := range p.OnFns {
		parts = append(parts, f.String())
	}
	for _, f := range p.HelperFns {
		parts = append(parts, f.String())
	}
	out.WriteString(strings.Join(parts, "\n\n"))
	return out.String()
}

// Identifier names a variable, parameter or function.
type Identifier struct {
	exprBase
	Tok  token.Token
	Name string
}

func (i *Identifier) TokenLiteral() string { return i.Tok.Literal }
func (i *Identifier) String() string       { return i.Name }

// Literal is a bool, i32, f32 or string constant. String literals may
// later be reclassified to Resource or Entity by the checker (spec.md
// §4.3); Reclassified records which, for the dumper and the codegen's
// resources/entities table.
type Literal struct {
	exprBase
	Tok            token.Token
	Kind           types.Kind // Bool, I32, F32 or String as written
	BoolValue      bool
	IntValue       int32
	FloatValue     float32
	StringValue    string
	Reclassified   types.Kind // Invalid, Resource or Entity
}

func (l *Literal) TokenLiteral() string { return l.Tok.Literal }
func (l *Literal) String() string {
	if l.Kind == types.String {
		return "\"" + l.StringValue + "\""
	}
	return l.Tok.Literal
}

// UnaryExpr is `-x` or `not x`.
type UnaryExpr struct {
	exprBase
	Op      token.Type
	Operand Expression
}

func (u *UnaryExpr) TokenLiteral() string { return u.Op.String() }
func (u *UnaryExpr) String() string {
	if u.Op == token.NOT {
		return "not " + u.Operand.String()
	}
	return "-" + u.Operand.String()
}

// BinaryExpr covers arithmetic, comparison and equality operators. Op is
// always exactly one of the binary token types; `and`/`or` use LogicalExpr
// instead so the checker and codegen can special-case short-circuiting.
type BinaryExpr struct {
	exprBase
	Left  Expression
	Op    token.Type
	Right Expression
}

func (b *BinaryExpr) TokenLiteral() string { return b.Op.String() }
func (b *BinaryExpr) String() string {
	return b.Left.String() + " " + b.Op.String() + " " + b.Right.String()
}

// LogicalExpr is `and`/`or`, which short-circuit.
type LogicalExpr struct {
	exprBase
	Left  Expression
	Op    token.Type
	Right Expression
}

func (l *LogicalExpr) TokenLiteral() string { return l.Op.String() }
func (l *LogicalExpr) String() string {
	return l.Left.String() + " " + l.Op.String() + " " + l.Right.String()
}

// CallExpr is `name(args...)`, either a helper function or a game
// function declared in the manifest.
type CallExpr struct {
	exprBase
	Callee *Identifier
	Args   []Expression
}

func (c *CallExpr) TokenLiteral() string { return c.Callee.Name }
func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Callee.Name + "(" + strings.Join(args, ", ") + ")"
}

// ParenExpr is an explicitly parenthesized sub-expression, kept as its
// own node (rather than folded away) so dump(parse(s)) == s holds.
type ParenExpr struct {
	exprBase
	Inner Expression
}

func (p *ParenExpr) TokenLiteral() string { return "(" }
func (p *ParenExpr) String() string       { return "(" + p.Inner.String() + ")" }
