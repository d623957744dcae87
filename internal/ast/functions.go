package ast

import (
	"strings"

	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// Param is one parameter of an on_ function or helper function.
type Param struct {
	Name string
	Type types.Type
}

// GlobalVarDecl is a top-level `name: type = expr` declaration. The
// initializer must be a constant expression: it may not call a helper or
// on_ function and may not reference `me` (spec.md §3.2).
type GlobalVarDecl struct {
	stmtBase
	Name   string
	Type   types.Type
	Value  Expression
	Offset int // byte offset within the globals block, set by codegen
}

func (g *GlobalVarDecl) TokenLiteral() string { return g.Name }
func (g *GlobalVarDecl) String() string {
	return g.Name + ": " + g.Type.String() + " = " + g.Value.String()
}

// OnFnDecl is an `on_` event handler definition.
type OnFnDecl struct {
	Position token.Position
	Name     string
	Params   []Param
	Body     []Statement
}

func (f *OnFnDecl) TokenLiteral() string { return f.Name }
func (f *OnFnDecl) Pos() token.Position  { return f.Position }
func (f *OnFnDecl) String() string {
	var b strings.Builder
	b.WriteString(f.Name + "(" + paramList(f.Params) + ") {\n")
	writeBlock(&b, f.Body)
	b.WriteString("}")
	return b.String()
}

// HelperFnDecl is a `helper_` function: internally callable, emitted in
// both safe and fast variants (spec.md §4.4).
type HelperFnDecl struct {
	Position   token.Position
	Name       string
	Params     []Param
	ReturnType *types.Type // nil for a void helper
	Body       []Statement
}

func (f *HelperFnDecl) TokenLiteral() string { return f.Name }
func (f *HelperFnDecl) Pos() token.Position  { return f.Position }
func (f *HelperFnDecl) String() string {
	var b strings.Builder
	b.WriteString(f.Name + "(" + paramList(f.Params) + ")")
	if f.ReturnType != nil {
		b.WriteString(" " + f.ReturnType.String())
	}
	b.WriteString(" {\n")
	writeBlock(&b, f.Body)
	b.WriteString("}")
	return b.String()
}

func paramList(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Type.String()
	}
	return strings.Join(parts, ", ")
}
