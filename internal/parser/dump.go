package parser

import (
	"strings"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// Dump renders prog back to grug source text. For a program that parsed
// without error, Dump(Parse(src)) reproduces src exactly (spec.md §8's
// round-trip law). Unlike ast.Node.String(), which renders a node in
// isolation for debugging, the dumper tracks block depth itself so
// indentation comes out right for arbitrarily nested blocks.
func Dump(prog *ast.Program) string {
	var b strings.Builder
	first := true
	writeUnit := func(s string) {
		if !first {
			b.WriteString("\n\n")
		}
		first = false
		b.WriteString(s)
	}
	for _, g := range prog.Globals {
		writeUnit(dumpGlobal(g))
	}
	for _, f := range prog.OnFns {
		writeUnit(dumpOnFn(f))
	}
	for _, f := range prog.HelperFns {
		writeUnit(dumpHelperFn(f))
	}
	b.WriteString("\n")
	return b.String()
}

func dumpGlobal(g *ast.GlobalVarDecl) string {
	return g.Name + ": " + g.Type.String() + " = " + dumpExpr(g.Value)
}

func dumpOnFn(f *ast.OnFnDecl) string {
	var b strings.Builder
	b.WriteString(f.Name + "(" + dumpParams(f.Params) + ") {\n")
	dumpStatements(&b, f.Body, 1)
	b.WriteString("}")
	return b.String()
}

func dumpHelperFn(f *ast.HelperFnDecl) string {
	var b strings.Builder
	b.WriteString(f.Name + "(" + dumpParams(f.Params) + ")")
	if f.ReturnType != nil {
		b.WriteString(" " + f.ReturnType.String())
	}
	b.WriteString(" {\n")
	dumpStatements(&b, f.Body, 1)
	b.WriteString("}")
	return b.String()
}

func dumpParams(params []ast.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Type.String()
	}
	return strings.Join(parts, ", ")
}

func dumpStatements(b *strings.Builder, stmts []ast.Statement, depth int) {
	indent := strings.Repeat(" ", depth*4)
	for _, s := range stmts {
		switch v := s.(type) {
		case *ast.EmptyLineStmt:
			b.WriteString("\n")
		case *ast.CommentStmt:
			b.WriteString(indent + "# " + v.Text + "\n")
		case *ast.AssignStmt:
			b.WriteString(indent + dumpAssign(v) + "\n")
		case *ast.CallStmt:
			b.WriteString(indent + dumpExpr(v.Call) + "\n")
		case *ast.ReturnStmt:
			if v.Value == nil {
				b.WriteString(indent + "return\n")
			} else {
				b.WriteString(indent + "return " + dumpExpr(v.Value) + "\n")
			}
		case *ast.BreakStmt:
			b.WriteString(indent + "break\n")
		case *ast.ContinueStmt:
			b.WriteString(indent + "continue\n")
		case *ast.WhileStmt:
			b.WriteString(indent + "while " + dumpExpr(v.Cond) + " {\n")
			dumpStatements(b, v.Body, depth+1)
			b.WriteString(indent + "}\n")
		case *ast.IfStmt:
			dumpIf(b, v, depth)
		}
	}
}

func dumpIf(b *strings.Builder, s *ast.IfStmt, depth int) {
	indent := strings.Repeat(" ", depth*4)
	b.WriteString(indent + "if " + dumpExpr(s.Cond) + " {\n")
	dumpStatements(b, s.Then, depth+1)
	b.WriteString(indent + "}")
	switch {
	case len(s.Else) == 1:
		if elseIf, ok := s.Else[0].(*ast.IfStmt); ok {
			b.WriteString(" else ")
			dumpIfInline(b, elseIf, depth)
			return
		}
		fallthrough
	case s.Else != nil:
		b.WriteString(" else {\n")
		dumpStatements(b, s.Else, depth+1)
		b.WriteString(indent + "}")
	}
	b.WriteString("\n")
}

// dumpIfInline renders an `else if` chain without the leading indent
// (it continues the previous line) and without its own trailing newline
// (the enclosing dumpIf call owns that).
func dumpIfInline(b *strings.Builder, s *ast.IfStmt, depth int) {
	indent := strings.Repeat(" ", depth*4)
	b.WriteString("if " + dumpExpr(s.Cond) + " {\n")
	dumpStatements(b, s.Then, depth+1)
	b.WriteString(indent + "}")
	if len(s.Else) == 1 {
		if elseIf, ok := s.Else[0].(*ast.IfStmt); ok {
			b.WriteString(" else ")
			dumpIfInline(b, elseIf, depth)
			return
		}
	}
	if s.Else != nil {
		b.WriteString(" else {\n")
		dumpStatements(b, s.Else, depth+1)
		b.WriteString(indent + "}")
	}
	b.WriteString("\n")
}

func dumpAssign(a *ast.AssignStmt) string {
	if a.Typed {
		return a.Name + ": " + a.Type.String() + " = " + dumpExpr(a.Value)
	}
	return a.Name + " = " + dumpExpr(a.Value)
}

func dumpExpr(e ast.Expression) string {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Name
	case *ast.Literal:
		return dumpLiteral(v)
	case *ast.UnaryExpr:
		if v.Op == token.NOT {
			return "not " + dumpExpr(v.Operand)
		}
		return "-" + dumpExpr(v.Operand)
	case *ast.BinaryExpr:
		return dumpExpr(v.Left) + " " + v.Op.String() + " " + dumpExpr(v.Right)
	case *ast.LogicalExpr:
		return dumpExpr(v.Left) + " " + v.Op.String() + " " + dumpExpr(v.Right)
	case *ast.CallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = dumpExpr(a)
		}
		return v.Callee.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.ParenExpr:
		return "(" + dumpExpr(v.Inner) + ")"
	default:
		return ""
	}
}

func dumpLiteral(l *ast.Literal) string {
	if l.Kind == types.String {
		return "\"" + l.StringValue + "\""
	}
	return l.Tok.Literal
}
