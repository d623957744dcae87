package ast

import (
	"strings"

	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

type stmtBase struct {
	Position token.Position
}

func (s *stmtBase) Pos() token.Position { return s.Position }
func (s *stmtBase) statementNode()      {}

// AssignStmt covers both the typed form (`name: type = expr`, legal only
// for a fresh local or a global declaration) and the untyped form
// (`name = expr`, assignment to an existing binding).
type AssignStmt struct {
	stmtBase
	Name    string
	Typed   bool
	Type    types.Type
	Value   Expression
}

func (a *AssignStmt) TokenLiteral() string { return a.Name }
func (a *AssignStmt) String() string {
	if a.Typed {
		return a.Name + ": " + a.Type.String() + " = " + a.Value.String()
	}
	return a.Name + " = " + a.Value.String()
}

// CallStmt is a call expression used as a statement (its result, if any,
// is discarded).
type CallStmt struct {
	stmtBase
	Call *CallExpr
}

func (c *CallStmt) TokenLiteral() string { return c.Call.Callee.Name }
func (c *CallStmt) String() string       { return c.Call.String() }

// IfStmt represents `if cond { ... }` with an optional `else { ... }` or
// `else if ...` chain (Else is nil, or a single-statement block holding
// another IfStmt, or an ordinary block).
type IfStmt struct {
	stmtBase
	Cond Expression
	Then []Statement
	Else []Statement // nil if there is no else branch
}

func (s *IfStmt) TokenLiteral() string { return "if" }
func (s *IfStmt) String() string {
	var b strings.Builder
	b.WriteString("if " + s.Cond.String() + " {\n")
	writeBlock(&b, s.Then)
	b.WriteString("}")
	if s.Else != nil {
		b.WriteString(" else {\n")
		writeBlock(&b, s.Else)
		b.WriteString("}")
	}
	return b.String()
}

// ReturnStmt is `return` or `return expr`.
type ReturnStmt struct {
	stmtBase
	Value Expression // nil for a bare `return`
}

func (r *ReturnStmt) TokenLiteral() string { return "return" }
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

// WhileStmt is `while cond { ... }`.
type WhileStmt struct {
	stmtBase
	Cond Expression
	Body []Statement
}

func (w *WhileStmt) TokenLiteral() string { return "while" }
func (w *WhileStmt) String() string {
	var b strings.Builder
	b.WriteString("while " + w.Cond.String() + " {\n")
	writeBlock(&b, w.Body)
	b.WriteString("}")
	return b.String()
}

// BreakStmt is `break`.
type BreakStmt struct{ stmtBase }

func (b *BreakStmt) TokenLiteral() string { return "break" }
func (b *BreakStmt) String() string       { return "break" }

// ContinueStmt is `continue`.
type ContinueStmt struct{ stmtBase }

func (c *ContinueStmt) TokenLiteral() string { return "continue" }
func (c *ContinueStmt) String() string       { return "continue" }

// EmptyLineStmt is a blank line, retained so the AST can be dumped back
// to source text byte-for-byte (spec.md §3.2, the round-trip law of
// spec.md §8).
type EmptyLineStmt struct{ stmtBase }

func (e *EmptyLineStmt) TokenLiteral() string { return "" }
func (e *EmptyLineStmt) String() string       { return "" }

// CommentStmt is a retained `# comment` line.
type CommentStmt struct {
	stmtBase
	Text string
}

func (c *CommentStmt) TokenLiteral() string { return "#" }
func (c *CommentStmt) String() string       { return "# " + c.Text }

func writeBlock(b *strings.Builder, stmts []Statement) {
	for _, s := range stmts {
		b.WriteString(s.String())
		b.WriteString("\n")
	}
}
