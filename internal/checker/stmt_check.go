package checker

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/types"
)

// functionState carries the per-function checking context: how deep in
// nested while loops the walk currently is (for break/continue, already
// enforced once by the parser but re-checked here for defense in depth),
// and the function's declared return type (nil for on_ functions and
// void helpers).
type functionState struct {
	checker    *Checker
	loopDepth  int
	returnType *types.Type
}

func (st *functionState) checkStatements(scope *symbolTable, stmts []ast.Statement) {
	for _, s := range stmts {
		st.checkStatement(scope, s)
	}
}

func (st *functionState) checkStatement(scope *symbolTable, s ast.Statement) {
	c := st.checker
	switch v := s.(type) {
	case *ast.EmptyLineStmt, *ast.CommentStmt:
		// nothing to check

	case *ast.AssignStmt:
		if v.Typed {
			rhs := c.checkExpr(scope, v.Value)
			if rhs.Kind != v.Type.Kind {
				c.fail(errors.KindType, v.Pos().Line, "%q declared as %s but assigned %s", v.Name, v.Type, rhs)
			}
			if !scope.define(v.Name, v.Type, false, false) {
				c.fail(errors.KindShadowing, v.Pos().Line, "%q shadows an existing binding", v.Name)
			}
			return
		}
		sym := scope.resolve(v.Name)
		if sym == nil {
			c.fail(errors.KindUndefined, v.Pos().Line, "assignment to undefined name %q", v.Name)
		}
		if sym.Name == "me" {
			c.fail(errors.KindType, v.Pos().Line, "\"me\" cannot be reassigned")
		}
		rhs := c.checkExpr(scope, v.Value)
		if rhs.Kind != sym.Type.Kind {
			c.fail(errors.KindType, v.Pos().Line, "%q has type %s, cannot assign %s", v.Name, sym.Type, rhs)
		}

	case *ast.CallStmt:
		c.checkCallExpr(scope, v.Call)

	case *ast.IfStmt:
		cond := c.checkExpr(scope, v.Cond)
		if cond.Kind != types.Bool {
			c.fail(errors.KindType, v.Cond.Pos().Line, "if condition must be bool, got %s", cond)
		}
		st.checkStatements(newSymbolTable(scope), v.Then)
		if v.Else != nil {
			st.checkStatements(newSymbolTable(scope), v.Else)
		}

	case *ast.WhileStmt:
		cond := c.checkExpr(scope, v.Cond)
		if cond.Kind != types.Bool {
			c.fail(errors.KindType, v.Cond.Pos().Line, "while condition must be bool, got %s", cond)
		}
		st.loopDepth++
		st.checkStatements(newSymbolTable(scope), v.Body)
		st.loopDepth--

	case *ast.BreakStmt:
		if st.loopDepth == 0 {
			c.fail(errors.KindType, v.Pos().Line, "break outside of a while loop")
		}

	case *ast.ContinueStmt:
		if st.loopDepth == 0 {
			c.fail(errors.KindType, v.Pos().Line, "continue outside of a while loop")
		}

	case *ast.ReturnStmt:
		if v.Value == nil {
			if st.returnType != nil {
				c.fail(errors.KindType, v.Pos().Line, "missing return value, expected %s", *st.returnType)
			}
			return
		}
		if st.returnType == nil {
			c.fail(errors.KindType, v.Pos().Line, "return with a value is not allowed here")
		}
		got := c.checkExpr(scope, v.Value)
		if got.Kind != st.returnType.Kind {
			c.fail(errors.KindType, v.Pos().Line, "return type %s does not match declared %s", got, *st.returnType)
		}
	}
}
