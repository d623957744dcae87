package parser

import "github.com/grugscript/grug/internal/ast"

// checkHelperForwardRefs rejects a helper function that calls another
// helper declared later in the same file. Self-recursion is allowed; a
// call to a name the manifest defines as a game function, or to a name
// that is not a helper at all, is left for the checker to resolve
// (spec.md §4.3) since the parser has no manifest in scope.
func (p *Parser) checkHelperForwardRefs(helpers []*ast.HelperFnDecl) {
	declaredBefore := map[string]bool{}
	for _, fn := range helpers {
		selfAndEarlier := map[string]bool{fn.Name: true}
		for name := range declaredBefore {
			selfAndEarlier[name] = true
		}
		for _, call := range collectCalls(fn.Body) {
			name := call.Callee.Name
			if selfAndEarlier[name] {
				continue
			}
			if isLaterHelper(helpers, fn.Name, name) {
				p.fail(call.Pos().Line, "helper %q calls %q, which is declared later in the file", fn.Name, name)
			}
		}
		declaredBefore[fn.Name] = true
	}
}

func isLaterHelper(helpers []*ast.HelperFnDecl, caller, callee string) bool {
	seenCaller := false
	for _, fn := range helpers {
		if fn.Name == caller {
			seenCaller = true
			continue
		}
		if seenCaller && fn.Name == callee {
			return true
		}
	}
	return false
}

// collectCalls walks every expression reachable from stmts and returns
// the call expressions it finds, in source order.
func collectCalls(stmts []ast.Statement) []*ast.CallExpr {
	var calls []*ast.CallExpr
	var walkExpr func(ast.Expression)
	walkExpr = func(e ast.Expression) {
		switch v := e.(type) {
		case nil:
			return
		case *ast.CallExpr:
			calls = append(calls, v)
			for _, a := range v.Args {
				walkExpr(a)
			}
		case *ast.BinaryExpr:
			walkExpr(v.Left)
			walkExpr(v.Right)
		case *ast.LogicalExpr:
			walkExpr(v.Left)
			walkExpr(v.Right)
		case *ast.UnaryExpr:
			walkExpr(v.Operand)
		case *ast.ParenExpr:
			walkExpr(v.Inner)
		}
	}

	var walkStmts func([]ast.Statement)
	walkStmts = func(stmts []ast.Statement) {
		for _, s := range stmts {
			switch v := s.(type) {
			case *ast.AssignStmt:
				walkExpr(v.Value)
			case *ast.CallStmt:
				walkExpr(v.Call)
			case *ast.IfStmt:
				walkExpr(v.Cond)
				walkStmts(v.Then)
				walkStmts(v.Else)
			case *ast.WhileStmt:
				walkExpr(v.Cond)
				walkStmts(v.Body)
			case *ast.ReturnStmt:
				if v.Value != nil {
					walkExpr(v.Value)
				}
			}
		}
	}
	walkStmts(stmts)
	return calls
}
