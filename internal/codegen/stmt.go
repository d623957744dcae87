package codegen

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/types"
)

func (fg *funcGen) emitStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		fg.emitStmt(s)
	}
}

func (fg *funcGen) emitStmt(s ast.Statement) {
	switch v := s.(type) {
	case *ast.EmptyLineStmt, *ast.CommentStmt:
		// carry no runtime behavior; kept only so ast.Program.String can
		// round-trip the original source text

	case *ast.AssignStmt:
		fg.emitAssign(v)

	case *ast.CallStmt:
		fg.emitCall(v.Call)

	case *ast.IfStmt:
		fg.emitIf(v)

	case *ast.WhileStmt:
		fg.emitWhile(v)

	case *ast.BreakStmt:
		fg.b.Jmp(fg.breakLabels[len(fg.breakLabels)-1])

	case *ast.ContinueStmt:
		fg.b.Jmp(fg.continueLabels[len(fg.continueLabels)-1])

	case *ast.ReturnStmt:
		if v.Value != nil {
			fg.emitExpr(v.Value)
		}
		fg.b.Jmp(fg.returnLabel)

	default:
		fg.ctx.abortf("unhandled statement type %T", s)
	}
}

// emitAssign handles both the typed form (a fresh local or a global
// declaration) and the untyped form (assignment to an existing local,
// parameter or global).
func (fg *funcGen) emitAssign(a *ast.AssignStmt) {
	fg.emitExpr(a.Value)
	if a.Typed {
		fg.newLocal(a.Name, a.Type)
		fg.storeTo(a.Name, a.Type)
		return
	}
	// An untyped assignment always targets an existing binding; its
	// Type field is unset, so storeTo's local-slot path (which reads the
	// slot's own width/class, not the typ argument) handles locals and
	// params, and the global path below looks the declared type up
	// directly rather than trusting a.Type.
	if _, ok := fg.scope.resolve(a.Name); ok {
		fg.storeTo(a.Name, types.Type{})
		return
	}
	fg.storeTo(a.Name, fg.ctx.globals[a.Name].typ)
}

func (fg *funcGen) emitIf(s *ast.IfStmt) {
	falseLabel := fg.b.NewLabel()

	fg.emitExpr(s.Cond)
	fg.b.TestRegReg(RAX, RAX, false)
	fg.b.Jcc(ccE, falseLabel)

	fg.emitBlock(s.Then)

	if s.Else != nil {
		end := fg.b.NewLabel()
		fg.b.Jmp(end)
		fg.b.BindLabel(falseLabel)
		fg.emitBlock(s.Else)
		fg.b.BindLabel(end)
		return
	}
	fg.b.BindLabel(falseLabel)
}

// emitWhile binds one label per loop: condLabel re-evaluates the
// condition, backEdge runs the time-limit poll spec.md §5 requires at
// every back-edge and doubles as the `continue` target so that poll
// only needs to be written once, and exit is where `break` and a false
// condition both land.
func (fg *funcGen) emitWhile(s *ast.WhileStmt) {
	condLabel := fg.b.NewLabel()
	backEdge := fg.b.NewLabel()
	exit := fg.b.NewLabel()

	fg.b.BindLabel(condLabel)
	fg.emitExpr(s.Cond)
	fg.b.TestRegReg(RAX, RAX, false)
	fg.b.Jcc(ccE, exit)

	fg.breakLabels = append(fg.breakLabels, exit)
	fg.continueLabels = append(fg.continueLabels, backEdge)
	fg.emitBlock(s.Body)
	fg.breakLabels = fg.breakLabels[:len(fg.breakLabels)-1]
	fg.continueLabels = fg.continueLabels[:len(fg.continueLabels)-1]

	fg.b.BindLabel(backEdge)
	if fg.mode == ModeSafe {
		fg.emitTimeLimitCheck()
	}
	fg.b.Jmp(condLabel)

	fg.b.BindLabel(exit)
}
