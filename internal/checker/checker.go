package checker

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/types"
)

// checkAbort unwinds to Check on the first semantic error, mirroring the
// parser's single-error contract (spec.md §7).
type checkAbort struct{ err *errors.CompilerError }

// helperSig is a checked helper function's call signature, collected in
// a pre-pass so helpers may call each other (and themselves) regardless
// of body-checking order.
type helperSig struct {
	Params []types.Type
	Return *types.Type
}

// Checker performs the single semantic pass over one parsed file.
type Checker struct {
	path       string
	src        string
	manifest   *manifest.Manifest
	entityType string // "" if the file declares no on_ functions (a pure helper library)

	globals    *symbolTable
	globalDecl map[string]*ast.GlobalVarDecl
	helperSigs map[string]helperSig
}

// New creates a Checker for one file. man may be nil, in which case on_
// functions are not matched against manifest hooks; entityType is
// the entity type derived from the file's name (spec.md §3.4), or "" for
// a file with no on_ functions.
func New(path, src string, man *manifest.Manifest, entityType string) *Checker {
	return &Checker{
		path:       path,
		src:        src,
		manifest:   man,
		entityType: entityType,
		globals:    newSymbolTable(nil),
		globalDecl: map[string]*ast.GlobalVarDecl{},
		helperSigs: map[string]helperSig{},
	}
}

func (c *Checker) fail(kind errors.Kind, line int, format string, args ...any) {
	e := errors.New(kind, c.path, line, format, args...)
	e.Source = c.src
	panic(checkAbort{err: e})
}

// Check type-checks prog, annotating every expression's ResultType in
// place, and returns the first semantic error found, if any.
func (c *Checker) Check(prog *ast.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(checkAbort)
			if !ok {
				panic(r)
			}
			err = abort.err
		}
	}()

	for _, g := range prog.Globals {
		c.checkGlobal(g)
	}

	for _, fn := range prog.HelperFns {
		var params []types.Type
		for _, p := range fn.Params {
			params = append(params, p.Type)
		}
		c.helperSigs[fn.Name] = helperSig{Params: params, Return: fn.ReturnType}
	}

	for _, fn := range prog.OnFns {
		c.checkOnFn(fn)
	}
	for _, fn := range prog.HelperFns {
		c.checkHelperFn(fn)
	}

	return nil
}

func (c *Checker) checkGlobal(g *ast.GlobalVarDecl) {
	if _, dup := c.globalDecl[g.Name]; dup {
		c.fail(errors.KindShadowing, g.Pos().Line, "global %q is already declared", g.Name)
	}
	c.rejectNonConstant(g.Value)
	typ := c.checkExpr(c.globals, g.Value)
	if typ.Kind != g.Type.Kind {
		c.fail(errors.KindType, g.Pos().Line, "global %q declared as %s but initialized with %s", g.Name, g.Type, typ)
	}
	c.globalDecl[g.Name] = g
	c.globals.define(g.Name, g.Type, true, false)
}

// rejectNonConstant enforces spec.md §4.3: a global initializer may not
// call a function or reference `me` — it must be a constant expression
// built only from literals, earlier globals, and operators on those.
func (c *Checker) rejectNonConstant(e ast.Expression) {
	switch v := e.(type) {
	case *ast.CallExpr:
		c.fail(errors.KindType, v.Pos().Line, "global initializer may not call a function")
	case *ast.Identifier:
		if v.Name == "me" {
			c.fail(errors.KindType, v.Pos().Line, "global initializer may not reference \"me\"")
		}
	case *ast.UnaryExpr:
		c.rejectNonConstant(v.Operand)
	case *ast.BinaryExpr:
		c.rejectNonConstant(v.Left)
		c.rejectNonConstant(v.Right)
	case *ast.LogicalExpr:
		c.rejectNonConstant(v.Left)
		c.rejectNonConstant(v.Right)
	case *ast.ParenExpr:
		c.rejectNonConstant(v.Inner)
	}
}

func (c *Checker) checkOnFn(fn *ast.OnFnDecl) {
	hook := c.resolveHook(fn)

	scope := newSymbolTable(c.globals)
	if c.entityType != "" {
		scope.define("me", types.TId(c.entityType), false, true)
	}
	for i, p := range fn.Params {
		if hook != nil && i < len(hook.Params) && hook.Params[i].Type.Kind != p.Type.Kind {
			c.fail(errors.KindManifestShape, fn.Pos().Line,
				"on_ function %q parameter %q has type %s, manifest declares %s",
				fn.Name, p.Name, p.Type, hook.Params[i].Type)
		}
		if !scope.define(p.Name, p.Type, false, true) {
			c.fail(errors.KindShadowing, fn.Pos().Line, "parameter %q shadows an existing binding", p.Name)
		}
	}

	st := &functionState{checker: c, loopDepth: 0, returnType: nil}
	st.checkStatements(scope, fn.Body)
}

func (c *Checker) resolveHook(fn *ast.OnFnDecl) *manifest.OnHookDecl {
	if c.manifest == nil || c.entityType == "" {
		return nil
	}
	ent, ok := c.manifest.Entities[c.entityType]
	if !ok {
		c.fail(errors.KindManifestShape, fn.Pos().Line, "manifest has no entity type %q", c.entityType)
	}
	for i := range ent.Hooks {
		if ent.Hooks[i].Name == fn.Name {
			if len(ent.Hooks[i].Params) != len(fn.Params) {
				c.fail(errors.KindManifestShape, fn.Pos().Line,
					"on_ function %q has %d parameters, manifest declares %d",
					fn.Name, len(fn.Params), len(ent.Hooks[i].Params))
			}
			return &ent.Hooks[i]
		}
	}
	c.fail(errors.KindManifestShape, fn.Pos().Line, "entity %q has no on_ hook %q", c.entityType, fn.Name)
	return nil
}

func (c *Checker) checkHelperFn(fn *ast.HelperFnDecl) {
	scope := newSymbolTable(c.globals)
	for _, p := range fn.Params {
		if !scope.define(p.Name, p.Type, false, true) {
			c.fail(errors.KindShadowing, fn.Pos().Line, "parameter %q shadows an existing binding", p.Name)
		}
	}

	if fn.ReturnType != nil {
		if len(fn.Body) == 0 {
			c.fail(errors.KindType, fn.Pos().Line, "helper %q must return a value on every path", fn.Name)
		} else if _, ok := lastMeaningfulStmt(fn.Body).(*ast.ReturnStmt); !ok {
			c.fail(errors.KindType, fn.Pos().Line, "helper %q's last statement must be a return", fn.Name)
		}
	}

	st := &functionState{checker: c, loopDepth: 0, returnType: fn.ReturnType}
	st.checkStatements(scope, fn.Body)
}

// lastMeaningfulStmt returns the last statement that isn't a blank line
// or a comment, so trailing layout doesn't defeat the return-at-end rule.
func lastMeaningfulStmt(stmts []ast.Statement) ast.Statement {
	for i := len(stmts) - 1; i >= 0; i-- {
		switch stmts[i].(type) {
		case *ast.EmptyLineStmt, *ast.CommentStmt:
			continue
		default:
			return stmts[i]
		}
	}
	return nil
}
