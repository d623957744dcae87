package checker

import (
	"strings"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/types"
)

// checkCallExpr resolves call.Callee against the file's own helper
// functions first, then the manifest's game functions (spec.md §4.3),
// checks arity and per-argument types, and returns the call's result
// type (the zero Type for a void call, which is only legal as a
// CallStmt).
func (c *Checker) checkCallExpr(scope *symbolTable, call *ast.CallExpr) types.Type {
	name := call.Callee.Name

	if sig, ok := c.helperSigs[name]; ok {
		if len(sig.Params) != len(call.Args) {
			c.fail(errors.KindType, call.Pos().Line, "helper %q takes %d arguments, got %d", name, len(sig.Params), len(call.Args))
		}
		for i, arg := range call.Args {
			got := c.checkExpr(scope, arg)
			if got.Kind != sig.Params[i].Kind {
				c.fail(errors.KindType, arg.Pos().Line, "helper %q argument %d: expected %s, got %s", name, i+1, sig.Params[i], got)
			}
		}
		result := types.Type{}
		if sig.Return != nil {
			result = *sig.Return
		}
		call.SetResultType(result)
		return result
	}

	if c.manifest != nil {
		if fn, ok := c.manifest.GameFunctions[name]; ok {
			if len(fn.Params) != len(call.Args) {
				c.fail(errors.KindType, call.Pos().Line, "game function %q takes %d arguments, got %d", name, len(fn.Params), len(call.Args))
			}
			for i, arg := range call.Args {
				c.checkGameFunctionArg(scope, name, i, arg, fn.Params[i].Type)
			}
			result := types.Type{}
			if fn.ReturnType != nil {
				result = *fn.ReturnType
			}
			call.SetResultType(result)
			return result
		}
	}

	c.fail(errors.KindUndefined, call.Pos().Line, "call to undefined function %q", name)
	return types.Type{}
}

// checkGameFunctionArg type-checks one argument against a manifest
// parameter, reclassifying a string literal into a Resource or Entity
// when the manifest calls for one (spec.md §4.3): the source text always
// writes a plain string literal, and the checker is what assigns it its
// abstract meaning and validates its shape.
func (c *Checker) checkGameFunctionArg(scope *symbolTable, fnName string, idx int, arg ast.Expression, want types.Type) {
	if want.Kind == types.Resource || want.Kind == types.Entity {
		lit, ok := arg.(*ast.Literal)
		if !ok || lit.Kind != types.String {
			c.fail(errors.KindResourceOrEntity, arg.Pos().Line,
				"game function %q argument %d must be a string literal naming a %s", fnName, idx+1, want.Kind)
		}
		if want.Kind == types.Resource {
			c.validateResourcePath(lit)
		} else {
			c.validateEntityName(lit)
		}
		lit.Reclassified = want.Kind
		lit.SetResultType(want)
		return
	}

	got := c.checkExpr(scope, arg)
	if got.Kind != want.Kind {
		c.fail(errors.KindType, arg.Pos().Line, "game function %q argument %d: expected %s, got %s", fnName, idx+1, want, got)
	}
}

// validateResourcePath rejects a resource literal with an absolute path,
// a parent-directory escape, or a backslash (spec.md §4.3, §6.4): mods
// may only reference resources inside their own mod directory.
func (c *Checker) validateResourcePath(lit *ast.Literal) {
	p := lit.StringValue
	if p == "" {
		c.fail(errors.KindResourceOrEntity, lit.Pos().Line, "resource path must not be empty")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
		c.fail(errors.KindResourceOrEntity, lit.Pos().Line, "resource path %q must be a relative path within the mod, with no \"..\" segments", p)
	}
}

// validateEntityName checks that an entity string has the
// `<entity>-<EntityType>` shape, splitting on the last '-' (spec.md
// §3.4's chosen resolution to the ambiguous-dash open question): both
// sides of that dash must be non-empty. The characters of either side
// are not checked.
func (c *Checker) validateEntityName(lit *ast.Literal) {
	name := lit.StringValue
	if name == "" {
		c.fail(errors.KindResourceOrEntity, lit.Pos().Line, "entity name must not be empty")
	}
	if i := strings.LastIndex(name, "-"); i <= 0 || i == len(name)-1 {
		c.fail(errors.KindResourceOrEntity, lit.Pos().Line, "entity name %q must have the form <entity>-<EntityType>", name)
	}
}
