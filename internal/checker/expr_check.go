package checker

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// checkExpr type-checks e, annotates it with its ResultType, and
// returns that type.
func (c *Checker) checkExpr(scope *symbolTable, e ast.Expression) types.Type {
	switch v := e.(type) {
	case *ast.Identifier:
		sym := scope.resolve(v.Name)
		if sym == nil {
			c.fail(errors.KindUndefined, v.Pos().Line, "undefined name %q", v.Name)
		}
		v.SetResultType(sym.Type)
		return sym.Type

	case *ast.Literal:
		t := types.Type{Kind: v.Kind}
		v.SetResultType(t)
		return t

	case *ast.UnaryExpr:
		operand := c.checkExpr(scope, v.Operand)
		var result types.Type
		switch v.Op {
		case token.NOT:
			if operand.Kind != types.Bool {
				c.fail(errors.KindType, v.Pos().Line, "\"not\" requires a bool operand, got %s", operand)
			}
			result = types.TBool
		case token.MINUS:
			if !operand.Kind.IsNumeric() {
				c.fail(errors.KindType, v.Pos().Line, "unary \"-\" requires a numeric operand, got %s", operand)
			}
			result = operand
		}
		v.SetResultType(result)
		return result

	case *ast.BinaryExpr:
		left := c.checkExpr(scope, v.Left)
		right := c.checkExpr(scope, v.Right)
		result := c.checkBinaryOp(v, left, right)
		v.SetResultType(result)
		return result

	case *ast.LogicalExpr:
		left := c.checkExpr(scope, v.Left)
		right := c.checkExpr(scope, v.Right)
		if left.Kind != types.Bool || right.Kind != types.Bool {
			c.fail(errors.KindType, v.Pos().Line, "%q requires bool operands, got %s and %s", v.Op, left, right)
		}
		v.SetResultType(types.TBool)
		return types.TBool

	case *ast.ParenExpr:
		inner := c.checkExpr(scope, v.Inner)
		v.SetResultType(inner)
		return inner

	case *ast.CallExpr:
		return c.checkCallExpr(scope, v)
	}
	return types.Type{}
}

func (c *Checker) checkBinaryOp(v *ast.BinaryExpr, left, right types.Type) types.Type {
	switch v.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		if !left.Kind.IsNumeric() || left.Kind != right.Kind {
			c.fail(errors.KindType, v.Pos().Line, "%q requires two operands of the same numeric type, got %s and %s", v.Op, left, right)
		}
		return left
	case token.GT, token.GT_EQ, token.LT, token.LT_EQ:
		if !left.Kind.IsNumeric() || left.Kind != right.Kind {
			c.fail(errors.KindType, v.Pos().Line, "%q requires two operands of the same numeric type, got %s and %s", v.Op, left, right)
		}
		return types.TBool
	case token.EQ, token.NOT_EQ:
		if !left.Equal(right) {
			c.fail(errors.KindType, v.Pos().Line, "%q requires operands of the same type, got %s and %s", v.Op, left, right)
		}
		return types.TBool
	default:
		c.fail(errors.KindType, v.Pos().Line, "unsupported binary operator %s", v.Op)
		return types.Type{}
	}
}
