package codegen

import (
	"math"
	"strings"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/token"
	"github.com/grugscript/grug/internal/types"
)

// emitExpr evaluates e and leaves its value in rax (bool/i32/string/id)
// or xmm0 (f32), per e.ResultType().Kind as annotated by the checker.
func (fg *funcGen) emitExpr(e ast.Expression) {
	switch v := e.(type) {
	case *ast.Identifier:
		fg.loadIdentifier(v)
	case *ast.Literal:
		fg.emitLiteral(v)
	case *ast.UnaryExpr:
		fg.emitUnary(v)
	case *ast.BinaryExpr:
		fg.emitBinary(v)
	case *ast.LogicalExpr:
		fg.emitLogical(v)
	case *ast.ParenExpr:
		fg.emitExpr(v.Inner)
	case *ast.CallExpr:
		fg.emitCall(v)
	default:
		fg.ctx.abortf("unhandled expression type %T", e)
	}
}

// emitLiteral materializes a constant. Every string literal is interned
// into the object's string table, whether or not the checker
// reclassified it into a resource or entity reference (spec.md §4.4,
// §4.5's parallel resources/entities arrays).
func (fg *funcGen) emitLiteral(l *ast.Literal) {
	switch l.Kind {
	case types.Bool:
		var v uint32
		if l.BoolValue {
			v = 1
		}
		fg.b.MovRegImm32(RAX, v)
	case types.I32:
		fg.b.MovRegImm32(RAX, uint32(l.IntValue))
	case types.F32:
		fg.b.MovRegImm32(R11, math.Float32bits(l.FloatValue))
		fg.b.MovRegToXmm(XMM0, R11)
	case types.String:
		sym := fg.ctx.obj.intern(l.StringValue)
		fg.b.LeaData(RAX, sym)
		switch l.Reclassified {
		case types.Resource:
			fg.ctx.obj.addResource(l.StringValue)
		case types.Entity:
			name := l.StringValue
			entityType := ""
			if i := strings.LastIndex(name, "-"); i > 0 {
				entityType = name[i+1:]
			}
			fg.ctx.obj.addEntity(name, entityType)
		}
	default:
		fg.ctx.abortf("unhandled literal kind %s", l.Kind)
	}
}

// emitUnary handles `not x` and `-x`. `not` exploits operand already
// being normalized to 0/1: testing it against itself and negating the
// zero flag is a cheaper normalize-then-invert than a compare-with-1.
func (fg *funcGen) emitUnary(u *ast.UnaryExpr) {
	fg.emitExpr(u.Operand)
	switch u.Op {
	case token.NOT:
		fg.b.TestRegReg(RAX, RAX, false)
		fg.b.MovRegImm32(RAX, 0)
		fg.b.SetccAl(ccE)
	case token.MINUS:
		if u.ResultType().Kind == types.F32 {
			fg.b.MovRegImm32(R11, 0x80000000)
			fg.b.MovRegToXmm(XMM1, R11)
			fg.b.XorpsRegReg(XMM0, XMM1)
			return
		}
		fg.b.NegReg(RAX, false)
	default:
		fg.ctx.abortf("unhandled unary operator %s", u.Op)
	}
}

// emitBinary implements the evaluation order spec.md §4.4 describes for
// every binary operator: the right operand evaluates first and is
// pushed, then the left operand evaluates (its result becomes the
// combine's destination), then the pushed right operand is popped back
// and the two combine into the left operand's register.
func (fg *funcGen) emitBinary(b *ast.BinaryExpr) {
	isFloat := b.Left.ResultType().Kind == types.F32
	isString := b.Left.ResultType().Kind == types.String
	wide := isString || b.Left.ResultType().Kind == types.Id

	fg.emitExpr(b.Right)
	if isFloat {
		fg.b.SubRspImm32(8)
		fg.b.MovssStore(Mem{Base: RSP}, XMM0)
	} else {
		fg.b.PushReg(RAX)
	}

	fg.emitExpr(b.Left)

	if isFloat {
		fg.b.MovssLoad(XMM1, Mem{Base: RSP})
		fg.b.AddRspImm32(8)
	} else {
		fg.b.PopReg(R11)
	}

	if isString && (b.Op == token.EQ || b.Op == token.NOT_EQ) {
		fg.emitStringCompare(b.Op)
		return
	}

	switch b.Op {
	case token.PLUS:
		if isFloat {
			fg.b.AddssRegReg(XMM0, XMM1)
		} else {
			fg.b.AddRegReg(RAX, R11, wide)
			fg.emitOverflowGuard()
		}
	case token.MINUS:
		if isFloat {
			fg.b.SubssRegReg(XMM0, XMM1)
		} else {
			fg.b.SubRegReg(RAX, R11, wide)
			fg.emitOverflowGuard()
		}
	case token.STAR:
		if isFloat {
			fg.b.MulssRegReg(XMM0, XMM1)
		} else {
			fg.b.ImulRegReg(RAX, R11, wide)
			fg.emitOverflowGuard()
		}
	case token.SLASH:
		if isFloat {
			fg.b.DivssRegReg(XMM0, XMM1)
		} else {
			fg.emitIntDivide(R11, false)
		}
	case token.PERCENT:
		fg.emitIntDivide(R11, true)
	case token.GT, token.GT_EQ, token.LT, token.LT_EQ, token.EQ, token.NOT_EQ:
		fg.emitComparison(b.Op, isFloat, wide)
	default:
		fg.ctx.abortf("unhandled binary operator %s", b.Op)
	}
}

// emitComparison leaves a normalized 0/1 bool in rax. Flags are set
// first (cmp/ucomiss never touch rax), so rax is free to zero before
// setcc writes only al. ucomiss sets CF/ZF the way an unsigned compare
// does, so float orderings use the a/ae/b/be conditions instead of the
// signed ones. An unordered (NaN) operand sets ZF and CF, so for it `<`,
// `<=` and `==` yield 1 and `>`, `>=` and `!=` yield 0.
func (fg *funcGen) emitComparison(op token.Type, isFloat, wide bool) {
	if isFloat {
		fg.b.UcomissRegReg(XMM0, XMM1)
	} else {
		fg.b.CmpRegReg(RAX, R11, wide)
	}
	var c cc
	switch op {
	case token.GT:
		c = ccG
	case token.GT_EQ:
		c = ccGE
	case token.LT:
		c = ccL
	case token.LT_EQ:
		c = ccLE
	case token.EQ:
		c = ccE
	case token.NOT_EQ:
		c = ccNE
	}
	if isFloat {
		switch op {
		case token.GT:
			c = cc(0x7) // above
		case token.GT_EQ:
			c = cc(0x3) // above or equal
		case token.LT:
			c = cc(0x2) // below
		case token.LT_EQ:
			c = cc(0x6) // below or equal
		}
	}
	fg.b.MovRegImm32(RAX, 0)
	fg.b.SetccAl(c)
}

// emitStringCompare calls the external strcmp with the left operand (in
// rax) and the right operand (popped into r11) as its two arguments,
// per spec.md §4.4: string equality is not a primitive comparison.
func (fg *funcGen) emitStringCompare(op token.Type) {
	fg.b.MovRegReg(RDI, RAX, true)
	fg.b.MovRegReg(RSI, R11, true)
	fg.ctx.obj.useExternalFunc(symStrcmp)
	fg.b.CallExternal(symStrcmp)
	fg.b.TestRegReg(RAX, RAX, false)
	fg.b.MovRegImm32(RAX, 0)
	if op == token.EQ {
		fg.b.SetccAl(ccE)
	} else {
		fg.b.SetccAl(ccNE)
	}
}

// emitIntDivide guards against division by zero and the INT_MIN/-1
// overflow case before idiv (spec.md §4.4's safe-mode integer checks —
// emitted unconditionally here since a trapping instruction in fast
// mode would crash the host process rather than raise a grug error).
func (fg *funcGen) emitIntDivide(divisor Reg, remainder bool) {
	divByZero := fg.b.NewLabel()
	notIntMin := fg.b.NewLabel()

	fg.b.TestRegReg(divisor, divisor, false)
	fg.b.Jcc(ccE, divByZero)
	fg.b.MovRegImm32(R10, 0x80000000)
	fg.b.CmpRegReg(RAX, R10, false)
	fg.b.Jcc(ccNE, notIntMin)
	fg.b.MovRegImm32(R10, 0xFFFFFFFF)
	fg.b.CmpRegReg(divisor, R10, false)
	fg.b.Jcc(ccNE, notIntMin)
	fg.raiseAndUnwind(runtimeIntegerOverflow)

	fg.b.BindLabel(divByZero)
	fg.raiseAndUnwind(runtimeDivisionByZero)

	fg.b.BindLabel(notIntMin)
	fg.b.Cdq()
	fg.b.IdivReg(divisor, false)
	if remainder {
		fg.b.MovRegReg(RAX, RDX, false)
	}
}

// emitLogical short-circuits `and`/`or`.
func (fg *funcGen) emitLogical(l *ast.LogicalExpr) {
	shortCircuit := fg.b.NewLabel()
	end := fg.b.NewLabel()

	fg.emitExpr(l.Left)
	fg.b.TestRegReg(RAX, RAX, false)
	if l.Op == token.AND {
		fg.b.Jcc(ccE, shortCircuit) // left false -> result false
	} else {
		fg.b.Jcc(ccNE, shortCircuit) // left true -> result true
	}

	fg.emitExpr(l.Right)
	fg.b.Jmp(end)

	fg.b.BindLabel(shortCircuit)
	var v uint32
	if l.Op == token.OR {
		v = 1
	}
	fg.b.MovRegImm32(RAX, v)

	fg.b.BindLabel(end)
}

// emitCall evaluates every argument left to right, pushes each result
// (floats via an 8-byte stack slot so int and float pushes stay
// uniformly sized), then pops them back off in reverse declaration
// order directly into their ABI register — this lets an argument
// expression contain an arbitrarily nested call without clobbering a
// register an outer call still needs. Helper calls additionally prepend
// the current frame's globals pointer as a hidden first argument; game
// function calls use the manifest's declared registers directly.
func (fg *funcGen) emitCall(call *ast.CallExpr) {
	name := call.Callee.Name
	sig, isHelper := fg.ctx.helperSigs[name]

	var paramTypes []types.Type
	found := false
	if isHelper {
		paramTypes = sig.Params
		found = true
	} else if fg.ctx.manifest != nil {
		if gf, ok := fg.ctx.manifest.GameFunctions[name]; ok {
			for _, p := range gf.Params {
				paramTypes = append(paramTypes, p.Type)
			}
			found = true
		}
	}
	if !found {
		fg.ctx.abortf("call to unresolvable function %q (program did not pass Check)", name)
	}

	for _, a := range call.Args {
		fg.emitExpr(a)
		if a.ResultType().Kind == types.F32 {
			fg.b.SubRspImm32(8)
			fg.b.MovssStore(Mem{Base: RSP}, XMM0)
		} else {
			fg.b.PushReg(RAX)
		}
	}

	regIdx := make([]int, len(call.Args))
	nextInt, nextFloat := 0, 0
	if isHelper {
		nextInt = 1 // rdi is reserved for the globals pointer
	}
	for i := range call.Args {
		if paramTypes[i].Kind == types.F32 {
			regIdx[i] = nextFloat
			nextFloat++
		} else {
			regIdx[i] = nextInt
			nextInt++
		}
	}
	for i := len(call.Args) - 1; i >= 0; i-- {
		if paramTypes[i].Kind == types.F32 {
			fg.b.MovssLoad(argFloatRegs[regIdx[i]], Mem{Base: RSP})
			fg.b.AddRspImm32(8)
			continue
		}
		fg.b.PopReg(argIntRegs[regIdx[i]])
	}
	if isHelper {
		fg.b.MovRegMem(RDI, Mem{Base: RBP, Disp: -8}, true)
	}

	if isHelper {
		target := name + modeSuffix(fg.mode)
		fg.ctx.obj.useExternalFunc(target)
		fg.b.CallHelper(target)
	} else {
		fg.ctx.obj.useExternalFunc(name)
		fg.b.CallExternal(name)
	}

	if fg.mode == ModeSafe {
		fg.emitTimeLimitCheck()
		fg.emitPropagationCheck()
	}
}
