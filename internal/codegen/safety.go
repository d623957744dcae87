package codegen

import "github.com/grugscript/grug/internal/runtime"

// raiseAndUnwind emits `grug_call_runtime_error_handler(kind)` followed
// by a jump straight to the epilogue. Used by every check that detects
// an error itself (stack overflow, time limit, integer overflow,
// division by zero) as opposed to one that is only propagating an error
// a callee already reported (emitPropagationCheck).
func (fg *funcGen) raiseAndUnwind(kind uint32) {
	fg.b.MovRegImm32(RDI, kind)
	fg.ctx.obj.useExternalFunc(symCallRuntimeErrorHandler)
	fg.b.CallExternal(symCallRuntimeErrorHandler)
	fg.b.Jmp(fg.returnLabel)
}

var (
	runtimeDivisionByZero   = uint32(runtime.DivisionByZero)
	runtimeStackOverflow    = uint32(runtime.StackOverflow)
	runtimeTimeLimitExceeded = uint32(runtime.TimeLimitExceeded)
	runtimeIntegerOverflow  = uint32(runtime.IntegerOverflow)
)

// emitStackOverflowCheck is emitted at the very top of a helper's
// safe-mode body, before any of its own locals are touched (spec.md
// §4.4): compare rsp against the thread's floor and trap if it's been
// breached.
func (fg *funcGen) emitStackOverflowCheck() {
	ok := fg.b.NewLabel()
	fg.ctx.obj.useExternalFunc(symGetMaxRsp)
	fg.b.CallExternal(symGetMaxRsp)
	fg.b.MovRegReg(R11, RAX, true)
	fg.b.CmpRegReg(RSP, R11, true)
	fg.b.Jcc(ccG, ok)
	fg.raiseAndUnwind(runtimeStackOverflow)
	fg.b.BindLabel(ok)
}

// emitTimeLimitCheck is emitted at every helper-call return, every
// game-call return, every `continue`, and every `while` back-edge
// (spec.md §5): it is itself an origination check, not a propagation
// one, since nothing else has reported this particular error yet.
func (fg *funcGen) emitTimeLimitCheck() {
	ok := fg.b.NewLabel()
	fg.ctx.obj.useExternalFunc(symIsTimeLimitExceeded)
	fg.b.CallExternal(symIsTimeLimitExceeded)
	fg.b.TestRegReg(RAX, RAX, false)
	fg.b.Jcc(ccE, ok)
	fg.raiseAndUnwind(runtimeTimeLimitExceeded)
	fg.b.BindLabel(ok)
}

// emitOverflowGuard follows every add/sub/imul on i32 operands (spec.md
// §4.4): `jno` is the one conditional jump that reads the flag the ALU
// op itself just set, so no separate compare is needed. Emitted in safe
// mode only.
func (fg *funcGen) emitOverflowGuard() {
	if fg.mode != ModeSafe {
		return
	}
	ok := fg.b.NewLabel()
	fg.b.Jcc(ccNO, ok)
	fg.raiseAndUnwind(runtimeIntegerOverflow)
	fg.b.BindLabel(ok)
}

// emitPropagationCheck polls `grug_has_runtime_error_happened` after a
// helper or game function call returns and unwinds immediately without
// calling the error handler again — the callee (or one of its own
// callees) already did that (spec.md §7's helper-call and game-function
// error propagation).
func (fg *funcGen) emitPropagationCheck() {
	ok := fg.b.NewLabel()
	fg.ctx.obj.useExternalFunc(symHasRuntimeErrorHappened)
	fg.b.CallExternal(symHasRuntimeErrorHappened)
	fg.b.TestRegReg(RAX, RAX, false)
	fg.b.Jcc(ccE, ok)
	fg.b.Jmp(fg.returnLabel)
	fg.b.BindLabel(ok)
}

// emitOnFnEnter is the one piece of an on_ function's safe-mode body
// that its fast-mode twin never runs: clearing the previous call's
// sticky error flag and arming a fresh time-limit deadline before the
// function's own statements execute.
func (fg *funcGen) emitOnFnEnter() {
	fg.ctx.obj.useExternalFunc(symOnFnEnter)
	fg.b.CallExternal(symOnFnEnter)
}
