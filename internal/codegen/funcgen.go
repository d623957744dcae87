package codegen

import (
	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/types"
)

// Mode selects which of the two bodies a function emits: the fully
// guarded safe-mode body, or the fast-mode body with every safety.go
// check stripped (spec.md §4.4, §6.1). emitIntDivide's division-by-zero
// and INT_MIN/-1 guards are emitted in both bodies.
type Mode uint8

const (
	ModeSafe Mode = iota
	ModeFast
)

func modeSuffix(m Mode) string {
	if m == ModeSafe {
		return "_safe"
	}
	return "_fast"
}

// Runtime-support symbols every emitted function may reference (spec.md
// §6.3). symOnFnsInSafeMode is a GOT-backed global; the rest are PLT
// calls into internal/runtime's Env, via the host's cgo-exported
// trampolines (see DESIGN.md's codegen entry for the narrower ABI this
// code generator assumes in place of a full by-value struct-passing
// translation of the manifest's argument registers).
const (
	symOnFnsInSafeMode        = "grug_on_fns_in_safe_mode"
	symOnFnEnter              = "grug_on_fn_enter"
	symGetMaxRsp              = "grug_get_max_rsp"
	symIsTimeLimitExceeded    = "grug_is_time_limit_exceeded"
	symHasRuntimeErrorHappened = "grug_has_runtime_error_happened"
	symCallRuntimeErrorHandler = "grug_call_runtime_error_handler"
	symStrcmp                 = "strcmp"
)

// funcGen emits one function body: either a helper's single-mode body,
// or one half (safe or fast) of an on_ function's dual body. It owns
// the running frame cursor and the break/continue/return label stacks
// a statement walk needs.
type funcGen struct {
	ctx        *compilerCtx
	b          *Builder
	mode       Mode
	scope      *frameScope
	cursor     int
	returnType *types.Type
	returnLabel int

	breakLabels    []int
	continueLabels []int
}

// paramsBaseBytes is the frame byte count already committed once the
// globals pointer and every declared parameter has its own [rbp-8k]
// slot (frame.go's paramsFrameBytes covers only the globals pointer).
func paramsBaseBytes(numParams int) int {
	return paramsFrameBytes * (numParams + 1)
}

// emitPrologue pushes rbp, reserves frameSize bytes, spills the globals
// pointer to [rbp-8], and spills every declared parameter to its own
// [rbp-8k] slot (spec.md §4.4), classifying each by its own type rather
// than by a fixed int/float split so a bool/i32 parameter after an f32
// one still lands in the next integer register.
func (ctx *compilerCtx) emitPrologue(b *Builder, params []ast.Param, frameSize int) *frameScope {
	b.PushReg(RBP)
	b.MovRegReg(RBP, RSP, true)
	b.SubRspImm32(int32(frameSize))
	b.MovMemReg(Mem{Base: RBP, Disp: -8}, RDI, true)

	scope := newFrameScope(nil)
	nextInt, nextFloat := 1, 0 // argIntRegs[0] (rdi) is already spent on the globals pointer
	for i, p := range params {
		offset := int32(-8 * (i + 2))
		if p.Type.Kind == types.F32 {
			b.MovssStore(Mem{Base: RBP, Disp: offset}, argFloatRegs[nextFloat])
			scope.define(p.Name, frameSlot{offset: int(offset), isXMM: true})
			nextFloat++
			continue
		}
		w := p.Type.Kind == types.String || p.Type.Kind == types.Id
		b.MovMemReg(Mem{Base: RBP, Disp: offset}, argIntRegs[nextInt], w)
		scope.define(p.Name, frameSlot{offset: int(offset), w: w})
		nextInt++
	}
	return scope
}

// emitEpilogue binds returnLabel (every `return` and fallthrough path
// joins here) and restores the caller's frame.
func (ctx *compilerCtx) emitEpilogue(b *Builder, returnLabel int) {
	b.BindLabel(returnLabel)
	b.MovRegReg(RSP, RBP, true)
	b.PopReg(RBP)
	b.Ret()
}

// newLocal allocates the next local's slot below the last committed
// byte and defines it in the current block scope. Locals are packed by
// their own Kind.Size(), matching frame.go's peak pre-pass exactly.
func (fg *funcGen) newLocal(name string, typ types.Type) frameSlot {
	size := typ.Kind.Size()
	offset := -(fg.cursor + size)
	slot := frameSlot{
		offset: offset,
		w:      typ.Kind == types.String || typ.Kind == types.Id,
		isXMM:  typ.Kind == types.F32,
	}
	fg.cursor += size
	fg.scope.define(name, slot)
	return slot
}

// emitBlock runs stmts in a fresh child scope and rewinds the frame
// cursor on exit, so sibling if/else arms and separate while-body
// declarations reuse the same bytes instead of stacking (spec.md §4.4:
// "scope-exit reclaims bytes").
func (fg *funcGen) emitBlock(stmts []ast.Statement) {
	savedScope, savedCursor := fg.scope, fg.cursor
	fg.scope = newFrameScope(savedScope)
	fg.emitStatements(stmts)
	fg.scope = savedScope
	fg.cursor = savedCursor
}

// loadIdentifier reads id's value into rax (or xmm0 for f32), resolving
// `me`, then locals/params, then globals, in that order — the same
// order the checker's symbolTable chain resolves names in.
func (fg *funcGen) loadIdentifier(id *ast.Identifier) {
	if id.Name == "me" {
		fg.b.MovRegMem(R10, Mem{Base: RBP, Disp: -8}, true)
		fg.b.MovRegMem(RAX, Mem{Base: R10, Disp: 0}, true)
		return
	}
	if slot, ok := fg.scope.resolve(id.Name); ok {
		if slot.isXMM {
			fg.b.MovssLoad(XMM0, Mem{Base: RBP, Disp: int32(slot.offset)})
			return
		}
		fg.b.MovRegMem(RAX, Mem{Base: RBP, Disp: int32(slot.offset)}, slot.w)
		return
	}
	g := fg.ctx.globals[id.Name]
	fg.b.MovRegMem(R10, Mem{Base: RBP, Disp: -8}, true)
	if g.typ.Kind == types.F32 {
		fg.b.MovssLoad(XMM0, Mem{Base: R10, Disp: int32(g.offset)})
		return
	}
	w := g.typ.Kind == types.String || g.typ.Kind == types.Id
	fg.b.MovRegMem(RAX, Mem{Base: R10, Disp: int32(g.offset)}, w)
}

// storeTo writes rax (or xmm0 for f32) into the binding named name,
// already resolved to either a local/param slot or a global.
func (fg *funcGen) storeTo(name string, typ types.Type) {
	if slot, ok := fg.scope.resolve(name); ok {
		if slot.isXMM {
			fg.b.MovssStore(Mem{Base: RBP, Disp: int32(slot.offset)}, XMM0)
			return
		}
		fg.b.MovMemReg(Mem{Base: RBP, Disp: int32(slot.offset)}, RAX, slot.w)
		return
	}
	g := fg.ctx.globals[name]
	fg.b.MovRegMem(R10, Mem{Base: RBP, Disp: -8}, true)
	if typ.Kind == types.F32 {
		fg.b.MovssStore(Mem{Base: R10, Disp: int32(g.offset)}, XMM0)
		return
	}
	w := typ.Kind == types.String || typ.Kind == types.Id
	fg.b.MovMemReg(Mem{Base: R10, Disp: int32(g.offset)}, RAX, w)
}
