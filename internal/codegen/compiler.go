package codegen

import (
	"fmt"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/types"
)

// helperSig is codegen's own view of a helper's call signature, rebuilt
// the same way internal/checker.Checker does (in a pre-pass, so helpers
// may call each other regardless of declaration order) but kept
// separate so this package never imports the checker.
type helperSig struct {
	Params []types.Type
	Return *types.Type
}

// globalInfo is one global variable's codegen-assigned layout.
type globalInfo struct {
	offset int
	typ    types.Type
}

// compilerCtx is the state shared by every function emitted for one
// source file: the globals layout, the helper signature table, and the
// file-wide string/resource/entity/import tables in objBuilder.
type compilerCtx struct {
	obj         *objBuilder
	globals     map[string]globalInfo
	globalsSize int
	helperSigs  map[string]helperSig
	manifest    *manifest.Manifest
	entityType  string
}

// compileAbort unwinds Compile on an internal invariant violation — an
// AST shape Compile doesn't recognize, which should be impossible for a
// program that already passed internal/checker.Check.
type compileAbort struct{ err error }

func (ctx *compilerCtx) abortf(format string, args ...any) {
	panic(compileAbort{err: fmt.Errorf("codegen: "+format, args...)})
}

// Compile lowers one checked program into machine code plus the table
// data internal/elflink needs to assemble a shared object. prog must
// already have passed Checker.Check: Compile trusts every ResultType,
// shadowing invariant and manifest match it establishes.
func Compile(prog *ast.Program, man *manifest.Manifest, entityType string) (obj *Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			if a, ok := r.(compileAbort); ok {
				err = a.err
				return
			}
			panic(r)
		}
	}()

	ctx := &compilerCtx{
		obj:        newObjBuilder(),
		globals:    map[string]globalInfo{},
		helperSigs: map[string]helperSig{},
		manifest:   man,
		entityType: entityType,
	}

	// `me` (the 8-byte entity id) occupies offset 0; declared globals follow it.
	offset := 8
	for _, g := range prog.Globals {
		ctx.globals[g.Name] = globalInfo{offset: offset, typ: g.Type}
		g.Offset = offset
		offset += g.Type.Kind.Size()
	}
	ctx.globalsSize = offset

	for _, fn := range prog.HelperFns {
		var params []types.Type
		for _, p := range fn.Params {
			params = append(params, p.Type)
		}
		ctx.helperSigs[fn.Name] = helperSig{Params: params, Return: fn.ReturnType}
	}

	out := &Object{GlobalsSize: ctx.globalsSize}
	out.InitGlobals = ctx.compileInitGlobals(prog.Globals)

	for _, fn := range prog.OnFns {
		out.OnFns = append(out.OnFns, ctx.compileOnFn(fn))
	}
	for _, fn := range prog.HelperFns {
		out.Helpers = append(out.Helpers, ctx.compileHelper(fn, ModeSafe))
		out.Helpers = append(out.Helpers, ctx.compileHelper(fn, ModeFast))
	}

	out.Strings = ctx.obj.strings
	out.Resources = ctx.obj.resources
	out.Entities = ctx.obj.entities
	out.ExternalFuncs = ctx.obj.externalFns
	out.ExternalGlobals = ctx.obj.externalGlobals
	return out, nil
}

// compileInitGlobals emits the globals block initializer: every global
// is a constant expression (the checker's rejectNonConstant enforces
// this), so a single straight-line function with no locals, calls or
// control flow suffices. It first stores its entity id argument (rsi)
// at offset 0, the `me` slot.
func (ctx *compilerCtx) compileInitGlobals(globals []*ast.GlobalVarDecl) Function {
	b := NewBuilder()
	b.PushReg(RBP)
	b.MovRegReg(RBP, RSP, true)
	b.SubRspImm32(16)
	b.MovMemReg(Mem{Base: RBP, Disp: -8}, RDI, true)
	b.MovMemReg(Mem{Base: RDI}, RSI, true)

	fg := &funcGen{ctx: ctx, b: b, mode: ModeFast, scope: newFrameScope(nil), cursor: 8}
	for _, g := range globals {
		fg.emitExpr(g.Value)
		fg.b.MovRegMem(R10, Mem{Base: RBP, Disp: -8}, true)
		info := ctx.globals[g.Name]
		if info.typ.Kind == types.F32 {
			fg.b.MovssStore(Mem{Base: R10, Disp: int32(info.offset)}, XMM0)
			continue
		}
		w := info.typ.Kind == types.String || info.typ.Kind == types.Id
		fg.b.MovMemReg(Mem{Base: R10, Disp: int32(info.offset)}, RAX, w)
	}

	b.MovRegReg(RSP, RBP, true)
	b.PopReg(RBP)
	b.Ret()
	code, relocs := b.Finish()
	return Function{Name: "init_globals", Code: code, Relocs: relocs}
}

// compileHelper emits one <name>_safe or <name>_fast exported symbol.
func (ctx *compilerCtx) compileHelper(fn *ast.HelperFnDecl, mode Mode) Function {
	b := NewBuilder()
	base := paramsBaseBytes(len(fn.Params))
	frameSize := roundUp16(computeLocalsPeak(fn.Body, base))
	scope := ctx.emitPrologue(b, fn.Params, frameSize)

	fg := &funcGen{
		ctx: ctx, b: b, mode: mode, scope: scope, cursor: base,
		returnType: fn.ReturnType, returnLabel: b.NewLabel(),
	}
	if mode == ModeSafe {
		fg.emitStackOverflowCheck()
	}
	fg.emitStatements(fn.Body)
	ctx.emitEpilogue(b, fg.returnLabel)

	code, relocs := b.Finish()
	return Function{Name: fn.Name + modeSuffix(mode), Code: code, Relocs: relocs}
}

// compileOnFn emits the single on_<name> exported symbol holding both
// bodies, switched at runtime by the GOT-resolved safe-mode flag
// (spec.md §6.1's "switching must not pay a check cost in helpers
// already known to be called from a fast-mode root" — on_ bodies are
// the one place the switch itself is paid for).
func (ctx *compilerCtx) compileOnFn(fn *ast.OnFnDecl) Function {
	b := NewBuilder()
	base := paramsBaseBytes(len(fn.Params))
	frameSize := roundUp16(computeLocalsPeak(fn.Body, base))
	paramScope := ctx.emitPrologue(b, fn.Params, frameSize)

	fastLabel := b.NewLabel()
	returnLabel := b.NewLabel()

	ctx.obj.useExternalGlobal(symOnFnsInSafeMode)
	b.LoadGOT(RAX, symOnFnsInSafeMode, true)
	b.emit(0x0F, 0xB6, 0x00) // movzx eax, byte [rax]: the flag byte itself
	b.TestRegReg(RAX, RAX, false)
	b.Jcc(ccE, fastLabel)

	safeFg := &funcGen{ctx: ctx, b: b, mode: ModeSafe, scope: newFrameScope(paramScope), cursor: base, returnLabel: returnLabel}
	safeFg.emitOnFnEnter()
	safeFg.emitStatements(fn.Body)
	b.Jmp(returnLabel)

	b.BindLabel(fastLabel)
	fastFg := &funcGen{ctx: ctx, b: b, mode: ModeFast, scope: newFrameScope(paramScope), cursor: base, returnLabel: returnLabel}
	fastFg.emitStatements(fn.Body)

	ctx.emitEpilogue(b, returnLabel)
	code, relocs := b.Finish()
	return Function{Name: fn.Name, Code: code, Relocs: relocs}
}
