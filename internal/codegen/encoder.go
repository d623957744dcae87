package codegen

import "encoding/binary"

// Mem is an [base + disp] memory operand. RIPRelative selects a
// position-independent [rip + disp32] form, used for every reference to
// `.data` (string literals) and to the externally-visible GOT-backed
// globals (spec.md §4.4's PC-relative LEA / GOT-load requirement).
type Mem struct {
	Base        Reg
	Disp        int32
	RIPRelative bool
}

// label is a not-yet-resolved branch/call target inside one function's
// code. Builder resolves every label to a byte offset at Finish and
// patches every forward reference that was recorded against it.
type label struct {
	resolved bool
	offset   int
}

type pendingPatch struct {
	labelID  int
	patchAt  int // offset of the 4-byte rel32 field to patch
	instrEnd int // offset of the byte right after the rel32 field
}

// Builder assembles one function's machine code into a byte buffer,
// tracking internal jump labels and recording every relocation site
// (string loads, PLT calls, GOT loads, intra-module helper calls) the
// linker must patch once final section addresses are known.
type Builder struct {
	buf      []byte
	labels   []label
	patches  []pendingPatch
	externalRelocs []ExternalReloc
}

// NewBuilder returns an empty function builder.
func NewBuilder() *Builder { return &Builder{} }

// Offset is the current end of the emitted byte stream.
func (b *Builder) Offset() int { return len(b.buf) }

// NewLabel allocates a fresh, unresolved label.
func (b *Builder) NewLabel() int {
	b.labels = append(b.labels, label{})
	return len(b.labels) - 1
}

// BindLabel fixes labelID to the current offset.
func (b *Builder) BindLabel(labelID int) {
	b.labels[labelID] = label{resolved: true, offset: len(b.buf)}
}

func (b *Builder) emit(bytes ...byte) { b.buf = append(b.buf, bytes...) }

func (b *Builder) emit32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) emit64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// rex builds a REX prefix. w selects 64-bit operand size; r/x/b are the
// extension bits for ModRM.reg, SIB.index and ModRM.rm/SIB.base/opcode+rd.
func rex(w, r, x, bBit bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if bBit {
		v |= 0x01
	}
	return v
}

func modrmReg(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

// emitModRMMem emits the ModRM (+SIB +disp) bytes addressing m, with regField
// as the other ModRM.reg operand (a register number or opcode extension).
func (b *Builder) emitModRMMem(regField byte, m Mem) {
	if m.RIPRelative {
		b.emit(modrmReg(0, regField, 5))
		b.emit32(uint32(m.Disp))
		return
	}
	base := m.Base.low3()
	switch {
	case m.Disp == 0 && base != RBP.low3():
		if base == RSP.low3() {
			b.emit(modrmReg(0, regField, 4), 0x24)
		} else {
			b.emit(modrmReg(0, regField, base))
		}
	case m.Disp >= -128 && m.Disp <= 127:
		if base == RSP.low3() {
			b.emit(modrmReg(1, regField, 4), 0x24)
		} else {
			b.emit(modrmReg(1, regField, base))
		}
		b.emit(byte(int8(m.Disp)))
	default:
		if base == RSP.low3() {
			b.emit(modrmReg(2, regField, 4), 0x24)
		} else {
			b.emit(modrmReg(2, regField, base))
		}
		b.emit32(uint32(m.Disp))
	}
}

// --- data movement ---

// MovRegImm64 loads a full 64-bit immediate into dst (REX.W + B8+rd).
func (b *Builder) MovRegImm64(dst Reg, imm uint64) {
	b.emit(rex(true, false, false, dst.ext()), 0xB8+dst.low3())
	b.emit64(imm)
}

// MovRegImm32 zero-extends a 32-bit immediate into the 64-bit dst
// (used for i32/bool constants; upper 32 bits are zeroed by the CPU).
func (b *Builder) MovRegImm32(dst Reg, imm uint32) {
	if dst.ext() {
		b.emit(rex(false, false, false, true))
	}
	b.emit(0xB8 + dst.low3())
	b.emit32(imm)
}

// MovRegReg moves src into dst. w selects the 64-bit form (pointers,
// `string`/`id` values); the 32-bit form is used for `i32`/`bool`.
func (b *Builder) MovRegReg(dst, src Reg, w bool) {
	b.emit(rex(w, src.ext(), false, dst.ext()), 0x89)
	b.emit(modrmReg(3, src.low3(), dst.low3()))
}

// MovRegMem loads *m into dst.
func (b *Builder) MovRegMem(dst Reg, m Mem, w bool) {
	b.emit(rex(w, dst.ext(), false, m.Base.ext()), 0x8B)
	b.emitModRMMem(dst.low3(), m)
}

// MovMemReg stores src into *m.
func (b *Builder) MovMemReg(m Mem, src Reg, w bool) {
	b.emit(rex(w, src.ext(), false, m.Base.ext()), 0x89)
	b.emitModRMMem(src.low3(), m)
}

// Lea loads the effective address of m into dst (used for PC-relative
// string/global references, REX.W + 8D /r).
func (b *Builder) Lea(dst Reg, m Mem) {
	b.emit(rex(true, dst.ext(), false, m.Base.ext()), 0x8D)
	b.emitModRMMem(dst.low3(), m)
}

// --- stack ---

func (b *Builder) PushReg(r Reg) {
	if r.ext() {
		b.emit(rex(false, false, false, true))
	}
	b.emit(0x50 + r.low3())
}

func (b *Builder) PopReg(r Reg) {
	if r.ext() {
		b.emit(rex(false, false, false, true))
	}
	b.emit(0x58 + r.low3())
}

// SubRspImm32 allocates stack space for the frame.
func (b *Builder) SubRspImm32(n int32) {
	b.emit(rex(true, false, false, false), 0x81)
	b.emit(modrmReg(3, 5, RSP.low3()))
	b.emit32(uint32(n))
}

func (b *Builder) AddRspImm32(n int32) {
	b.emit(rex(true, false, false, false), 0x81)
	b.emit(modrmReg(3, 0, RSP.low3()))
	b.emit32(uint32(n))
}

// --- arithmetic (w: 64-bit vs 32-bit operand size) ---

func (b *Builder) aluRegReg(opcode byte, dst, src Reg, w bool) {
	b.emit(rex(w, src.ext(), false, dst.ext()), opcode)
	b.emit(modrmReg(3, src.low3(), dst.low3()))
}

func (b *Builder) AddRegReg(dst, src Reg, w bool) { b.aluRegReg(0x01, dst, src, w) }
func (b *Builder) SubRegReg(dst, src Reg, w bool) { b.aluRegReg(0x29, dst, src, w) }
func (b *Builder) AndRegReg(dst, src Reg, w bool) { b.aluRegReg(0x21, dst, src, w) }
func (b *Builder) OrRegReg(dst, src Reg, w bool)  { b.aluRegReg(0x09, dst, src, w) }
func (b *Builder) XorRegReg(dst, src Reg, w bool) { b.aluRegReg(0x31, dst, src, w) }
func (b *Builder) CmpRegReg(a, c2 Reg, w bool)    { b.aluRegReg(0x39, a, c2, w) }

// ImulRegReg computes dst *= src (0F AF /r).
func (b *Builder) ImulRegReg(dst, src Reg, w bool) {
	b.emit(rex(w, dst.ext(), false, src.ext()), 0x0F, 0xAF)
	b.emit(modrmReg(3, dst.low3(), src.low3()))
}

// Cqo sign-extends rax into rdx:rax ahead of a 64-bit idiv; Cdq does the
// 32-bit equivalent into edx:eax.
func (b *Builder) Cqo() { b.emit(rex(true, false, false, false), 0x99) }
func (b *Builder) Cdq() { b.emit(0x99) }

// IdivReg computes rdx:rax / src -> quotient in rax, remainder in rdx
// (F7 /7).
func (b *Builder) IdivReg(src Reg, w bool) {
	b.emit(rex(w, false, false, src.ext()), 0xF7)
	b.emit(modrmReg(3, 7, src.low3()))
}

// NegReg negates src in place (F7 /3).
func (b *Builder) NegReg(r Reg, w bool) {
	b.emit(rex(w, false, false, r.ext()), 0xF7)
	b.emit(modrmReg(3, 3, r.low3()))
}

// NotReg flips every bit of r (F7 /2).
func (b *Builder) NotReg(r Reg, w bool) {
	b.emit(rex(w, false, false, r.ext()), 0xF7)
	b.emit(modrmReg(3, 2, r.low3()))
}

// TestRegReg ANDs a and c2 and sets flags without storing (85 /r).
func (b *Builder) TestRegReg(a, c2 Reg, w bool) {
	b.emit(rex(w, c2.ext(), false, a.ext()), 0x85)
	b.emit(modrmReg(3, c2.low3(), a.low3()))
}

// SetccAl stores 0/1 from cc into al (0F 9x /0).
func (b *Builder) SetccAl(c cc) {
	b.emit(0x0F, 0x90|byte(c))
	b.emit(modrmReg(3, 0, RAX.low3()))
}

// XorSelf zeroes r (32-bit XOR r,r; the preferred zero idiom).
func (b *Builder) XorSelf(r Reg) { b.aluRegReg(0x31, r, r, false) }

// --- SSE float ops (movss/addss/subss/mulss/divss/ucomiss) ---

func (b *Builder) sseMemOp(prefix byte, opcode byte, x XMM, m Mem) {
	b.emit(prefix)
	if m.Base.ext() {
		b.emit(rex(false, false, false, true))
	}
	b.emit(0x0F, opcode)
	b.emitModRMMem(x.low3(), m)
}

func (b *Builder) MovssLoad(x XMM, m Mem)  { b.sseMemOp(0xF3, 0x10, x, m) }
func (b *Builder) MovssStore(m Mem, x XMM) { b.sseMemOp(0xF3, 0x11, x, m) }

func (b *Builder) sseRegOp(prefix byte, opcode byte, dst, src XMM) {
	if prefix != 0 {
		b.emit(prefix)
	}
	b.emit(0x0F, opcode)
	b.emit(modrmReg(3, dst.low3(), src.low3()))
}

func (b *Builder) AddssRegReg(dst, src XMM)   { b.sseRegOp(0xF3, 0x58, dst, src) }
func (b *Builder) SubssRegReg(dst, src XMM)   { b.sseRegOp(0xF3, 0x5C, dst, src) }
func (b *Builder) MulssRegReg(dst, src XMM)   { b.sseRegOp(0xF3, 0x59, dst, src) }
func (b *Builder) DivssRegReg(dst, src XMM)   { b.sseRegOp(0xF3, 0x5E, dst, src) }
func (b *Builder) UcomissRegReg(a, c2 XMM)    { b.sseRegOp(0x00, 0x2E, a, c2) }
func (b *Builder) XorpsRegReg(dst, src XMM)   { b.sseRegOp(0x00, 0x57, dst, src) }
func (b *Builder) MovRegToXmm(dst XMM, src Reg) {
	b.emit(0x66)
	if src.ext() || dst.low3() >= 8 {
		b.emit(rex(false, false, false, src.ext()))
	}
	b.emit(0x0F, 0x6E)
	b.emit(modrmReg(3, dst.low3(), src.low3()))
}
func (b *Builder) MovXmmToReg(dst Reg, src XMM) {
	b.emit(0x66)
	if dst.ext() {
		b.emit(rex(false, false, false, dst.ext()))
	}
	b.emit(0x0F, 0x7E)
	b.emit(modrmReg(3, src.low3(), dst.low3()))
}

// --- control flow ---

// Ret emits a near return (C3).
func (b *Builder) Ret() { b.emit(0xC3) }

// Jmp emits an unconditional jump to labelID (rel32 form, patched at
// Finish), always E9 so every forward jump has a stable 5-byte size.
func (b *Builder) Jmp(labelID int) {
	b.emit(0xE9)
	b.recordPatch(labelID, 4)
	b.emit32(0)
}

// Jcc emits a conditional jump to labelID (0F 8x rel32).
func (b *Builder) Jcc(c cc, labelID int) {
	b.emit(0x0F, 0x80|byte(c))
	b.recordPatch(labelID, 4)
	b.emit32(0)
}

func (b *Builder) recordPatch(labelID int, size int) {
	at := len(b.buf)
	b.patches = append(b.patches, pendingPatch{labelID: labelID, patchAt: at, instrEnd: at + size})
}

// CallLabel calls an internal label (another mod function already placed
// in the same text buffer at a known or not-yet-known offset).
func (b *Builder) CallLabel(labelID int) {
	b.emit(0xE8)
	b.recordPatch(labelID, 4)
	b.emit32(0)
}

// ExternalReloc records a use of a symbol whose final address isn't known
// until link time: a PLT call, a GOT-relative load, or a PC-relative
// `.data` string reference.
type ExternalReloc struct {
	Offset int // offset of the 4-byte field to patch, within this function's bytes
	Symbol string
	Kind   RelocKind
}

// RelocKind classifies one ExternalReloc for the linker (spec.md §4.4's
// relocation classes).
type RelocKind uint8

const (
	RelocPCRelData RelocKind = iota // LEA referencing an offset in .data
	RelocPLTCall                    // CALL rel32 to a PLT stub
	RelocGOTLoad                    // MOV/LEA rel32 reading a GOT slot
	RelocHelperCall                 // CALL rel32 to another function emitted in this object
)

// CallExternal emits a CALL rel32 against a symbol resolved later (a game
// function or a runtime-support function, spec.md §4.4's PLT-use record).
func (b *Builder) CallExternal(symbol string) {
	b.emit(0xE8)
	b.externalRelocs = append(b.externalRelocs, ExternalReloc{Offset: len(b.buf), Symbol: symbol, Kind: RelocPLTCall})
	b.emit32(0)
}

// CallHelper emits a CALL rel32 against another function defined in this
// same object (a `<helper>_safe`/`<helper>_fast` or `on_<name>`), patched
// once all function offsets in the object are known.
func (b *Builder) CallHelper(symbol string) {
	b.emit(0xE8)
	b.externalRelocs = append(b.externalRelocs, ExternalReloc{Offset: len(b.buf), Symbol: symbol, Kind: RelocHelperCall})
	b.emit32(0)
}

// LeaData emits `lea dst, [rip+disp]` against a `.data` string symbol,
// patched once the string's final data-section offset is known.
func (b *Builder) LeaData(dst Reg, symbol string) {
	b.emit(rex(true, dst.ext(), false, false), 0x8D)
	b.emit(modrmReg(0, dst.low3(), 5))
	b.externalRelocs = append(b.externalRelocs, ExternalReloc{Offset: len(b.buf), Symbol: symbol, Kind: RelocPCRelData})
	b.emit32(0)
}

// LoadGOT emits `mov dst, [rip+disp]` against an externally-visible
// global (the GOT-load relocation class, spec.md §4.4), e.g.
// `grug_on_fns_in_safe_mode`.
func (b *Builder) LoadGOT(dst Reg, symbol string, w bool) {
	b.emit(rex(w, dst.ext(), false, false), 0x8B)
	b.emit(modrmReg(0, dst.low3(), 5))
	b.externalRelocs = append(b.externalRelocs, ExternalReloc{Offset: len(b.buf), Symbol: symbol, Kind: RelocGOTLoad})
	b.emit32(0)
}

// StoreGOT emits `mov [rip+disp], src`.
func (b *Builder) StoreGOT(symbol string, src Reg, w bool) {
	b.emit(rex(w, src.ext(), false, false), 0x89)
	b.emit(modrmReg(0, src.low3(), 5))
	b.externalRelocs = append(b.externalRelocs, ExternalReloc{Offset: len(b.buf), Symbol: symbol, Kind: RelocGOTLoad})
	b.emit32(0)
}

// Finish resolves every internal label reference and returns the final
// byte stream plus the external relocations, each offset still relative
// to the start of this function's own bytes.
func (b *Builder) Finish() ([]byte, []ExternalReloc) {
	for _, p := range b.patches {
		l := b.labels[p.labelID]
		if !l.resolved {
			panic("codegen: unresolved label")
		}
		rel := int32(l.offset - p.instrEnd)
		binary.LittleEndian.PutUint32(b.buf[p.patchAt:p.patchAt+4], uint32(rel))
	}
	return b.buf, b.externalRelocs
}
