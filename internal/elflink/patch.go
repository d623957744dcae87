package elflink

import (
	"fmt"

	"github.com/grugscript/grug/internal/codegen"
)

// patch resolves every placeholder run() wrote while section offsets were
// still unknown: the ELF header's section header table offset, the seven
// program headers' segment boundaries, every `.dynsym` entry, `.plt`'s
// and `.rela.plt`'s cross-references into `.got.plt`, `.rela.dyn`'s
// targets, `.dynamic`'s DT_PLTGOT, and finally every compiled function's
// own relocations against strings, helpers, extern functions and extern
// globals. Mirrors patch_bytes's own call order exactly.
func (l *linker) patch() error {
	l.overwrite64(uint64(l.sectionHeadersOffset), 0x28)

	l.patchProgramHeaders()
	l.patchDynsym()

	if l.hasRelaDyn {
		l.patchRelaDyn()
	}
	if l.hasPLT {
		l.patchRelaPlt()
		l.patchPlt()
	}

	if err := l.patchText(); err != nil {
		return err
	}

	l.patchDynamic()

	return nil
}

// patchProgramHeaders fills in the seven fixed program headers' segment
// boundaries, at the same hardcoded byte offsets the reference compiler
// uses (program headers always start at 0x40 and are always 0x38 bytes
// each, so these offsets never move).
func (l *linker) patchProgramHeaders() {
	// Segment 0: .hash, .dynsym, .dynstr, .rela.dyn, .rela.plt
	l.overwrite64(uint64(l.segment0Size), 0x60) // file_size
	l.overwrite64(uint64(l.segment0Size), 0x68) // mem_size

	// Segment 1: .plt, .text
	l.overwrite64(uint64(l.pltOffset), 0x80) // offset
	l.overwrite64(uint64(l.pltOffset), 0x88) // virtual_address
	l.overwrite64(uint64(l.pltOffset), 0x90) // physical_address
	size := l.textSize
	if l.hasPLT {
		size += l.pltSize
	}
	l.overwrite64(uint64(size), 0x98)  // file_size
	l.overwrite64(uint64(size), 0xa0)  // mem_size

	// Segment 2: .eh_frame
	l.overwrite64(uint64(l.ehFrameOffset), 0xb8)
	l.overwrite64(uint64(l.ehFrameOffset), 0xc0)
	l.overwrite64(uint64(l.ehFrameOffset), 0xc8)

	// Segment 3: .dynamic, .got, .got.plt, .data
	l.overwrite64(uint64(l.dynamicOffset), 0xf0)
	l.overwrite64(uint64(l.dynamicOffset), 0xf8)
	l.overwrite64(uint64(l.dynamicOffset), 0x100)
	size = l.dynamicSize + l.dataSize
	if l.hasGOT {
		size += l.gotSize + l.gotPltSize
	}
	l.overwrite64(uint64(size), 0x108)
	l.overwrite64(uint64(size), 0x110)

	// Segment 4: PT_DYNAMIC
	l.overwrite64(uint64(l.dynamicOffset), 0x128)
	l.overwrite64(uint64(l.dynamicOffset), 0x130)
	l.overwrite64(uint64(l.dynamicOffset), 0x138)
	l.overwrite64(uint64(l.dynamicSize), 0x140)
	l.overwrite64(uint64(l.dynamicSize), 0x148)

	// Segment 5: PT_GNU_STACK is always empty, nothing to patch.

	// Segment 6: PT_GNU_RELRO over .dynamic, .got
	l.overwrite64(uint64(l.dynamicOffset), 0x198)
	l.overwrite64(uint64(l.dynamicOffset), 0x1a0)
	l.overwrite64(uint64(l.dynamicOffset), 0x1a8)
	relroSize := l.dynamicSize
	if l.hasGOT {
		relroSize += l.gotSize + gotPltIntroSize
	}
	l.overwrite64(uint64(relroSize), 0x1b0)
	l.overwrite64(uint64(relroSize), 0x1b8)
}

// symbolNameDynstrOffsets returns, per unshuffled symbol index, that
// symbol's byte offset within .dynstr — names are written there in
// declaration order, so this is a plain running sum starting after the
// section's mandatory leading NUL.
func (l *linker) symbolNameDynstrOffsets() []int {
	offsets := make([]int, len(l.st.names))
	offset := 1
	for i, name := range l.st.names {
		offsets[i] = offset
		offset += len(name) + 1
	}
	return offsets
}

// patchDynsym fills in every placeholder entry pushDynsym wrote, walking
// them in the same shuffled order they were pushed in.
func (l *linker) patchDynsym() {
	dynstrOffsets := l.symbolNameDynstrOffsets()
	at := l.dynsymPlaceholders
	for _, origIdx := range l.st.shuffledToOriginal {
		l.overwrite32(uint32(dynstrOffsets[origIdx]), at)
		l.overwrite16(elf32StInfo(stbGlobal, sttNotype), at+4)
		l.overwrite16(uint16(l.symbolShndx(origIdx)), at+6)
		l.overwrite32(uint32(l.symbolOffset(origIdx)), at+8)
		at += symtabEntrySize
	}
}

func (l *linker) overwrite16(n uint16, at int) {
	l.buf[at] = byte(n)
	l.buf[at+1] = byte(n >> 8)
}

// patchRelaPlt fills in each R_X86_64_JUMP_SLOT entry's r_offset with its
// symbol's .got.plt slot address, walked in the same dynsym-shuffled
// order pushRelaPlt wrote them in.
func (l *linker) patchRelaPlt() {
	valueOffset := l.gotPltOffset + gotPltIntroSize
	addressOffset := l.relaPltOffset
	for _, origIdx := range l.st.shuffledToOriginal {
		if !l.st.isExternFn(origIdx) {
			continue
		}
		l.overwrite64(uint64(valueOffset), addressOffset)
		valueOffset += 8
		addressOffset += relaEntrySize
	}
}

// patchPlt fills in PLT0's two addresses into .got.plt, plus every
// entry's own GOT-slot rel32 (the entry's push-immediate and
// jump-back-to-PLT0 fields were already written as final values by
// pushPlt, since both only depend on the entry's own position in .plt).
func (l *linker) patchPlt() {
	l.overwrite32(uint32(int32(l.gotPltOffset-l.pltOffset+2)), l.pltOffset+2)
	l.overwrite32(uint32(int32(l.gotPltOffset-l.pltOffset+4)), l.pltOffset+8)

	for _, name := range l.externFnOrder {
		entryOffset := l.pltEntryOffset[name]
		value := l.gotPltSlotAddr[name] - (entryOffset + 6)
		l.overwrite32(uint32(int32(value)), entryOffset+2)
	}
}

// patchRelaDyn fills in every R_X86_64_RELATIVE entry's r_offset/addend
// for implemented on_ hooks, resources, entities and entity_types, then
// every R_X86_64_GLOB_DAT entry's r_offset for extern globals, in the
// same order pushRelaDyn wrote them in.
func (l *linker) patchRelaDyn() {
	at := l.relaDynOffset

	// dataOffsets[1] is only the on_fns slot when the entity has hooks at
	// all (buildDataLayout only reserves it in that case), which is
	// exactly when onFnSlots is non-empty.
	onFnsDataOffset := 0
	if len(l.onFnSlots) > 0 {
		onFnsDataOffset = l.dataOffset + l.dataOffsets[1]
	}
	for i, slot := range l.onFnSlots {
		if !slot.present {
			continue
		}
		target, _ := l.textOffsetOf(l.obj.OnFns[slot.objOnFnIdx].Name)
		l.overwrite64(uint64(onFnsDataOffset+8*i), at)
		l.overwrite64(uint64(target), at+16)
		at += relaEntrySize
	}

	for i, path := range l.obj.Resources {
		target, _ := l.stringOffsetOf(path)
		l.overwrite64(uint64(l.dataOffset+l.resourcesOffset+8*i), at)
		l.overwrite64(uint64(target), at+16)
		at += relaEntrySize
	}

	for i, ref := range l.obj.Entities {
		target, _ := l.stringOffsetOf(ref.Name)
		l.overwrite64(uint64(l.dataOffset+l.entitiesOffset+8*i), at)
		l.overwrite64(uint64(target), at+16)
		at += relaEntrySize
	}

	for i, ref := range l.obj.Entities {
		target, _ := l.stringOffsetOf(ref.EntityType)
		l.overwrite64(uint64(l.dataOffset+l.entityTypesOffset+8*i), at)
		l.overwrite64(uint64(target), at+16)
		at += relaEntrySize
	}

	gotGlobals := gotOrderedExternGlobals(l.obj)
	for i := range gotGlobals {
		l.overwrite64(uint64(l.gotOffset+8*i), at)
		l.overwrite64(0, at+16)
		at += relaEntrySize
	}
}

// patchDynamic fills in DT_PLTGOT's value once .got.plt's address is
// known.
func (l *linker) patchDynamic() {
	if l.hasPLT {
		l.overwrite64(uint64(l.gotPltOffset), l.pltgotValueOffset)
	}
}

// patchText walks every compiled function's relocations and resolves
// each one against its final address, mirroring patch_text's four
// passes (extern fn calls, helper calls, string loads, GOT loads) but
// driven directly off codegen.ExternalReloc instead of separate tables.
func (l *linker) patchText() error {
	for i, fn := range l.textFuncs {
		base := l.textOffset + l.textOffsets[i]
		for _, r := range fn.Relocs {
			pos := base + r.Offset
			nextInstr := pos + nextInstructionOffset

			var target int
			switch r.Kind {
			case codegen.RelocPLTCall:
				v, ok := l.pltEntryOffset[r.Symbol]
				if !ok {
					return fmt.Errorf("elflink: %s calls unresolved extern function %q", fn.Name, r.Symbol)
				}
				target = v
			case codegen.RelocHelperCall:
				v, ok := l.textOffsetOf(r.Symbol)
				if !ok {
					return fmt.Errorf("elflink: %s calls unresolved function %q", fn.Name, r.Symbol)
				}
				target = v
			case codegen.RelocPCRelData:
				idx, ok := stringIndex(r.Symbol)
				if !ok || idx >= len(l.dataStringOffsets) {
					return fmt.Errorf("elflink: %s references unresolved string %q", fn.Name, r.Symbol)
				}
				target = l.dataOffset + l.dataStringOffsets[idx]
			case codegen.RelocGOTLoad:
				v, ok := l.gotSlotAddr[r.Symbol]
				if !ok {
					return fmt.Errorf("elflink: %s references unresolved global %q", fn.Name, r.Symbol)
				}
				target = v
			default:
				return fmt.Errorf("elflink: %s has relocation of unknown kind %d", fn.Name, r.Kind)
			}

			l.overwrite32(uint32(int32(target-nextInstr)), pos)
		}
	}
	return nil
}
