package elflink

// pushElfHeader writes the fixed 0x40-byte ELF64 header. The section
// header table offset is a placeholder patched in once its own offset is
// known, since .shstrtab and the section headers are the very last
// things written.
func (l *linker) pushElfHeader() {
	l.pushByte(0x7f)
	l.pushByte('E')
	l.pushByte('L')
	l.pushByte('F')
	l.pushByte(2) // ELFCLASS64
	l.pushByte(1) // little-endian
	l.pushByte(1) // EI_VERSION
	l.pushByte(0) // ELFOSABI_SYSV
	l.pushZeros(8)

	l.push16(etDyn)
	l.push16(emX8664)
	l.push32(evCurrent)

	l.pushZeros(8) // entry point: none, a shared object has no _start

	l.push64(0x40) // program header table offset

	l.push64(0xEFBEADDEEFBEADDE) // section header table offset, patched below

	l.push32(0) // processor flags

	l.push16(0x40) // e_ehsize
	l.push16(0x38) // e_phentsize
	l.push16(7)    // e_phnum: the seven segments push_program_headers always writes

	nSections := l.sectionHeaderCount()
	l.push16(uint16(0x40))      // e_shentsize
	l.push16(uint16(nSections)) // e_shnum
	l.push16(uint16(l.shShstrtab))
}

func (l *linker) sectionHeaderCount() int {
	n := 11 // null, .hash, .dynsym, .dynstr, .text, .eh_frame, .dynamic, .data, .symtab, .strtab, .shstrtab
	if l.hasGOT {
		n += 2
	}
	if l.hasRelaDyn {
		n++
	}
	if l.hasPLT {
		n += 2
	}
	return n
}

// pushProgramHeaders writes the seven fixed PT_LOAD/PT_DYNAMIC/
// PT_GNU_STACK/PT_GNU_RELRO segments the reference compiler always
// emits, in this order: [.hash.. .rela.plt], [.plt .text], [.eh_frame],
// [.dynamic .got .got.plt .data], [.dynamic] again (PT_DYNAMIC itself),
// an empty PT_GNU_STACK, and a PT_GNU_RELRO over [.dynamic .got].
// Every size/address field referencing a later section is a placeholder
// patched once final offsets are known.
func (l *linker) pushProgramHeaders() {
	const ph = 0xEFBEADDEEFBEADDE

	l.pushProgramHeader(ptLoad, pfR, 0, 0, 0, ph, ph, 0x1000)
	l.pushProgramHeader(ptLoad, pfR|pfX, ph, ph, ph, ph, ph, 0x1000)
	l.pushProgramHeader(ptLoad, pfR, ph, ph, ph, 0, 0, 0x1000)
	l.pushProgramHeader(ptLoad, pfR|pfW, ph, ph, ph, ph, ph, 0x1000)
	l.pushProgramHeader(ptDynamic, pfR|pfW, ph, ph, ph, ph, ph, 8)
	l.pushProgramHeader(ptGnuStack, pfR|pfW, 0, 0, 0, 0, 0, 0x10)
	l.pushProgramHeader(ptGnuRelro, pfR, ph, ph, ph, ph, ph, 1)
}

func (l *linker) pushProgramHeader(typ, flags uint32, offset, vaddr, paddr, filesz, memsz, align uint64) {
	l.push32(typ)
	l.push32(flags)
	l.push64(offset)
	l.push64(vaddr)
	l.push64(paddr)
	l.push64(filesz)
	l.push64(memsz)
	l.push64(align)
}
