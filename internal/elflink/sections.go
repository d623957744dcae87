package elflink

// pushHash writes the real ELF `.hash` section (distinct from the
// internal bfdHashBucketSize table used only to order .dynsym): its
// bucket count comes from getNbucket, and it hashes with elfHash over
// the already-shuffled symbol names.
func (l *linker) pushHash() {
	l.hashOffset = l.size()

	nbucket := getNbucket(len(l.st.shuffled))
	l.push32(nbucket)
	l.push32(uint32(1 + len(l.st.shuffled)))

	bc := newBucketChain(int(nbucket))
	for _, name := range l.st.shuffled {
		bc.insert(uint64(elfHash(name)))
	}

	for _, b := range bc.buckets {
		l.push32(b)
	}
	for _, c := range bc.chain {
		l.push32(c)
	}

	l.hashSize = l.size() - l.hashOffset
	l.pushAlignment(8)
}

// pushDynsym writes the null entry plus one placeholder entry per
// symbol, in shuffled order; patch() fills every field in once every
// other section's offset is known.
func (l *linker) pushDynsym() {
	l.dynsymOffset = l.size()
	l.pushSymbolEntry(0, elf32StInfo(stbLocal, sttNotype), shnUndef, 0)
	l.dynsymPlaceholders = l.size()
	for range l.st.shuffled {
		l.pushSymbolEntry(0xEFBEADDE, 0xADDE, 0xADDE, 0xEFBEADDE)
	}
	l.dynsymSize = l.size() - l.dynsymOffset
}

func (l *linker) pushSymbolEntry(nameOff uint32, info, shndx uint16, value uint32) {
	l.push32(nameOff)
	l.push16(info)
	l.push16(shndx)
	l.push32(value)
	l.pushZeros(symtabEntrySize - 4 - 2 - 2 - 4)
}

// pushDynstr writes the symbol names in declaration (unshuffled) order,
// each NUL terminated, preceded by .dynstr's mandatory leading NUL.
func (l *linker) pushDynstr() {
	l.dynstrOffset = l.size()
	l.pushByte(0)
	for _, name := range l.st.names {
		l.pushString(name)
	}
	l.dynstrSize = l.size() - l.dynstrOffset
}

// pushRelaDyn reserves one R_X86_64_RELATIVE placeholder per entity hook
// actually implemented by an on_ function, resource path and entity
// dependency (both `entities` and `entity_types`), followed by one
// R_X86_64_GLOB_DAT placeholder per extern global, walked in the reverse
// of their dynsym declaration order — which is exactly .got's physical
// slot order, per push_rela_dyn's own "nasm" comment.
func (l *linker) pushRelaDyn() {
	l.relaDynOffset = l.size()

	for _, slot := range l.onFnSlots {
		if slot.present {
			l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(0, rX8664Relative), 0xEFBEADDEEFBEADDE)
		}
	}
	for range l.obj.Resources {
		l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(0, rX8664Relative), 0xEFBEADDEEFBEADDE)
	}
	for range l.obj.Entities {
		l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(0, rX8664Relative), 0xEFBEADDEEFBEADDE)
	}
	for range l.obj.Entities {
		l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(0, rX8664Relative), 0xEFBEADDEEFBEADDE)
	}

	// buildSymbolTable declared these in the reverse of .got's physical
	// slot order, so walking gotGlobals forward here visits symbols in
	// reverse declaration order, matching push_rela_dyn's own loop.
	gotGlobals := gotOrderedExternGlobals(l.obj)
	n := len(gotGlobals)
	for j := 0; j < n; j++ {
		origIdx := l.st.firstExternDataIndex + (n - 1 - j)
		shuffledIdx := l.st.originalToShuffled[origIdx]
		l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(uint64(1+shuffledIdx), rX8664GlobDat), 0xEFBEADDEEFBEADDE)
	}

	l.relaDynSize = l.size() - l.relaDynOffset
}

func (l *linker) pushRela(offset, info, addend uint64) {
	l.push64(offset)
	l.push64(info)
	l.push64(addend)
}

// pushRelaPlt writes one R_X86_64_JUMP_SLOT entry per extern function,
// in the main shuffled-symbol order (the dynamic linker resolves these
// lazily by dynsym index, so this order must match .dynsym's).
func (l *linker) pushRelaPlt() {
	l.relaPltOffset = l.size()

	for shuffledIdx, origIdx := range l.st.shuffledToOriginal {
		if !l.st.isExternFn(origIdx) {
			continue
		}
		dynsymIndex := 1 + shuffledIdx
		l.pushRela(0xEFBEADDEEFBEADDE, elf64RInfo(uint64(dynsymIndex), rX8664JumpSlot), 0)
	}

	l.relaPltSize = l.size() - l.relaPltOffset
}

// pushPlt writes the shared PLT0 stub plus one 16-byte entry per extern
// function, in externFnOrder (buckets_used_extern_fns order): this is
// the order `ld` itself assigns, which .got.plt mirrors slot for slot.
func (l *linker) pushPlt() {
	l.pltOffset = l.size()

	l.push16(pushRel)
	l.push32(0xEFBEADDE)
	l.push16(jmpRel)
	l.push32(0xEFBEADDE)
	l.push32(nop32Bits)

	offset := 0x10
	for i, name := range l.externFnOrder {
		entryOffset := l.pltOffset + offset
		l.pltEntryOffset[name] = entryOffset

		l.push16(jmpRel)
		l.push32(0xEFBEADDE) // GOT slot rel32, patched once .got.plt exists
		l.pushByte(push32Bits)
		l.push32(uint32(i))
		l.pushByte(jmp32BitOff)
		l.push32(uint32(int32(-offset - 0x10))) // rel32 back to PLT0's first byte

		offset += pltEntrySize
	}

	l.pltSize = l.size() - l.pltOffset
}

func (l *linker) pushText() {
	l.textOffset = l.size()
	for _, fn := range l.textFuncs {
		l.pushBytes(fn.Code)
	}
	l.textSize = l.size() - l.textOffset
	l.pushAlignment(8)
}

// pushDynamic writes the .dynamic section. Its offset is computed
// backwards from the start of the next 0x1000-aligned segment, exactly
// as the reference compiler does: .dynamic lives at the tail end of
// that segment together with .got/.got.plt/.data, so its own start has
// to leave room for .got's fixed runtime-global slots and .got.plt's
// page-alignment quirk (GOT_PLT_INTRO_SIZE) before the next page
// boundary.
func (l *linker) pushDynamic() {
	entrySize := 0x10
	l.dynamicSize = 11 * entrySize
	if l.hasPLT {
		l.dynamicSize += 4 * entrySize
	}
	if l.hasRelaDyn {
		l.dynamicSize += 3 * entrySize
	}

	segmentOffset := 0x1000
	l.dynamicOffset = l.size() + segmentOffset - l.dynamicSize
	if l.hasGOT {
		l.dynamicOffset -= 8 * len(l.obj.ExternalGlobals)
		l.dynamicOffset -= gotPltIntroSize
	}

	l.pushZeros(l.dynamicOffset - l.size())

	l.pushDynamicEntry(dtHash, uint64(l.hashOffset))
	l.pushDynamicEntry(dtStrtab, uint64(l.dynstrOffset))
	l.pushDynamicEntry(dtSymtab, uint64(l.dynsymOffset))
	l.pushDynamicEntry(dtStrsz, uint64(l.dynstrSize))
	l.pushDynamicEntry(dtSyment, symtabEntrySize)

	if l.hasPLT {
		l.push64(dtPltgot)
		l.pltgotValueOffset = l.size()
		l.push64(0xEFBEADDEEFBEADDE) // patched once .got.plt's offset is known
		// DT_PLTRELSZ is the byte size of the relocations DT_JMPREL
		// points at (.rela.plt, one 24-byte Elf64_Rela per entry), not
		// of .plt's own 16-byte entries.
		l.pushDynamicEntry(dtPltrelsz, uint64(relaEntrySize*len(l.obj.ExternalFuncs)))
		l.pushDynamicEntry(dtPltrel, dtRela)
		l.pushDynamicEntry(dtJmprel, uint64(l.relaPltOffset))
	}

	relaCount := 0
	if l.hasRelaDyn {
		relaCount = len(l.obj.OnFns) + len(l.obj.Resources) + 2*len(l.obj.Entities)
		l.pushDynamicEntry(dtRela, uint64(l.relaDynOffset))
		l.pushDynamicEntry(dtRelasz, uint64((relaCount+len(l.obj.ExternalGlobals))*relaEntrySize))
		l.pushDynamicEntry(dtRelaent, relaEntrySize)
		if relaCount > 0 {
			l.pushDynamicEntry(dtRelacount, uint64(relaCount))
		}
	}

	l.pushDynamicEntry(dtNull, 0)

	// The exact purpose of this trailing padding is undocumented upstream;
	// it shrinks by one entry whenever DT_RELACOUNT was actually written,
	// keeping dynamicSize's entry budget (computed before any of this was
	// pushed) exactly matched.
	padding := 5 * entrySize
	if relaCount > 0 {
		padding -= entrySize
	}
	l.pushZeros(padding)
}

func (l *linker) pushDynamicEntry(tag uint64, value uint64) {
	l.push64(tag)
	l.push64(value)
}

// pushGot writes one 8-byte slot per extern global the object reads or
// writes, zero-initialized (the dynamic linker fills these in via the
// R_X86_64_GLOB_DAT relocations pushRelaDyn reserved).
func (l *linker) pushGot() {
	l.gotOffset = l.size()
	l.gotSlotAddr = make(map[string]int, len(l.obj.ExternalGlobals))
	for _, name := range gotOrderedExternGlobals(l.obj) {
		l.gotSlotAddr[name] = l.size()
		l.pushZeros(8)
	}
	l.gotSize = l.size() - l.gotOffset
}

// pushGotPlt writes the three reserved introductory slots (the first
// pointing at .dynamic, the other two left for the dynamic linker) plus
// one slot per extern function in externFnOrder, each initially pointing
// at its own PLT entry's `push` instruction (lazy-binding's default).
func (l *linker) pushGotPlt() {
	l.gotPltOffset = l.size()

	l.push64(uint64(l.dynamicOffset))
	l.pushZeros(8)
	l.pushZeros(8)

	offset := l.pltOffset + pltEntrySize + 0x6
	for _, name := range l.externFnOrder {
		l.gotPltSlotAddr[name] = l.size()
		l.push64(uint64(offset))
		offset += pltEntrySize
	}

	l.gotPltSize = l.size() - l.gotPltOffset
}

// pushData writes the contiguous data blob whose layout buildDataLayout
// already computed: globals_size, the on_fns pointer array (placeholder
// zeros patched via .rela.dyn), every interned string, then the
// resources/entities/entity_types arrays (also patched via .rela.dyn).
func (l *linker) pushData() {
	l.dataOffset = l.size()

	l.push64(uint64(l.obj.GlobalsSize))

	if l.ent != nil {
		for range orderedEntityHooks(l.ent) {
			l.pushZeros(8)
		}
	}

	for _, s := range l.obj.Strings {
		l.pushString(s)
	}

	l.pushAlignment(8)
	l.push64(uint64(len(l.obj.Resources)))
	for range l.obj.Resources {
		l.pushZeros(8)
	}

	l.push64(uint64(len(l.obj.Entities)))
	for range l.obj.Entities {
		l.pushZeros(8)
	}
	for range l.obj.Entities {
		l.pushZeros(8)
	}

	l.pushAlignment(8)
	l.dataSize = l.size() - l.dataOffset
}

// pushSymtab writes the static symbol table: a null entry, "_DYNAMIC",
// optionally "_GLOBAL_OFFSET_TABLE_", then one global entry per dynamic
// symbol in shuffled order.
func (l *linker) pushSymtab() {
	l.symtabOffset = l.size()

	pushed := 0
	l.pushSymbolEntry(0, elf32StInfo(stbLocal, sttNotype), shnUndef, 0)
	pushed++

	nameOffset := 1
	l.pushSymbolEntry(uint32(nameOffset), elf32StInfo(stbLocal, sttObject), uint16(l.shDynamic), uint32(l.dynamicOffset))
	pushed++
	nameOffset += len("_DYNAMIC") + 1

	if l.hasGOT {
		l.pushSymbolEntry(uint32(nameOffset), elf32StInfo(stbLocal, sttObject), uint16(l.shGotPlt), uint32(l.gotPltOffset))
		pushed++
		nameOffset += len("_GLOBAL_OFFSET_TABLE_") + 1
	}

	l.symtabIndexFirstGlobal = pushed

	strtabOffsets := l.symbolNameStrtabOffsets()
	for _, origIdx := range l.st.shuffledToOriginal {
		l.pushSymbolEntry(
			uint32(nameOffset+strtabOffsets[origIdx]),
			elf32StInfo(stbGlobal, sttNotype),
			uint16(l.symbolShndx(origIdx)),
			uint32(l.symbolOffset(origIdx)),
		)
	}

	l.symtabSize = l.size() - l.symtabOffset
}

// symbolNameStrtabOffsets returns, per unshuffled symbol index, that
// symbol's byte offset within the name blob .strtab appends after
// "_DYNAMIC"/"_GLOBAL_OFFSET_TABLE_" — names are written in shuffled
// order, so later names' offsets depend on every earlier shuffled name's
// length.
func (l *linker) symbolNameStrtabOffsets() []int {
	offsets := make([]int, len(l.st.names))
	offset := 0
	for _, origIdx := range l.st.shuffledToOriginal {
		offsets[origIdx] = offset
		offset += len(l.st.names[origIdx]) + 1
	}
	return offsets
}

func (l *linker) symbolOffset(symbolIndex int) int {
	if l.st.isData(symbolIndex) {
		return l.dataOffset + l.dataOffsets[symbolIndex]
	}
	if l.st.isExternData(symbolIndex) || l.st.isExternFn(symbolIndex) {
		return 0
	}
	return l.textOffset + l.textOffsets[l.st.textFuncIndex(symbolIndex)]
}

func (l *linker) symbolShndx(symbolIndex int) int {
	if l.st.isData(symbolIndex) {
		return l.shData
	}
	if l.st.isExternData(symbolIndex) || l.st.isExternFn(symbolIndex) {
		return shnUndef
	}
	return l.shText
}

func (l *linker) pushStrtab() {
	l.strtabOffset = l.size()
	l.pushByte(0)
	l.pushString("_DYNAMIC")
	if l.hasGOT {
		l.pushString("_GLOBAL_OFFSET_TABLE_")
	}
	for _, origIdx := range l.st.shuffledToOriginal {
		l.pushString(l.st.names[origIdx])
	}
	l.strtabSize = l.size() - l.strtabOffset
}

func (l *linker) pushShstrtab() {
	l.shstrtabOffset = l.size()

	offset := 0
	l.pushByte(0)
	offset++

	push := func(s string) int {
		at := offset
		l.pushString(s)
		offset += len(s) + 1
		return at
	}

	l.nameSymtab = push(".symtab")
	l.nameStrtab = push(".strtab")
	l.nameShstrtab = push(".shstrtab")
	l.nameHash = push(".hash")
	l.nameDynsym = push(".dynsym")
	l.nameDynstr = push(".dynstr")
	if l.hasRelaDyn {
		l.nameRelaDyn = push(".rela.dyn")
	}
	if l.hasPLT {
		// ".rela.plt\0" already ends in the bytes ".plt\0" would need, so
		// .plt's name offset points five bytes into .rela.plt's string
		// instead of writing a second copy.
		l.nameRelaPlt = offset
		l.pushString(".rela.plt")
		offset += len(".rela")
		l.namePlt = offset
		offset += len(".plt") + 1
	}
	l.nameText = push(".text")
	l.nameEhFrame = push(".eh_frame")
	l.nameDynamic = push(".dynamic")
	if l.hasGOT {
		l.nameGot = push(".got")
		l.nameGotPlt = push(".got.plt")
	}
	l.nameData = push(".data")

	l.shstrtabSize = l.size() - l.shstrtabOffset
	l.pushAlignment(8)
}

func (l *linker) pushSectionHeader(nameOffset int, typ uint32, flags, address, offset, size uint64, link, info uint32, alignment, entrySize uint64) {
	l.push32(uint32(nameOffset))
	l.push32(typ)
	l.push64(flags)
	l.push64(address)
	l.push64(offset)
	l.push64(size)
	l.push32(link)
	l.push32(info)
	l.push64(alignment)
	l.push64(entrySize)
}

func (l *linker) pushSectionHeaders() {
	l.sectionHeadersOffset = l.size()

	l.pushZeros(0x40) // null section

	l.pushSectionHeader(l.nameHash, shtHash, shfAlloc, uint64(l.hashOffset), uint64(l.hashOffset), uint64(l.hashSize), uint32(l.shDynsym), 0, 8, 4)
	l.pushSectionHeader(l.nameDynsym, shtDynsym, shfAlloc, uint64(l.dynsymOffset), uint64(l.dynsymOffset), uint64(l.dynsymSize), uint32(l.shDynstr), 1, 8, symtabEntrySize)
	l.pushSectionHeader(l.nameDynstr, shtStrtab, shfAlloc, uint64(l.dynstrOffset), uint64(l.dynstrOffset), uint64(l.dynstrSize), shnUndef, 0, 1, 0)

	if l.hasRelaDyn {
		l.pushSectionHeader(l.nameRelaDyn, shtRela, shfAlloc, uint64(l.relaDynOffset), uint64(l.relaDynOffset), uint64(l.relaDynSize), uint32(l.shDynsym), 0, 8, relaEntrySize)
	}
	if l.hasPLT {
		l.pushSectionHeader(l.nameRelaPlt, shtRela, shfAlloc|shfInfoLink, uint64(l.relaPltOffset), uint64(l.relaPltOffset), uint64(l.relaPltSize), uint32(l.shDynsym), uint32(l.shGotPlt), 8, relaEntrySize)
		l.pushSectionHeader(l.namePlt, shtProgbits, shfAlloc|shfExecinstr, uint64(l.pltOffset), uint64(l.pltOffset), uint64(l.pltSize), shnUndef, 0, 16, 16)
	}

	l.pushSectionHeader(l.nameText, shtProgbits, shfAlloc|shfExecinstr, uint64(l.textOffset), uint64(l.textOffset), uint64(l.textSize), shnUndef, 0, 16, 0)
	l.pushSectionHeader(l.nameEhFrame, shtProgbits, shfAlloc, uint64(l.ehFrameOffset), uint64(l.ehFrameOffset), 0, shnUndef, 0, 8, 0)
	l.pushSectionHeader(l.nameDynamic, shtDynamic, shfWrite|shfAlloc, uint64(l.dynamicOffset), uint64(l.dynamicOffset), uint64(l.dynamicSize), uint32(l.shDynstr), 0, 8, 16)

	if l.hasGOT {
		l.pushSectionHeader(l.nameGot, shtProgbits, shfWrite|shfAlloc, uint64(l.gotOffset), uint64(l.gotOffset), uint64(l.gotSize), shnUndef, 0, 8, 8)
		l.pushSectionHeader(l.nameGotPlt, shtProgbits, shfWrite|shfAlloc, uint64(l.gotPltOffset), uint64(l.gotPltOffset), uint64(l.gotPltSize), shnUndef, 0, 8, 8)
	}

	l.pushSectionHeader(l.nameData, shtProgbits, shfWrite|shfAlloc, uint64(l.dataOffset), uint64(l.dataOffset), uint64(l.dataSize), shnUndef, 0, 8, 0)
	l.pushSectionHeader(l.nameSymtab, shtSymtab, 0, 0, uint64(l.symtabOffset), uint64(l.symtabSize), uint32(l.shStrtab), uint32(l.symtabIndexFirstGlobal), 8, symtabEntrySize)
	l.pushSectionHeader(l.nameStrtab, shtStrtab, 0, 0, uint64(l.strtabOffset), uint64(l.strtabSize), shnUndef, 0, 1, 0)
	l.pushSectionHeader(l.nameShstrtab, shtStrtab, 0, 0, uint64(l.shstrtabOffset), uint64(l.shstrtabSize), shnUndef, 0, 1, 0)
}
