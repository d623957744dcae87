package elflink

import (
	"fmt"

	"github.com/grugscript/grug/internal/codegen"
	"github.com/grugscript/grug/internal/manifest"
)

// Link assembles obj into a complete ELF64 ET_DYN shared object, ready to
// be written to a `.so` file and dlopen'd. ent is the manifest entity the
// mod was compiled against (nil for entity-less mods); its declared hook
// order decides which compiled on_ functions end up wired into the
// object's "on_fns" function-pointer array (spec.md §4.5).
func Link(obj *codegen.Object, ent *manifest.Entity) ([]byte, error) {
	l := &linker{obj: obj, ent: ent}
	return l.run()
}

type linker struct {
	byteSink

	obj *codegen.Object
	ent *manifest.Entity
	st  *symbolTable

	hasGOT     bool
	hasPLT     bool
	hasRelaDyn bool

	// section header indices, assigned once has*() are known
	shHash, shDynsym, shDynstr               int
	shRelaDyn, shRelaPlt, shPlt              int
	shText, shEhFrame, shDynamic             int
	shGot, shGotPlt, shData                  int
	shSymtab, shStrtab, shShstrtab           int

	// .shstrtab name offsets for every section, filled by pushShstrtab
	nameSymtab, nameStrtab, nameShstrtab   int
	nameHash, nameDynsym, nameDynstr       int
	nameRelaDyn, nameRelaPlt, namePlt      int
	nameText, nameEhFrame, nameDynamic     int
	nameGot, nameGotPlt, nameData          int

	hashOffset, hashSize                     int
	dynsymOffset, dynsymPlaceholders, dynsymSize int
	dynstrOffset, dynstrSize                 int
	relaDynOffset, relaDynSize               int
	relaPltOffset, relaPltSize               int
	pltOffset, pltSize                       int
	textOffset, textSize                     int
	ehFrameOffset                            int
	dynamicOffset, dynamicSize               int
	gotOffset, gotSize                       int
	gotPltOffset, gotPltSize                 int
	dataOffset, dataSize                     int
	symtabOffset, symtabSize                 int
	strtabOffset, strtabSize                 int
	shstrtabOffset, shstrtabSize             int
	sectionHeadersOffset                     int
	symtabIndexFirstGlobal                   int

	// .data layout
	dataOffsets       []int // per symbol (0-based, unshuffled) index, valid for data symbols only
	dataStringOffsets []int // per obj.Strings index
	resourcesOffset   int
	entitiesOffset    int
	entityTypesOffset int

	// .text layout: concatenation order is init_globals, on_fns..., helpers...
	textFuncs       []codegen.Function
	textOffsets     []int
	textIndexByName map[string]int

	stringIndexByValue map[string]int

	// extern-fn PLT ordering (a separate bfd_hash bucket shuffle over
	// just the extern fn subset, the same way the reference compiler's
	// buckets_used_extern_fns table orders .plt and .got.plt)
	externFnOrder  []string
	pltEntryOffset map[string]int // name -> its .plt entry's offset
	gotPltSlotAddr map[string]int // name -> its .got.plt slot's address
	gotSlotAddr    map[string]int // name -> its .got slot's address

	pltgotValueOffset int // byte offset of DT_PLTGOT's placeholder value
	segment0Size      int // size of the [.hash .. .rela.plt] LOAD segment

	// onFnSlots mirrors, for each of the entity's declared hooks in
	// orderedEntityHooks order, whether this object defines a matching
	// on_ function and which obj.OnFns entry it is.
	onFnSlots []onFnSlot
}

type onFnSlot struct {
	present    bool
	objOnFnIdx int
}

func (l *linker) run() ([]byte, error) {
	hasOnFns := l.ent != nil && len(orderedEntityHooks(l.ent)) > 0
	l.st = buildSymbolTable(l.obj, hasOnFns)

	l.hasPLT = len(l.obj.ExternalFuncs) > 0
	l.hasGOT = len(l.obj.ExternalGlobals) > 0
	l.hasRelaDyn = hasOnFns || len(l.obj.Resources) > 0 || len(l.obj.Entities) > 0

	l.assignSectionIndices()
	l.buildExternFnOrder()
	l.buildTextLayout()
	l.buildDataLayout()
	l.buildOnFnSlots()

	l.pushElfHeader()
	l.pushProgramHeaders()
	l.pushHash()
	l.pushDynsym()
	l.pushDynstr()
	if l.hasRelaDyn {
		l.pushAlignment(8)
	}
	l.relaDynOffset = l.size()
	if l.hasRelaDyn {
		l.pushRelaDyn()
	}
	if l.hasPLT {
		l.pushRelaPlt()
	}

	l.segment0Size = l.size()
	l.pushZeros(roundUpPow2(l.segment0Size, 0x1000) - l.segment0Size)

	l.pltOffset = l.size()
	if l.hasPLT {
		l.pushPlt()
	}
	l.pushText()

	l.ehFrameOffset = roundUpPow2(l.size(), 0x1000)
	l.pushZeros(l.ehFrameOffset - l.size())

	l.pushDynamic()

	if l.hasGOT {
		l.pushGot()
		l.pushGotPlt()
	}

	l.pushData()
	l.pushSymtab()
	l.pushStrtab()
	l.pushShstrtab()
	l.pushSectionHeaders()

	if err := l.patch(); err != nil {
		return nil, err
	}

	return l.buf, nil
}

func roundUpPow2(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// assignSectionIndices mirrors init_section_header_indices: section
// header table indices (not file offsets) are fixed once has*() is
// known, section 0 always being the reserved null section.
func (l *linker) assignSectionIndices() {
	i := 1
	l.shHash = i
	i++
	l.shDynsym = i
	i++
	l.shDynstr = i
	i++
	if l.hasRelaDyn {
		l.shRelaDyn = i
		i++
	}
	if l.hasPLT {
		l.shRelaPlt = i
		i++
		l.shPlt = i
		i++
	}
	l.shText = i
	i++
	l.shEhFrame = i
	i++
	l.shDynamic = i
	i++
	if l.hasGOT {
		l.shGot = i
		i++
		l.shGotPlt = i
		i++
	}
	l.shData = i
	i++
	l.shSymtab = i
	i++
	l.shStrtab = i
	i++
	l.shShstrtab = i
}

// buildExternFnOrder reproduces buckets_used_extern_fns: a bfd_hash
// bucket/chain table over only the called extern functions, used to
// order both .plt and .got.plt the same way `ld` would.
func (l *linker) buildExternFnOrder() {
	if !l.hasPLT {
		return
	}
	bc := newBucketChain(bfdHashBucketSize)
	for _, name := range l.obj.ExternalFuncs {
		bc.insert(bfdHash(name))
	}
	bc.walk(func(itemIndex int) {
		l.externFnOrder = append(l.externFnOrder, l.obj.ExternalFuncs[itemIndex])
	})
	l.pltEntryOffset = make(map[string]int, len(l.externFnOrder))
	l.gotPltSlotAddr = make(map[string]int, len(l.externFnOrder))
}

// buildTextLayout concatenates init_globals, every on_ function (in
// compiled/declared order) and every helper's safe/fast pair into one
// ordered function list, recording each one's eventual byte offset
// within .text once their sizes are known.
func (l *linker) buildTextLayout() {
	l.textFuncs = append(l.textFuncs, l.obj.InitGlobals)
	l.textFuncs = append(l.textFuncs, l.obj.OnFns...)
	l.textFuncs = append(l.textFuncs, l.obj.Helpers...)

	l.textOffsets = make([]int, len(l.textFuncs))
	l.textIndexByName = make(map[string]int, len(l.textFuncs))
	offset := 0
	for i, fn := range l.textFuncs {
		l.textOffsets[i] = offset
		l.textIndexByName[fn.Name] = i
		offset += len(fn.Code)
	}
}

// buildDataLayout reproduces init_data_offsets: the fixed-size data
// symbols (globals_size, on_fns, resources*, entities*) interleave with
// the interned string blob, all within one contiguous .data section.
func (l *linker) buildDataLayout() {
	l.dataOffsets = make([]int, l.st.dataSymbolsCount)
	i := 0
	offset := 0

	l.dataOffsets[i] = offset
	i++
	offset += 8 // globals_size

	hasOnFns := l.ent != nil && len(orderedEntityHooks(l.ent)) > 0
	if hasOnFns {
		l.dataOffsets[i] = offset
		i++
		offset += 8 * len(orderedEntityHooks(l.ent))
	}

	l.dataStringOffsets = make([]int, len(l.obj.Strings))
	l.stringIndexByValue = make(map[string]int, len(l.obj.Strings))
	for si, s := range l.obj.Strings {
		l.dataStringOffsets[si] = offset
		l.stringIndexByValue[s] = si
		offset += len(s) + 1
	}

	if excess := offset % 8; excess > 0 {
		offset += 8 - excess
	}
	l.dataOffsets[i] = offset // resources_size
	i++
	offset += 8

	if len(l.obj.Resources) > 0 {
		l.dataOffsets[i] = offset
		i++
		l.resourcesOffset = offset
		offset += 8 * len(l.obj.Resources)
	}

	l.dataOffsets[i] = offset // entities_size
	i++
	offset += 8

	if len(l.obj.Entities) > 0 {
		l.dataOffsets[i] = offset
		i++
		l.entitiesOffset = offset
		offset += 8 * len(l.obj.Entities)

		l.dataOffsets[i] = offset
		i++
		l.entityTypesOffset = offset
		offset += 8 * len(l.obj.Entities)
	}

	l.dataSize = offset
}

// buildOnFnSlots matches each of the entity's declared hooks, in
// orderedEntityHooks order, against the obj.OnFns function of the same
// name (manifest hook names already carry the on_ prefix). A hook the mod never implements leaves that .data slot
// zeroed and gets no .rela.dyn entry, mirroring get_on_fn/push_data.
func (l *linker) buildOnFnSlots() {
	if l.ent == nil {
		return
	}
	byName := make(map[string]int, len(l.obj.OnFns))
	for i, fn := range l.obj.OnFns {
		byName[fn.Name] = i
	}
	hooks := orderedEntityHooks(l.ent)
	l.onFnSlots = make([]onFnSlot, len(hooks))
	for i, hook := range hooks {
		if j, ok := byName[hook]; ok {
			l.onFnSlots[i] = onFnSlot{present: true, objOnFnIdx: j}
		}
	}
}

// textOffsetOf returns fn's eventual byte offset within .text, by name.
func (l *linker) textOffsetOf(name string) (int, bool) {
	i, ok := l.textIndexByName[name]
	if !ok {
		return 0, false
	}
	return l.textOffset + l.textOffsets[i], true
}

// stringOffsetOf returns the .data byte offset of the interned string s,
// by value: obj.Resources/obj.Entities store the string itself, not its
// obj.Strings index, since whatever expression produced them already
// interned the same value.
func (l *linker) stringOffsetOf(s string) (int, bool) {
	i, ok := l.stringIndexByValue[s]
	if !ok {
		return 0, false
	}
	return l.dataOffset + l.dataStringOffsets[i], true
}

// stringIndex parses back the ".Lstr%d" symbol intern() produces.
func stringIndex(symbol string) (int, bool) {
	var i int
	if n, err := fmt.Sscanf(symbol, ".Lstr%d", &i); err != nil || n != 1 {
		return 0, false
	}
	return i, true
}
