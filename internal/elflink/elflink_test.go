package elflink

import (
	"encoding/binary"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/grugscript/grug/internal/codegen"
	"github.com/grugscript/grug/internal/manifest"
)

// retCode is a one-instruction "function body" (ret) wide enough to give
// every section real, distinguishable bytes without depending on the
// code generator.
var retCode = []byte{0xc3}

func minimalObject() *codegen.Object {
	return &codegen.Object{
		GlobalsSize: 4,
		InitGlobals: codegen.Function{Name: "init_globals", Code: retCode},
	}
}

func TestLinkMinimalObjectHasValidElfHeader(t *testing.T) {
	obj := minimalObject()
	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if len(buf) < 0x40 {
		t.Fatalf("output too short for an ELF header: %d bytes", len(buf))
	}
	if string(buf[0:4]) != "\x7fELF" {
		t.Fatalf("bad magic: %x", buf[0:4])
	}
	if buf[4] != 2 {
		t.Fatalf("want ELFCLASS64, got %d", buf[4])
	}
	if buf[5] != 1 {
		t.Fatalf("want little-endian, got %d", buf[5])
	}
	if got := binary.LittleEndian.Uint16(buf[16:18]); got != etDyn {
		t.Fatalf("e_type: want ET_DYN(%d), got %d", etDyn, got)
	}
	if got := binary.LittleEndian.Uint16(buf[18:20]); got != emX8664 {
		t.Fatalf("e_machine: want EM_X86_64(%d), got %d", emX8664, got)
	}
	if got := binary.LittleEndian.Uint64(buf[24:32]); got != 0 {
		t.Fatalf("e_entry: want 0 (no _start in a shared object), got %d", got)
	}
	if got := binary.LittleEndian.Uint64(buf[32:40]); got != 0x40 {
		t.Fatalf("e_phoff: want 0x40, got %#x", got)
	}
	if got := binary.LittleEndian.Uint16(buf[56:58]); got != 7 {
		t.Fatalf("e_phnum: want 7, got %d", got)
	}

	shoff := binary.LittleEndian.Uint64(buf[40:48])
	if shoff == 0 || int(shoff) >= len(buf) {
		t.Fatalf("e_shoff: %#x out of range for a %d-byte file", shoff, len(buf))
	}
	shstrndx := binary.LittleEndian.Uint16(buf[62:64])
	if int(shstrndx) == 0 {
		t.Fatalf("e_shstrndx: want nonzero (.shstrtab is never the null section)")
	}
}

func TestLinkProgramHeaderCountAndTypesAreFixed(t *testing.T) {
	obj := minimalObject()
	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	wantTypes := []uint32{ptLoad, ptLoad, ptLoad, ptLoad, ptDynamic, ptGnuStack, ptGnuRelro}
	for i, want := range wantTypes {
		at := 0x40 + i*0x38
		got := binary.LittleEndian.Uint32(buf[at : at+4])
		if got != want {
			t.Fatalf("program header %d: want type %#x, got %#x", i, want, got)
		}
	}
}

func TestLinkNoExternsOmitsGotPltAndRelaDyn(t *testing.T) {
	obj := minimalObject()
	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	l := &linker{obj: obj}
	l.hasPLT = len(obj.ExternalFuncs) > 0
	l.hasGOT = len(obj.ExternalGlobals) > 0
	l.hasRelaDyn = len(obj.OnFns) > 0 || len(obj.Resources) > 0 || len(obj.Entities) > 0
	if l.hasPLT || l.hasGOT || l.hasRelaDyn {
		t.Fatalf("minimalObject unexpectedly needs PLT/GOT/rela.dyn")
	}

	nSections := binary.LittleEndian.Uint16(buf[60:62])
	if nSections != 11 {
		t.Fatalf("e_shnum: want 11 (no .got/.got.plt/.rela.dyn/.rela.plt/.plt), got %d", nSections)
	}
}

func TestLinkExternFunctionGetsPltAndRelaPltEntries(t *testing.T) {
	obj := minimalObject()
	obj.ExternalFuncs = []string{"log_message"}
	obj.InitGlobals.Relocs = []codegen.ExternalReloc{
		{Offset: 0, Symbol: "log_message", Kind: codegen.RelocPLTCall},
	}
	// Give init_globals a real 5-byte call instruction (e8 + rel32) so
	// the relocation has 4 placeholder bytes to patch.
	obj.InitGlobals.Code = append([]byte{0xe8, 0, 0, 0, 0}, retCode...)
	// The rel32 field is the 4 bytes right after the opcode byte.
	obj.InitGlobals.Relocs[0].Offset = 1

	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	nSections := binary.LittleEndian.Uint16(buf[60:62])
	if nSections != 13 {
		t.Fatalf("e_shnum: want 13 (.rela.plt and .plt added), got %d", nSections)
	}
}

func TestLinkExternGlobalGetsGotSlotAndGlobDatReloc(t *testing.T) {
	obj := minimalObject()
	obj.ExternalGlobals = []string{"grug_fn_name"}
	obj.InitGlobals.Code = append([]byte{0x48, 0x8b, 0x05, 0, 0, 0, 0}, retCode...)
	obj.InitGlobals.Relocs = []codegen.ExternalReloc{
		{Offset: 3, Symbol: "grug_fn_name", Kind: codegen.RelocGOTLoad},
	}

	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	nSections := binary.LittleEndian.Uint16(buf[60:62])
	if nSections != 13 {
		t.Fatalf("e_shnum: want 13 (.got/.got.plt added), got %d", nSections)
	}
}

func TestLinkUnresolvedExternCallIsAnError(t *testing.T) {
	obj := minimalObject()
	obj.InitGlobals.Relocs = []codegen.ExternalReloc{
		{Offset: 0, Symbol: "never_declared", Kind: codegen.RelocPLTCall},
	}

	if _, err := Link(obj, nil); err == nil {
		t.Fatalf("want an error for a call to an unresolved extern function")
	}
}

func TestLinkOnFnHookWithoutImplementationGetsNoRelocation(t *testing.T) {
	obj := minimalObject()
	obj.OnFns = []codegen.Function{{Name: "on_spawn", Code: retCode}}
	ent := &manifest.Entity{
		Name:  "Enemy",
		Hooks: []manifest.OnHookDecl{{Name: "on_spawn"}, {Name: "on_despawn"}},
	}

	buf, err := Link(obj, ent)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	l := &linker{obj: obj, ent: ent}
	l.buildOnFnSlots()
	if len(l.onFnSlots) != 2 {
		t.Fatalf("want 2 hook slots, got %d", len(l.onFnSlots))
	}
	present := 0
	for _, s := range l.onFnSlots {
		if s.present {
			present++
		}
	}
	if present != 1 {
		t.Fatalf("want exactly 1 implemented hook slot, got %d", present)
	}

	nSections := binary.LittleEndian.Uint16(buf[60:62])
	if nSections != 12 {
		t.Fatalf("e_shnum: want 12 (.rela.dyn added for the one implemented hook), got %d", nSections)
	}
}

func TestLinkResourceAndEntityRelocationsPointIntoData(t *testing.T) {
	obj := minimalObject()
	obj.Strings = []string{"sounds/boom.wav", "boss-Enemy"}
	obj.Resources = []string{"sounds/boom.wav"}
	obj.Entities = []codegen.EntityRef{{Name: "boss-Enemy", EntityType: "Enemy"}}

	buf, err := Link(obj, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	l := &linker{obj: obj}
	l.hasRelaDyn = true
	l.st = buildSymbolTable(obj, false)
	l.buildTextLayout()
	l.buildDataLayout()

	// Every rela.dyn r_offset this object produces must land inside
	// .data, proving patchRelaDyn's absolute-offset arithmetic (dataOffset
	// plus the section-relative resourcesOffset/entitiesOffset/
	// entityTypesOffset buildDataLayout computed) is self-consistent.
	dataStart := l.dataOffset
	dataEnd := dataStart + l.dataSize
	if l.resourcesOffset < 0 || dataStart+l.resourcesOffset >= dataEnd {
		t.Fatalf("resourcesOffset %d out of .data bounds [0, %d)", l.resourcesOffset, l.dataSize)
	}
	if l.entitiesOffset < 0 || dataStart+l.entitiesOffset >= dataEnd {
		t.Fatalf("entitiesOffset %d out of .data bounds [0, %d)", l.entitiesOffset, l.dataSize)
	}
	if l.entityTypesOffset < 0 || dataStart+l.entityTypesOffset >= dataEnd {
		t.Fatalf("entityTypesOffset %d out of .data bounds [0, %d)", l.entityTypesOffset, l.dataSize)
	}

	if len(buf) == 0 {
		t.Fatalf("Link produced no bytes")
	}
}

// TestLinkSectionLayoutSnapshot pins down the full section-header table's
// computed offsets/sizes for a representative object exercising every
// conditional section (.got, .got.plt, .plt, .rela.plt, .rela.dyn), so
// any future change to the layout math is caught by a diff instead of
// silently drifting from what `ld` itself would produce.
func TestLinkSectionLayoutSnapshot(t *testing.T) {
	obj := minimalObject()
	obj.Strings = []string{"sounds/boom.wav"}
	obj.Resources = []string{"sounds/boom.wav"}
	obj.ExternalFuncs = []string{"log_message", "play_sound"}
	obj.ExternalGlobals = []string{"grug_fn_name", "grug_has_runtime_error_happened"}
	obj.OnFns = []codegen.Function{{Name: "on_spawn", Code: retCode}}
	ent := &manifest.Entity{Name: "Enemy", Hooks: []manifest.OnHookDecl{{Name: "on_spawn"}}}

	l := &linker{obj: obj, ent: ent}
	if _, err := l.run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	layout := map[string]int{
		"hashOffset":     l.hashOffset,
		"dynsymOffset":   l.dynsymOffset,
		"dynstrOffset":   l.dynstrOffset,
		"relaDynOffset":  l.relaDynOffset,
		"relaDynSize":    l.relaDynSize,
		"relaPltOffset":  l.relaPltOffset,
		"relaPltSize":    l.relaPltSize,
		"pltOffset":      l.pltOffset,
		"pltSize":        l.pltSize,
		"textOffset":     l.textOffset,
		"textSize":       l.textSize,
		"ehFrameOffset":  l.ehFrameOffset,
		"dynamicOffset":  l.dynamicOffset,
		"dynamicSize":    l.dynamicSize,
		"gotOffset":      l.gotOffset,
		"gotSize":        l.gotSize,
		"gotPltOffset":   l.gotPltOffset,
		"gotPltSize":     l.gotPltSize,
		"dataOffset":     l.dataOffset,
		"dataSize":       l.dataSize,
		"symtabOffset":   l.symtabOffset,
		"strtabOffset":   l.strtabOffset,
		"shstrtabOffset": l.shstrtabOffset,
	}
	snaps.MatchSnapshot(t, "section-layout", layout)
	snaps.MatchSnapshot(t, "dynsym-shuffled-names", l.st.shuffled)
	snaps.MatchSnapshot(t, "extern-fn-order", l.externFnOrder)
}
