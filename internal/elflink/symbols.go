package elflink

import (
	"sort"

	"github.com/grugscript/grug/internal/codegen"
	"github.com/grugscript/grug/internal/manifest"
)

// runtimeSupportGlobals is the fixed GOT-backed global surface every
// compiled object may import, in the order the reference compiler's
// `.got` section lists them (spec.md §6.3).
var runtimeSupportGlobals = []string{
	"grug_on_fns_in_safe_mode",
	"grug_has_runtime_error_happened",
	"grug_fn_name",
	"grug_fn_path",
	"grug_runtime_error_handler",
}

// symbolTable is the fully ordered dynamic-symbol set for one compiled
// object: data symbols first, then the extern data symbols backed by
// .got, then the extern functions backed by .plt, then the object's own
// functions (init_globals, every on_ hook, then each helper's safe/fast
// pair) — exactly generate_shared_object's push_symbol call order.
type symbolTable struct {
	names []string

	dataSymbolsCount       int
	firstExternDataIndex   int
	externDataSymbolsCount int
	firstExternFnIndex     int
	externFnsCount         int

	onFnsOffset int // index of the first on_ function symbol
	onFnNames   []string

	shuffled           []string
	shuffledToOriginal []int
	originalToShuffled []int
}

// buildSymbolTable assembles the ordered symbol list for obj. hasOnFns
// controls whether the "on_fns" data symbol is emitted at all: the
// reference compiler only pushes it when the entity being compiled
// declares at least one hook.
func buildSymbolTable(obj *codegen.Object, hasOnFns bool) *symbolTable {
	st := &symbolTable{}

	push := func(name string) { st.names = append(st.names, name) }

	push("globals_size")
	st.dataSymbolsCount++

	if hasOnFns {
		push("on_fns")
		st.dataSymbolsCount++
	}

	push("resources_size")
	st.dataSymbolsCount++
	if len(obj.Resources) > 0 {
		push("resources")
		st.dataSymbolsCount++
	}

	push("entities_size")
	st.dataSymbolsCount++
	if len(obj.Entities) > 0 {
		push("entities")
		st.dataSymbolsCount++
		push("entity_types")
		st.dataSymbolsCount++
	}

	// The reference compiler pushes these symbols in the reverse of
	// .got's physical slot order (grug_on_fns_in_safe_mode last), so that
	// reversing push_rela_dyn's GLOB_DAT loop walks .got front to back.
	st.firstExternDataIndex = st.dataSymbolsCount
	gotGlobals := gotOrderedExternGlobals(obj)
	for i := len(gotGlobals); i > 0; i-- {
		push(gotGlobals[i-1])
		st.externDataSymbolsCount++
	}

	st.firstExternFnIndex = st.firstExternDataIndex + st.externDataSymbolsCount
	for _, fn := range obj.ExternalFuncs {
		push(fn)
		st.externFnsCount++
	}

	push("init_globals")

	st.onFnsOffset = len(st.names)
	for _, fn := range obj.OnFns {
		push(fn.Name)
		st.onFnNames = append(st.onFnNames, fn.Name)
	}

	for _, fn := range obj.Helpers {
		push(fn.Name)
	}

	st.shuffle()
	return st
}

// shuffle reproduces generate_shuffled_symbols: every symbol name is
// inserted, in push order, into a bfdHashBucketSize-bucket array hash
// table, then read back out bucket by bucket. This has nothing to do
// with symbol lookup — it exists purely so the final `.dynsym` lists
// symbols in the same order `ld` would, which downstream tools diff
// against.
func (st *symbolTable) shuffle() {
	bc := newBucketChain(bfdHashBucketSize)
	for _, name := range st.names {
		bc.insert(bfdHash(name))
	}

	st.shuffledToOriginal = make([]int, len(st.names))
	st.originalToShuffled = make([]int, len(st.names))
	i := 0
	bc.walk(func(itemIndex int) {
		st.shuffledToOriginal[i] = itemIndex
		st.originalToShuffled[itemIndex] = i
		st.shuffled = append(st.shuffled, st.names[itemIndex])
		i++
	})
}

// isExternData reports whether symbolIndex (an unshuffled index into
// st.names) names a GOT-backed extern global.
func (st *symbolTable) isExternData(symbolIndex int) bool {
	return symbolIndex >= st.firstExternDataIndex && symbolIndex < st.firstExternDataIndex+st.externDataSymbolsCount
}

// isExternFn reports whether symbolIndex names a PLT-backed extern
// function.
func (st *symbolTable) isExternFn(symbolIndex int) bool {
	return symbolIndex >= st.firstExternFnIndex && symbolIndex < st.firstExternFnIndex+st.externFnsCount
}

// isData reports whether symbolIndex names one of the leading data
// symbols (globals_size, on_fns, resources*, entities*).
func (st *symbolTable) isData(symbolIndex int) bool {
	return symbolIndex < st.dataSymbolsCount
}

// textFuncIndex maps symbolIndex to its 0-based position within the
// concatenated init_globals/on_fns/helpers function list (.text order),
// valid only when symbolIndex names a function defined in this object.
func (st *symbolTable) textFuncIndex(symbolIndex int) int {
	return symbolIndex - st.dataSymbolsCount - st.externDataSymbolsCount - st.externFnsCount
}

// gotOrderedExternGlobals filters runtimeSupportGlobals, which is already
// listed in .got's physical slot order, down to the globals this object
// actually imports.
func gotOrderedExternGlobals(obj *codegen.Object) []string {
	used := make(map[string]bool, len(obj.ExternalGlobals))
	for _, g := range obj.ExternalGlobals {
		used[g] = true
	}
	var out []string
	for _, g := range runtimeSupportGlobals {
		if used[g] {
			out = append(out, g)
		}
	}
	return out
}

// orderedEntityHooks returns the entity's declared hooks sorted the same
// way manifest.parseEntity already sorts them (by name), matching the
// order the reference compiler iterates grug_entity->on_functions in
// when building the "on_fns" data array and its .rela.dyn relocations.
func orderedEntityHooks(ent *manifest.Entity) []string {
	if ent == nil {
		return nil
	}
	names := make([]string, len(ent.Hooks))
	for i, h := range ent.Hooks {
		names[i] = h.Name
	}
	sort.Strings(names)
	return names
}
