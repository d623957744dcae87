package codegen

import "fmt"

// Function is one compiled function's machine code plus the relocations
// inside it, still expressed as offsets relative to the function's own
// first byte — internal/elflink concatenates functions into `.text` and
// rebases every offset once final placement is known.
type Function struct {
	Name   string
	Code   []byte
	Relocs []ExternalReloc
}

// EntityRef is one `entity`-typed string literal the code generator
// observed, kept alongside its declared entity_type (spec.md §4.5's
// parallel `entities`/`entity_types` exported arrays).
type EntityRef struct {
	Name       string
	EntityType string
}

// Object is the code generator's output for one source file: everything
// internal/elflink needs to assemble a valid ET_DYN shared object, before
// any section has been laid out or any address assigned.
type Object struct {
	GlobalsSize int

	InitGlobals Function
	OnFns       []Function // one on_<name> per defined hook
	Helpers     []Function // <helper>_safe and <helper>_fast, one entry each

	// Strings holds every interned string literal in first-use order;
	// a relocation's Symbol of the form ".Lstr%d" indexes this slice.
	Strings []string

	Resources []string    // deduplicated resource paths (spec.md §4.4)
	Entities  []EntityRef // entity literals, deduplicated by (name, type)

	// ExternalFuncs is every externally-imported function symbol the
	// object calls (game functions plus the runtime-support surface of
	// spec.md §6.3): every one of these needs a PLT entry.
	ExternalFuncs []string

	// ExternalGlobals is every externally-imported global symbol the
	// object reads or writes (spec.md §6.3): every one needs a GOT slot.
	ExternalGlobals []string
}

// stringSymbol is the relocation-target name for the i-th interned
// string; internal/elflink parses this back with stringIndex.
func stringSymbol(i int) string { return fmt.Sprintf(".Lstr%d", i) }

// objBuilder accumulates the file-wide tables (strings/resources/entities/
// imports) shared by every function emitted for one source file.
type objBuilder struct {
	strings      []string
	stringIndex  map[string]int
	resources    []string
	resourceSeen map[string]bool
	entities     []EntityRef
	entitySeen   map[EntityRef]bool
	externalFns  []string
	externalFnSeen map[string]bool
	externalGlobals []string
	externalGlobalSeen map[string]bool
}

func newObjBuilder() *objBuilder {
	return &objBuilder{
		stringIndex:        map[string]int{},
		resourceSeen:       map[string]bool{},
		entitySeen:         map[EntityRef]bool{},
		externalFnSeen:     map[string]bool{},
		externalGlobalSeen: map[string]bool{},
	}
}

// intern returns the stable symbol name for s, adding it to the string
// table on first use.
func (o *objBuilder) intern(s string) string {
	if i, ok := o.stringIndex[s]; ok {
		return stringSymbol(i)
	}
	i := len(o.strings)
	o.strings = append(o.strings, s)
	o.stringIndex[s] = i
	return stringSymbol(i)
}

func (o *objBuilder) addResource(path string) {
	if !o.resourceSeen[path] {
		o.resourceSeen[path] = true
		o.resources = append(o.resources, path)
	}
}

func (o *objBuilder) addEntity(name, entityType string) {
	ref := EntityRef{Name: name, EntityType: entityType}
	if !o.entitySeen[ref] {
		o.entitySeen[ref] = true
		o.entities = append(o.entities, ref)
	}
}

func (o *objBuilder) useExternalFunc(name string) {
	if !o.externalFnSeen[name] {
		o.externalFnSeen[name] = true
		o.externalFns = append(o.externalFns, name)
	}
}

func (o *objBuilder) useExternalGlobal(name string) {
	if !o.externalGlobalSeen[name] {
		o.externalGlobalSeen[name] = true
		o.externalGlobals = append(o.externalGlobals, name)
	}
}
