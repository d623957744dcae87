package watcher

/*
#include <string.h>
*/
import "C"

import "unsafe"

// objectExports is the subset of one compiled object's exported data the
// watcher itself reads, mirroring regenerate_file/reload_resources_from_
// dll: the declared resources, the entities this file references (for
// cross-entity verification), and the entity type each reference claims.
// The host never reads a function's address directly; it only ever calls
// through exported C symbols, so function exports aren't modeled here.
type objectExports struct {
	globalsSize uint64
	resources   []string
	entities    []string
	entityTypes []string
}

func readU64(ptr unsafe.Pointer) uint64 {
	return *(*uint64)(ptr)
}

// readCStringArray reads count consecutive `const char*` slots starting
// at ptr — the layout internal/elflink's buildDataLayout gives
// "resources"/"entities"/"entity_types" — into Go strings.
func readCStringArray(ptr unsafe.Pointer, count uint64) []string {
	if ptr == nil || count == 0 {
		return nil
	}
	slots := unsafe.Slice((*uintptr)(ptr), count)
	out := make([]string, count)
	for i, addr := range slots {
		out[i] = C.GoString((*C.char)(unsafe.Pointer(addr)))
	}
	return out
}

// readExports resolves and reads every data symbol init_data_offsets lays
// out: "resources"/"entities"/"entity_types" are only present at all when
// their corresponding *_size is nonzero, matching buildDataLayout's own
// conditional emission.
func readExports(so *sharedObject) (*objectExports, error) {
	exp := &objectExports{}

	gs, err := so.sym("globals_size")
	if err != nil {
		return nil, err
	}
	exp.globalsSize = readU64(gs)

	resSize, err := so.sym("resources_size")
	if err != nil {
		return nil, err
	}
	if n := readU64(resSize); n > 0 {
		rs, err := so.sym("resources")
		if err != nil {
			return nil, err
		}
		exp.resources = readCStringArray(rs, n)
	}

	entSize, err := so.sym("entities_size")
	if err != nil {
		return nil, err
	}
	if n := readU64(entSize); n > 0 {
		ents, err := so.sym("entities")
		if err != nil {
			return nil, err
		}
		types, err := so.sym("entity_types")
		if err != nil {
			return nil, err
		}
		exp.entities = readCStringArray(ents, n)
		exp.entityTypes = readCStringArray(types, n)
	}

	return exp, nil
}
