package watcher

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// sharedObject is one dlopen'd mod `.so`. Go's own `plugin` package can
// only load objects the Go toolchain produced, so this wraps libc's real
// dlopen directly (DESIGN.md's "internal/codegen and internal/runtime
// implementation notes").
type sharedObject struct {
	handle unsafe.Pointer
}

func dlopen(path string) (*sharedObject, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	C.dlerror()
	h := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, fmt.Errorf("dlopen: %s: %s", path, C.GoString(C.dlerror()))
	}
	return &sharedObject{handle: h}, nil
}

// sym resolves name against the object's dynamic symbol table, returning
// the raw address — caller casts it according to what it names (a
// function, or a `.data` slot such as "resources"/"entities_size").
func (s *sharedObject) sym(name string) (unsafe.Pointer, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	C.dlerror()
	p := C.dlsym(s.handle, cName)
	if errmsg := C.dlerror(); errmsg != nil {
		return nil, fmt.Errorf("dlsym: %s: %s", name, C.GoString(errmsg))
	}
	return p, nil
}

func (s *sharedObject) close() error {
	if C.dlclose(s.handle) != 0 {
		return fmt.Errorf("dlclose: %s", C.GoString(C.dlerror()))
	}
	return nil
}
