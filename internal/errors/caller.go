package errors

import "runtime"

// caller reports the file:line of the Go call site skip frames above its
// own caller, used to populate CompilerError.OriginFile/OriginLine so the
// toolchain's own bugs are debuggable separately from the grug source
// position the error is about.
func caller(skip int) (file string, line int, ok bool) {
	_, file, line, ok = runtime.Caller(skip)
	return file, line, ok
}
