package runtime

/*
#include <stdint.h>

uint8_t grug_on_fns_in_safe_mode = 1;
*/
import "C"

// This file is the seam between Env and the real C-ABI symbol table a
// dlopen'd mod shared object resolves its imports against. Go's cgo
// "//export" directives add these functions to the host binary's dynamic
// symbol table, exactly the way the original grug.c host exposes its own
// runtime-support functions to the mods it dlopen's into the same
// process — no separate shim library is needed, since the host and the
// mods already share one address space.
//
// grug_on_fns_in_safe_mode is the one GOT-backed *data* symbol emitted
// on_ prologues load directly (internal/codegen's LoadGOT); a real
// mutable C variable is required for that, since cgo can only export
// functions under arbitrary C names, not Go variables.

// setSafeModeByte mirrors Env.syncSafeModeByte's result into the real C
// global.
func setSafeModeByte(b byte) {
	C.grug_on_fns_in_safe_mode = C.uint8_t(b)
}

//export grug_get_max_rsp
func grug_get_max_rsp() C.uint64_t {
	return C.uint64_t(defaultEnv.GrugGetMaxRsp())
}

//export grug_is_time_limit_exceeded
func grug_is_time_limit_exceeded() C.int {
	if defaultEnv.GrugIsTimeLimitExceeded() {
		return 1
	}
	return 0
}

//export grug_has_runtime_error_happened
func grug_has_runtime_error_happened() C.int {
	if defaultEnv.HasRuntimeErrorHappened() {
		return 1
	}
	return 0
}

//export grug_call_runtime_error_handler
func grug_call_runtime_error_handler(kind C.int) {
	defaultEnv.GrugCallRuntimeErrorHandler(ErrorKind(kind))
}

//export grug_on_fn_enter
func grug_on_fn_enter() {
	defaultEnv.OnFnEnter()
}
