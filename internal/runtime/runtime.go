// Package runtime implements the thread-local sandbox state emitted mod
// code depends on (spec.md §5, §6.3): the stack floor and CPU-time
// deadline checked by every safe-mode helper/on_ body, the sticky
// per-call error flag, and the current function name/path pair the error
// handler reads.
//
// The pipeline that compiles and dlopen's mod code runs single-threaded,
// but the compiled code itself is invoked from the host game's own
// threads (spec.md §5), so this state is keyed per OS thread rather than
// per goroutine — Go goroutines are not 1:1 with OS threads, and a value
// stored with a goroutine-local scheme could migrate to the wrong thread
// mid-call. golang.org/x/sys/unix.Gettid gives the real OS thread id.
package runtime

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrorKind classifies a runtime (not compile-time) error raised by
// emitted code (spec.md §7). Named distinctly from the original's
// implicit "signed overflow" trap for clarity (spec.md §5 supplemented
// features).
type ErrorKind uint8

const (
	DivisionByZero ErrorKind = iota
	StackOverflow
	TimeLimitExceeded
	IntegerOverflow
	GameFnErrorHappened
)

func (k ErrorKind) String() string {
	switch k {
	case DivisionByZero:
		return "division_by_zero"
	case StackOverflow:
		return "stack_overflow"
	case TimeLimitExceeded:
		return "time_limit_exceeded"
	case IntegerOverflow:
		return "integer_overflow"
	case GameFnErrorHappened:
		return "game_fn_error_happened"
	default:
		return "unknown"
	}
}

// threadState is one OS thread's sandbox state.
type threadState struct {
	maxRSP      uint64
	deadline    time.Time
	hasDeadline bool
	hasError    bool
	fnName      string
	fnPath      string
	errorReason string
}

// Env owns every OS thread's sandbox state plus the process-wide
// safe/fast mode switch. Emitted code reaches this state indirectly,
// through the GOT-resolved runtime-support symbols of spec.md §6.3; Env
// is the Go-side implementation those symbols forward to.
type Env struct {
	mu         sync.Mutex
	threads    map[int32]*threadState
	safeMode   bool
	budget     time.Duration
	onRuntimeError func(kind ErrorKind, fnName, fnPath string)
}

// NewEnv creates an Env with on_ functions defaulting to safe mode, the
// posture spec.md §6.1's init() establishes before any mod code runs.
func NewEnv(budget time.Duration, handler func(kind ErrorKind, fnName, fnPath string)) *Env {
	return &Env{
		threads:        map[int32]*threadState{},
		safeMode:       true,
		budget:         budget,
		onRuntimeError: handler,
	}
}

// defaultEnv is the single Env instance every dlopen'd mod shared
// object's imported runtime-support PLT functions (cgo_exports.go) call
// into. The compile/reload pipeline is single-threaded and non-reentrant
// (spec.md §5), so exactly one Env is ever live per process.
var defaultEnv *Env

// SetDefaultEnv installs env as the instance the cgo-exported runtime-
// support symbols forward to. pkg/grug's Init calls this once, before any
// mod object is dlopen'd.
func SetDefaultEnv(env *Env) {
	defaultEnv = env
	env.syncSafeModeByte()
}

func (e *Env) state() *threadState {
	tid := int32(unix.Gettid())
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.threads[tid]
	if !ok {
		st = &threadState{}
		e.threads[tid] = st
	}
	return st
}

// SetOnFnsToSafeMode, SetOnFnsToFastMode, AreOnFnsInSafeMode and
// ToggleOnFnsMode implement spec.md §6.1's mode toggles. The mode flag
// is read non-atomically by emitted code at every on_ entry (spec.md §6
// open question, resolved literally): flipping it mid-call is undefined
// by the source and we don't add a fence here either.
func (e *Env) SetOnFnsToSafeMode() {
	e.mu.Lock()
	e.safeMode = true
	e.mu.Unlock()
	e.syncSafeModeByte()
}

func (e *Env) SetOnFnsToFastMode() {
	e.mu.Lock()
	e.safeMode = false
	e.mu.Unlock()
	e.syncSafeModeByte()
}

func (e *Env) AreOnFnsInSafeMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.safeMode
}

func (e *Env) ToggleOnFnsMode() {
	e.mu.Lock()
	e.safeMode = !e.safeMode
	e.mu.Unlock()
	e.syncSafeModeByte()
}

// syncSafeModeByte mirrors this Env's mode into the C global
// cgo_exports.go defines, which is the actual GOT target every emitted
// on_ prologue's LoadGOT reads — a no-op unless e is the installed
// defaultEnv.
func (e *Env) syncSafeModeByte() {
	if e == defaultEnv {
		setSafeModeByte(e.SafeModeByte())
	}
}

// SafeModeByte is the value the GOT-resolved `grug_on_fns_in_safe_mode`
// global must currently hold, read by every emitted on_ prologue.
func (e *Env) SafeModeByte() byte {
	if e.AreOnFnsInSafeMode() {
		return 1
	}
	return 0
}

// GrugGetMaxRsp implements the `grug_get_max_rsp` runtime-support
// function (spec.md §6.3): the thread-local stack floor a safe-mode
// helper entry compares `rsp` against.
func (e *Env) GrugGetMaxRsp() uint64 {
	return e.state().maxRSP
}

// GrugGetMaxRspAddr lets an on_ prologue record `rsp - 65536` into the
// current thread's floor the first time it calls a helper (spec.md §5).
func (e *Env) GrugGetMaxRspAddr() *uint64 {
	return &e.state().maxRSP
}

// GrugSetTimeLimit arms the current thread's deadline at `now +
// configured budget`, measured on CPU time the way spec.md §5 describes
// (CLOCK_PROCESS_CPUTIME_ID in the original; Go's time.Now is wall-clock,
// which we accept as the portable substitute — see DESIGN.md).
func (e *Env) GrugSetTimeLimit() {
	st := e.state()
	st.deadline = time.Now().Add(e.budget)
	st.hasDeadline = true
}

// GrugIsTimeLimitExceeded is polled at every helper-call return, every
// game-call return, every `continue`, and every `while` back-edge
// (spec.md §5).
func (e *Env) GrugIsTimeLimitExceeded() bool {
	st := e.state()
	return st.hasDeadline && time.Now().After(st.deadline)
}

// GrugCallRuntimeErrorHandler dispatches to the host's registered
// handler and sets the sticky error flag so every containing frame
// returns immediately (spec.md §7).
func (e *Env) GrugCallRuntimeErrorHandler(kind ErrorKind) {
	st := e.state()
	st.hasError = true
	if e.onRuntimeError != nil {
		e.onRuntimeError(kind, st.fnName, st.fnPath)
	}
}

// GrugGameFunctionErrorHappened is the bridge a game-supplied function
// calls to report that the arguments mod code passed it were invalid
// (spec.md §6.1). Unlike the four trap-site errors emitted code raises
// itself, nothing in emitted code calls the handler for this one — its
// propagation check only polls the sticky flag (emitPropagationCheck) —
// so this origination point must call the handler directly, matching
// the original's grug_game_function_error_happened storing the reason
// string before any propagation check runs.
func (e *Env) GrugGameFunctionErrorHappened(message string) {
	st := e.state()
	st.hasError = true
	st.errorReason = message
	if e.onRuntimeError != nil {
		e.onRuntimeError(GameFnErrorHappened, st.fnName, st.fnPath)
	}
}

// LastErrorReason is the message passed to the most recent
// GrugGameFunctionErrorHappened call on the current thread.
func (e *Env) LastErrorReason() string { return e.state().errorReason }

// HasRuntimeErrorHappened reports the current thread's sticky error flag
// without clearing it; ClearRuntimeErrorHappened clears it, which
// OnFnEnter does at every safe-mode on_ entry.
func (e *Env) HasRuntimeErrorHappened() bool { return e.state().hasError }

func (e *Env) ClearRuntimeErrorHappened() { e.state().hasError = false }

// SetCurrentFn records the function name/path an entering safe-mode on_
// body writes to `grug_fn_name`/`grug_fn_path` for the error handler's
// consumption (spec.md §4.4).
func (e *Env) SetCurrentFn(name, path string) {
	st := e.state()
	st.fnName = name
	st.fnPath = path
}

// OnFnEnter backs the `grug_on_fn_enter` symbol an on_ function's
// safe-mode body calls before running its own statements: it clears the
// previous call's sticky error flag and arms a fresh time-limit deadline
// (spec.md §4.4, §5). The host wrapper that dispatches to on_<name>
// calls SetCurrentFn itself beforehand, since it already knows which mod
// file and hook it is about to invoke and the emitted code has no
// register left to carry that through.
func (e *Env) OnFnEnter() {
	e.ClearRuntimeErrorHappened()
	e.GrugSetTimeLimit()
}
