// Package grug is the public surface of the mod toolchain: init once,
// regenerate on a poll loop, look up compiled entities by qualified
// name, and toggle the safe/fast mode every on_ function checks at
// entry (spec.md §6.1).
package grug

import (
	"time"

	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/runtime"
	"github.com/grugscript/grug/internal/watcher"
)

// ErrorHandler receives a runtime error raised by emitted code: the
// classification, and the name/path of the on_ or helper function that
// was executing when it happened.
type ErrorHandler func(kind runtime.ErrorKind, fnName, fnPath string)

// Engine is one initialized toolchain instance: a manifest, a watcher
// over the mod tree, and the runtime-support Env backing every compiled
// object's safe-mode checks. There is exactly one Engine per process —
// internal/runtime's cgo-exported symbols resolve against a single
// package-level default Env (runtime.SetDefaultEnv), matching the
// original's single-process, single-host-binary assumption.
type Engine struct {
	manifest *manifest.Manifest
	watcher  *watcher.Watcher
	env      *runtime.Env
	errs     errors.Channel
}

// Init loads the manifest at modAPIJSONPath, constructs the runtime
// environment with the given on_-function time budget, and prepares (but
// does not yet run) the watcher over modsRootDir/dllRootDir. Call this
// exactly once per process (spec.md §6.1).
func Init(errorHandler ErrorHandler, modAPIJSONPath, modsRootDir, dllRootDir string, onFnTimeLimit time.Duration) (*Engine, error) {
	man, err := manifest.Load(modAPIJSONPath)
	if err != nil {
		return nil, err
	}

	env := runtime.NewEnv(onFnTimeLimit, func(kind runtime.ErrorKind, fnName, fnPath string) {
		errorHandler(kind, fnName, fnPath)
	})
	runtime.SetDefaultEnv(env)

	return &Engine{
		manifest: man,
		watcher:  watcher.New(man, modsRootDir, dllRootDir, env),
		env:      env,
	}, nil
}

// RegenerateModifiedMods walks the mod tree, compiles and dlopen's
// anything new or changed, and reconciles anything removed. It returns
// the compile/link/verify error (if any) rather than a bare bool — Go
// callers check the error directly, but Err() still exposes the same
// deduplicated Channel view a polling host wants (spec.md §6.1,
// "changed_since_last_read").
func (e *Engine) RegenerateModifiedMods() error {
	err := e.watcher.Regenerate()
	if cerr, ok := err.(*errors.CompilerError); ok {
		e.errs.Raise(cerr)
	}
	return err
}

// ReloadQueue is every file (re)compiled and dlopen'd during the most
// recent RegenerateModifiedMods call.
func (e *Engine) ReloadQueue() []watcher.ReloadEntry {
	return e.watcher.ReloadQueue
}

// ResourceReloadQueue is every resource whose mtime advanced during the
// most recent RegenerateModifiedMods call.
func (e *Engine) ResourceReloadQueue() []watcher.ResourceReloadEntry {
	return e.watcher.ResourceReloadQueue
}

// GetEntityFile resolves a "<mod>:<entity-name>" qualified name to its
// currently loaded compiled file.
func (e *Engine) GetEntityFile(qualifiedEntity string) (*watcher.LoadedFile, bool) {
	return e.watcher.GetEntityFile(qualifiedEntity)
}

// SetOnFnsToSafeMode switches every on_ function's entry check back on.
func (e *Engine) SetOnFnsToSafeMode() { e.env.SetOnFnsToSafeMode() }

// SetOnFnsToFastMode disables every on_ function's entry check.
func (e *Engine) SetOnFnsToFastMode() { e.env.SetOnFnsToFastMode() }

// AreOnFnsInSafeMode reports the current mode.
func (e *Engine) AreOnFnsInSafeMode() bool { return e.env.AreOnFnsInSafeMode() }

// ToggleOnFnsMode flips safe/fast mode and returns the new state.
func (e *Engine) ToggleOnFnsMode() bool {
	e.env.ToggleOnFnsMode()
	return e.env.AreOnFnsInSafeMode()
}

// GameFunctionErrorHappened is the bridge by which a game-supplied
// function signals that the arguments passed to it from mod code were
// invalid, raising runtime.GameFnErrorHappened against whichever on_
// function is currently executing on the calling thread.
func (e *Engine) GameFunctionErrorHappened(message string) {
	e.env.GrugGameFunctionErrorHappened(message)
}

// Error mirrors spec.md §6.1's `{msg, path, origin_line,
// changed_since_last_read}` error object.
type Error struct {
	Msg                  string
	Path                 string
	OriginLine           int
	ChangedSinceLastRead bool
}

// LastError returns the most recent compile error, if any, committing it
// so a second consecutive call with no intervening Raise reports
// ChangedSinceLastRead as false.
func (e *Engine) LastError() (Error, bool) {
	cur := e.errs.Current()
	if cur == nil {
		return Error{}, false
	}
	changed := e.errs.Commit()
	return Error{
		Msg:                  cur.Msg,
		Path:                 cur.Path,
		OriginLine:           cur.Line,
		ChangedSinceLastRead: changed,
	}, true
}
