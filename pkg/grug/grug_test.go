package grug

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grugscript/grug/internal/runtime"
)

func writeModAPI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mod_api.json")
	content := `{
		"entities": {
			"human": {
				"on_functions": {
					"on_spawn": {"arguments": [{"name": "health", "type": "i32"}]}
				}
			}
		},
		"game_functions": {
			"play_sound": {
				"arguments": [{"name": "path", "type": "resource"}],
				"return_type": "bool"
			}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	modAPI := writeModAPI(t)
	root := t.TempDir()
	mods := filepath.Join(root, "mods")
	dlls := filepath.Join(root, "dlls")
	if err := os.MkdirAll(mods, 0o755); err != nil {
		t.Fatal(err)
	}

	e, err := Init(func(kind runtime.ErrorKind, fnName, fnPath string) {}, modAPI, mods, dlls, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e
}

func TestInitLoadsManifestAndDefaultsToSafeMode(t *testing.T) {
	e := newTestEngine(t)
	if !e.AreOnFnsInSafeMode() {
		t.Fatal("expected safe mode by default")
	}
}

func TestSetOnFnsToFastModeAndBack(t *testing.T) {
	e := newTestEngine(t)

	e.SetOnFnsToFastMode()
	if e.AreOnFnsInSafeMode() {
		t.Fatal("expected fast mode after SetOnFnsToFastMode")
	}

	e.SetOnFnsToSafeMode()
	if !e.AreOnFnsInSafeMode() {
		t.Fatal("expected safe mode after SetOnFnsToSafeMode")
	}
}

func TestToggleOnFnsMode(t *testing.T) {
	e := newTestEngine(t)

	if got := e.ToggleOnFnsMode(); got {
		t.Fatal("expected fast mode (false) after first toggle from default safe mode")
	}
	if got := e.ToggleOnFnsMode(); !got {
		t.Fatal("expected safe mode (true) after second toggle")
	}
}

func TestGetEntityFileMissingReportsNotFound(t *testing.T) {
	e := newTestEngine(t)
	if _, ok := e.GetEntityFile("human:nobody"); ok {
		t.Fatal("expected no entity to resolve before any mod has been compiled")
	}
}

func TestRegenerateModifiedModsOnEmptyTreeSucceeds(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RegenerateModifiedMods(); err != nil {
		t.Fatalf("RegenerateModifiedMods on an empty mod tree: %v", err)
	}
	if len(e.ReloadQueue()) != 0 {
		t.Fatalf("expected an empty reload queue, got %d entries", len(e.ReloadQueue()))
	}
}

func TestLastErrorReportsNothingBeforeAnyFailure(t *testing.T) {
	e := newTestEngine(t)
	if _, ok := e.LastError(); ok {
		t.Fatal("expected no error before any compile failure")
	}
}

func TestGameFunctionErrorHappenedInvokesHandler(t *testing.T) {
	var gotKind runtime.ErrorKind
	var called bool

	modAPI := writeModAPI(t)
	root := t.TempDir()
	e, err := Init(func(kind runtime.ErrorKind, fnName, fnPath string) {
		called = true
		gotKind = kind
	}, modAPI, filepath.Join(root, "mods"), filepath.Join(root, "dlls"), time.Second)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	e.GameFunctionErrorHappened("bad argument")

	if !called {
		t.Fatal("expected the error handler to be invoked")
	}
	if gotKind != runtime.GameFnErrorHappened {
		t.Fatalf("got kind %v, want GameFnErrorHappened", gotKind)
	}
}
