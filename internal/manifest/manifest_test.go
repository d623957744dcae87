package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grugscript/grug/internal/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesEntitiesAndGameFunctions(t *testing.T) {
	path := writeTemp(t, "mod_api.json", `{
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
	}`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ent, ok := m.Entities["human"]
	if !ok {
		t.Fatal("expected entity \"human\"")
	}
	if len(ent.Hooks) != 1 || ent.Hooks[0].Name != "on_spawn" {
		t.Fatalf("unexpected hooks: %+v", ent.Hooks)
	}
	if ent.Hooks[0].Params[0].Type != types.TI32 {
		t.Fatalf("expected i32 param, got %v", ent.Hooks[0].Params[0].Type)
	}

	fn, ok := m.GameFunctions["play_sound"]
	if !ok {
		t.Fatal("expected game function \"play_sound\"")
	}
	if fn.ReturnType == nil || *fn.ReturnType != types.TBool {
		t.Fatalf("expected bool return type, got %v", fn.ReturnType)
	}
	if fn.Params[0].Type.Kind != types.Resource {
		t.Fatalf("expected resource param, got %v", fn.Params[0].Type)
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	path := writeTemp(t, "mod_api.json", `{"entities": {}, "entities": {}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a duplicate-key error")
	}
}

func TestLoadRejectsUnknownTypeName(t *testing.T) {
	path := writeTemp(t, "mod_api.json", `{
		"game_functions": {
			"foo": {"arguments": [{"name": "x", "type": "weird"}]}
		}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an unknown-type error")
	}
}

func TestParseJSONRejectsDeepNesting(t *testing.T) {
	src := ""
	for i := 0; i < MaxJSONDepth+2; i++ {
		src += "["
	}
	for i := 0; i < MaxJSONDepth+2; i++ {
		src += "]"
	}
	if _, err := ParseJSON(src); err == nil {
		t.Fatal("expected a max-depth error")
	}
}

func TestDumpEntityDebugProducesValidJSON(t *testing.T) {
	ent := &Entity{
		Name: "human",
		Hooks: []OnHookDecl{
			{Name: "on_spawn", Params: []Param{{Name: "health", Type: types.TI32}}},
		},
	}
	out, err := DumpEntityDebug(ent)
	if err != nil {
		t.Fatalf("DumpEntityDebug: %v", err)
	}
	if _, err := ParseJSON(out); err != nil {
		t.Fatalf("DumpEntityDebug produced invalid JSON: %v\n%s", err, out)
	}
}
