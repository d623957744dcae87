package codegen

import (
	"testing"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/checker"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/parser"
	"github.com/grugscript/grug/internal/types"
)

func mustCompile(t *testing.T, src string, man *manifest.Manifest, entityType string) *Object {
	t.Helper()
	prog, err := parser.New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if err := checker.New("mod.grug", src, man, entityType).Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}
	obj, err := Compile(prog, man, entityType)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return obj
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return prog
}

func TestCompileHelperEmitsSafeAndFastVariants(t *testing.T) {
	src := "add_one(x: i32) i32 {\n    return x + 1\n}\n"
	obj := mustCompile(t, src, nil, "")

	if len(obj.Helpers) != 2 {
		t.Fatalf("Helpers: want 2, got %d", len(obj.Helpers))
	}
	names := map[string]bool{obj.Helpers[0].Name: true, obj.Helpers[1].Name: true}
	if !names["add_one_safe"] || !names["add_one_fast"] {
		t.Fatalf("want add_one_safe and add_one_fast, got %v", names)
	}
	for _, fn := range obj.Helpers {
		if len(fn.Code) == 0 {
			t.Fatalf("%s: empty code", fn.Name)
		}
	}
}

func TestCompileOnFnEmitsOneSymbolForBothModes(t *testing.T) {
	src := "on_a() {\n    x: i32 = 1\n}\n"
	obj := mustCompile(t, src, nil, "")

	if len(obj.OnFns) != 1 || obj.OnFns[0].Name != "on_a" {
		t.Fatalf("OnFns: want exactly one on_a, got %v", obj.OnFns)
	}
}

func TestCompileInternsStringsOnce(t *testing.T) {
	src := "helper_x() {\n    a: string = \"hello\"\n    b: string = \"hello\"\n    c: string = \"world\"\n}\n"
	obj := mustCompile(t, src, nil, "")

	if len(obj.Strings) != 2 {
		t.Fatalf("Strings: want 2 distinct entries, got %v", obj.Strings)
	}
}

func TestCompileDedupsResourcePaths(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{"human": {Name: "human", Hooks: []manifest.OnHookDecl{{Name: "on_a"}}}},
		GameFunctions: map[string]*manifest.GameFunction{
			"play_sound": {
				Name:   "play_sound",
				Params: []manifest.Param{{Name: "path", Type: types.Type{Kind: types.Resource}}},
			},
		},
	}
	src := "on_a() {\n    play_sound(\"sounds/boom.wav\")\n    play_sound(\"sounds/boom.wav\")\n}\n"
	obj := mustCompile(t, src, man, "human")

	if len(obj.Resources) != 1 || obj.Resources[0] != "sounds/boom.wav" {
		t.Fatalf("Resources: want one deduplicated entry, got %v", obj.Resources)
	}
}

// TestCompileEntityDedupIsPerEntityType checks that the same entity
// literal passed twice produces a single entities-table entry, whose
// entity type is the text after the literal's last '-'.
func TestCompileEntityDedupIsPerEntityType(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{"human": {Name: "human", Hooks: []manifest.OnHookDecl{{Name: "on_a"}}}},
		GameFunctions: map[string]*manifest.GameFunction{
			"spawn": {
				Name:   "spawn",
				Params: []manifest.Param{{Name: "entity", Type: types.Type{Kind: types.Entity}}},
			},
		},
	}
	src := "on_a() {\n    spawn(\"boss-Enemy\")\n    spawn(\"boss-Enemy\")\n}\n"
	obj := mustCompile(t, src, man, "human")

	if len(obj.Entities) != 1 {
		t.Fatalf("Entities: want one deduplicated entry, got %v", obj.Entities)
	}
	if obj.Entities[0].EntityType != "Enemy" {
		t.Fatalf("EntityType: want %q, got %q", "Enemy", obj.Entities[0].EntityType)
	}
}

func TestCompileRecordsExternalFuncsForGameAndHelperCalls(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{"human": {Name: "human", Hooks: []manifest.OnHookDecl{{Name: "on_a"}}}},
		GameFunctions: map[string]*manifest.GameFunction{
			"log_message": {Name: "log_message", Params: []manifest.Param{{Name: "msg", Type: types.TStr}}},
		},
	}
	src := "on_a() {\n    helper_greet()\n}\n\nhelper_greet() {\n    log_message(\"hi\")\n}\n"
	obj := mustCompile(t, src, man, "human")

	want := map[string]bool{"log_message": false, "helper_greet_safe": false, "helper_greet_fast": false}
	for _, name := range obj.ExternalFuncs {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("ExternalFuncs missing %q, got %v", name, obj.ExternalFuncs)
		}
	}
}

func TestCompileGlobalsGetSequentialOffsets(t *testing.T) {
	src := "health: i32 = 100\n\nname: string = \"grug\"\n"
	prog := mustParse(t, src)
	if err := checker.New("mod.grug", src, nil, "").Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}
	obj, err := Compile(prog, nil, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if prog.Globals[0].Offset != 8 {
		t.Fatalf("health offset: want 8 (after the 8-byte me slot), got %d", prog.Globals[0].Offset)
	}
	if prog.Globals[1].Offset != 12 {
		t.Fatalf("name offset: want 12 (after a 4-byte i32), got %d", prog.Globals[1].Offset)
	}
	if obj.GlobalsSize != 20 {
		t.Fatalf("GlobalsSize: want 20 (8 + 4 + 8), got %d", obj.GlobalsSize)
	}
}

func TestCompileWhileLoopWithBreakAndContinue(t *testing.T) {
	src := "helper_count() i32 {\n    total: i32 = 0\n    i: i32 = 0\n    while i < 10 {\n        i = i + 1\n        if i == 5 {\n            continue\n        }\n        if i == 8 {\n            break\n        }\n        total = total + i\n    }\n    return total\n}\n"
	obj := mustCompile(t, src, nil, "")
	if len(obj.Helpers) != 2 {
		t.Fatalf("Helpers: want 2, got %d", len(obj.Helpers))
	}
}
