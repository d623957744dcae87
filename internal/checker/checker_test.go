package checker

import (
	"testing"

	"github.com/grugscript/grug/internal/ast"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/parser"
	"github.com/grugscript/grug/internal/types"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return prog
}

func TestCheckAcceptsWellTypedHelper(t *testing.T) {
	src := "helper_add(a: i32, b: i32) i32 {\n    return a + b\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "").Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckRejectsTypeMismatchInReturn(t *testing.T) {
	src := "helper_add(a: i32, b: f32) i32 {\n    return b\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "").Check(prog); err == nil {
		t.Fatal("expected a type mismatch error")
	}
}

func TestCheckRejectsMissingTrailingReturn(t *testing.T) {
	src := "helper_add(a: i32) i32 {\n    x: i32 = a\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "").Check(prog); err == nil {
		t.Fatal("expected a missing-trailing-return error")
	}
}

func TestCheckRejectsUndefinedIdentifier(t *testing.T) {
	src := "on_a() {\n    x = y\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "human").Check(prog); err == nil {
		t.Fatal("expected an undefined-identifier error")
	}
}

func TestCheckRejectsShadowingGlobal(t *testing.T) {
	src := "counter: i32 = 0\n\non_a() {\n    counter: i32 = 1\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "human").Check(prog); err == nil {
		t.Fatal("expected a shadowing error")
	}
}

func TestCheckRejectsCallInGlobalInitializer(t *testing.T) {
	src := "counter: i32 = helper_one()\n\nhelper_one() i32 {\n    return 1\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, nil, "").Check(prog); err == nil {
		t.Fatal("expected a call-in-global-initializer error")
	}
}

func TestCheckValidatesManifestHook(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{
			"human": {
				Name: "human",
				Hooks: []manifest.OnHookDecl{
					{Name: "on_spawn"},
				},
			},
		},
	}
	src := "on_spawn() {\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, man, "human").Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckRejectsUnknownHook(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{
			"human": {Name: "human"},
		},
	}
	src := "on_spawn() {\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, man, "human").Check(prog); err == nil {
		t.Fatal("expected an unknown-hook error")
	}
}

func TestCheckReclassifiesResourceLiteral(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{"human": {Name: "human", Hooks: []manifest.OnHookDecl{{Name: "on_a"}}}},
		GameFunctions: map[string]*manifest.GameFunction{
			"play_sound": {
				Name:   "play_sound",
				Params: []manifest.Param{{Name: "path", Type: types.Type{Kind: types.Resource}}},
			},
		},
	}
	src := "on_a() {\n    play_sound(\"sounds/boom.wav\")\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, man, "human").Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckRejectsAbsoluteResourcePath(t *testing.T) {
	man := &manifest.Manifest{
		Entities: map[string]*manifest.Entity{"human": {Name: "human", Hooks: []manifest.OnHookDecl{{Name: "on_a"}}}},
		GameFunctions: map[string]*manifest.GameFunction{
			"play_sound": {
				Name:   "play_sound",
				Params: []manifest.Param{{Name: "path", Type: types.Type{Kind: types.Resource}}},
			},
		},
	}
	src := "on_a() {\n    play_sound(\"/etc/passwd\")\n}\n"
	prog := mustParse(t, src)
	if err := New("mod.grug", src, man, "human").Check(prog); err == nil {
		t.Fatal("expected an absolute-path rejection")
	}
}
