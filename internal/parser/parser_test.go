package parser

import (
	"strings"
	"testing"
)

func TestParseMinimalOnFn(t *testing.T) {
	src := "on_a() {\n}\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(prog.OnFns) != 1 || prog.OnFns[0].Name != "on_a" {
		t.Fatalf("unexpected OnFns: %+v", prog.OnFns)
	}
}

func TestParseGlobalThenOnFn(t *testing.T) {
	src := "counter: i32 = 0\n\non_a() {\n}\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(prog.Globals) != 1 || prog.Globals[0].Name != "counter" {
		t.Fatalf("unexpected Globals: %+v", prog.Globals)
	}
	if prog.Globals[0].Value.String() != "0" {
		t.Fatalf("unexpected global initializer: %s", prog.Globals[0].Value.String())
	}
}

func TestParseRejectsGlobalAfterOnFn(t *testing.T) {
	src := "on_a() {\n}\n\ncounter: i32 = 0\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err == nil {
		t.Fatal("expected an ordering error")
	}
}

func TestParseRejectsMissingBlankLineBetweenUnits(t *testing.T) {
	src := "on_a() {\n}\non_b() {\n}\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err == nil {
		t.Fatal("expected a missing-blank-line error")
	}
}

func TestParseIfElseIfElse(t *testing.T) {
	src := "on_a() {\n    if x == 1 {\n        y = 2\n    } else if x == 2 {\n        y = 3\n    } else {\n        y = 4\n    }\n}\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(prog.OnFns[0].Body) != 1 {
		t.Fatalf("expected a single if statement, got %d statements", len(prog.OnFns[0].Body))
	}
}

func TestParseWhileWithBreakAndContinue(t *testing.T) {
	src := "on_a() {\n    while true {\n        break\n    }\n}\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(prog.OnFns[0].Body) != 1 {
		t.Fatalf("expected one while statement, got %d", len(prog.OnFns[0].Body))
	}
}

func TestParseRejectsBreakOutsideLoop(t *testing.T) {
	src := "on_a() {\n    break\n}\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err == nil {
		t.Fatal("expected a break-outside-loop error")
	}
}

func TestParseRejectsDoubleSpaceAroundOperator(t *testing.T) {
	src := "on_a() {\n    x = 1  + 2\n}\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err == nil {
		t.Fatal("expected a double-space error")
	}
}

func TestParseRejectsHelperForwardReference(t *testing.T) {
	src := "helper_a() {\n    helper_b()\n}\n\nhelper_b() {\n    return\n}\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err == nil {
		t.Fatal("expected a forward-reference error")
	}
}

func TestParseAllowsHelperSelfRecursion(t *testing.T) {
	src := "helper_a() {\n    helper_a()\n}\n"
	if _, err := New(src, "mod.grug").ParseProgram(); err != nil {
		t.Fatalf("expected self-recursion to be allowed, got %v", err)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	src := "counter: i32 = 1 + 2 * 3\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	got := prog.Globals[0].Value.String()
	if !strings.Contains(got, "*") {
		t.Fatalf("expected multiplication in %q", got)
	}
}

func TestDumpRoundTrip(t *testing.T) {
	src := "counter: i32 = 0\n\non_a() {\n    counter = counter + 1\n}\n"
	prog, err := New(src, "mod.grug").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if got := Dump(prog); got != src {
		t.Fatalf("Dump round-trip mismatch:\ngot:  %q\nwant: %q", got, src)
	}
}
