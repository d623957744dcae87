// Package errors implements the grug compile-time error channel: a single
// error object with message, source path and line, formatted with a
// source-line-and-caret rendering in the style the toolchain's teacher
// pipeline uses for its own diagnostics.
package errors

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// Kind classifies a compile-time error for callers that want to branch on
// it (the watcher's reconciliation pass, for instance, treats I/O and
// manifest-shape errors differently from ordinary syntax errors).
type Kind uint8

const (
	KindSyntax Kind = iota
	KindWhitespace
	KindType
	KindUndefined
	KindShadowing
	KindDuplicateKey
	KindIO
	KindArenaExhausted
	KindManifestShape
	KindResourceOrEntity
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindWhitespace:
		return "whitespace"
	case KindType:
		return "type"
	case KindUndefined:
		return "undefined"
	case KindShadowing:
		return "shadowing"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindIO:
		return "io"
	case KindArenaExhausted:
		return "arena_exhausted"
	case KindManifestShape:
		return "manifest_shape"
	case KindResourceOrEntity:
		return "resource_or_entity"
	default:
		return "unknown"
	}
}

// CompilerError is the single error object spec.md's error channel
// describes: a message, the offending file path, the grug-source line
// (0 when unknown, e.g. for a manifest-shape error raised before any file
// is read), and an internal origin (the Go call site that raised it, for
// debugging the compiler itself).
type CompilerError struct {
	Kind Kind
	Msg  string
	Path string
	Line int

	OriginFile string
	OriginLine int

	Source string // the full source text, for caret rendering
	Column int
}

// New constructs a CompilerError, capturing the Go call site as the
// origin (skip=1 means "my caller").
func New(kind Kind, path string, line int, format string, args ...any) *CompilerError {
	e := &CompilerError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Path: path,
		Line: line,
	}
	e.captureOrigin(2)
	return e
}

func (e *CompilerError) captureOrigin(skip int) {
	if file, line, ok := caller(skip); ok {
		e.OriginFile = file
		e.OriginLine = line
	}
}

func (e *CompilerError) Error() string {
	return e.Format(false)
}

// Format renders the error with a source-line-and-caret indicator when a
// line/column and source text are available. Column alignment accounts
// for wide runes (CJK, fullwidth forms) using golang.org/x/text/width, so
// the caret still lands under the offending character in terminals that
// render those runes as two cells.
func (e *CompilerError) Format(color bool) string {
	var sb strings.Builder

	if e.Path != "" {
		sb.WriteString(fmt.Sprintf("Error in %s:%d\n", e.Path, e.Line))
	} else {
		sb.WriteString(fmt.Sprintf("Error at line %d\n", e.Line))
	}

	if line := e.sourceLine(); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+visualOffset(line, e.Column)))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Msg))
	if color {
		sb.WriteString("\033[0m")
	}

	return sb.String()
}

func (e *CompilerError) sourceLine() string {
	if e.Source == "" || e.Line < 1 {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if e.Line > len(lines) {
		return ""
	}
	return lines[e.Line-1]
}

// visualOffset returns the number of terminal cells preceding column col
// (1-indexed) of line, treating East-Asian wide and fullwidth runes as two
// cells each.
func visualOffset(line string, col int) int {
	if col < 1 {
		return 0
	}
	cells := 0
	runeIdx := 0
	for _, r := range line {
		if runeIdx >= col-1 {
			break
		}
		runeIdx++
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cells += 2
		default:
			cells++
		}
	}
	return cells
}

// Channel holds the single current error and the previous one, used by
// the public API to deduplicate consecutive identical errors so a polling
// host doesn't re-log the same failure on every tick (spec.md §7).
type Channel struct {
	current  *CompilerError
	previous *CompilerError
}

// Raise records err as the current error. Whether it differs (by Kind,
// Msg, Path and Line) from the previous one is reported by Commit.
func (c *Channel) Raise(err *CompilerError) {
	c.current = err
}

// Commit moves the current error into "previous" and reports whether it
// differs from what was already there.
func (c *Channel) Commit() (changed bool) {
	if c.current == nil {
		return false
	}
	changed = c.previous == nil || !sameError(c.previous, c.current)
	c.previous = c.current
	c.current = nil
	return changed
}

func (c *Channel) Current() *CompilerError { return c.current }

func sameError(a, b *CompilerError) bool {
	return a.Kind == b.Kind && a.Msg == b.Msg && a.Path == b.Path && a.Line == b.Line
}
