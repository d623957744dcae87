// Package checker implements grug's type and semantic checker (spec.md
// §4.3): it resolves every identifier to a global, parameter or local,
// assigns a types.Type to every expression, and enforces the language's
// scoping, shadowing and resource/entity rules.
package checker

import "github.com/grugscript/grug/internal/types"

// symbol is one name bound in a scope: a global variable, a parameter,
// or a local declared by a typed assignment.
type symbol struct {
	Name     string
	Type     types.Type
	IsGlobal bool
	IsParam  bool
}

// symbolTable is a single function's lexical scope chain. Unlike the
// teacher's table, grug has no overloading, no case-insensitivity and no
// forward declarations, so Define is a plain insert-or-shadow-reject.
type symbolTable struct {
	symbols map[string]*symbol
	outer   *symbolTable
}

func newSymbolTable(outer *symbolTable) *symbolTable {
	return &symbolTable{symbols: map[string]*symbol{}, outer: outer}
}

// define binds name in the current scope. It reports false if name is
// already bound in this scope or any enclosing one (spec.md §4.3: a
// local may never shadow a global, a parameter, or an outer local).
func (st *symbolTable) define(name string, typ types.Type, isGlobal, isParam bool) bool {
	if st.resolve(name) != nil {
		return false
	}
	st.symbols[name] = &symbol{Name: name, Type: typ, IsGlobal: isGlobal, IsParam: isParam}
	return true
}

// resolve looks up name in this scope and every enclosing scope.
func (st *symbolTable) resolve(name string) *symbol {
	if s, ok := st.symbols[name]; ok {
		return s
	}
	if st.outer != nil {
		return st.outer.resolve(name)
	}
	return nil
}
