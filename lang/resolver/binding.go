// Package resolver performs lexical scope resolution over a parsed lumen
// chunk: it classifies every identifier as local, a captured cell, a free
// variable of an enclosing function, or a global, and assigns each the
// register/upvalue index the compiler will use to address it.
package resolver

import (
	"fmt"

	"github.com/mna/lumen/lang/ast"
)

// Scope indicates what kind of scope a Binding has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function
	Cell                     // name is function-local but captured by a nested function
	Free                     // name is an upvalue referring to an enclosing function's cell
	Universal                // name is a language built-in (print, type, ...)
)

var scopeNames = [...]string{
	Undefined: "undefined",
	Local:     "local",
	Cell:      "cell",
	Free:      "free",
	Universal: "universal",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// Binding ties together all identifier occurrences that denote the same
// variable.
type Binding struct {
	Scope Scope

	// Index records the index into the enclosing function's Locals, if
	// Scope==Local or Scope==Cell, or into its FreeVars, if Scope==Free. It is
	// meaningless if Scope is Universal or Undefined.
	Index int

	// Decl is the node that introduces this binding: the *ast.IdentExpr naming
	// a local or parameter, the *ast.NumForStmt/*ast.FuncStmt owning a loop or
	// "local function" variable, or the method *ast.FuncStmt for an implicit
	// "self". Unique per variable, so it doubles as an identity key across the
	// Local/Cell/Free bindings that refer to the same variable. Nil for
	// Universal bindings.
	Decl ast.Node

	// Name is the source identifier text, kept for diagnostics.
	Name string
}

// Function collects the bindings owned by a single lumen function (or the
// top-level chunk, treated as a vararg function).
type Function struct {
	Definition ast.Node // *ast.Chunk, *ast.FuncStmt or *ast.FuncExpr
	Locals     []*Binding
	FreeVars   []*Binding
	HasVararg  bool
}
