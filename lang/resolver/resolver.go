// Much of the resolver package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"fmt"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/token"
)

// Universals lists the predeclared global names every chunk resolves
// against before falling through to a genuine runtime global lookup. A
// name not in this list and not locally bound resolves as Undefined, which
// the compiler treats as a global table access.
var Universals = []string{
	"print", "type", "tostring", "tonumber", "pairs", "ipairs", "error",
	"assert", "pcall", "setmetatable", "getmetatable", "rawget", "rawset",
	"select", "unpack",
}

type block struct {
	parent *block
	fn     *funcState
	vars   map[string]*Binding
}

func newBlock(parent *block, fn *funcState) *block {
	return &block{parent: parent, fn: fn, vars: make(map[string]*Binding)}
}

func (b *block) declare(name string, decl ast.Node) *Binding {
	bdg := &Binding{Scope: Local, Index: len(b.fn.fn.Locals), Decl: decl, Name: name}
	b.fn.fn.Locals = append(b.fn.fn.Locals, bdg)
	b.vars[name] = bdg
	return bdg
}

// lookupLocal searches only within fs's own blocks (not enclosing
// functions).
func (b *block) lookupLocal(name string) *Binding {
	for cur := b; cur != nil && cur.fn == b.fn; cur = cur.parent {
		if bdg, ok := cur.vars[name]; ok {
			return bdg
		}
	}
	return nil
}

type funcState struct {
	fn        *Function
	parent    *funcState
	curBlock  *block
	freeCache map[string]*Binding
}

// Resolver walks a parsed chunk and annotates every *ast.IdentExpr with its
// Binding, recording a Function per lumen function (the chunk itself is the
// outermost, vararg function).
type Resolver struct {
	file      *token.File
	universal map[string]bool
	funcs     []*Function
	errs      []error
}

// New returns a Resolver that reports positions against file.
func New(file *token.File) *Resolver {
	univ := make(map[string]bool, len(Universals))
	for _, n := range Universals {
		univ[n] = true
	}
	return &Resolver{file: file, universal: univ}
}

// Errors returns the errors accumulated during Resolve.
func (r *Resolver) Errors() []error { return r.errs }

func (r *Resolver) errorf(pos token.Pos, format string, args ...any) {
	loc := r.file.Format(pos, token.PosLong)
	r.errs = append(r.errs, fmt.Errorf("%s: %s", loc, fmt.Sprintf(format, args...)))
}

// Resolve resolves chunk and returns one *Function per lumen function found,
// in depth-first declaration order, starting with the chunk itself.
func (r *Resolver) Resolve(chunk *ast.Chunk) []*Function {
	top := &Function{Definition: chunk, HasVararg: true}
	r.funcs = append(r.funcs, top)
	fs := &funcState{fn: top, freeCache: make(map[string]*Binding)}
	fs.curBlock = newBlock(nil, fs)
	r.resolveBlock(fs, chunk.Block)
	return r.funcs
}

func (r *Resolver) pushBlock(fs *funcState) { fs.curBlock = newBlock(fs.curBlock, fs) }
func (r *Resolver) popBlock(fs *funcState)  { fs.curBlock = fs.curBlock.parent }

func (r *Resolver) resolveBlock(fs *funcState, b *ast.Block) {
	r.pushBlock(fs)
	for _, stmt := range b.Stmts {
		r.resolveStmt(fs, stmt)
	}
	r.popBlock(fs)
}

func (r *Resolver) resolveStmt(fs *funcState, stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.LocalStmt:
		for _, e := range n.Right {
			r.resolveExpr(fs, e)
		}
		for _, name := range n.Names {
			bdg := fs.curBlock.declare(name.Lit, name)
			name.Binding = bdg
		}
	case *ast.AssignStmt:
		for _, e := range n.Right {
			r.resolveExpr(fs, e)
		}
		for _, e := range n.Left {
			if !ast.IsAssignable(e) {
				start, _ := e.Span()
				r.errorf(start, "cannot assign to this expression")
			}
			r.resolveExpr(fs, e)
		}
	case *ast.ExprStmt:
		r.resolveExpr(fs, n.Expr)
	case *ast.DoStmt:
		r.resolveBlock(fs, n.Body)
	case *ast.WhileStmt:
		r.resolveExpr(fs, n.Cond)
		r.resolveBlock(fs, n.Body)
	case *ast.NumForStmt:
		r.resolveExpr(fs, n.Start)
		r.resolveExpr(fs, n.Stop)
		if n.Step != nil {
			r.resolveExpr(fs, n.Step)
		}
		r.pushBlock(fs)
		n.Name.Binding = fs.curBlock.declare(n.Name.Lit, n)
		for _, s := range n.Body.Stmts {
			r.resolveStmt(fs, s)
		}
		r.popBlock(fs)
	case *ast.IfStmt:
		r.resolveExpr(fs, n.Cond)
		r.resolveBlock(fs, n.Body)
		if n.ElseIf != nil {
			r.resolveStmt(fs, n.ElseIf)
		}
		if n.Else != nil {
			r.resolveBlock(fs, n.Else)
		}
	case *ast.FuncStmt:
		if n.Local.IsValid() {
			// local function f is visible inside its own body (for recursion).
			n.Target.Binding = fs.curBlock.declare(n.Target.Lit, n)
			r.resolveFuncBody(fs, n, n.Sig, n.Body, n.Recv != nil)
		} else {
			if n.Recv != nil {
				r.resolveIdent(fs, n.Recv)
			} else {
				r.resolveIdent(fs, n.Target)
			}
			r.resolveFuncBody(fs, n, n.Sig, n.Body, n.Recv != nil)
		}
	case *ast.ReturnStmt:
		for _, e := range n.Right {
			r.resolveExpr(fs, e)
		}
	case *ast.BreakStmt, *ast.BadStmt:
		// nothing to resolve
	default:
		r.errorf(0, "resolver: unhandled statement %T", n)
	}
}

func (r *Resolver) resolveFuncBody(parent *funcState, def ast.Node, sig *ast.FuncSignature, body *ast.Block, method bool) {
	fn := &Function{Definition: def, HasVararg: sig.DotDotDot.IsValid()}
	r.funcs = append(r.funcs, fn)
	fs := &funcState{fn: fn, parent: parent, freeCache: make(map[string]*Binding)}
	fs.curBlock = newBlock(nil, fs)

	if method {
		fs.curBlock.declare("self", def)
	}
	for _, p := range sig.Params {
		p.Binding = fs.curBlock.declare(p.Lit, p)
	}
	for _, stmt := range body.Stmts {
		r.resolveStmt(fs, stmt)
	}
}

func (r *Resolver) resolveExpr(fs *funcState, expr ast.Expr) {
	switch n := expr.(type) {
	case *ast.IdentExpr:
		r.resolveIdent(fs, n)
	case *ast.BinOpExpr:
		r.resolveExpr(fs, n.Left)
		r.resolveExpr(fs, n.Right)
	case *ast.UnaryOpExpr:
		r.resolveExpr(fs, n.Right)
	case *ast.CallExpr:
		r.resolveExpr(fs, n.Fn)
		for _, a := range n.Args {
			r.resolveExpr(fs, a)
		}
	case *ast.MethodCallExpr:
		r.resolveExpr(fs, n.Recv)
		for _, a := range n.Args {
			r.resolveExpr(fs, a)
		}
	case *ast.DotExpr:
		r.resolveExpr(fs, n.Left)
	case *ast.IndexExpr:
		r.resolveExpr(fs, n.Prefix)
		r.resolveExpr(fs, n.Index)
	case *ast.ParenExpr:
		r.resolveExpr(fs, n.Expr)
	case *ast.TableExpr:
		for _, fl := range n.Fields {
			if fl.Key != nil {
				r.resolveExpr(fs, fl.Key)
			}
			r.resolveExpr(fs, fl.Value)
		}
	case *ast.FuncExpr:
		r.resolveFuncBody(fs, n, n.Sig, n.Body, false)
	case *ast.LiteralExpr, *ast.VarargExpr, *ast.BadExpr:
		// no identifiers to resolve
	default:
		r.errorf(0, "resolver: unhandled expression %T", n)
	}
}

func (r *Resolver) resolveIdent(fs *funcState, id *ast.IdentExpr) {
	if bdg := fs.curBlock.lookupLocal(id.Lit); bdg != nil {
		id.Binding = bdg
		return
	}
	if bdg := r.resolveUpvalue(fs, id.Lit); bdg != nil {
		id.Binding = bdg
		return
	}
	if r.universal[id.Lit] {
		id.Binding = &Binding{Scope: Universal, Name: id.Lit}
		return
	}
	id.Binding = &Binding{Scope: Undefined, Name: id.Lit}
}

// resolveUpvalue implements the classic upvalue-chaining algorithm: it
// looks for name in an enclosing function, promoting the defining local to
// a Cell and threading a Free binding through every function in between.
func (r *Resolver) resolveUpvalue(fs *funcState, name string) *Binding {
	if fs.parent == nil {
		return nil
	}
	if cached, ok := fs.freeCache[name]; ok {
		return cached
	}

	var outer *Binding
	if bdg := fs.parent.curBlock.lookupLocal(name); bdg != nil {
		if bdg.Scope == Local {
			bdg.Scope = Cell
		}
		outer = bdg
	} else {
		outer = r.resolveUpvalue(fs.parent, name)
	}
	if outer == nil {
		return nil
	}

	free := &Binding{Scope: Free, Index: len(fs.fn.FreeVars), Name: name, Decl: outer.Decl}
	fs.fn.FreeVars = append(fs.fn.FreeVars, free)
	fs.freeCache[name] = free
	return free
}
