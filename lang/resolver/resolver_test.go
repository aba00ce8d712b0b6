package resolver

import (
	"testing"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/token"
)

func ident(lit string) *ast.IdentExpr { return &ast.IdentExpr{Lit: lit} }

func TestResolveLocal(t *testing.T) {
	x := ident("x")
	chunk := &ast.Chunk{Block: &ast.Block{Stmts: []ast.Stmt{
		&ast.LocalStmt{Names: []*ast.IdentExpr{ident("x")}, Right: []ast.Expr{&ast.LiteralExpr{Type: token.INT}}},
		&ast.ExprStmt{Expr: &ast.CallExpr{Fn: x}},
	}}}

	r := New(token.NewFile("t.lum"))
	funcs := r.Resolve(chunk)
	if len(r.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors())
	}
	if len(funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(funcs))
	}
	bdg, ok := x.Binding.(*Binding)
	if !ok || bdg.Scope != Local {
		t.Fatalf("x.Binding = %+v, want Local", x.Binding)
	}
}

func TestResolveUpvalue(t *testing.T) {
	x := ident("x")
	inner := &ast.FuncExpr{
		Sig:  &ast.FuncSignature{},
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{Expr: &ast.CallExpr{Fn: x}}}},
	}
	chunk := &ast.Chunk{Block: &ast.Block{Stmts: []ast.Stmt{
		&ast.LocalStmt{Names: []*ast.IdentExpr{ident("x")}, Right: []ast.Expr{&ast.LiteralExpr{Type: token.INT}}},
		&ast.LocalStmt{Names: []*ast.IdentExpr{ident("f")}, Right: []ast.Expr{inner}},
	}}}

	r := New(token.NewFile("t.lum"))
	funcs := r.Resolve(chunk)
	if len(r.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors())
	}
	if len(funcs) != 2 {
		t.Fatalf("got %d functions, want 2", len(funcs))
	}

	outerX := chunk.Block.Stmts[0].(*ast.LocalStmt).Names[0].Binding.(*Binding)
	if outerX.Scope != Cell {
		t.Errorf("outer x.Scope = %v, want Cell", outerX.Scope)
	}

	innerX := x.Binding.(*Binding)
	if innerX.Scope != Free {
		t.Errorf("inner x.Scope = %v, want Free", innerX.Scope)
	}
}

func TestResolveUndefinedAndUniversal(t *testing.T) {
	p := ident("print")
	u := ident("undefined_name")
	chunk := &ast.Chunk{Block: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{Expr: &ast.CallExpr{Fn: p}},
		&ast.ExprStmt{Expr: &ast.CallExpr{Fn: u}},
	}}}

	r := New(token.NewFile("t.lum"))
	r.Resolve(chunk)

	if bdg := p.Binding.(*Binding); bdg.Scope != Universal {
		t.Errorf("print.Scope = %v, want Universal", bdg.Scope)
	}
	if bdg := u.Binding.(*Binding); bdg.Scope != Undefined {
		t.Errorf("undefined_name.Scope = %v, want Undefined", bdg.Scope)
	}
}

func TestResolveAssignToNonAssignable(t *testing.T) {
	chunk := &ast.Chunk{Block: &ast.Block{Stmts: []ast.Stmt{
		&ast.AssignStmt{
			Left:  []ast.Expr{&ast.LiteralExpr{Type: token.INT}},
			Right: []ast.Expr{&ast.LiteralExpr{Type: token.INT}},
		},
	}}}

	r := New(token.NewFile("t.lum"))
	r.Resolve(chunk)
	if len(r.Errors()) == 0 {
		t.Fatal("expected an error for assigning to a literal")
	}
}
