package ast

import (
	"fmt"

	"github.com/mna/lumen/lang/token"
)

// Unwrap unwraps e if it is a *ParenExpr, recursively, until it reaches a
// non-ParenExpr.
func Unwrap(e Expr) Expr {
	if pe, ok := e.(*ParenExpr); ok {
		return Unwrap(pe.Expr)
	}
	return e
}

// IsValidStmt returns true if e is a valid ExprStmt expression: only
// function and method calls are valid statements on their own.
func IsValidStmt(e Expr) bool {
	ue := Unwrap(e)
	switch ue.(type) {
	case *CallExpr, *MethodCallExpr:
		return true
	default:
		return false
	}
}

// IsAssignable returns true if e can appear on the left-hand side of an
// assignment: an identifier, a field selector or an indexing expression.
func IsAssignable(e Expr) bool {
	switch e := e.(type) {
	case *IdentExpr:
		return true
	case *DotExpr:
		return IsAssignable(Unwrap(e.Left))
	case *IndexExpr:
		return IsAssignable(Unwrap(e.Prefix))
	default:
		return false
	}
}

type (
	// BadExpr represents an expression that failed to parse.
	BadExpr struct {
		Start token.Pos
		End   token.Pos
	}

	// BinOpExpr represents a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Type  token.Token
		Op    token.Pos
		Right Expr
	}

	// CallExpr represents a function call, e.g. f(x, y).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Commas []token.Pos
		Rparen token.Pos
	}

	// MethodCallExpr represents a method call with colon syntax, e.g.
	// obj:method(x, y). The receiver (obj) is passed as the implicit first
	// argument at the codegen stage (OP_SELF).
	MethodCallExpr struct {
		Recv   Expr
		Colon  token.Pos
		Method *IdentExpr
		Lparen token.Pos
		Args   []Expr
		Commas []token.Pos
		Rparen token.Pos
	}

	// DotExpr represents a field selector, e.g. x.y.
	DotExpr struct {
		Left  Expr
		Dot   token.Pos
		Right *IdentExpr
	}

	// FuncExpr represents a function literal.
	FuncExpr struct {
		Fn   token.Pos
		Sig  *FuncSignature
		Body *Block
		End  token.Pos
	}

	// FuncSignature is the parameter list of a function literal or
	// declaration.
	FuncSignature struct {
		Lparen    token.Pos
		Params    []*IdentExpr
		Commas    []token.Pos
		DotDotDot token.Pos // position of trailing "...", 0 if none
		Rparen    token.Pos
	}

	// IdentExpr represents an identifier. After resolution, Binding holds the
	// scoping information for this occurrence.
	IdentExpr struct {
		Start   token.Pos
		Lit     string
		Binding any // *resolver.Binding, set by the resolver
	}

	// IndexExpr represents an index expression, e.g. x[y].
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// LiteralExpr represents a nil, boolean, numeric or string literal.
	LiteralExpr struct {
		Type  token.Token // NIL, TRUE, FALSE, STRING, INT or FLOAT
		Start token.Pos
		Raw   string
		Value any // string | int64 | float64, nil for NIL/TRUE/FALSE
	}

	// VarargExpr represents the "..." expression referring to a variadic
	// function's extra arguments.
	VarargExpr struct {
		Start token.Pos
	}

	// TableField is a single entry of a TableExpr: either a positional value
	// (Key == nil), a named field ({x = 1}, Key is an *IdentExpr treated as a
	// string key) or a computed field ({[e] = v}).
	TableField struct {
		Lbrack token.Pos // 0 unless a computed [expr] key
		Key    Expr      // nil for positional entries
		Assign token.Pos // 0 for positional entries
		Value  Expr
	}

	// TableExpr represents a table constructor, e.g. {1, 2, x = 3, [k] = v}.
	TableExpr struct {
		Lbrace token.Pos
		Fields []*TableField
		Commas []token.Pos
		Rbrace token.Pos
	}

	// ParenExpr represents a parenthesized expression. Parens truncate a
	// multi-value expression to exactly one value.
	ParenExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}

	// UnaryOpExpr represents a unary operator expression, e.g. -x, not x, #x,
	// ~x.
	UnaryOpExpr struct {
		Type  token.Token
		Op    token.Pos
		Right Expr
	}
)

func (n *BadExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad expr!", nil) }
func (n *BadExpr) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadExpr) Walk(v Visitor)                {}
func (n *BadExpr) expr()                         {}

func (n *BinOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Type.GoString(), nil)
}
func (n *BinOpExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinOpExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinOpExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Fn.Span()
	if n.Rparen.IsValid() {
		end = n.Rparen + token.Pos(len(token.RPAREN.String()))
	} else if len(n.Args) > 0 {
		_, end = n.Args[len(n.Args)-1].Span()
	} else {
		_, end = n.Fn.Span()
	}
	return start, end
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *CallExpr) expr() {}

func (n *MethodCallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "method call "+n.Method.Lit, map[string]int{"args": len(n.Args)})
}
func (n *MethodCallExpr) Span() (start, end token.Pos) {
	start, _ = n.Recv.Span()
	return start, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *MethodCallExpr) Walk(v Visitor) {
	Walk(v, n.Recv)
	Walk(v, n.Method)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *MethodCallExpr) expr() {}

func (n *DotExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr.ident", nil) }
func (n *DotExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *DotExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *DotExpr) expr() {}

func (n *FuncExpr) Format(f fmt.State, verb rune) {
	lbl := "fn"
	if n.Sig.DotDotDot.IsValid() {
		lbl += " ..."
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncExpr) Span() (start, end token.Pos) {
	return n.Fn, n.End + token.Pos(len(token.END.String()))
}
func (n *FuncExpr) Walk(v Visitor) {
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncExpr) expr() {}

func (n *IdentExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Lit, nil) }
func (n *IdentExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Lit))
}
func (n *IdentExpr) Walk(v Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr[index]", nil) }
func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.Prefix.Span()
	return start, n.Rbrack + token.Pos(len(token.RBRACK.String()))
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Prefix)
	Walk(v, n.Index)
}
func (n *IndexExpr) expr() {}

func (n *LiteralExpr) Format(f fmt.State, verb rune) {
	if n.Value == nil {
		format(f, verb, n, n.Type.String(), nil)
	} else {
		format(f, verb, n, n.Type.String()+" "+n.Raw, nil)
	}
}
func (n *LiteralExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *LiteralExpr) Walk(v Visitor) {}
func (n *LiteralExpr) expr()          {}

func (n *VarargExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "...", nil) }
func (n *VarargExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(token.DOTS.String()))
}
func (n *VarargExpr) Walk(v Visitor) {}
func (n *VarargExpr) expr()          {}

func (n *TableExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "table", map[string]int{"fields": len(n.Fields)})
}
func (n *TableExpr) Span() (start, end token.Pos) {
	return n.Lbrace, n.Rbrace + token.Pos(len(token.RBRACE.String()))
}
func (n *TableExpr) Walk(v Visitor) {
	for _, fl := range n.Fields {
		if fl.Key != nil {
			Walk(v, fl.Key)
		}
		Walk(v, fl.Value)
	}
}
func (n *TableExpr) expr() {}

func (n *ParenExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "(expr)", nil) }
func (n *ParenExpr) Span() (start, end token.Pos) {
	return n.Lparen, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *ParenExpr) Walk(v Visitor) { Walk(v, n.Expr) }
func (n *ParenExpr) expr()          {}

func (n *UnaryOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "unary "+n.Type.GoString(), nil)
}
func (n *UnaryOpExpr) Span() (start, end token.Pos) {
	_, end = n.Right.Span()
	return n.Op, end
}
func (n *UnaryOpExpr) Walk(v Visitor) { Walk(v, n.Right) }
func (n *UnaryOpExpr) expr()          {}
