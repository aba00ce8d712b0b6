package ast

import (
	"fmt"

	"github.com/mna/lumen/lang/token"
)

type (
	// LocalStmt declares one or more local variables, e.g. local x, y = 1, 2.
	LocalStmt struct {
		Local       token.Pos
		Names       []*IdentExpr
		NameCommas  []token.Pos
		Assign      token.Pos // 0 if no initializer
		Right       []Expr
		RightCommas []token.Pos
	}

	// AssignStmt represents an assignment to one or more existing variables,
	// e.g. x, y = y, x.
	AssignStmt struct {
		Left        []Expr
		LeftCommas  []token.Pos
		Assign      token.Pos
		Right       []Expr
		RightCommas []token.Pos
	}

	// BadStmt represents a statement that failed to parse.
	BadStmt struct {
		Start token.Pos
		End   token.Pos
	}

	// ExprStmt represents an expression used as a statement: only function
	// and method calls qualify (see IsValidStmt).
	ExprStmt struct {
		Expr Expr
	}

	// DoStmt represents a do-end block, used purely for scoping.
	DoStmt struct {
		Do   token.Pos
		Body *Block
		End  token.Pos
	}

	// WhileStmt represents a while-do-end loop.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Do    token.Pos
		Body  *Block
		End   token.Pos
	}

	// NumForStmt represents a numeric for loop: for i = start, stop[, step] do
	// ... end.
	NumForStmt struct {
		For   token.Pos
		Name  *IdentExpr
		Start Expr
		Stop  Expr
		Step  Expr // nil if not specified
		Do    token.Pos
		Body  *Block
		End   token.Pos
	}

	// IfStmt represents an if/elseif/else chain. Else is nil if there is no
	// else clause; ElseIf, if non-nil, is itself an *IfStmt representing the
	// chained elseif (its Else/ElseIf continue the chain).
	IfStmt struct {
		If     token.Pos
		Cond   Expr
		Then   token.Pos
		Body   *Block
		ElseIf *IfStmt // nil unless this clause is followed by "elseif"
		Else   *Block  // nil unless this clause is followed by "else"
		End    token.Pos
	}

	// FuncStmt represents a function declaration, e.g. function f(x) ... end,
	// or, if Local is valid, local function f(x) ... end. Recv, if non-nil, is
	// a method declaration, function Recv:Name(...) ... end (Target is the
	// method name in that case).
	FuncStmt struct {
		Local  token.Pos // 0 unless a local function declaration
		Fn     token.Pos
		Target *IdentExpr // nil for method declarations
		Recv   *IdentExpr // non-nil for method declarations
		Colon  token.Pos  // 0 unless a method declaration
		Method *IdentExpr // non-nil for method declarations
		Sig    *FuncSignature
		Body   *Block
		End    token.Pos
	}

	// ReturnStmt represents a return statement with 0, 1 or more values.
	ReturnStmt struct {
		Return  token.Pos
		Right   []Expr
		Commas  []token.Pos
	}

	// BreakStmt represents a break statement.
	BreakStmt struct {
		Start token.Pos
	}
)

func (n *LocalStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "local", map[string]int{"names": len(n.Names)})
}
func (n *LocalStmt) Span() (start, end token.Pos) {
	if len(n.Right) > 0 {
		_, end = n.Right[len(n.Right)-1].Span()
	} else {
		_, end = n.Names[len(n.Names)-1].Span()
	}
	return n.Local, end
}
func (n *LocalStmt) Walk(v Visitor) {
	for _, nm := range n.Names {
		Walk(v, nm)
	}
	for _, e := range n.Right {
		Walk(v, e)
	}
}
func (n *LocalStmt) stmt() {}

func (n *AssignStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "assign", map[string]int{"left": len(n.Left), "right": len(n.Right)})
}
func (n *AssignStmt) Span() (start, end token.Pos) {
	start, _ = n.Left[0].Span()
	_, end = n.Right[len(n.Right)-1].Span()
	return start, end
}
func (n *AssignStmt) Walk(v Visitor) {
	for _, e := range n.Left {
		Walk(v, e)
	}
	for _, e := range n.Right {
		Walk(v, e)
	}
}
func (n *AssignStmt) stmt() {}

func (n *BadStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad stmt!", nil) }
func (n *BadStmt) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadStmt) Walk(v Visitor)                {}
func (n *BadStmt) stmt()                         {}

func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "expr stmt", nil) }
func (n *ExprStmt) Span() (start, end token.Pos)  { return n.Expr.Span() }
func (n *ExprStmt) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *ExprStmt) stmt()                         {}

func (n *DoStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "do", nil) }
func (n *DoStmt) Span() (start, end token.Pos) {
	return n.Do, n.End + token.Pos(len(token.END.String()))
}
func (n *DoStmt) Walk(v Visitor) { Walk(v, n.Body) }
func (n *DoStmt) stmt()          {}

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end token.Pos) {
	return n.While, n.End + token.Pos(len(token.END.String()))
}
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) stmt() {}

func (n *NumForStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "numeric for", nil) }
func (n *NumForStmt) Span() (start, end token.Pos) {
	return n.For, n.End + token.Pos(len(token.END.String()))
}
func (n *NumForStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Start)
	Walk(v, n.Stop)
	if n.Step != nil {
		Walk(v, n.Step)
	}
	Walk(v, n.Body)
}
func (n *NumForStmt) stmt() {}

func (n *IfStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "if", nil) }
func (n *IfStmt) Span() (start, end token.Pos) {
	end = n.End
	if n.Else != nil {
		_, end = n.Else.Span()
	} else if n.ElseIf != nil {
		_, end = n.ElseIf.Span()
	} else {
		end += token.Pos(len(token.END.String()))
	}
	return n.If, end
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
	if n.ElseIf != nil {
		Walk(v, n.ElseIf)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfStmt) stmt() {}

func (n *FuncStmt) Format(f fmt.State, verb rune) {
	lbl := "function"
	if n.Local.IsValid() {
		lbl = "local function"
	}
	if n.Recv != nil {
		lbl += " method " + n.Method.Lit
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncStmt) Span() (start, end token.Pos) {
	start = n.Fn
	if n.Local.IsValid() {
		start = n.Local
	}
	return start, n.End + token.Pos(len(token.END.String()))
}
func (n *FuncStmt) Walk(v Visitor) {
	if n.Target != nil {
		Walk(v, n.Target)
	}
	if n.Recv != nil {
		Walk(v, n.Recv)
		Walk(v, n.Method)
	}
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncStmt) stmt() {}

func (n *ReturnStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "return", map[string]int{"values": len(n.Right)})
}
func (n *ReturnStmt) Span() (start, end token.Pos) {
	end = n.Return + token.Pos(len(token.RETURN.String()))
	if len(n.Right) > 0 {
		_, end = n.Right[len(n.Right)-1].Span()
	}
	return n.Return, end
}
func (n *ReturnStmt) Walk(v Visitor) {
	for _, e := range n.Right {
		Walk(v, e)
	}
}
func (n *ReturnStmt) stmt() {}

func (n *BreakStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(token.BREAK.String()))
}
func (n *BreakStmt) Walk(v Visitor) {}
func (n *BreakStmt) stmt()          {}
