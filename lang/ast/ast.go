// Package ast defines the abstract syntax tree produced by the parser for
// the lumen language.
package ast

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/mna/lumen/lang/token"
)

// Node is the interface implemented by every AST node.
type Node interface {
	// Span returns the start and end position of the node.
	Span() (start, end token.Pos)
	// Walk visits the node's direct children, if any, with v.
	Walk(v Visitor)
	fmt.Formatter
}

// Expr is the interface implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is the interface implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

// format implements the common Format logic shared by every node type: it
// prints the node's Go type name, a short label, and any extra fields, all
// on one line, honoring the fmt verb/flags/width requested by the caller.
func format(f fmt.State, verb rune, n Node, label string, extra map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%s)", verb, reflect.TypeOf(n))
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimPrefix(reflect.TypeOf(n).String(), "*ast."))
	if label != "" {
		sb.WriteString(": ")
		sb.WriteString(label)
	}
	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		for i, k := range keys {
			if i == 0 {
				sb.WriteString(" (")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(strconv.Itoa(extra[k]))
		}
		if len(keys) > 0 {
			sb.WriteString(")")
		}
	}

	s := sb.String()
	if f.Flag('#') {
		s = "<" + s + ">"
	}
	if w, ok := f.Width(); ok {
		if len(s) < w {
			pad := strings.Repeat(" ", w-len(s))
			if f.Flag('-') {
				s += pad
			} else {
				s = pad + s
			}
		}
	}
	io.WriteString(f, s)
}
