package ast

import (
	"fmt"
	"os"
	"strings"

	"github.com/mna/lumen/lang/token"
)

type (
	// Chunk is the root node of a parsed source file.
	Chunk struct {
		// Name is the filename, which may be empty if the chunk is not a file.
		Name string

		// Comments lists every comment in the chunk, ordered by position. A
		// comment's Node field identifies the statement it was attached to
		// during post-processing, if any.
		Comments []*Comment

		Block *Block
		EOF   token.Pos
	}

	// Comment represents a single line or block comment.
	Comment struct {
		Node     Node
		Start    token.Pos
		Raw, Val string
	}

	// Block represents a sequence of statements delimited by some enclosing
	// construct (chunk, do-end, if-then, while-do, for-do, function body).
	Block struct {
		Start token.Pos
		End   token.Pos
		Stmts []Stmt
	}
)

func (n *Chunk) Format(f fmt.State, verb rune) {
	lbl := "chunk"
	if n.Name != "" {
		lbl += " " + strings.ReplaceAll(n.Name, string(os.PathSeparator), "/")
	}
	format(f, verb, n, lbl, nil)
}
func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

func (n *Comment) Format(f fmt.State, verb rune) { format(f, verb, n, n.Val, nil) }
func (n *Comment) Span() (start, end token.Pos)  { return n.Start, n.Start + token.Pos(len(n.Raw)) }
func (n *Comment) Walk(_ Visitor)                {}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
