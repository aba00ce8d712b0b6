package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/mna/lumen/lang/token"
)

// Printer controls pretty-printing of AST nodes, mostly useful for tests and
// debugging.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// Pos indicates the position printing mode. If the zero value (PosLong),
	// File must be provided.
	Pos token.PosMode

	// File is required to format positions; may be nil if positions are not
	// printed.
	File *token.File
}

// Print pretty-prints the AST node n, one line per node, indented by
// nesting depth.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, pos: p.Pos, file: p.File}
	if ch, ok := n.(*Chunk); ok && len(ch.Comments) > 0 {
		m := make(map[Node][]*Comment, len(ch.Comments))
		for _, c := range ch.Comments {
			m[c.Node] = append(m[c.Node], c)
		}
		pp.comments = m
	}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w        io.Writer
	pos      token.PosMode
	comments map[Node][]*Comment
	file     *token.File
	depth    int
	err      error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.depth++
	p.printNode(n, p.depth-1)
	for _, c := range p.comments[n] {
		p.printNode(c, p.depth)
	}
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}
	prefix := strings.Repeat(". ", indent)
	if p.file != nil {
		start, end := n.Span()
		_, p.err = fmt.Fprintf(p.w, "%s[%s:%s] %v\n", prefix,
			p.file.Format(start, p.pos), p.file.Format(end, p.pos), n)
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%v\n", prefix, n)
}
