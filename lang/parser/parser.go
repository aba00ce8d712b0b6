// Package parser implements a recursive-descent parser that turns lumen
// source code into an *ast.Chunk.
package parser

import (
	"errors"
	gotoken "go/token"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/scanner"
	"github.com/mna/lumen/lang/token"
)

// Parse parses a single chunk of source, named filename for error
// reporting. The returned *token.File must be kept alongside the chunk, as
// its ast.Pos values are only meaningful relative to it. The returned
// error, if non-nil, is a scanner.ErrorList.
func Parse(filename string, src []byte) (*ast.Chunk, *token.File, error) {
	var p parser
	p.init(filename, src)
	ch := p.parseChunk()
	ch.Name = filename

	errs := append(scanner.ErrorList{}, p.scanner.Errors()...)
	errs = append(errs, p.errors...)
	errs.Sort()
	return ch, p.file, errs.Err()
}

type parser struct {
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok scanner.Token
}

func (p *parser) init(filename string, src []byte) {
	p.file = token.NewFile(filename)
	p.scanner = *scanner.New(filename, src)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan()
}

var errPanicMode = errors.New("panic mode")

func (p *parser) error(pos token.Pos, msg string) {
	line, col := pos.LineCol()
	p.errors.Add(gotoken.Position{Filename: p.file.Name(), Line: line, Column: col}, msg)
}

func (p *parser) errorExpected(pos token.Pos, msg string) {
	p.error(pos, "expected "+msg+", found "+p.tok.Tok.GoString())
}

// expect consumes the current token if it matches tok, otherwise records an
// error and panics with errPanicMode (recovered at the statement level, by
// parseStmtRecover).
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.tok.Pos
	if p.tok.Tok != tok {
		p.errorExpected(pos, tok.GoString())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) accept(tok token.Token) (token.Pos, bool) {
	if p.tok.Tok == tok {
		pos := p.tok.Pos
		p.advance()
		return pos, true
	}
	return 0, false
}

func (p *parser) ident() *ast.IdentExpr {
	if p.tok.Tok != token.IDENT {
		p.errorExpected(p.tok.Pos, "identifier")
		panic(errPanicMode)
	}
	id := &ast.IdentExpr{Start: p.tok.Pos, Lit: p.tok.Raw}
	p.advance()
	return id
}

func (p *parser) exprList() ([]ast.Expr, []token.Pos) {
	var exprs []ast.Expr
	var commas []token.Pos
	exprs = append(exprs, p.parseExpr())
	for p.tok.Tok == token.COMMA {
		commas = append(commas, p.tok.Pos)
		p.advance()
		exprs = append(exprs, p.parseExpr())
	}
	return exprs, commas
}
