package parser

import (
	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	block := p.parseBlock()
	eof := p.tok.Pos
	if p.tok.Tok != token.EOF {
		p.error(p.tok.Pos, "expected end of file, found "+p.tok.Tok.GoString())
	}
	return &ast.Chunk{Block: block, EOF: eof}
}
