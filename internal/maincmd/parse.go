package maincmd

import (
	"context"
	"os"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/parser"
	"github.com/mna/lumen/lang/scanner"
	"github.com/mna/lumen/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, token.PosLong, args...)
}

func ParseFiles(ctx context.Context, stdio mainer.Stdio, posMode token.PosMode, files ...string) error {
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if _, _, err := parseFile(stdio, posMode, filename); err != nil {
			return err
		}
	}
	return nil
}

func parseFile(stdio mainer.Stdio, posMode token.PosMode, filename string) (*ast.Chunk, *token.File, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, printError(stdio, err)
	}

	chunk, file, err := parser.Parse(filename, src)
	if chunk != nil {
		printer := ast.Printer{Output: stdio.Stdout, Pos: posMode, File: file}
		if perr := printer.Print(chunk); perr != nil {
			return nil, nil, printError(stdio, perr)
		}
	}
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return nil, nil, err
	}
	return chunk, file, nil
}
