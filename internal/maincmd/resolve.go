package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/parser"
	"github.com/mna/lumen/lang/resolver"
	"github.com/mna/lumen/lang/scanner"
	"github.com/mna/lumen/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Resolve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ResolveFiles(ctx, stdio, token.PosLong, args...)
}

func ResolveFiles(ctx context.Context, stdio mainer.Stdio, posMode token.PosMode, files ...string) error {
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if _, _, _, err := resolveFile(stdio, posMode, filename); err != nil {
			return err
		}
	}
	return nil
}

func resolveFile(stdio mainer.Stdio, posMode token.PosMode, filename string) (*ast.Chunk, *token.File, []*resolver.Function, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, nil, printError(stdio, err)
	}

	chunk, file, perr := parser.Parse(filename, src)
	if perr != nil {
		// cannot resolve an AST that failed to parse
		scanner.PrintError(stdio.Stderr, perr)
		return nil, nil, nil, perr
	}

	r := resolver.New(file)
	funcs := r.Resolve(chunk)

	printer := ast.Printer{Output: stdio.Stdout, Pos: posMode, File: file}
	if perr := printer.Print(chunk); perr != nil {
		return nil, nil, nil, printError(stdio, perr)
	}

	if errs := r.Errors(); len(errs) > 0 {
		joined := errors.Join(errs...)
		for _, e := range errs {
			fmt.Fprintln(stdio.Stderr, e)
		}
		return nil, nil, nil, joined
	}
	return chunk, file, funcs, nil
}
