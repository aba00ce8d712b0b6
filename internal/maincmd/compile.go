package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/lumen/lang/compiler"
	"github.com/mna/lumen/lang/parser"
	"github.com/mna/lumen/lang/resolver"
	"github.com/mna/lumen/lang/scanner"
	"github.com/mna/mainer"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

func CompileFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if err := compileFile(stdio, filename); err != nil {
			return err
		}
	}
	return nil
}

func compileFile(stdio mainer.Stdio, filename string) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return printError(stdio, err)
	}

	chunk, file, perr := parser.Parse(filename, src)
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return perr
	}

	r := resolver.New(file)
	funcs := r.Resolve(chunk)
	if errs := r.Errors(); len(errs) > 0 {
		joined := errors.Join(errs...)
		for _, e := range errs {
			fmt.Fprintln(stdio.Stderr, e)
		}
		return joined
	}

	proto, cerr := compiler.Compile(chunk, funcs)
	if cerr != nil {
		return printError(stdio, cerr)
	}

	out, derr := compiler.Dasm(proto)
	if derr != nil {
		return printError(stdio, derr)
	}
	_, err = stdio.Stdout.Write(out)
	return err
}
