package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lumen/lang/scanner"
	"github.com/mna/lumen/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, token.PosLong, args...)
}

func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, posMode token.PosMode, files ...string) error {
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if err := tokenizeFile(stdio, posMode, filename); err != nil {
			return err
		}
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, posMode token.PosMode, filename string) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return printError(stdio, err)
	}

	file := token.NewFile(filename)
	s := scanner.New(filename, src)
	for {
		tok := s.Scan()
		fmt.Fprintf(stdio.Stdout, "%s: %s", file.Format(tok.Pos, posMode), tok.Tok)
		if lit := literal(tok); lit != "" {
			fmt.Fprintf(stdio.Stdout, " %s", lit)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok.Tok == token.EOF {
			break
		}
	}

	if errs := s.Errors(); len(errs) > 0 {
		scanner.PrintError(stdio.Stderr, errs)
		return printError(stdio, errs.Err())
	}
	return nil
}

func literal(tok scanner.Token) string {
	switch {
	case tok.Str != "":
		return tok.Str
	case tok.Raw != "":
		return tok.Raw
	default:
		return ""
	}
}
