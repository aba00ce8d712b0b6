package scanner

import (
	"testing"

	"github.com/mna/lumen/lang/token"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := New("test.lum", []byte(src))
	var toks []Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Tok == token.EOF {
			break
		}
	}
	return toks
}

func TestScanPunctAndOperators(t *testing.T) {
	src := `+ - * / // % ^ & | ~ << >> .. < <= > >= == ~= = . , ; : ( ) [ ] { } # ...`
	want := []token.Token{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT,
		token.CIRCUMFLEX, token.AMPERSAND, token.PIPE, token.TILDE, token.LTLT, token.GTGT,
		token.DOTDOT, token.LT, token.LE, token.GT, token.GE, token.EQ, token.NEQ,
		token.ASSIGN, token.DOT, token.COMMA, token.SEMI, token.COLON,
		token.LPAREN, token.RPAREN, token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE,
		token.HASH, token.DOTS, token.EOF,
	}
	toks := scanAll(t, src)
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tok := range toks {
		if tok.Tok != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tok.Tok, want[i])
		}
	}
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "local x = foo and bar")
	wantToks := []token.Token{token.LOCAL, token.IDENT, token.ASSIGN, token.IDENT, token.AND, token.IDENT, token.EOF}
	if len(toks) != len(wantToks) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(wantToks))
	}
	for i, tok := range toks {
		if tok.Tok != wantToks[i] {
			t.Errorf("token %d: got %v, want %v", i, tok.Tok, wantToks[i])
		}
	}
	if toks[1].Raw != "x" || toks[3].Raw != "foo" || toks[5].Raw != "bar" {
		t.Errorf("unexpected identifier text: %+v", toks)
	}
}

func TestScanNumbers(t *testing.T) {
	cases := []struct {
		src      string
		tok      token.Token
		wantInt  int64
		wantFlt  float64
	}{
		{"42", token.INT, 42, 0},
		{"0x2A", token.INT, 42, 0},
		{"3.14", token.FLOAT, 0, 3.14},
		{"1e3", token.FLOAT, 0, 1000},
		{".5", token.FLOAT, 0, 0.5},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		if toks[0].Tok != c.tok {
			t.Errorf("%q: got token %v, want %v", c.src, toks[0].Tok, c.tok)
			continue
		}
		if c.tok == token.INT && toks[0].Int != c.wantInt {
			t.Errorf("%q: got int %d, want %d", c.src, toks[0].Int, c.wantInt)
		}
		if c.tok == token.FLOAT && toks[0].Float != c.wantFlt {
			t.Errorf("%q: got float %v, want %v", c.src, toks[0].Float, c.wantFlt)
		}
	}
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(t, `"hello\nworld" 'it''s'`)
	if toks[0].Tok != token.STRING || toks[0].Str != "hello\nworld" {
		t.Errorf("got %+v", toks[0])
	}
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "local x -- a comment\n--[[ block\ncomment ]]\nlocal y")
	want := []token.Token{token.LOCAL, token.IDENT, token.LOCAL, token.IDENT, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, tok := range toks {
		if tok.Tok != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tok.Tok, want[i])
		}
	}
}

func TestScanIllegalCharacter(t *testing.T) {
	s := New("test.lum", []byte("$"))
	tok := s.Scan()
	if tok.Tok != token.ILLEGAL {
		t.Errorf("got %v, want ILLEGAL", tok.Tok)
	}
	if len(s.Errors()) == 0 {
		t.Error("expected an error to be recorded")
	}
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "local\nx")
	line0 := toks[0].Pos.Line()
	line1 := toks[1].Pos.Line()
	if line0 != 1 || line1 != 2 {
		t.Errorf("got lines %d, %d, want 1, 2", line0, line1)
	}
}
