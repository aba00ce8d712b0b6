package token

import "testing"

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tokenNames[tok] == "" {
			t.Errorf("missing string for token %d", tok)
		}
		if got := tok.String(); got == "<invalid token>" {
			t.Errorf("token %d stringified as invalid", tok)
		}
	}
	if got := Token(127).String(); got != "<invalid token>" {
		t.Errorf("out-of-range token should stringify as invalid, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	cases := []struct {
		in   string
		want Token
	}{
		{"local", LOCAL},
		{"and", AND},
		{"while", WHILE},
		{"foobar", IDENT},
		{"", IDENT},
	}
	for _, c := range cases {
		if got := Lookup(c.in); got != c.want {
			t.Errorf("Lookup(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsCompareIsBinArith(t *testing.T) {
	if !LT.IsCompare() || !NEQ.IsCompare() || PLUS.IsCompare() {
		t.Error("IsCompare classification wrong")
	}
	if !PLUS.IsBinArith() || !GTGT.IsBinArith() || LT.IsBinArith() || DOTDOT.IsBinArith() {
		t.Error("IsBinArith classification wrong")
	}
}
