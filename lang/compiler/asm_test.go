package compiler_test

import (
	"testing"

	"github.com/mna/lumen/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this string, no error if empty
	}{
		{"empty", ``, "expected proto section"},
		{"not proto", `code:`, "expected proto section"},
		{"missing code", `
			proto:
				maxstack 0
		`, "expected code section"},
		{"minimal", `
			proto:
				maxstack 0
				code:
		`, ""},
		{"invalid opcode", `
			proto:
				maxstack 1
				code:
					FROBNICATE 0 0 0
		`, "invalid opcode"},
		{"bad operand count", `
			proto:
				maxstack 1
				code:
					ADD 0 0 0 0
		`, "wants at most 3 operands"},
		{"unexpected section", `
			proto:
				maxstack 0
				code:
			constants:
		`, "unexpected section: constants:"},
		{"full", `
			proto:
				source "chunk.lumen"
				line 1
				endline 10
				params 1
				vararg
				maxstack 4
				constants:
					int 10
					float 1.5
					string "hi"
					bool true
					nil
				upvalues:
					_ENV stack 0
				code:
					LOADI 1 -5
					ADDI 2 1 3
					EQI 0 -2 0 k
					JMP 4
					RETURN0
				protos:
					proto:
						maxstack 0
						code:
							RETURN0
		`, ""},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestAsmDasmRoundtrip(t *testing.T) {
	src := `
		proto:
			source "chunk.lumen"
			line 1
			endline 10
			params 1
			vararg
			maxstack 3
			constants:
				int 10
				float 1.5
				string "hi"
			upvalues:
				_ENV stack 0
			code:
				LOADI 1 -5
				ADDI 2 1 3
				EQI 0 -2 0 k
				JMP 4
				RETURN0
	`
	p, err := compiler.Asm([]byte(src))
	require.NoError(t, err)

	out, err := compiler.Dasm(p)
	require.NoError(t, err)

	p2, err := compiler.Asm(out)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
}

func TestDasmSignedImmediates(t *testing.T) {
	src := `
		proto:
			maxstack 1
			code:
				LOADI 0 -5
				ADDI 0 0 -3
				LTI 0 -1 0
	`
	p, err := compiler.Asm([]byte(src))
	require.NoError(t, err)

	out, err := compiler.Dasm(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "LOADI 0 -5")
	assert.Contains(t, string(out), "ADDI 0 0 -3")
	assert.Contains(t, string(out), "LTI 0 -1 0")
}
