package compiler_test

import (
	"testing"

	"github.com/mna/lumen/lang/compiler"
	"github.com/mna/lumen/lang/parser"
	"github.com/mna/lumen/lang/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSrc(t *testing.T, src string) *compiler.Prototype {
	t.Helper()
	chunk, file, err := parser.Parse("t.lum", []byte(src))
	require.NoError(t, err)

	r := resolver.New(file)
	funcs := r.Resolve(chunk)
	require.Empty(t, r.Errors())

	proto, err := compiler.Compile(chunk, funcs)
	require.NoError(t, err)
	return proto
}

// opcodes returns the mnemonic of every instruction in p.Code, in order.
func opcodes(p *compiler.Prototype) []string {
	out := make([]string, len(p.Code))
	for i, instr := range p.Code {
		out[i] = instr.Opcode().String()
	}
	return out
}

func TestCompileConstantFolding(t *testing.T) {
	p := compileSrc(t, `
local x = 1 + 2
return x
`)
	// 1 + 2 folds to the integer literal 3 at compile time: no ADD opcode.
	assert.NotContains(t, opcodes(p), "ADD")
	assert.Contains(t, opcodes(p), "LOADI")
	assert.Contains(t, opcodes(p), "RETURN1")
}

func TestCompileArithmeticWithVariable(t *testing.T) {
	p := compileSrc(t, `
local x = 1
local y = x + 2
return y
`)
	ops := opcodes(p)
	// x + 2 cannot fold (x is a runtime value): must use the ADDI immediate
	// form, since 2 fits the small-signed-immediate range.
	assert.Contains(t, ops, "ADDI")
}

func TestCompileIfElse(t *testing.T) {
	p := compileSrc(t, `
local x = 1
if x == 1 then
  x = 2
else
  x = 3
end
return x
`)
	ops := opcodes(p)
	// equality against a literal interns the literal and uses EQK, unlike
	// LT/LE which prefer the *I immediate form for a small literal operand.
	assert.Contains(t, ops, "EQK")
	assert.Contains(t, ops, "JMP")
}

func TestCompileWhileLoop(t *testing.T) {
	p := compileSrc(t, `
local i = 0
while i < 10 do
  i = i + 1
end
return i
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "LTI")
	jmps := 0
	for _, op := range ops {
		if op == "JMP" {
			jmps++
		}
	}
	assert.GreaterOrEqual(t, jmps, 2, "a while loop needs at least the condition-exit and back-edge jumps")
}

func TestCompileNumericFor(t *testing.T) {
	p := compileSrc(t, `
local sum = 0
for i = 1, 10 do
  sum = sum + i
end
return sum
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "FORPREP")
	assert.Contains(t, ops, "FORLOOP")
}

func TestCompileNumericForWithStep(t *testing.T) {
	p := compileSrc(t, `
for i = 10, 1, -1 do
  print(i)
end
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "FORPREP")
	assert.Contains(t, ops, "FORLOOP")
	assert.Contains(t, ops, "LOADI") // the step -1
}

func TestCompileFunctionCallAndClosure(t *testing.T) {
	p := compileSrc(t, `
local function add(a, b)
  return a + b
end
return add(1, 2)
`)
	require.Len(t, p.Protos, 1)
	child := p.Protos[0]
	assert.Equal(t, 2, child.NumParams)
	assert.Contains(t, opcodes(child), "ADD")

	ops := opcodes(p)
	assert.Contains(t, ops, "CLOSURE")
	assert.Contains(t, ops, "CALL")
}

func TestCompileLocalFunctionRecursion(t *testing.T) {
	p := compileSrc(t, `
local function fact(n)
  if n == 0 then
    return 1
  end
  return n * fact(n - 1)
end
return fact(5)
`)
	require.Len(t, p.Protos, 1)
	child := p.Protos[0]
	// the recursive call must resolve fact as an upvalue of its own body,
	// not a global lookup.
	assert.Contains(t, opcodes(child), "GETUPVAL")
	assert.Contains(t, opcodes(child), "MUL")
}

func TestCompileMethodCall(t *testing.T) {
	p := compileSrc(t, `
local t = {}
function t:greet(name)
  return name
end
return t:greet("hi")
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "SELF")
	assert.Contains(t, ops, "CALL")
	require.Len(t, p.Protos, 1)
	assert.Equal(t, 2, p.Protos[0].NumParams, "the method body's params are the implicit self plus its declared parameters")
}

func TestCompileTableConstructor(t *testing.T) {
	p := compileSrc(t, `
local t = { 1, 2, 3, x = 4 }
return t
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "NEWTABLE")
	assert.Contains(t, ops, "SETLIST")
	assert.Contains(t, ops, "SETFIELD")
}

func TestCompileShortCircuitAnd(t *testing.T) {
	p := compileSrc(t, `
local a = true
local b = false
local c = a and b
return c
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "TEST")
	assert.Contains(t, ops, "LOADBOOL")
}

func TestCompileShortCircuitOr(t *testing.T) {
	p := compileSrc(t, `
local a = nil
local b = 1
local c = a or b
return c
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "TEST")
	assert.Contains(t, ops, "LOADBOOL")
}

func TestCompileGlobalReadAndWrite(t *testing.T) {
	p := compileSrc(t, `
x = 1
return x
`)
	ops := opcodes(p)
	assert.Contains(t, ops, "SETTABUP")
	assert.Contains(t, ops, "GETTABUP")
}

func TestCompileStringConcat(t *testing.T) {
	p := compileSrc(t, `
local a = "foo"
local b = "bar"
return a .. b
`)
	assert.Contains(t, opcodes(p), "CONCAT")
}

func TestCompileVarargFunction(t *testing.T) {
	p := compileSrc(t, `
local function f(...)
  return ...
end
return f(1, 2, 3)
`)
	require.Len(t, p.Protos, 1)
	child := p.Protos[0]
	assert.True(t, child.IsVararg)
	assert.Contains(t, opcodes(child), "VARARG")
}

func TestCompileMultipleAssignmentAndReturn(t *testing.T) {
	p := compileSrc(t, `
local function pair()
  return 1, 2
end
local x, y = pair()
return y, x
`)
	require.Len(t, p.Protos, 1)
	ops := opcodes(p)
	assert.Contains(t, ops, "CALL")
	assert.Contains(t, ops, "RETURN")
}

func TestCompileRoundtripsThroughDasm(t *testing.T) {
	p := compileSrc(t, `
local x = 1
if x then
  x = x + 1
end
return x
`)
	out, err := compiler.Dasm(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "proto:")
	assert.Contains(t, string(out), "code:")

	reparsed, err := compiler.Asm(out)
	require.NoError(t, err)
	assert.Equal(t, len(p.Code), len(reparsed.Code))
	assert.Equal(t, p.MaxStack, reparsed.MaxStack)
}

func TestCompileChunkIsVararg(t *testing.T) {
	p := compileSrc(t, `return 1`)
	assert.True(t, p.IsVararg, "the top-level chunk is always a vararg function")
}

func TestCompileUnresolvedChunkErrors(t *testing.T) {
	chunk, _, err := parser.Parse("t.lum", []byte(`return 1`))
	require.NoError(t, err)
	_, cerr := compiler.Compile(chunk, nil)
	assert.Error(t, cerr)
}
