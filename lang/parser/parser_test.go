package parser_test

import (
	"testing"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalAndAssign(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
local x, y = 1, 2
x = y
`))
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 2)

	local, ok := ch.Block.Stmts[0].(*ast.LocalStmt)
	require.True(t, ok)
	assert.Len(t, local.Names, 2)
	assert.Len(t, local.Right, 2)

	assign, ok := ch.Block.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Len(t, assign.Left, 1)
}

func TestParseIfElseIf(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
if x then
  return 1
elseif y then
  return 2
else
  return 3
end
`))
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 1)

	ifs, ok := ch.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifs.ElseIf)
	require.NotNil(t, ifs.ElseIf.Else)
}

func TestParseWhileAndNumericFor(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
while x do
  x = x - 1
end
for i = 1, 10, 2 do
  print(i)
end
`))
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 2)
	_, ok := ch.Block.Stmts[0].(*ast.WhileStmt)
	assert.True(t, ok)
	forStmt, ok := ch.Block.Stmts[1].(*ast.NumForStmt)
	require.True(t, ok)
	assert.NotNil(t, forStmt.Step)
}

func TestParseFunctionAndMethodCall(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
local function add(a, b)
  return a + b
end

function obj:method(x)
  return self.field
end

add(1, 2)
obj:method(3)
`))
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 4)

	fn, ok := ch.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	assert.True(t, fn.Local.IsValid())

	method, ok := ch.Block.Stmts[1].(*ast.FuncStmt)
	require.True(t, ok)
	assert.NotNil(t, method.Recv)

	_, ok = ch.Block.Stmts[3].(*ast.ExprStmt)
	require.True(t, ok)
}

func TestParseTableConstructor(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
local t = {1, 2, x = 3, [k] = 4}
`))
	require.NoError(t, err)
	local := ch.Block.Stmts[0].(*ast.LocalStmt)
	tbl, ok := local.Right[0].(*ast.TableExpr)
	require.True(t, ok)
	assert.Len(t, tbl.Fields, 4)
}

func TestParseForInRejected(t *testing.T) {
	_, _, err := parser.Parse("t.lum", []byte(`
for k, v in pairs(t) do
end
`))
	require.Error(t, err)
}

func TestParseSyntaxErrorRecovery(t *testing.T) {
	ch, _, err := parser.Parse("t.lum", []byte(`
local x = )
local y = 1
`))
	require.Error(t, err)
	require.Len(t, ch.Block.Stmts, 2)
	_, ok := ch.Block.Stmts[1].(*ast.LocalStmt)
	assert.True(t, ok)
}
