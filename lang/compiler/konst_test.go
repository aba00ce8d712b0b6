package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKonstPoolInterns(t *testing.T) {
	p := newKonstPool()
	i1 := p.int(42)
	i2 := p.int(42)
	assert.Equal(t, i1, i2)
	assert.Equal(t, 1, p.len())
}

func TestKonstPoolIntAndFloatDistinct(t *testing.T) {
	p := newKonstPool()
	i := p.int(1)
	f := p.float(1.0)
	assert.NotEqual(t, i, f, "integer 1 and float 1.0 must intern to distinct slots")
	assert.Equal(t, int64(1), p.at(i).value())
	assert.Equal(t, float64(1), p.at(f).value())
}

func TestKonstPoolBoolAndNil(t *testing.T) {
	p := newKonstPool()
	tr := p.bool(true)
	fa := p.bool(false)
	n := p.nil()
	assert.NotEqual(t, tr, fa)
	assert.Equal(t, true, p.at(tr).value())
	assert.Equal(t, false, p.at(fa).value())
	assert.Nil(t, p.at(n).value())
}

func TestKonstPoolStringDedup(t *testing.T) {
	p := newKonstPool()
	s1 := p.string("foo")
	s2 := p.string("foo")
	s3 := p.string("bar")
	assert.Equal(t, s1, s2)
	assert.NotEqual(t, s1, s3)
	assert.Equal(t, 2, p.len())
}

func TestLoadKInstrSmallIndex(t *testing.T) {
	instr, extra := loadKInstr(3, 10)
	require.Nil(t, extra)
	assert.Equal(t, OP_LOADK, instr.Opcode())
	assert.Equal(t, 3, instr.A())
	assert.Equal(t, 10, instr.Bx())
}

func TestLoadKInstrLargeIndexNeedsExtraArg(t *testing.T) {
	instr, extra := loadKInstr(0, MaxArgBx+1)
	require.NotNil(t, extra)
	assert.Equal(t, OP_LOADKX, instr.Opcode())
	assert.Equal(t, OP_EXTRAARG, extra.Opcode())
	assert.Equal(t, MaxArgBx+1, extra.Ax())
}

func TestKonstString(t *testing.T) {
	assert.Equal(t, "nil", konstOfNil().String())
	assert.Equal(t, "true", konstOfBool(true).String())
	assert.Equal(t, "false", konstOfBool(false).String())
	assert.Equal(t, "42", konstOfInt(42).String())
	assert.Equal(t, `"hi"`, konstOfString("hi").String())
}
