package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeABC(t *testing.T) {
	i := makeABC(OP_ADD, 1, 2, 3, true)
	assert.Equal(t, OP_ADD, i.Opcode())
	assert.Equal(t, 1, i.A())
	assert.Equal(t, 2, i.B())
	assert.Equal(t, 3, i.C())
	assert.True(t, i.K())
}

func TestMakeABCBoundaries(t *testing.T) {
	i := makeABC(OP_MOVE, MaxArgA, MaxArgB, MaxArgC, false)
	assert.Equal(t, MaxArgA, i.A())
	assert.Equal(t, MaxArgB, i.B())
	assert.Equal(t, MaxArgC, i.C())
	assert.False(t, i.K())
}

func TestMakeABCOutOfRangePanics(t *testing.T) {
	assert.Panics(t, func() { makeABC(OP_MOVE, MaxArgA+1, 0, 0, false) })
	assert.Panics(t, func() { makeABC(OP_MOVE, 0, MaxArgB+1, 0, false) })
	assert.Panics(t, func() { makeABC(OP_MOVE, 0, 0, MaxArgC+1, false) })
	assert.Panics(t, func() { makeABC(OP_MOVE, -1, 0, 0, false) })
}

func TestMakeABx(t *testing.T) {
	i := makeABx(OP_LOADK, 5, 1000)
	assert.Equal(t, OP_LOADK, i.Opcode())
	assert.Equal(t, 5, i.A())
	assert.Equal(t, 1000, i.Bx())
}

func TestMakeAsBxSigned(t *testing.T) {
	for _, sbx := range []int{0, 1, -1, OffsetSBx, -OffsetSBx, MaxArgBx - OffsetSBx} {
		i := makeAsBx(OP_LOADI, 0, sbx)
		assert.Equal(t, sbx, i.SBx(), "sbx=%d", sbx)
	}
}

func TestMakeSJSigned(t *testing.T) {
	for _, sj := range []int{0, 1, -1, 100, -100} {
		i := makeSJ(OP_JMP, sj, false)
		assert.Equal(t, sj, i.SJ())
	}
	i := makeSJ(OP_JMP, 5, true)
	assert.True(t, i.K())
}

func TestMakeAx(t *testing.T) {
	i := makeAx(OP_EXTRAARG, MaxArgAx)
	assert.Equal(t, MaxArgAx, i.Ax())
}

// TestSignedBC checks the OffsetSB/OffsetSC bias scheme used by the *I
// opcode variants: a negative immediate still round-trips through SB/SC
// once the caller has biased it going in, the same way emitASBC/emitABSC do.
func TestSignedBC(t *testing.T) {
	for _, sb := range []int{0, 1, -1, -OffsetSB, MaxArgB - OffsetSB} {
		i := makeABC(OP_EQI, 0, sb+OffsetSB, 0, true)
		assert.Equal(t, sb, i.SB())
	}
	for _, sc := range []int{0, 1, -1, -OffsetSC, MaxArgC - OffsetSC} {
		i := makeABC(OP_ADDI, 0, 0, sc+OffsetSC, false)
		assert.Equal(t, sc, i.SC())
	}
}

func TestSetters(t *testing.T) {
	i := makeABC(OP_ADD, 0, 0, 0, false)
	i = i.setA(10)
	i = i.setB(20)
	i = i.setC(30)
	i = i.setK(true)
	assert.Equal(t, 10, i.A())
	assert.Equal(t, 20, i.B())
	assert.Equal(t, 30, i.C())
	assert.True(t, i.K())

	j := makeSJ(OP_JMP, 0, false)
	j = j.setSJ(42)
	assert.Equal(t, 42, j.SJ())
}

func TestOpcodeFormat(t *testing.T) {
	assert.Equal(t, FormatAsBx, OP_LOADI.Format())
	assert.Equal(t, FormatABx, OP_LOADK.Format())
	assert.Equal(t, FormatSJ, OP_JMP.Format())
	assert.Equal(t, FormatAx, OP_EXTRAARG.Format())
	assert.Equal(t, FormatABC, OP_ADD.Format())
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "ADD", OP_ADD.String())
	assert.Equal(t, "RETURN0", OP_RETURN0.String())
	assert.Equal(t, "OP_<invalid>", Opcode(255).String())
}

func TestIsTest(t *testing.T) {
	assert.True(t, OP_EQ.isTest())
	assert.True(t, OP_TESTSET.isTest())
	assert.False(t, OP_ADD.isTest())
}
