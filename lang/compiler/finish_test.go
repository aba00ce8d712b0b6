package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLoadNilAdjacent(t *testing.T) {
	fs := newTestFuncState()
	fs.regs.reserve(3)
	fs.emitABC(OP_LOADNIL, 0, 0, 0, false)
	fs.mergeLoadNil(0, 1)
	fs.emitABC(OP_LOADNIL, 1, 1, 0, false)
	fs.mergeLoadNil(1, 2)

	require.Len(t, fs.code, 1, "adjacent LOADNILs must merge into one instruction")
	assert.Equal(t, 0, fs.code[0].A())
	assert.Equal(t, 2, fs.code[0].B())
}

func TestMergeLoadNilNonAdjacentDoesNotMerge(t *testing.T) {
	fs := newTestFuncState()
	fs.regs.reserve(5)
	fs.emitABC(OP_LOADNIL, 0, 0, 0, false)
	fs.mergeLoadNil(0, 1)
	fs.emitABC(OP_LOADNIL, 3, 0, 0, false)
	fs.mergeLoadNil(3, 1)

	require.Len(t, fs.code, 2, "disjoint ranges must not merge")
}

func TestMergeLoadNilStopsAtJumpTarget(t *testing.T) {
	fs := newTestFuncState()
	fs.regs.reserve(2)
	fs.emitABC(OP_LOADNIL, 0, 0, 0, false)
	fs.mergeLoadNil(0, 1)
	fs.markLabel()
	fs.emitABC(OP_LOADNIL, 1, 0, 0, false)
	fs.mergeLoadNil(1, 1)

	require.Len(t, fs.code, 2, "a jump target between the two LOADNILs must block the merge")
}

func TestMergeConcatChains(t *testing.T) {
	fs := newTestFuncState()
	fs.regs.reserve(4)
	fs.emitABC(OP_CONCAT, 0, 0, 1, false)
	fs.mergeConcat()
	fs.emitABC(OP_CONCAT, 0, 0, 2, false)
	fs.mergeConcat()

	require.Len(t, fs.code, 1)
	assert.Equal(t, 0, fs.code[0].B())
	assert.Equal(t, 2, fs.code[0].C())
}

func TestCollapseJumpChains(t *testing.T) {
	fs := newTestFuncState()
	// pc0: JMP -> pc1; pc1: JMP -> pc2; pc2: MOVE (final target)
	j0 := fs.jump()
	j1 := fs.jump()
	fs.fixJump(j0, j1)
	target := fs.emitABC(OP_MOVE, 0, 0, 0, false)
	fs.fixJump(j1, target)

	fs.collapseJumpChains()
	assert.Equal(t, target, fs.getJumpTarget(j0), "j0 must be retargeted straight to the final destination")
}

func TestCollapseJumpChainsSelfLoop(t *testing.T) {
	fs := newTestFuncState()
	pc := fs.jump()
	fs.fixJump(pc, pc)
	assert.NotPanics(t, func() { fs.collapseJumpChains() })
	assert.Equal(t, pc, fs.getJumpTarget(pc))
}

func TestFixupReturnsNoCleanupLeavesReturn0Unchanged(t *testing.T) {
	fs := newTestFuncState()
	fs.emitReturn(0, 0, false)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN0, last.Opcode())
}

func TestFixupReturnsNoCleanupLeavesReturn1Unchanged(t *testing.T) {
	fs := newTestFuncState()
	fs.emitReturn(4, 1, false)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN1, last.Opcode())
	assert.Equal(t, 4, last.A())
}

func TestFixupReturnsVarargUpgradesReturn0ToReturn(t *testing.T) {
	fs := newTestFuncState()
	fs.fn.HasVararg = true
	fs.regs.nactive = 2
	fs.emitReturn(0, 0, false)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN, last.Opcode(), "a vararg function must upgrade RETURN0 so it can carry cleanup")
	assert.Equal(t, 3, last.C(), "C must be numparams+1 so the VM knows where the varargs start")
	assert.True(t, last.K())
}

func TestFixupReturnsVarargUpgradesReturn1ToReturn(t *testing.T) {
	fs := newTestFuncState()
	fs.fn.HasVararg = true
	fs.emitReturn(5, 1, false)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN, last.Opcode())
	assert.Equal(t, 5, last.A(), "the return value's register must survive the upgrade")
	assert.True(t, last.K())
}

func TestFixupReturnsVarargSetsCOnPlainReturn(t *testing.T) {
	fs := newTestFuncState()
	fs.fn.HasVararg = true
	fs.emitReturn(0, 3, false) // already a plain RETURN (more than one value)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN, last.Opcode())
	assert.Equal(t, 4, last.B(), "B (the value count) must be untouched by the cleanup fixup")
	assert.True(t, last.K())
}

func TestFixupReturnsNeedCloseSetsCZero(t *testing.T) {
	fs := newTestFuncState()
	fs.needClose = true
	fs.emitReturn(0, 0, false)
	fs.fixupReturns()
	last := fs.code[len(fs.code)-1]
	assert.Equal(t, OP_RETURN, last.Opcode())
	assert.Equal(t, 0, last.C(), "a non-vararg function only needing a close signals with C=0")
	assert.True(t, last.K())
}
