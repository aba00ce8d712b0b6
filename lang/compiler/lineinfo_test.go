package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineRecorderSmallDeltas(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	lr.record(0, 1)
	lr.record(1, 1)
	lr.record(2, 3)
	lr.record(3, 2)

	require.Len(t, lr.lineInfo, 4)
	assert.Equal(t, 1, lr.lineAt(0))
	assert.Equal(t, 1, lr.lineAt(1))
	assert.Equal(t, 3, lr.lineAt(2))
	assert.Equal(t, 2, lr.lineAt(3))
	assert.Empty(t, lr.absLineInfo)
}

func TestLineRecorderForcesAbsoluteOnLargeDelta(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	lr.record(0, 1)
	lr.record(1, 1000) // delta exceeds limLineDiff, must anchor

	assert.Equal(t, 1000, lr.lineAt(1))
	require.Len(t, lr.absLineInfo, 1)
	assert.Equal(t, absLineEntry{pc: 1, line: 1000}, lr.absLineInfo[0])
}

func TestLineRecorderForcesAbsoluteAfterGap(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	line := 1
	for pc := 0; pc < maxInstWithoutAbs+5; pc++ {
		lr.record(pc, line)
	}
	assert.NotEmpty(t, lr.absLineInfo, "a run longer than maxInstWithoutAbs must re-anchor")
	for pc := 0; pc < maxInstWithoutAbs+5; pc++ {
		assert.Equal(t, line, lr.lineAt(pc))
	}
}

func TestLineRecorderRemoveLast(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	lr.record(0, 5)
	lr.record(1, 5)
	lr.removeLast(5)
	require.Len(t, lr.lineInfo, 1)
	assert.Equal(t, 5, lr.lineAt(0))
}

func TestLineRecorderRemoveLastAbsolute(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	lr.record(0, 1)
	lr.record(1, 1000)
	lr.removeLast(1000)
	assert.Empty(t, lr.absLineInfo)
	assert.Equal(t, 1, lr.lastLine)
}

func TestLineRecorderRemoveLastDesyncPanics(t *testing.T) {
	var lr lineRecorder
	lr.reset()
	lr.record(0, 1)
	lr.record(1, 1000)
	assert.Panics(t, func() { lr.removeLast(999) })
}
