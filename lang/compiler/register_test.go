package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistersReserveAndFree(t *testing.T) {
	var r registers
	r.reset(2)
	assert.Equal(t, 2, r.active)
	assert.Equal(t, 2, r.nactive)
	assert.Equal(t, 2, r.max)

	first := r.reserve(3)
	assert.Equal(t, 2, first)
	assert.Equal(t, 5, r.active)
	assert.Equal(t, 5, r.max)

	r.free(4)
	assert.Equal(t, 4, r.active)
	r.free(3)
	assert.Equal(t, 3, r.active)
}

func TestRegistersFreeBelowActiveLocalsNoop(t *testing.T) {
	var r registers
	r.reset(2)
	r.reserve(1)
	// freeing a register index within the active-locals range must not
	// decrement active: only the LIFO top above nactive is reclaimable.
	r.free(0)
	assert.Equal(t, 3, r.active)
}

func TestRegistersFree2Order(t *testing.T) {
	var r registers
	r.reset(0)
	r.reserve(3) // active = 3
	r.free2(1, 2)
	assert.Equal(t, 1, r.active)
}

func TestRegistersMaxHighWaterMark(t *testing.T) {
	var r registers
	r.reset(0)
	r.reserve(5)
	r.free(4)
	r.free(3)
	assert.Equal(t, 5, r.max, "max must not shrink when registers free up")
	assert.Equal(t, 3, r.active)
}

func TestRegistersCheckStackPanicsOnOverflow(t *testing.T) {
	var r registers
	r.reset(0)
	assert.Panics(t, func() { r.reserve(MAXREG + 2) })
}
