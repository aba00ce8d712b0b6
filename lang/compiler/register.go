package compiler

// registers tracks the LIFO free-register discipline described in §4.C: at
// any point, registers [0, active) hold live values, and the allocator only
// ever grows or shrinks active from its top, never punching holes. nactive
// is the number of registers currently bound to declared locals; those are
// never reclaimed by expression teardown, only by leaving their block.
type registers struct {
	active  int // number of registers currently considered in use
	nactive int // number of registers bound to named locals
	max     int // high-water mark across the function, becomes maxstacksize
}

func (r *registers) reset(nparams int) {
	r.active = nparams
	r.nactive = nparams
	r.max = nparams
}

// reserve claims the next n free registers and returns the first one.
func (r *registers) reserve(n int) int {
	first := r.active
	r.checkStack(n)
	r.active += n
	return first
}

// checkStack raises r.max to cover n more registers than currently active,
// panicking if the function would need more registers than the ISA allows.
func (r *registers) checkStack(n int) {
	need := r.active + n
	if need > r.max {
		if need > MAXREG+1 {
			panic("compiler: function or expression needs too many registers")
		}
		r.max = need
	}
}

// free releases the top register, which must be reg for the LIFO invariant
// to hold; freeing anything else is a bookkeeping bug in the caller.
func (r *registers) free(reg int) {
	if reg >= r.nactive && reg == r.active-1 {
		r.active--
	}
}

// free2 frees two registers in descending order, matching lcode.c's
// freeexps pairing used when discarding both operands of a binary op.
func (r *registers) free2(r1, r2 int) {
	if r1 > r2 {
		r.free(r1)
		r.free(r2)
	} else {
		r.free(r2)
		r.free(r1)
	}
}
