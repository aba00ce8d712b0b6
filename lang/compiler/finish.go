package compiler

// maxJumpChase bounds how many hops the jump-chain collapse below will
// follow, guarding against a malformed (cyclic) jump list rather than
// hanging forever.
const maxJumpChase = 100

// finish runs the peephole passes and final bookkeeping lcode.c applies
// just before a function's code is considered done (§4.H): collapsing
// jump-to-jump chains, and fixing up every RETURN/RETURN0/RETURN1/TAILCALL so
// the VM knows whether it must close to-be-closed variables or adjust a
// vararg frame on the way out. Adjacent LOADNIL/CONCAT instructions are
// merged earlier, as each one is emitted (mergeLoadNil, mergeConcat).
func (fs *funcState) finish() {
	fs.collapseJumpChains()
	fs.fixupReturns()
}

// mergeLoadNil checks whether the instruction just emitted at pc is a
// LOADNIL setting the n registers starting at reg, and if it can be merged
// with the previous one (also a LOADNIL whose register range is adjacent or
// overlapping), replaces both with a single wider LOADNIL. Called right
// after emitting a LOADNIL. No merge happens across a jump target, since
// that would change what a jump landing between them actually sees.
func (fs *funcState) mergeLoadNil(reg, n int) {
	pc := fs.pc() - 1
	if pc == 0 || pc <= fs.lastTarget {
		return
	}
	prev := fs.code[pc-1]
	if prev.Opcode() != OP_LOADNIL {
		return
	}
	pFrom, pTo := prev.A(), prev.A()+prev.B() // pTo is the last register, inclusive
	from, to := reg, reg+n-1
	if from > pTo+1 || to < pFrom-1 {
		return // ranges don't touch, can't merge
	}
	newFrom := min(from, pFrom)
	newTo := max(to, pTo)
	fs.removeLast()
	fs.code[pc-1] = makeABC(OP_LOADNIL, newFrom, newTo-newFrom, 0, false)
}

// mergeConcat checks whether the CONCAT just emitted at pc can absorb the
// instruction preceding it, when that instruction is itself a CONCAT
// writing into the register this one reads as its first operand — lcode.c
// folds a chain of concatenations into a single CONCAT spanning the whole
// register range rather than running several 2-operand ones.
func (fs *funcState) mergeConcat() {
	pc := fs.pc() - 1
	if pc == 0 || pc <= fs.lastTarget {
		return
	}
	cur := fs.code[pc]
	if cur.Opcode() != OP_CONCAT {
		return
	}
	prev := fs.code[pc-1]
	if prev.Opcode() != OP_CONCAT {
		return
	}
	if prev.A() != cur.B() {
		return
	}
	fs.removeLast()
	fs.code[pc-1] = makeABC(OP_CONCAT, cur.A(), prev.B(), cur.C(), false)
}

// collapseJumpChains retargets every JMP whose destination is itself
// another unconditional JMP to point directly at that chain's final
// target, so the VM never has to hop through a trampoline at run time.
func (fs *funcState) collapseJumpChains() {
	for pc, instr := range fs.code {
		if instr.Opcode() != OP_JMP {
			continue
		}
		target := pc + 1 + instr.SJ()
		final := fs.chaseJumpChain(target)
		if final != target {
			fs.code[pc] = instr.setSJ(final - (pc + 1))
		}
	}
}

func (fs *funcState) chaseJumpChain(pc int) int {
	for i := 0; i < maxJumpChase; i++ {
		if pc < 0 || pc >= len(fs.code) || fs.code[pc].Opcode() != OP_JMP {
			return pc
		}
		next := pc + 1 + fs.code[pc].SJ()
		if next == pc {
			return pc // self-loop, leave as is
		}
		pc = next
	}
	return pc
}

// fixupReturns makes one linear pass over every emitted instruction and
// adjusts every RETURN0/RETURN1/RETURN/TAILCALL so it carries the cleanup
// the VM contract (§6) requires whenever this function needs to close a
// to-be-closed variable or is vararg, mirroring lcode.c's luaK_finish.
//
// RETURN0/RETURN1 carry no spare operand to signal that cleanup, so they
// are first upgraded to the general RETURN form; every RETURN/TAILCALL then
// has its C set to numparams+1 (vararg, so the VM knows where the varargs
// start) or 0 (close only), and k set to flag that C carries extra work.
// A function that needs neither leaves RETURN0/RETURN1 as the cheaper,
// unadorned forms.
func (fs *funcState) fixupReturns() {
	needsWork := fs.needClose || fs.fn.HasVararg
	for pc, instr := range fs.code {
		switch instr.Opcode() {
		case OP_RETURN0, OP_RETURN1:
			if !needsWork {
				continue
			}
			b := 1 // B = nret+1: RETURN0 returns nothing, RETURN1 one value
			if instr.Opcode() == OP_RETURN1 {
				b = 2
			}
			instr = makeABC(OP_RETURN, instr.A(), b, 0, false)
			fallthrough
		case OP_RETURN, OP_TAILCALL:
			if !needsWork {
				continue
			}
			c := 0
			if fs.fn.HasVararg {
				c = fs.regs.nactive + 1
			}
			fs.code[pc] = instr.setC(c).setK(true)
		default:
			continue
		}
	}
}
