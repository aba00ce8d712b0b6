package compiler

// Jump lists are linked lists threaded through the sJ operand of JMP
// instructions: a list is identified by the pc of its first JMP, and each
// JMP's sJ field stores the offset from the instruction following it to the
// next JMP in the list (or NoJump to terminate), per §4.F. This lets the compiler defer fixing up a forward
// jump's target until the destination is known, without any separate
// bookkeeping structure.

// getJump returns the pc the JMP at pc points to next in its list, or
// NoJump if pc terminates its list.
func (fs *funcState) getJump(pc int) int {
	offset := fs.code[pc].SJ()
	if offset == NoJump {
		return NoJump
	}
	return pc + 1 + offset
}

// fixJump patches the JMP at pc to target dest.
func (fs *funcState) fixJump(pc, dest int) {
	offset := dest - (pc + 1)
	if dest == NoJump {
		panic("compiler: fixJump to undefined label")
	}
	fs.code[pc] = fs.code[pc].setSJ(offset)
}

// jump emits an unconditional JMP and returns its pc, to be threaded into a
// jump list by the caller.
func (fs *funcState) jump() int {
	return fs.emitSJ(OP_JMP, NoJump, false)
}

// markLabel records the current pc as a jump target reached some way other
// than patchToHere (a loop's back-edge destination), so the peephole merges
// in finish.go won't fold the instruction sitting there into its
// predecessor.
func (fs *funcState) markLabel() int {
	fs.lastTarget = fs.pc()
	return fs.lastTarget
}

// concatJumps appends list l2 onto the end of list l1, returning the
// combined list's head. Either list may be NoJump.
func (fs *funcState) concatJumps(l1, l2 int) int {
	if l2 == NoJump {
		return l1
	}
	if l1 == NoJump {
		return l2
	}
	pc := l1
	for {
		next := fs.getJump(pc)
		if next == NoJump {
			break
		}
		pc = next
	}
	fs.fixJump(pc, l2)
	return l1
}

// patchListAux patches every JMP in list: one whose controlling instruction
// is a TESTSET (patchTestReg succeeds, having already deposited the value
// into defaultReg) is patched to valueTarget; every other JMP, which still
// needs a value materialized for it (e.g. by a LOADBOOL pair), is patched
// to dtarget instead.
func (fs *funcState) patchListAux(list, valueTarget, defaultReg, dtarget int) {
	for list != NoJump {
		next := fs.getJump(list)
		if fs.patchTestReg(list, defaultReg) {
			fs.fixJump(list, valueTarget)
		} else {
			fs.fixJump(list, dtarget)
		}
		list = next
	}
}

// patchTestReg tries to patch the TESTSET instruction that controls the JMP
// at pc (the instruction immediately preceding it) so its destination
// register is reg, avoiding the need to materialize through a separate
// register. Returns false if the controlling instruction is not a TESTSET
// (a plain TEST, or pc has no preceding instruction at all), meaning the
// jump cannot be patched this way and must instead go to the caller's
// fallback target.
func (fs *funcState) patchTestReg(pc, reg int) bool {
	if pc == 0 {
		return false
	}
	i := fs.code[pc-1]
	if i.Opcode() != OP_TESTSET {
		return false
	}
	if reg != NoReg && reg != i.B() {
		fs.code[pc-1] = i.setA(reg)
	} else {
		// no register to patch into: downgrade TESTSET to a plain TEST
		fs.code[pc-1] = makeABC(OP_TEST, i.B(), 0, 0, i.K())
	}
	return true
}

// patchToHere patches every JMP in list to the current pc, and records the
// current pc as a jump target so the peephole merges in finish.go won't
// fold two instructions that a jump can land between.
func (fs *funcState) patchToHere(list int) {
	fs.lastTarget = fs.pc()
	fs.patchListAux(list, fs.pc(), NoReg, fs.pc())
}

// patchList patches every JMP in list to dest.
func (fs *funcState) patchList(list, dest int) {
	if dest == fs.pc() {
		fs.patchToHere(list)
	} else {
		fs.patchListAux(list, dest, NoReg, dest)
	}
}
