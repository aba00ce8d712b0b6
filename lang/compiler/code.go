package compiler

import (
	"github.com/mna/lumen/lang/token"
)

// This file implements §4.G: turning an expDesc (or a pair of them, for a
// binary operator) into emitted instructions, selecting among a register,
// register+constant or register+immediate opcode form depending on what the
// operands already are, and merging constant operands at compile time when
// both sides are known numerals.

// reserveRegs allocates n registers and advances the allocator's high-water
// mark.
func (fs *funcState) reserveRegs(n int) int { return fs.regs.reserve(n) }

// freeExp releases the register e occupies, if it is a NONRELOC value above
// the active-locals boundary (constants and locals proper are never freed
// this way).
func (fs *funcState) freeExp(e *expDesc) {
	if e.kind == expNonReloc {
		fs.regs.free(e.info)
	}
}

func (fs *funcState) freeExps(e1, e2 *expDesc) {
	r1, ok1 := -1, e1.kind == expNonReloc
	r2, ok2 := -1, e2.kind == expNonReloc
	if ok1 {
		r1 = e1.info
	}
	if ok2 {
		r2 = e2.info
	}
	switch {
	case ok1 && ok2:
		fs.regs.free2(r1, r2)
	case ok1:
		fs.regs.free(r1)
	case ok2:
		fs.regs.free(r2)
	}
}

// dischargeVars turns a LOCAL/UPVAL/INDEX*/CALL/VARARG descriptor into
// NONRELOC or RELOC by emitting the fetch instruction it stands for. Other
// kinds (already NONRELOC/RELOC, or constants) are left untouched.
func (fs *funcState) dischargeVars(e *expDesc) {
	switch e.kind {
	case expLocal:
		e.kind = expNonReloc
	case expUpval:
		pc := fs.emitABC(OP_GETUPVAL, 0, e.info, 0, false)
		e.kind, e.info = expReloc, pc
	case expIndexUp:
		pc := fs.emitABC(OP_GETTABUP, 0, e.ind.t, e.ind.idx, false)
		e.kind, e.info = expReloc, pc
	case expIndexI:
		pc := fs.emitABC(OP_GETI, 0, e.ind.t, e.ind.idx, false)
		e.kind, e.info = expReloc, pc
	case expIndexStr:
		pc := fs.emitABC(OP_GETFIELD, 0, e.ind.t, e.ind.idx, false)
		e.kind, e.info = expReloc, pc
	case expIndexed:
		pc := fs.emitABC(OP_GETTABLE, 0, e.ind.t, e.ind.idx, false)
		e.kind, e.info = expReloc, pc
	case expCall:
		e.kind = expNonReloc
		// info already holds the register the CALL wrote its first result to
		// (set by compileCallExpr/compileMethodCallExpr), since CALL's A doubles as both the function's
		// register and the first result's.
	case expVararg:
		e.kind = expReloc
	}
}

// discharge2reg forces e's value into register reg, patching a RELOC
// instruction's destination or emitting a fresh load for a constant.
func (fs *funcState) discharge2reg(e *expDesc, reg int) {
	fs.dischargeVars(e)
	switch e.kind {
	case expNil:
		fs.emitABC(OP_LOADNIL, reg, 0, 0, false)
		fs.mergeLoadNil(reg, 1)
	case expTrue:
		fs.emitABC(OP_LOADBOOL, reg, 1, 0, false)
	case expFalse:
		fs.emitABC(OP_LOADBOOL, reg, 0, 0, false)
	case expKInt:
		if e.ival >= -OffsetSBx && e.ival <= MaxArgBx-OffsetSBx {
			fs.emitAsBx(OP_LOADI, reg, int(e.ival))
		} else {
			fs.dischargeConstant(reg, fs.k.int(e.ival))
		}
	case expKFlt:
		fs.dischargeConstant(reg, fs.k.float(e.nval))
	case expK:
		fs.dischargeConstant(reg, e.info)
	case expReloc:
		fs.code[e.info] = fs.code[e.info].setA(reg)
	case expNonReloc:
		if reg != e.info {
			fs.emitABC(OP_MOVE, reg, e.info, 0, false)
		}
	default:
		return // expVoid, expJmp: nothing to materialize yet
	}
	e.kind, e.info = expNonReloc, reg
}

func (fs *funcState) dischargeConstant(reg, idx int) {
	instr, extra := loadKInstr(reg, idx)
	fs.emit(instr)
	if extra != nil {
		fs.emit(*extra)
	}
}

// codeLoadBool emits a LOADBOOL and marks the position as a jump target
// first, since the boolean-materializing instructions that follow a
// short-circuit test may themselves be landed on by a pending jump.
func (fs *funcState) codeLoadBool(reg, b, skip int) int {
	fs.markLabel()
	return fs.emitABC(OP_LOADBOOL, reg, b, skip, false)
}

// exp2reg is discharge2reg plus the bookkeeping for boolean expressions that
// carry pending true/false jump lists (§4.F): it materializes a concrete
// true/false value via LOADBOOL where the jump lists demand one, then
// patches every pending jump to land just past that value.
func (fs *funcState) exp2reg(e *expDesc, reg int) {
	fs.discharge2reg(e, reg)
	if e.kind == expJmp {
		e.t = fs.concatJumps(e.t, e.info)
	}
	if e.hasJumps() {
		pf, pt := NoJump, NoJump
		if fs.needValue(e.t) || fs.needValue(e.f) {
			var fj int
			if e.kind != expJmp {
				fj = fs.jump()
			} else {
				fj = NoJump
			}
			pf = fs.codeLoadBool(reg, 0, 1) // load false, skip next instruction
			pt = fs.codeLoadBool(reg, 1, 0) // load true
			fs.patchToHere(fj)              // jump around these booleans if e isn't a test
		}
		final := fs.pc()
		fs.patchListAux(e.f, final, reg, pf)
		fs.patchListAux(e.t, final, reg, pt)
	}
	e.t, e.f = NoJump, NoJump
	e.kind, e.info = expNonReloc, reg
}

// needValue reports whether any jump in list is not TESTSET-controlled
// (and so needs a LOADBOOL, rather than falling straight through to the
// register a TESTSET already filled).
func (fs *funcState) needValue(list int) bool {
	for ; list != NoJump; list = fs.getJump(list) {
		if list == 0 || fs.code[list-1].Opcode() != OP_TESTSET {
			return true
		}
	}
	return false
}

func (fs *funcState) exp2nextReg(e *expDesc) {
	fs.dischargeVars(e)
	fs.freeExp(e)
	reg := fs.reserveRegs(1)
	fs.exp2reg(e, reg)
}

func (fs *funcState) exp2anyReg(e *expDesc) int {
	fs.dischargeVars(e)
	if e.kind == expNonReloc {
		if !e.hasJumps() {
			return e.info
		}
		if e.info >= fs.regs.nactive {
			fs.exp2reg(e, e.info)
			return e.info
		}
	}
	fs.exp2nextReg(e)
	return e.info
}

// exp2anyRegUp is exp2anyReg specialized so a pure upvalue read is left as
// expUpval (many opcodes accept an upvalue operand directly and needn't pay
// for a GETUPVAL).
func (fs *funcState) exp2anyRegUp(e *expDesc) {
	if e.kind != expUpval || e.hasJumps() {
		fs.exp2anyReg(e)
	}
}

// exp2val forces a boolean-jump expression into a concrete value but leaves
// anything else (including constants) untouched.
func (fs *funcState) exp2val(e *expDesc) {
	if e.hasJumps() {
		fs.exp2anyReg(e)
	} else {
		fs.dischargeVars(e)
	}
}

// exp2K returns the constant-pool index for e if it is a literal; otherwise
// it emits nothing and returns (-1, false), leaving the caller to
// materialize e in a register.
func (fs *funcState) exp2K(e *expDesc) (int, bool) {
	if !e.hasJumps() {
		switch e.kind {
		case expNil:
			return fs.k.nil(), true
		case expTrue:
			return fs.k.bool(true), true
		case expFalse:
			return fs.k.bool(false), true
		case expKInt:
			return fs.k.int(e.ival), true
		case expKFlt:
			return fs.k.float(e.nval), true
		case expK:
			return e.info, true
		}
	}
	return -1, false
}

// smallInt returns e's value and true if e is an integer constant that fits
// the sB/sC immediate range used by the *I opcode variants: biasing the
// value by OffsetSB/OffsetSC before packing it shifts the representable
// range to [-OffsetSC, MaxArgC-OffsetSC], one wider on the positive side
// than a plain signed byte.
func smallInt(e *expDesc) (int, bool) {
	if e.kind != expKInt {
		return 0, false
	}
	if e.ival < -OffsetSC || e.ival > MaxArgC-OffsetSC {
		return 0, false
	}
	return int(e.ival), true
}

// --- indexing (t.k / t[k] / t[i]) ---

// indexed turns e (already a materialized table value) and key into the
// appropriate expIndex* descriptor without emitting any code yet; the
// caller discharges it with dischargeVars when the value is actually
// needed, or calls storeIndexed to assign through it.
func (fs *funcState) indexed(e *expDesc, key *expDesc) expDesc {
	r := newExpDesc()
	if e.kind == expUpval {
		if idx, ok := fs.exp2K(key); ok && fs.k.at(idx).kind == konstString {
			r.kind = expIndexUp
			r.ind = indexInfo{t: e.info, idx: idx}
			return r
		}
	}
	fs.exp2anyRegUp(e)
	if idx, ok := fs.exp2K(key); ok && fs.k.at(idx).kind == konstString {
		r.kind = expIndexStr
		r.ind = indexInfo{t: e.info, idx: idx}
		return r
	}
	if i, ok := smallInt(key); ok && i >= 0 {
		r.kind = expIndexI
		r.ind = indexInfo{t: e.info, idx: i}
		return r
	}
	keyReg := fs.exp2anyReg(key)
	r.kind = expIndexed
	r.ind = indexInfo{t: e.info, idx: keyReg}
	return r
}

// storeIndexed emits the SET* instruction matching how t was indexed,
// storing the value already sitting in valueReg.
func (fs *funcState) storeIndexed(t *expDesc, valueReg int) {
	switch t.kind {
	case expIndexUp:
		fs.emitABC(OP_SETTABUP, t.ind.t, t.ind.idx, valueReg, false)
	case expIndexStr:
		fs.emitABC(OP_SETFIELD, t.ind.t, t.ind.idx, valueReg, false)
	case expIndexI:
		fs.emitABC(OP_SETI, t.ind.t, t.ind.idx, valueReg, false)
	case expIndexed:
		fs.emitABC(OP_SETTABLE, t.ind.t, t.ind.idx, valueReg, false)
	default:
		panic("compiler: storeIndexed on non-indexed expdesc")
	}
}

// --- arithmetic / bitwise / shift ---

// arithTable maps each arithmetic/bitwise operator token (excluding shifts
// and concat) to its register, constant and immediate opcode forms.
// A zero entry in immOp or kOp means that form doesn't exist for this
// operator.
type arithForms struct {
	regOp, kOp, immOp Opcode
}

var arithTable = map[token.Token]arithForms{
	token.PLUS:       {OP_ADD, OP_ADDK, OP_ADDI},
	token.MINUS:      {OP_SUB, OP_SUBK, 0},
	token.STAR:       {OP_MUL, OP_MULK, 0},
	token.SLASH:      {OP_DIV, OP_DIVK, 0},
	token.SLASHSLASH: {OP_IDIV, OP_IDIVK, 0},
	token.PERCENT:    {OP_MOD, OP_MODK, 0},
	token.CIRCUMFLEX: {OP_POW, OP_POWK, 0},
	token.AMPERSAND:  {OP_BAND, OP_BANDK, 0},
	token.PIPE:       {OP_BOR, OP_BORK, 0},
	token.TILDE:      {OP_BXOR, OP_BXORK, 0},
}

// codeArith emits e1 <op> e2, constant-folding when both operands are
// numeric literals and the operator is one this compiler folds.
func (fs *funcState) codeArith(op token.Token, e1, e2 *expDesc) expDesc {
	if folded, ok := foldArith(op, e1, e2); ok {
		return folded
	}
	forms := arithTable[op]
	fs.exp2anyReg(e1)
	if forms.immOp != 0 {
		if i, ok := smallInt(e2); ok {
			r1 := e1.info
			fs.freeExp(e1)
			pc := fs.emitABSC(forms.immOp, 0, r1, i, false)
			return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
		}
	}
	if idx, ok := fs.exp2K(e2); ok {
		r1 := e1.info
		fs.freeExp(e1)
		pc := fs.emitABC(forms.kOp, 0, r1, idx, false)
		return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
	}
	fs.exp2anyReg(e2)
	r1, r2 := e1.info, e2.info
	fs.freeExps(e1, e2)
	pc := fs.emitABC(forms.regOp, 0, r1, r2, false)
	return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
}

// codeShift emits a left (isLeft) or right shift of e1 by e2.
func (fs *funcState) codeShift(isLeft bool, e1, e2 *expDesc) expDesc {
	if folded, ok := foldArith(pickShiftTok(isLeft), e1, e2); ok {
		return folded
	}
	fs.exp2anyReg(e1)
	if i, ok := smallInt(e2); ok {
		r1 := e1.info
		fs.freeExp(e1)
		op := OP_SHLI
		if !isLeft {
			op = OP_SHRI
		}
		pc := fs.emitABSC(op, 0, r1, i, false)
		return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
	}
	fs.exp2anyReg(e2)
	r1, r2 := e1.info, e2.info
	fs.freeExps(e1, e2)
	op := OP_SHL
	if !isLeft {
		op = OP_SHR
	}
	pc := fs.emitABC(op, 0, r1, r2, false)
	return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
}

func pickShiftTok(isLeft bool) token.Token {
	if isLeft {
		return token.LTLT
	}
	return token.GTGT
}

// codeUnop emits the single-operand opcodes (UNM, BNOT, LEN), folding the
// negation of a numeric literal into a new literal; NOT is handled separately by codeNot since it manipulates jump lists instead.
func (fs *funcState) codeUnop(op token.Token, e *expDesc) expDesc {
	if e.isNumeral() && (op == token.MINUS) {
		switch e.kind {
		case expKInt:
			return expDesc{kind: expKInt, ival: -e.ival, t: NoJump, f: NoJump}
		case expKFlt:
			return expDesc{kind: expKFlt, nval: -e.nval, t: NoJump, f: NoJump}
		}
	}
	fs.exp2anyReg(e)
	r := e.info
	fs.freeExp(e)
	var opc Opcode
	switch op {
	case token.MINUS:
		opc = OP_UNM
	case token.TILDE:
		opc = OP_BNOT
	case token.HASH:
		opc = OP_LEN
	}
	pc := fs.emitABC(opc, 0, r, 0, false)
	return expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
}

// codeConcat emits CONCAT over e1 and e2 sitting in consecutive registers,
// e1 first (compileBinOp puts e1 at the top before the right operand is
// compiled); mergeConcat then folds it into a CONCAT emitted just before.
func (fs *funcState) codeConcat(e1, e2 *expDesc) expDesc {
	fs.exp2nextReg(e2)
	first := e1.info
	if e1.kind != expNonReloc || e1.info != fs.regs.active-2 {
		fs.exp2nextReg(e1)
		first = e1.info
	}
	last := e2.info
	fs.regs.free(last)
	fs.regs.free(first)
	fs.emitABC(OP_CONCAT, first, first, last, false)
	fs.mergeConcat()
	pc := fs.pc() - 1
	fs.regs.reserve(1)
	return expDesc{kind: expNonReloc, info: first, t: NoJump, f: NoJump, ival: int64(pc)}
}

// foldArith constant-folds e1 op e2 when both are numeric literals of the
// same numeric domain the operator requires (integer ops need integers,
// since lumen — like its model — keeps "//", "&", "|", "~", "<<", ">>"
// integer-only).
func foldArith(op token.Token, e1, e2 *expDesc) (expDesc, bool) {
	if !e1.isNumeral() || !e2.isNumeral() {
		return expDesc{}, false
	}
	if e1.kind == expKInt && e2.kind == expKInt {
		a, b := e1.ival, e2.ival
		switch op {
		case token.PLUS:
			return expDesc{kind: expKInt, ival: a + b, t: NoJump, f: NoJump}, true
		case token.MINUS:
			return expDesc{kind: expKInt, ival: a - b, t: NoJump, f: NoJump}, true
		case token.STAR:
			return expDesc{kind: expKInt, ival: a * b, t: NoJump, f: NoJump}, true
		case token.AMPERSAND:
			return expDesc{kind: expKInt, ival: a & b, t: NoJump, f: NoJump}, true
		case token.PIPE:
			return expDesc{kind: expKInt, ival: a | b, t: NoJump, f: NoJump}, true
		case token.TILDE:
			return expDesc{kind: expKInt, ival: a ^ b, t: NoJump, f: NoJump}, true
		case token.SLASHSLASH:
			if b != 0 {
				q := a / b
				if (a%b != 0) && ((a < 0) != (b < 0)) {
					q--
				}
				return expDesc{kind: expKInt, ival: q, t: NoJump, f: NoJump}, true
			}
		case token.PERCENT:
			if b != 0 {
				m := a % b
				if m != 0 && (m < 0) != (b < 0) {
					m += b
				}
				return expDesc{kind: expKInt, ival: m, t: NoJump, f: NoJump}, true
			}
		}
		return expDesc{}, false
	}
	a, b := e1.numberValue(), e2.numberValue()
	switch op {
	case token.PLUS:
		return expDesc{kind: expKFlt, nval: a + b, t: NoJump, f: NoJump}, true
	case token.MINUS:
		return expDesc{kind: expKFlt, nval: a - b, t: NoJump, f: NoJump}, true
	case token.STAR:
		return expDesc{kind: expKFlt, nval: a * b, t: NoJump, f: NoJump}, true
	case token.SLASH:
		return expDesc{kind: expKFlt, nval: a / b, t: NoJump, f: NoJump}, true
	default:
		return expDesc{}, false
	}
}

// --- comparisons ---

// codeCompare emits the test+jump pair for a relational operator and
// returns an expJmp descriptor whose info is the pc of the controlling JMP;
// goiftrue/goiffalse or exp2reg later decide how to consume it.
func (fs *funcState) codeCompare(op token.Token, e1, e2 *expDesc) expDesc {
	switch op {
	case token.GT, token.GE:
		// a > b  ==  b < a ; a >= b == b <= a
		e1, e2 = e2, e1
		if op == token.GT {
			op = token.LT
		} else {
			op = token.LE
		}
	}
	switch op {
	case token.EQ, token.NEQ:
		cond := op == token.EQ
		if idx, ok := fs.exp2K(e2); ok {
			r1 := fs.exp2anyReg(e1)
			fs.emitABC(OP_EQK, r1, idx, 0, cond)
			fs.freeExp(e1)
		} else if i, ok := smallInt(e2); ok {
			r1 := fs.exp2anyReg(e1)
			fs.emitASBC(OP_EQI, r1, i, 0, cond)
			fs.freeExp(e1)
		} else {
			r1 := fs.exp2anyReg(e1)
			r2 := fs.exp2anyReg(e2)
			fs.freeExps(e1, e2)
			fs.emitABC(OP_EQ, r1, r2, 0, cond)
		}
	case token.LT, token.LE:
		if i, ok := smallInt(e2); ok {
			r1 := fs.exp2anyReg(e1)
			fs.emitASBC(pickLTOp(op == token.LE), r1, i, 0, true)
			fs.freeExp(e1)
		} else if i, ok := smallInt(e1); ok {
			r2 := fs.exp2anyReg(e2)
			fs.emitASBC(pickGTOp(op == token.LE), r2, i, 0, true)
			fs.freeExp(e2)
		} else {
			r1 := fs.exp2anyReg(e1)
			r2 := fs.exp2anyReg(e2)
			fs.freeExps(e1, e2)
			o := OP_LT
			if op == token.LE {
				o = OP_LE
			}
			fs.emitABC(o, r1, r2, 0, true)
		}
	}
	// The test just emitted is "taken" on true by convention (k=1 meaning
	// "jump if the test matches"); the JMP right after it is what the jump
	// list threads through.
	pc := fs.jump()
	return expDesc{kind: expJmp, info: pc, t: NoJump, f: NoJump}
}

func pickLTOp(orEqual bool) Opcode {
	if orEqual {
		return OP_LEI
	}
	return OP_LTI
}

func pickGTOp(orEqual bool) Opcode {
	if orEqual {
		return OP_GEI
	}
	return OP_GTI
}

// codeNot negates a boolean expdesc by swapping its true/false jump lists,
// or by emitting NOT for a value still sitting in a register.
func (fs *funcState) codeNot(e *expDesc) expDesc {
	fs.dischargeVars(e)
	switch e.kind {
	case expNil, expFalse:
		return expDesc{kind: expTrue, t: NoJump, f: NoJump}
	case expTrue, expKInt, expKFlt, expK:
		return expDesc{kind: expFalse, t: NoJump, f: NoJump}
	case expJmp:
		negateCond(fs, e.info)
		e.t, e.f = e.f, e.t
		return *e
	default:
		fs.exp2anyReg(e)
		r := e.info
		fs.freeExp(e)
		pc := fs.emitABC(OP_NOT, 0, r, 0, false)
		return expDesc{kind: expReloc, info: pc, t: e.f, f: e.t}
	}
}

// --- short-circuit and/or ---

// goIfTrue appends a jump taken when e is false to its f-list, leaving
// control to fall through when e is true, and patches e's pending t-list to
// here. Used for the left operand of
// "and" and for if/while conditions tested directly.
func (fs *funcState) goIfTrue(e *expDesc) {
	fs.dischargeVars(e)
	var pc int
	switch e.kind {
	case expJmp:
		e.info = negateCond(fs, e.info)
		pc = e.info
	case expK, expKInt, expKFlt, expTrue:
		pc = NoJump
	default:
		pc = fs.jumpOnFalse(e)
	}
	e.f = fs.concatJumps(e.f, pc)
	fs.patchToHere(e.t)
	e.t = NoJump
}

// goIfFalse is goIfTrue with the sense reversed, for the left operand of
// "or".
func (fs *funcState) goIfFalse(e *expDesc) {
	fs.dischargeVars(e)
	var pc int
	switch e.kind {
	case expJmp:
		pc = e.info
	case expNil, expFalse:
		pc = NoJump
	default:
		pc = fs.jumpOnTrue(e)
	}
	e.t = fs.concatJumps(e.t, pc)
	fs.patchToHere(e.f)
	e.f = NoJump
}

// jumpOnFalse discharges e into a register (if not already a TEST-able
// value) and emits TEST+JMP so control jumps away when e is falsy.
func (fs *funcState) jumpOnFalse(e *expDesc) int {
	r := fs.exp2anyReg(e)
	fs.freeExp(e)
	fs.emitABC(OP_TEST, r, 0, 0, false)
	return fs.jump()
}

func (fs *funcState) jumpOnTrue(e *expDesc) int {
	r := fs.exp2anyReg(e)
	fs.freeExp(e)
	fs.emitABC(OP_TEST, r, 0, 0, true)
	return fs.jump()
}

// negateCond flips the k bit of the TEST/comparison instruction controlling
// the JMP at pc, used by goIfTrue and codeNot when the sense of an expJmp
// produced by a comparison is reversed.
func negateCond(fs *funcState, pc int) int {
	i := fs.code[pc-1]
	fs.code[pc-1] = i.setK(!i.K())
	return pc
}

// infixAnd/infixOr are called right after the left operand of "and"/"or" is
// parsed, before the right operand is compiled, to emit the short-circuit
// jump and free the left operand's register.
func (fs *funcState) infixAnd(e *expDesc) {
	fs.goIfTrue(e)
}

func (fs *funcState) infixOr(e *expDesc) {
	fs.goIfFalse(e)
}

// posfixAnd/posfixOr merge the right operand's descriptor with the left
// operand's pending jump list after "and"/"or" 's right side compiles.
func (fs *funcState) posfixAnd(left, right *expDesc) expDesc {
	fs.dischargeVars(right)
	right.f = fs.concatJumps(right.f, left.f)
	return *right
}

func (fs *funcState) posfixOr(left, right *expDesc) expDesc {
	fs.dischargeVars(right)
	right.t = fs.concatJumps(right.t, left.t)
	return *right
}
