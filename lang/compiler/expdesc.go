package compiler

// expKind classifies an expdesc the way §4.E enumerates it: values already
// resident somewhere (a constant, a local, an upvalue, an indexed access)
// versus values that still need code emitted to materialize them (RELOC,
// JMP) versus the two multi-value producers (CALL, VARARG).
type expKind uint8

const (
	expVoid    expKind = iota // no value (e.g. empty expression list slot)
	expNil                    // constant nil
	expTrue                   // constant true
	expFalse                  // constant false
	expKInt                   // integer constant, value in expdesc.ival
	expKFlt                   // float constant, value in expdesc.nval
	expK                      // constant in the pool, index in expdesc.info
	expLocal                  // local variable, register in expdesc.info
	expUpval                  // upvalue, index in expdesc.info
	expIndexUp                // t[k] where t is an upvalue; table in ind.t, key in ind.idx
	expIndexI                 // t[i] with i a small int literal; table reg in ind.t
	expIndexStr               // t.k / t["k"]; key is a constant pool index in ind.idx
	expIndexed                // t[k] with k in a register
	expNonReloc               // value fixed in a specific register (info)
	expReloc                  // value produced by an instruction whose A is not yet fixed; info is the pc
	expCall                   // function call result; info is the CALL's base register (its first result), ival the CALL's pc
	expVararg                 // "..." expansion; info is the pc of the VARARG instruction
	expJmp                    // boolean test result controlled by a JMP; info is its pc
)

// indexInfo describes the table/key pair for the expIndex* kinds.
type indexInfo struct {
	t   int // register (or upvalue index, for expIndexUp) holding the table
	idx int // register, small int, or constant pool index holding the key
}

// expDesc is the compiler's working descriptor for a (sub)expression being
// generated, following lcode.c's expdesc: most code-emitting helpers take an
// expDesc by pointer, narrow its kind, and leave a trail of patchable jump
// lists in t/f for boolean short-circuiting (§4.F).
type expDesc struct {
	kind expKind
	info int // general-purpose payload: register, pc or pool index depending on kind
	ival int64
	nval float64
	ind  indexInfo

	t int // patch list: jumps taken when this expression's value is true
	f int // patch list: jumps taken when this expression's value is false
}

func newExpDesc() expDesc {
	return expDesc{kind: expVoid, t: NoJump, f: NoJump}
}

func (e *expDesc) setNoJumps() { e.t, e.f = NoJump, NoJump }

func (e expDesc) hasJumps() bool { return e.t != e.f || e.t != NoJump }

// hasMultiRet reports whether e can yield more than one value (a call or
// "...", not yet truncated to a single result).
func (e expDesc) hasMultiRet() bool { return e.kind == expCall || e.kind == expVararg }

// isConstant reports whether e is a literal nil/bool/number/pool constant,
// as opposed to something requiring register access or code emission.
func (e expDesc) isConstant() bool {
	switch e.kind {
	case expNil, expTrue, expFalse, expKInt, expKFlt, expK:
		return true
	default:
		return false
	}
}

// isNumeral reports whether e is an integer or float literal, usable
// directly as a folding operand or as an *I/*K instruction immediate.
func (e expDesc) isNumeral() bool { return e.kind == expKInt || e.kind == expKFlt }

func (e expDesc) numberValue() float64 {
	if e.kind == expKInt {
		return float64(e.ival)
	}
	return e.nval
}
