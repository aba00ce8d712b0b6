package compiler

import (
	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/resolver"
)

// funcState holds all compile-time state for one function body being
// generated: its growing instruction stream, its register allocator, its
// constant pool, its line recorder, and the upvalue/child bookkeeping
// needed to emit CLOSURE instructions for nested functions (§4, §6).
type funcState struct {
	parent *funcState
	fn     *resolver.Function

	code []Instr
	regs registers
	k    *konstPool
	line lineRecorder

	upvals    []upvalDesc
	localRegs map[ast.Node]int // binding.Decl -> assigned register, for locals currently in scope

	children []*Prototype

	breaks []int // pending "break" jumps of the loop currently being compiled

	// needClose reports whether this function ever assigns a to-be-closed
	// local, read by finish.go's return fixup (§4.H). Lumen's grammar has no
	// `<close>` local attribute, so this is always false today; it stays
	// wired so a future front end that adds one only has to set it here.
	needClose bool

	lastTarget int // pc of the last jump target, used to avoid redundant peephole merges
	curLine    int // source line of the statement/expression currently being emitted
}

// upvalDesc records where one of this function's upvalues comes from: a
// register in the immediately enclosing function (inStack true) or one of
// that function's own upvalues by index (inStack false).
type upvalDesc struct {
	name    string
	decl    ast.Node
	inStack bool
	index   int
}

func newFuncState(parent *funcState, fn *resolver.Function) *funcState {
	fs := &funcState{parent: parent, fn: fn, k: newKonstPool(), localRegs: map[ast.Node]int{}}
	fs.regs.reset(0)
	fs.line.reset()
	return fs
}

// pc returns the index the next emitted instruction will occupy.
func (fs *funcState) pc() int { return len(fs.code) }

// emit appends instr, recording curLine for it, and returns its pc.
func (fs *funcState) emit(instr Instr) int {
	fs.line.record(fs.pc(), fs.curLine)
	fs.code = append(fs.code, instr)
	return fs.pc() - 1
}

func (fs *funcState) emitABC(op Opcode, a, b, c int, k bool) int {
	return fs.emit(makeABC(op, a, b, c, k))
}

func (fs *funcState) emitABx(op Opcode, a, bx int) int {
	return fs.emit(makeABx(op, a, bx))
}

// emitASBC and emitABSC emit an ABC-format instruction whose B or C operand
// (respectively) is a small signed immediate, biasing it by OffsetSB/
// OffsetSC the way makeAsBx biases sbx — for the *I opcode variants (ADDI,
// SHLI, LTI, EQI, ...) that pack a signed value into an otherwise-unsigned
// field.
func (fs *funcState) emitASBC(op Opcode, a, sb, c int, k bool) int {
	return fs.emitABC(op, a, sb+OffsetSB, c, k)
}

func (fs *funcState) emitABSC(op Opcode, a, b, sc int, k bool) int {
	return fs.emitABC(op, a, b, sc+OffsetSC, k)
}

func (fs *funcState) emitAsBx(op Opcode, a, sbx int) int {
	return fs.emit(makeAsBx(op, a, sbx))
}

func (fs *funcState) emitSJ(op Opcode, sj int, k bool) int {
	return fs.emit(makeSJ(op, sj, k))
}

func (fs *funcState) emitAx(op Opcode, ax int) int {
	return fs.emit(makeAx(op, ax))
}

// emitReturn codes a return of nvals values starting at base, choosing the
// cheapest opcode the VM can dispatch without inspecting B: RETURN0 for zero
// results, RETURN1 for exactly one, RETURN otherwise. multi signals "return
// everything up to the top of the stack" (an open call or vararg in tail
// position), which always takes the general RETURN form with B=0. finish.go
// may later rewrite any of these if the function needs extra cleanup.
func (fs *funcState) emitReturn(base, nvals int, multi bool) int {
	switch {
	case multi:
		return fs.emitABC(OP_RETURN, base, 0, 0, false)
	case nvals == 0:
		return fs.emitABC(OP_RETURN0, 0, 0, 0, false)
	case nvals == 1:
		return fs.emitABC(OP_RETURN1, base, 0, 0, false)
	default:
		return fs.emitABC(OP_RETURN, base, nvals+1, 0, false)
	}
}

// removeLast pops the most recently emitted instruction, used by the
// peephole passes in finish.go when two instructions merge into one.
func (fs *funcState) removeLast() {
	fs.line.removeLast(fs.curLine)
	fs.code = fs.code[:len(fs.code)-1]
}

// findUpval returns the index this function should use to address binding
// (a Free binding from the resolver), creating the upvalDesc entry on first
// use. binding.Decl is the declaring node shared by every Binding (Local,
// Cell or Free) for the same source variable, which is what lets this walk
// the enclosing-function chain without needing the variable's name.
func (fs *funcState) findUpval(binding *resolver.Binding) int {
	for i, u := range fs.upvals {
		if u.decl == binding.Decl {
			return i
		}
	}
	if fs.parent == nil {
		panic("compiler: upvalue " + binding.Name + " has no enclosing function")
	}
	idx := len(fs.upvals)
	if reg, ok := fs.parent.localRegs[binding.Decl]; ok {
		fs.upvals = append(fs.upvals, upvalDesc{name: binding.Name, decl: binding.Decl, inStack: true, index: reg})
		return idx
	}
	var parentFree *resolver.Binding
	for _, b := range fs.parent.fn.FreeVars {
		if b.Decl == binding.Decl {
			parentFree = b
			break
		}
	}
	if parentFree == nil {
		panic("compiler: upvalue " + binding.Name + " missing from enclosing function's free variables")
	}
	fs.upvals = append(fs.upvals, upvalDesc{
		name: binding.Name, decl: binding.Decl, inStack: false, index: fs.parent.findUpval(parentFree),
	})
	return idx
}
