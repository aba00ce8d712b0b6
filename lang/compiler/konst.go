package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// konst is a compile-time constant value: one of nil, bool, int64, float64
// or string. Two konsts are the same pool entry only if both their Go type
// and value match — in particular the integer 1 and the float 1.0 intern to
// distinct slots, since the VM must load them with distinct opcodes.
type konst struct {
	kind konstKind
	i    int64
	f    float64
	s    string
}

type konstKind uint8

const (
	konstNil konstKind = iota
	konstTrue
	konstFalse
	konstInt
	konstFloat
	konstString
)

func konstOfNil() konst { return konst{kind: konstNil} }

func konstOfBool(b bool) konst {
	if b {
		return konst{kind: konstTrue}
	}
	return konst{kind: konstFalse}
}

func konstOfInt(i int64) konst     { return konst{kind: konstInt, i: i} }
func konstOfFloat(f float64) konst { return konst{kind: konstFloat, f: f} }
func konstOfString(s string) konst { return konst{kind: konstString, s: s} }

// value reports the dynamic Go value a VM would materialize for k, used
// only for the disassembler and tests; the compiler itself never inspects
// this, it only ever re-emits the konst by pool index.
func (k konst) value() any {
	switch k.kind {
	case konstNil:
		return nil
	case konstTrue:
		return true
	case konstFalse:
		return false
	case konstInt:
		return k.i
	case konstFloat:
		return k.f
	case konstString:
		return k.s
	default:
		panic("compiler: invalid konst kind")
	}
}

func (k konst) String() string {
	switch k.kind {
	case konstNil:
		return "nil"
	case konstTrue:
		return "true"
	case konstFalse:
		return "false"
	case konstInt:
		return fmt.Sprintf("%d", k.i)
	case konstFloat:
		return fmt.Sprintf("%g", k.f)
	case konstString:
		return fmt.Sprintf("%q", k.s)
	default:
		return "<bad konst>"
	}
}

// konstPool interns constants for one function prototype, keyed by their
// own value so that re-adding an equal constant reuses the existing slot
// (§4.D). Backed by a swiss-table map for O(1) average lookup regardless of
// how many constants a function accumulates.
type konstPool struct {
	index  *swiss.Map[konst, int]
	values []konst
}

func newKonstPool() *konstPool {
	return &konstPool{
		index:  swiss.NewMap[konst, int](8),
		values: nil,
	}
}

// intern returns the pool index for k, adding it if not already present.
func (p *konstPool) intern(k konst) int {
	if idx, ok := p.index.Get(k); ok {
		return idx
	}
	idx := len(p.values)
	p.values = append(p.values, k)
	p.index.Put(k, idx)
	return idx
}

func (p *konstPool) nil() int           { return p.intern(konstOfNil()) }
func (p *konstPool) bool(b bool) int     { return p.intern(konstOfBool(b)) }
func (p *konstPool) int(i int64) int     { return p.intern(konstOfInt(i)) }
func (p *konstPool) float(f float64) int { return p.intern(konstOfFloat(f)) }
func (p *konstPool) string(s string) int { return p.intern(konstOfString(s)) }

func (p *konstPool) len() int       { return len(p.values) }
func (p *konstPool) at(i int) konst { return p.values[i] }

// loadKInstr selects the cheapest way to load the constant at idx into
// register reg: LOADK when idx fits Bx's unsigned range, otherwise LOADKX
// followed by an EXTRAARG whose Ax carries the whole index, per §4.A's
// format table.
func loadKInstr(reg, idx int) (Instr, *Instr) {
	if idx <= MaxArgBx {
		i := makeABx(OP_LOADK, reg, idx)
		return i, nil
	}
	i := makeABx(OP_LOADKX, reg, 0)
	extra := makeAx(OP_EXTRAARG, idx)
	return i, &extra
}
