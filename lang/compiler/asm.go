package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// This file implements a human-readable/writable form of a compiled
// Prototype, the register-ISA analogue of the teacher's stack-machine
// asm.go. It exists to let VM-facing tests build or inspect a Prototype
// without going through the scanner/parser/resolver front end.
//
// The format (indentation is arbitrary, section order is not):
//
//	proto:                     # required
//		source "name.lumen"      # optional
//		line 12                  # optional, "function" keyword's source line
//		endline 34               # optional
//		params 2                 # optional
//		vararg                   # optional flag
//		maxstack 12              # optional
//		constants:               # optional
//			int    123
//			float  1.5
//			string "abc"
//			bool   true
//			nil
//		upvalues:                # optional
//			x   stack 0
//			env upval 0
//		code:                    # required
//			LOADI 0 10             # ABx/AsBx: A, signed immediate
//			ADD   1 0 0            # ABC: A, B, C
//			EQI   0 5 0 k          # ABC with signed B (the *I forms), trailing k flag
//			JMP   3                # sJ: target instruction index (not a delta)
//		protos:                  # optional, nested "proto:" blocks, in Protos order
//			proto:
//				...

var asmSections = map[string]bool{
	"proto:":     true,
	"constants:": true,
	"upvalues:":  true,
	"code:":      true,
	"protos:":    true,
}

// signedCOps are the ABC-format opcodes whose C operand is a small signed
// immediate biased by OffsetSC (see emitABSC).
var signedCOps = map[Opcode]bool{OP_ADDI: true, OP_SHLI: true, OP_SHRI: true}

// signedBOps are the ABC-format opcodes whose B operand is a small signed
// immediate biased by OffsetSB (see emitASBC).
var signedBOps = map[Opcode]bool{
	OP_EQI: true, OP_LTI: true, OP_LEI: true, OP_GTI: true, OP_GEI: true,
}

var reverseOpcodeNames map[string]Opcode

func init() {
	reverseOpcodeNames = make(map[string]Opcode, opcodeCount)
	for op, name := range opcodeNames {
		if name != "" {
			reverseOpcodeNames[name] = Opcode(op)
		}
	}
}

// Asm parses the pseudo-assembly textual form of a Prototype.
func Asm(b []byte) (*Prototype, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b))}
	fields := a.next()
	p, fields := a.proto(fields)
	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	if a.err != nil {
		return nil, a.err
	}
	return p, nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
	err     error
}

func (a *asm) proto(fields []string) (*Prototype, []string) {
	if a.err != nil {
		return nil, fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "proto:") {
		msg := "expected proto section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return nil, fields
	}

	p := &Prototype{}
	fields = a.next()
	fields = a.scalars(p, fields)
	fields = a.constants(p, fields)
	fields = a.upvalues(p, fields)
	fields = a.code(p, fields)
	fields = a.protos(p, fields)
	return p, fields
}

// scalars consumes the proto's flat attribute lines (source, line, endline,
// params, vararg, maxstack), which have no trailing colon of their own.
func (a *asm) scalars(p *Prototype, fields []string) []string {
	for a.err == nil && len(fields) > 0 && !asmSections[fields[0]] {
		if fields[0] != "vararg" && fields[0] != "source" && len(fields) < 2 {
			a.err = fmt.Errorf("invalid proto attribute %s: missing value", fields[0])
			return fields
		}
		switch fields[0] {
		case "source":
			qs, err := strconv.QuotedPrefix(strings.TrimSpace(a.rawLine[strings.Index(a.rawLine, "source")+len("source"):]))
			if err != nil {
				a.err = fmt.Errorf("invalid source: %w", err)
				return fields
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				a.err = fmt.Errorf("invalid source: %w", err)
				return fields
			}
			p.Source = s
		case "line":
			p.Line = int(a.int(fields[1]))
		case "endline":
			p.EndLine = int(a.int(fields[1]))
		case "params":
			p.NumParams = int(a.int(fields[1]))
		case "vararg":
			p.IsVararg = true
		case "maxstack":
			p.MaxStack = int(a.int(fields[1]))
		default:
			a.err = fmt.Errorf("invalid proto attribute: %s", fields[0])
			return fields
		}
		fields = a.next()
	}
	return fields
}

var errInvalidConst = errors.New("invalid constant")

func (a *asm) constants(p *Prototype, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		if fields[0] != "nil" && len(fields) != 2 {
			a.err = fmt.Errorf("invalid constant: expected type and value, got %d fields", len(fields))
			return fields
		}
		switch fields[0] {
		case "nil":
			p.Constants = append(p.Constants, nil)
		case "bool":
			b, err := strconv.ParseBool(fields[1])
			if err != nil {
				a.err = fmt.Errorf("invalid bool constant: %s: %w", fields[1], err)
				return fields
			}
			p.Constants = append(p.Constants, b)
		case "int":
			p.Constants = append(p.Constants, a.int(fields[1]))
		case "float":
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("invalid float constant: %s: %w", fields[1], err)
				return fields
			}
			p.Constants = append(p.Constants, f)
		case "string":
			idx := strings.Index(a.rawLine, "string")
			qs, err := strconv.QuotedPrefix(strings.TrimSpace(a.rawLine[idx+len("string"):]))
			if err != nil {
				a.err = fmt.Errorf("%w: %s: %w", errInvalidConst, fields[0], err)
				return fields
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				a.err = fmt.Errorf("%w: %s: %w", errInvalidConst, fields[0], err)
				return fields
			}
			p.Constants = append(p.Constants, s)
		default:
			a.err = fmt.Errorf("invalid constant type: %s", fields[0])
			return fields
		}
	}
	return fields
}

func (a *asm) upvalues(p *Prototype, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "upvalues:") {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		if len(fields) != 3 {
			a.err = fmt.Errorf("invalid upvalue: expected name, kind and index, got %d fields", len(fields))
			return fields
		}
		var inStack bool
		switch fields[1] {
		case "stack":
			inStack = true
		case "upval":
			inStack = false
		default:
			a.err = fmt.Errorf("invalid upvalue kind: %s", fields[1])
			return fields
		}
		p.Upvalues = append(p.Upvalues, UpvalueInfo{
			Name: fields[0], InStack: inStack, Index: int(a.int(fields[2])),
		})
	}
	return fields
}

func (a *asm) code(p *Prototype, fields []string) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		msg := "expected code section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return fields
	}

	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		instr, ok := a.instr(p, fields, len(p.Code))
		if !ok {
			return fields
		}
		p.Code = append(p.Code, instr)
	}
	return fields
}

// instr assembles one code: line into an Instr. pc is the index this
// instruction will occupy, needed to turn an sJ target index into a delta.
func (a *asm) instr(p *Prototype, fields []string, pc int) (Instr, bool) {
	name := strings.ToUpper(fields[0])
	op, ok := reverseOpcodeNames[name]
	if !ok {
		a.err = fmt.Errorf("invalid opcode: %s", fields[0])
		return 0, false
	}
	args := fields[1:]
	hasK := len(args) > 0 && args[len(args)-1] == "k"
	if hasK {
		args = args[:len(args)-1]
	}

	switch op.Format() {
	case FormatABx:
		if len(args) != 2 {
			a.err = fmt.Errorf("opcode %s wants 2 operands, got %d", name, len(args))
			return 0, false
		}
		return makeABx(op, int(a.int(args[0])), int(a.int(args[1]))), true
	case FormatAsBx:
		if len(args) != 2 {
			a.err = fmt.Errorf("opcode %s wants 2 operands, got %d", name, len(args))
			return 0, false
		}
		return makeAsBx(op, int(a.int(args[0])), int(a.int(args[1]))), true
	case FormatAx:
		if len(args) != 1 {
			a.err = fmt.Errorf("opcode %s wants 1 operand, got %d", name, len(args))
			return 0, false
		}
		return makeAx(op, int(a.int(args[0]))), true
	case FormatSJ:
		if len(args) != 1 {
			a.err = fmt.Errorf("opcode %s wants 1 operand, got %d", name, len(args))
			return 0, false
		}
		target := int(a.int(args[0]))
		return makeSJ(op, target-(pc+1), hasK), true
	default: // FormatABC
		if len(args) > 3 {
			a.err = fmt.Errorf("opcode %s wants at most 3 operands, got %d", name, len(args))
			return 0, false
		}
		var vals [3]int
		for i, arg := range args {
			vals[i] = int(a.int(arg))
		}
		aArg, bArg, cArg := vals[0], vals[1], vals[2]
		switch {
		case signedBOps[op]:
			return makeABC(op, aArg, bArg+OffsetSB, cArg, hasK), true
		case signedCOps[op]:
			return makeABC(op, aArg, bArg, cArg+OffsetSC, hasK), true
		default:
			return makeABC(op, aArg, bArg, cArg, hasK), true
		}
	}
}

func (a *asm) protos(p *Prototype, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "protos:") {
		return fields
	}
	fields = a.next()
	for a.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "proto:") {
		var child *Prototype
		child, fields = a.proto(fields)
		p.Protos = append(p.Protos, child)
	}
	return fields
}

func (a *asm) int(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("invalid integer: %s: %w", s, err)
	}
	return i
}

// next returns the fields of the next non-empty, non-comment-only line.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm renders a Prototype to its pseudo-assembly textual form.
func Dasm(p *Prototype) ([]byte, error) {
	d := &dasm{buf: new(bytes.Buffer)}
	d.proto(p, 0)
	return d.buf.Bytes(), d.err
}

type dasm struct {
	buf *bytes.Buffer
	err error
}

func (d *dasm) proto(p *Prototype, depth int) {
	if d.err != nil {
		return
	}
	ind := strings.Repeat("\t", depth)
	d.writef("%sproto:\n", ind)
	if p.Source != "" {
		d.writef("%s\tsource %q\n", ind, p.Source)
	}
	d.writef("%s\tline %d\n", ind, p.Line)
	d.writef("%s\tendline %d\n", ind, p.EndLine)
	d.writef("%s\tparams %d\n", ind, p.NumParams)
	if p.IsVararg {
		d.writef("%s\tvararg\n", ind)
	}
	d.writef("%s\tmaxstack %d\n", ind, p.MaxStack)

	if len(p.Constants) > 0 {
		d.writef("%s\tconstants:\n", ind)
		for i, c := range p.Constants {
			switch c := c.(type) {
			case nil:
				d.writef("%s\t\tnil\t\t# %03d\n", ind, i)
			case bool:
				d.writef("%s\t\tbool\t%t\t# %03d\n", ind, c, i)
			case int64:
				d.writef("%s\t\tint\t%d\t# %03d\n", ind, c, i)
			case float64:
				d.writef("%s\t\tfloat\t%g\t# %03d\n", ind, c, i)
			case string:
				d.writef("%s\t\tstring\t%q\t# %03d\n", ind, c, i)
			default:
				d.err = fmt.Errorf("unsupported constant type: %T", c)
				return
			}
		}
	}

	if len(p.Upvalues) > 0 {
		d.writef("%s\tupvalues:\n", ind)
		for i, u := range p.Upvalues {
			kind := "upval"
			if u.InStack {
				kind = "stack"
			}
			d.writef("%s\t\t%s\t%s\t%d\t# %03d\n", ind, u.Name, kind, u.Index, i)
		}
	}

	d.writef("%s\tcode:\n", ind)
	for pc, instr := range p.Code {
		d.instr(ind, pc, instr)
	}

	if len(p.Protos) > 0 {
		d.writef("%s\tprotos:\n", ind)
		for _, child := range p.Protos {
			d.proto(child, depth+2)
		}
	}
}

func (d *dasm) instr(ind string, pc int, instr Instr) {
	if d.err != nil {
		return
	}
	op := instr.Opcode()
	switch op.Format() {
	case FormatABx:
		d.writef("%s\t\t%s %d %d\t# %03d\n", ind, op, instr.A(), instr.Bx(), pc)
	case FormatAsBx:
		d.writef("%s\t\t%s %d %d\t# %03d\n", ind, op, instr.A(), instr.SBx(), pc)
	case FormatAx:
		d.writef("%s\t\t%s %d\t# %03d\n", ind, op, instr.Ax(), pc)
	case FormatSJ:
		target := pc + 1 + instr.SJ()
		k := ""
		if instr.K() {
			k = " k"
		}
		d.writef("%s\t\t%s %d%s\t# %03d\n", ind, op, target, k, pc)
	default:
		k := ""
		if instr.K() {
			k = " k"
		}
		switch {
		case signedBOps[op]:
			d.writef("%s\t\t%s %d %d %d%s\t# %03d\n", ind, op, instr.A(), instr.SB(), instr.C(), k, pc)
		case signedCOps[op]:
			d.writef("%s\t\t%s %d %d %d%s\t# %03d\n", ind, op, instr.A(), instr.B(), instr.SC(), k, pc)
		default:
			d.writef("%s\t\t%s %d %d %d%s\t# %03d\n", ind, op, instr.A(), instr.B(), instr.C(), k, pc)
		}
	}
}

func (d *dasm) writef(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.buf, format, args...)
}
