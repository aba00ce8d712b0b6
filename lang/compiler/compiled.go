package compiler

// Prototype is the compiled form of one lumen function (or the top-level
// chunk): everything a register VM needs to execute it, independent of any
// particular call's closure state.
type Prototype struct {
	Source   string
	Line     int // source line of the "function" keyword, 0 for the chunk
	EndLine  int

	NumParams int
	IsVararg  bool
	MaxStack  int // register high-water mark, i.e. the frame size to allocate

	Code []Instr

	Constants []Value

	Upvalues []UpvalueInfo

	Protos []*Prototype // nested function literals, indexed by CLOSURE's Bx

	LineInfo    []int8
	AbsLineInfo []AbsLineInfo
}

// Value is the disassembler/test-facing view of a compile-time constant;
// the VM's own runtime value representation is out of scope here (§1 —
// collaborator concern), so this only ever holds the handful of primitive
// Go types a constant can be.
type Value = any

// UpvalueInfo matches upvalDesc's public shape: where a closure should
// fetch this upvalue from when it is instantiated.
type UpvalueInfo struct {
	Name    string
	InStack bool // true: from the enclosing frame's register Index; false: from its own Upvalues[Index]
	Index   int
}

// AbsLineInfo anchors the source line for the instruction at PC, mirroring
// absLineEntry's fields for external consumers (the disassembler, tests).
type AbsLineInfo struct {
	PC   int
	Line int
}

func (fs *funcState) toPrototype(source string, line, endLine int) *Prototype {
	p := &Prototype{
		Source:    source,
		Line:      line,
		EndLine:   endLine,
		NumParams: fs.regs.nactive,
		IsVararg:  fs.fn.HasVararg,
		MaxStack:  fs.regs.max,
		Code:      fs.code,
		LineInfo:  fs.line.lineInfo,
		Protos:    fs.children,
	}
	for i := 0; i < fs.k.len(); i++ {
		p.Constants = append(p.Constants, fs.k.at(i).value())
	}
	for _, u := range fs.upvals {
		p.Upvalues = append(p.Upvalues, UpvalueInfo{Name: u.name, InStack: u.inStack, Index: u.index})
	}
	for _, e := range fs.line.absLineInfo {
		p.AbsLineInfo = append(p.AbsLineInfo, AbsLineInfo{PC: e.pc, Line: e.line})
	}
	return p
}
