package compiler

import (
	"fmt"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/resolver"
	"github.com/mna/lumen/lang/token"
)

// Compile generates a Prototype for chunk, given the *resolver.Function set
// resolver.Resolve produced for it. It is the package's entry point for code
// generation (§6); Asm and Dasm are the exported testing/inspection aids.
func Compile(chunk *ast.Chunk, funcs []*resolver.Function) (*Prototype, error) {
	defs := make(map[ast.Node]*resolver.Function, len(funcs))
	for _, fn := range funcs {
		defs[fn.Definition] = fn
	}
	top, ok := defs[chunk]
	if !ok {
		return nil, fmt.Errorf("compiler: no resolved function for chunk %q", chunk.Name)
	}
	c := &compiler{defs: defs, source: chunk.Name}
	proto := c.compileChunk(top, chunk)
	if len(c.errs) > 0 {
		return proto, errorList(c.errs)
	}
	return proto, nil
}

type errorList []error

func (e errorList) Error() string {
	if len(e) == 0 {
		return ""
	}
	s := e[0].Error()
	for _, extra := range e[1:] {
		s += "\n" + extra.Error()
	}
	return s
}

// compiler drives code generation across a tree of nested funcStates, one
// per lumen function definition.
type compiler struct {
	fs     *funcState
	defs   map[ast.Node]*resolver.Function
	source string
	errs   []error
}

func (c *compiler) errorf(pos token.Pos, format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("%s:%d: %s", c.source, pos.Line(), fmt.Sprintf(format, args...)))
}

func (c *compiler) compileChunk(fn *resolver.Function, chunk *ast.Chunk) *Prototype {
	parent := c.fs
	fs := newFuncState(parent, fn)
	c.fs = fs
	c.compileBlock(chunk.Block)
	fs.emitReturn(0, 0, false)
	fs.finish()
	proto := fs.toPrototype(c.source, 0, 0)
	c.fs = parent
	return proto
}

// compileFuncBody compiles a nested function literal (plain, method, or
// "local function") sharing the single definition node def that the
// resolver used as the key for this *resolver.Function.
func (c *compiler) compileFuncBody(def ast.Node, sig *ast.FuncSignature, body *ast.Block, isMethod bool, line, endLine int) int {
	fn, ok := c.defs[def]
	if !ok {
		panic("compiler: function literal missing resolver data")
	}
	parent := c.fs
	fs := newFuncState(parent, fn)
	c.fs = fs

	if isMethod {
		reg := fs.regs.reserve(1)
		fs.regs.nactive++
		// the resolver always declares "self" first in a method's Locals.
		fs.localRegs[fn.Locals[0].Decl] = reg
	}
	for _, p := range sig.Params {
		reg := fs.regs.reserve(1)
		fs.regs.nactive++
		fs.localRegs[p.Binding.(*resolver.Binding).Decl] = reg
	}

	c.compileBlock(body)
	fs.emitReturn(0, 0, false)
	fs.finish()

	proto := fs.toPrototype(c.source, line, endLine)
	c.fs = parent
	idx := len(c.fs.children)
	c.fs.children = append(c.fs.children, proto)
	pc := c.fs.emitABx(OP_CLOSURE, 0, idx)
	return pc
}

// compileBlock compiles every statement of b in a fresh local-variable
// scope, releasing locals declared inside it once the block ends so their
// registers become free for sibling statements.
func (c *compiler) compileBlock(b *ast.Block) {
	base := c.fs.regs.nactive
	for _, stmt := range b.Stmts {
		c.compileStmt(stmt)
	}
	c.closeScope(base)
}

// closeScope drops locals declared since base back out of scope. Any
// instructions needed to close over them (future upvalue-closing support)
// would be emitted here; lumen upvalues are box-allocated at capture time
// via Cell promotion, so nothing further is required at scope exit.
func (c *compiler) closeScope(base int) {
	fs := c.fs
	fs.regs.active = base
	fs.regs.nactive = base
}

func (c *compiler) compileStmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.LocalStmt:
		c.compileLocalStmt(n)
	case *ast.AssignStmt:
		c.compileAssignStmt(n)
	case *ast.ExprStmt:
		c.fs.curLine = line(n.Expr)
		var e expDesc
		c.compileExpr(n.Expr, &e)
		c.fs.freeExp(&e)
	case *ast.DoStmt:
		c.compileBlock(n.Body)
	case *ast.WhileStmt:
		c.compileWhileStmt(n)
	case *ast.NumForStmt:
		c.compileNumForStmt(n)
	case *ast.IfStmt:
		c.compileIfStmt(n)
	case *ast.FuncStmt:
		c.compileFuncStmt(n)
	case *ast.ReturnStmt:
		c.compileReturnStmt(n)
	case *ast.BreakStmt:
		c.compileBreakStmt(n)
	case *ast.BadStmt:
		// nothing to generate for a statement that failed to parse
	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", n))
	}
}

func line(n ast.Node) int {
	start, _ := n.Span()
	return start.Line()
}

func (c *compiler) compileLocalStmt(n *ast.LocalStmt) {
	c.fs.curLine = n.Local.Line()
	c.compileExprListToRegs(n.Right, len(n.Names))
	fs := c.fs
	base := fs.regs.active - len(n.Names)
	for i, name := range n.Names {
		reg := base + i
		fs.localRegs[name.Binding.(*resolver.Binding).Decl] = reg
	}
	fs.regs.nactive = fs.regs.active
}

func (c *compiler) compileAssignStmt(n *ast.AssignStmt) {
	c.fs.curLine = line(n)
	if len(n.Left) == 1 {
		var val expDesc
		c.compileSingleExpr(n.Right, &val)
		c.assignTo(n.Left[0], &val)
		return
	}
	// Evaluate every target's table/key prefix before any value, since lumen
	// (like its model) evaluates assignment targets left-to-right before the
	// right-hand side is stored.
	targets := make([]expDesc, len(n.Left))
	for i, l := range n.Left {
		targets[i] = c.compileAssignTarget(l)
	}
	vals := make([]expDesc, len(n.Left))
	c.compileExprListN(n.Right, vals)
	for i := len(targets) - 1; i >= 0; i-- {
		c.storeInto(n.Left[i], &targets[i], &vals[i])
	}
}

// compileAssignTarget pre-evaluates the table+key portion of an assignable
// expression (everything except the final store), so later-evaluated
// right-hand sides can't observe a half-updated target.
func (c *compiler) compileAssignTarget(e ast.Expr) expDesc {
	switch t := e.(type) {
	case *ast.IdentExpr:
		var d expDesc
		c.compileIdent(t, &d)
		return d
	case *ast.DotExpr:
		var obj, key expDesc
		c.compileExpr(t.Left, &obj)
		key = expDesc{kind: expK, info: c.fs.k.string(t.Right.Lit), t: NoJump, f: NoJump}
		return c.fs.indexed(&obj, &key)
	case *ast.IndexExpr:
		var obj, key expDesc
		c.compileExpr(t.Prefix, &obj)
		c.compileExpr(t.Index, &key)
		return c.fs.indexed(&obj, &key)
	default:
		panic(fmt.Sprintf("compiler: %T is not assignable", e))
	}
}

func (c *compiler) assignTo(target ast.Expr, val *expDesc) {
	switch t := target.(type) {
	case *ast.IdentExpr:
		c.storeIdent(t, val)
	default:
		d := c.compileAssignTarget(target)
		c.storeInto(target, &d, val)
	}
}

func (c *compiler) storeInto(target ast.Expr, d, val *expDesc) {
	if _, ok := target.(*ast.IdentExpr); ok {
		c.storeIdent(target.(*ast.IdentExpr), val)
		return
	}
	reg := c.fs.exp2anyReg(val)
	c.fs.storeIndexed(d, reg)
	c.fs.freeExp(val)
}

func (c *compiler) storeIdent(id *ast.IdentExpr, val *expDesc) {
	b := id.Binding.(*resolver.Binding)
	fs := c.fs
	switch b.Scope {
	case resolver.Local, resolver.Cell:
		reg, ok := fs.localRegs[b.Decl]
		if !ok {
			panic("compiler: assignment to local with no assigned register: " + b.Name)
		}
		fs.exp2reg(val, reg)
	case resolver.Free:
		upv := fs.findUpval(b)
		r := fs.exp2anyReg(val)
		fs.emitABC(OP_SETUPVAL, r, upv, 0, false)
		fs.freeExp(val)
	case resolver.Universal:
		c.errorf(id.Start, "cannot assign to built-in %q", b.Name)
	default: // Undefined: treated as a write to the implicit global table
		r := fs.exp2anyReg(val)
		idx := fs.k.string(b.Name)
		fs.emitABC(OP_SETTABUP, envUpvalIndex(fs), idx, r, false)
		fs.freeExp(val)
	}
}

// envUpvalIndex returns the upvalue index of "_ENV", the implicit table
// every free (global) name indexes into, creating the synthetic upvalue on
// first use of a global within fs.
func envUpvalIndex(fs *funcState) int {
	for i, u := range fs.upvals {
		if u.name == "_ENV" {
			return i
		}
	}
	idx := len(fs.upvals)
	if fs.parent == nil {
		fs.upvals = append(fs.upvals, upvalDesc{name: "_ENV", inStack: false, index: 0})
	} else {
		fs.upvals = append(fs.upvals, upvalDesc{name: "_ENV", inStack: false, index: envUpvalIndex(fs.parent)})
	}
	return idx
}

func (c *compiler) compileWhileStmt(n *ast.WhileStmt) {
	fs := c.fs
	savedBreaks := fs.breaks
	fs.breaks = nil

	top := fs.markLabel()
	var cond expDesc
	c.fs.curLine = line(n.Cond)
	c.compileExpr(n.Cond, &cond)
	fs.goIfTrue(&cond)
	exitList := cond.f
	c.compileBlock(n.Body)
	fs.patchList(fs.jump(), top)
	fs.patchToHere(exitList)
	for _, b := range fs.breaks {
		fs.patchToHere(b)
	}
	fs.breaks = savedBreaks
}

func (c *compiler) compileNumForStmt(n *ast.NumForStmt) {
	fs := c.fs
	savedBreaks := fs.breaks
	fs.breaks = nil
	c.fs.curLine = line(n.Start)
	base := fs.regs.active

	var start, stop, step expDesc
	c.compileExpr(n.Start, &start)
	fs.exp2nextReg(&start)
	c.compileExpr(n.Stop, &stop)
	fs.exp2nextReg(&stop)
	if n.Step != nil {
		c.compileExpr(n.Step, &step)
		fs.exp2nextReg(&step)
	} else {
		one := expDesc{kind: expKInt, ival: 1, t: NoJump, f: NoJump}
		fs.exp2nextReg(&one)
	}
	fs.regs.reserve(1) // the visible loop variable, R[base+3]

	prep := fs.emitSJ(OP_FORPREP, 0, false)
	loopStart := fs.markLabel()

	fs.localRegs[n.Name.Binding.(*resolver.Binding).Decl] = base + 3
	savedActive, savedNActive := fs.regs.active, fs.regs.nactive
	fs.regs.nactive = base + 4
	c.compileBlock(n.Body)
	fs.regs.active, fs.regs.nactive = savedActive, savedNActive

	loopEnd := fs.emitSJ(OP_FORLOOP, 0, false)
	fs.code[loopEnd] = fs.code[loopEnd].setA(base)
	fs.fixJump(loopEnd, loopStart)
	fs.code[prep] = fs.code[prep].setA(base)
	fs.fixJump(prep, fs.pc()-1)

	for _, b := range fs.breaks {
		fs.patchToHere(b)
	}
	fs.breaks = savedBreaks

	fs.regs.active = base
	fs.regs.nactive = base
}

func (c *compiler) compileIfStmt(n *ast.IfStmt) {
	fs := c.fs
	c.fs.curLine = line(n.Cond)
	var cond expDesc
	c.compileExpr(n.Cond, &cond)
	fs.goIfTrue(&cond)
	thenSkip := cond.f
	c.compileBlock(n.Body)

	if n.ElseIf == nil && n.Else == nil {
		fs.patchToHere(thenSkip)
		return
	}
	escape := fs.jump()
	fs.patchToHere(thenSkip)
	switch {
	case n.ElseIf != nil:
		c.compileIfStmt(n.ElseIf)
	case n.Else != nil:
		c.compileBlock(n.Else)
	}
	fs.patchToHere(escape)
}

func (c *compiler) compileFuncStmt(n *ast.FuncStmt) {
	c.fs.curLine = n.Fn.Line()
	endLine := n.End.Line()
	fs := c.fs

	if n.Local.IsValid() {
		// Reserve and bind the local's register before compiling the body, so a
		// recursive reference to it inside the body resolves to this register
		// (possibly via an upvalue) rather than finding nothing bound yet.
		reg := fs.regs.reserve(1)
		fs.regs.nactive = fs.regs.active
		fs.localRegs[n.Target.Binding.(*resolver.Binding).Decl] = reg
		pc := c.compileFuncBody(n, n.Sig, n.Body, n.Recv != nil, n.Fn.Line(), endLine)
		fs.code[pc] = fs.code[pc].setA(reg)
		return
	}

	pc := c.compileFuncBody(n, n.Sig, n.Body, n.Recv != nil, n.Fn.Line(), endLine)
	closure := expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
	if n.Recv != nil {
		target := &ast.DotExpr{Left: n.Recv, Right: n.Method}
		var obj, key expDesc
		c.compileExpr(target.Left, &obj)
		key = expDesc{kind: expK, info: fs.k.string(target.Right.Lit), t: NoJump, f: NoJump}
		idx := fs.indexed(&obj, &key)
		c.storeInto(target, &idx, &closure)
		return
	}
	c.storeIdent(n.Target, &closure)
}

func (c *compiler) compileReturnStmt(n *ast.ReturnStmt) {
	c.fs.curLine = n.Return.Line()
	fs := c.fs
	if len(n.Right) == 0 {
		fs.emitReturn(0, 0, false)
		return
	}
	base := fs.regs.active
	nvals, multi := c.compileExprListOpen(n.Right)
	fs.emitReturn(base, nvals, multi)
}

func (c *compiler) compileBreakStmt(n *ast.BreakStmt) {
	c.fs.curLine = n.Start.Line()
	c.fs.breaks = append(c.fs.breaks, c.fs.jump())
}

// --- expression lists ---

// compileExprListToRegs evaluates exprs (an assignment/local right-hand
// side) and leaves exactly want values in freshly reserved consecutive
// registers, truncating or nil-padding as needed, expanding the last
// expression's multiple results or "..." only when it is itself last.
func (c *compiler) compileExprListToRegs(exprs []ast.Expr, want int) {
	fs := c.fs
	if len(exprs) == 0 {
		if want > 0 {
			reg := fs.reserveRegs(want)
			fs.emitABC(OP_LOADNIL, reg, want-1, 0, false)
			fs.mergeLoadNil(reg, want)
		}
		return
	}
	for i, e := range exprs[:len(exprs)-1] {
		if i >= want {
			var tmp expDesc
			c.compileExpr(e, &tmp)
			fs.exp2nextReg(&tmp)
			c.fs.freeExp(&tmp)
			continue
		}
		var d expDesc
		c.compileExpr(e, &d)
		fs.exp2nextReg(&d)
	}
	last := exprs[len(exprs)-1]
	remaining := want - (len(exprs) - 1)
	var d expDesc
	c.compileExpr(last, &d)
	if remaining <= 0 {
		if d.hasMultiRet() {
			setReturns(fs, &d, 1)
		}
		fs.exp2nextReg(&d)
		fs.freeExp(&d)
		return
	}
	if d.hasMultiRet() {
		setReturns(fs, &d, remaining)
		if d.kind == expCall {
			fs.regs.reserve(remaining - 1) // the CALL's base register is already reserved
		} else {
			fs.regs.reserve(remaining)
		}
		d.kind, d.info = expNonReloc, fs.regs.active-remaining
	} else {
		fs.exp2nextReg(&d)
		if remaining > 1 {
			reg := fs.reserveRegs(remaining - 1)
			fs.emitABC(OP_LOADNIL, reg, remaining-2, 0, false)
			fs.mergeLoadNil(reg, remaining-1)
		}
	}
}

// compileExprListN evaluates exprs into exactly len(out) fresh registers
// and fills out with NONRELOC descriptors pointing at them, used for
// multi-target assignment where each value needs to survive independently.
func (c *compiler) compileExprListN(exprs []ast.Expr, out []expDesc) {
	c.compileExprListToRegs(exprs, len(out))
	fs := c.fs
	base := fs.regs.active - len(out)
	for i := range out {
		out[i] = expDesc{kind: expNonReloc, info: base + i, t: NoJump, f: NoJump}
	}
}

// compileSingleExpr evaluates an expression list but keeps only its first
// value (the common case of `x = expr`). A single expression reserves no
// extra register; with more than one, the first value is held in one
// register while the rest are evaluated for their side effects and dropped.
func (c *compiler) compileSingleExpr(exprs []ast.Expr, out *expDesc) {
	if len(exprs) == 0 {
		*out = expDesc{kind: expNil, t: NoJump, f: NoJump}
		return
	}
	c.compileExpr(exprs[0], out)
	if len(exprs) == 1 {
		return
	}
	c.fs.exp2nextReg(out)
	for _, e := range exprs[1:] {
		var tmp expDesc
		c.compileExpr(e, &tmp)
		c.fs.exp2nextReg(&tmp)
		c.fs.freeExp(&tmp)
	}
}

// compileExprListOpen evaluates exprs into consecutive fresh registers
// starting at the allocator's current top, expanding the final expression
// fully open (all its results) if it is a call or "...". It returns the
// number of values placed by every expression except a fully-open final
// one, and whether the final expression is open.
func (c *compiler) compileExprListOpen(exprs []ast.Expr) (int, bool) {
	if len(exprs) == 0 {
		return 0, false
	}
	fs := c.fs
	n := 0
	for _, e := range exprs[:len(exprs)-1] {
		var d expDesc
		c.compileExpr(e, &d)
		fs.exp2nextReg(&d)
		n++
	}
	last := exprs[len(exprs)-1]
	var d expDesc
	c.compileExpr(last, &d)
	if d.hasMultiRet() {
		setReturns(fs, &d, -1)
		return n, true
	}
	fs.exp2nextReg(&d)
	n++
	return n, false
}

// setReturns patches a CALL or VARARG instruction's C (nresults+1) operand
// now that the caller knows how many results it actually wants: -1 means
// "all of them" (C=0), otherwise want+1. A VARARG also gets its A set to
// the allocator's current top, where its values land.
func setReturns(fs *funcState, e *expDesc, want int) {
	c := 0
	if want >= 0 {
		c = want + 1
	}
	pc := e.info
	if e.kind == expCall {
		pc = int(e.ival)
	} else {
		fs.code[pc] = fs.code[pc].setA(fs.regs.active)
	}
	fs.code[pc] = fs.code[pc].setC(c)
}
