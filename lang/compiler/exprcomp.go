package compiler

import (
	"fmt"

	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/resolver"
	"github.com/mna/lumen/lang/token"
)

// compileExpr fills out with the descriptor for expr, without forcing it
// into any particular register — callers decide how (or whether) to
// materialize it via exp2reg/exp2anyReg/exp2nextReg.
func (c *compiler) compileExpr(expr ast.Expr, out *expDesc) {
	switch n := expr.(type) {
	case *ast.LiteralExpr:
		c.compileLiteral(n, out)
	case *ast.VarargExpr:
		c.compileVararg(n, out)
	case *ast.IdentExpr:
		c.compileIdent(n, out)
	case *ast.ParenExpr:
		c.compileExpr(n.Expr, out)
		// parens truncate a multi-value/jump expression to a single value
		if out.hasMultiRet() {
			setReturns(c.fs, out, 1)
		}
	case *ast.DotExpr:
		c.compileDotExpr(n, out)
	case *ast.IndexExpr:
		c.compileIndexExpr(n, out)
	case *ast.UnaryOpExpr:
		c.compileUnaryOp(n, out)
	case *ast.BinOpExpr:
		c.compileBinOp(n, out)
	case *ast.CallExpr:
		c.compileCallExpr(n, out)
	case *ast.MethodCallExpr:
		c.compileMethodCallExpr(n, out)
	case *ast.FuncExpr:
		c.compileFuncExpr(n, out)
	case *ast.TableExpr:
		c.compileTableExpr(n, out)
	case *ast.BadExpr:
		*out = expDesc{kind: expNil, t: NoJump, f: NoJump}
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", n))
	}
}

func (c *compiler) compileLiteral(n *ast.LiteralExpr, out *expDesc) {
	c.fs.curLine = n.Start.Line()
	switch n.Type {
	case token.NIL:
		*out = expDesc{kind: expNil, t: NoJump, f: NoJump}
	case token.TRUE:
		*out = expDesc{kind: expTrue, t: NoJump, f: NoJump}
	case token.FALSE:
		*out = expDesc{kind: expFalse, t: NoJump, f: NoJump}
	case token.INT:
		*out = expDesc{kind: expKInt, ival: n.Value.(int64), t: NoJump, f: NoJump}
	case token.FLOAT:
		*out = expDesc{kind: expKFlt, nval: n.Value.(float64), t: NoJump, f: NoJump}
	case token.STRING:
		idx := c.fs.k.string(n.Value.(string))
		*out = expDesc{kind: expK, info: idx, t: NoJump, f: NoJump}
	default:
		panic("compiler: unhandled literal type " + n.Type.String())
	}
}

func (c *compiler) compileVararg(n *ast.VarargExpr, out *expDesc) {
	c.fs.curLine = n.Start.Line()
	if !c.fs.fn.HasVararg {
		c.errorf(n.Start, "cannot use '...' outside a vararg function")
	}
	pc := c.fs.emitABC(OP_VARARG, 0, 0, 2, false)
	*out = expDesc{kind: expVararg, info: pc, t: NoJump, f: NoJump}
}

func (c *compiler) compileIdent(n *ast.IdentExpr, out *expDesc) {
	c.fs.curLine = n.Start.Line()
	b, _ := n.Binding.(*resolver.Binding)
	if b == nil {
		panic("compiler: identifier " + n.Lit + " was never resolved")
	}
	fs := c.fs
	switch b.Scope {
	case resolver.Local, resolver.Cell:
		reg, ok := fs.localRegs[b.Decl]
		if !ok {
			panic("compiler: local " + n.Lit + " has no assigned register")
		}
		*out = expDesc{kind: expLocal, info: reg, t: NoJump, f: NoJump}
	case resolver.Free:
		upv := fs.findUpval(b)
		*out = expDesc{kind: expUpval, info: upv, t: NoJump, f: NoJump}
	case resolver.Universal:
		idx := fs.k.string(n.Lit)
		*out = expDesc{kind: expIndexUp, ind: indexInfo{t: envUpvalIndex(fs), idx: idx}, t: NoJump, f: NoJump}
	default: // Undefined: a free/global name, read through _ENV
		idx := fs.k.string(n.Lit)
		*out = expDesc{kind: expIndexUp, ind: indexInfo{t: envUpvalIndex(fs), idx: idx}, t: NoJump, f: NoJump}
	}
}

func (c *compiler) compileDotExpr(n *ast.DotExpr, out *expDesc) {
	c.fs.curLine = n.Dot.Line()
	var obj expDesc
	c.compileExpr(n.Left, &obj)
	key := expDesc{kind: expK, info: c.fs.k.string(n.Right.Lit), t: NoJump, f: NoJump}
	*out = c.fs.indexed(&obj, &key)
}

func (c *compiler) compileIndexExpr(n *ast.IndexExpr, out *expDesc) {
	c.fs.curLine = n.Lbrack.Line()
	var obj, key expDesc
	c.compileExpr(n.Prefix, &obj)
	c.compileExpr(n.Index, &key)
	*out = c.fs.indexed(&obj, &key)
}

func (c *compiler) compileUnaryOp(n *ast.UnaryOpExpr, out *expDesc) {
	c.fs.curLine = n.Op.Line()
	var e expDesc
	c.compileExpr(n.Right, &e)
	if n.Type == token.NOT {
		*out = c.fs.codeNot(&e)
		return
	}
	*out = c.fs.codeUnop(n.Type, &e)
}

func (c *compiler) compileBinOp(n *ast.BinOpExpr, out *expDesc) {
	switch n.Type {
	case token.AND:
		var left expDesc
		c.compileExpr(n.Left, &left)
		c.fs.curLine = n.Op.Line()
		c.fs.infixAnd(&left)
		var right expDesc
		c.compileExpr(n.Right, &right)
		*out = c.fs.posfixAnd(&left, &right)
		return
	case token.OR:
		var left expDesc
		c.compileExpr(n.Left, &left)
		c.fs.curLine = n.Op.Line()
		c.fs.infixOr(&left)
		var right expDesc
		c.compileExpr(n.Right, &right)
		*out = c.fs.posfixOr(&left, &right)
		return
	}

	var left expDesc
	c.compileExpr(n.Left, &left)
	c.fs.exp2val(&left)
	if n.Type == token.DOTDOT {
		// ".." needs its left operand in the register just below the right one
		c.fs.exp2nextReg(&left)
	}
	var right expDesc
	c.compileExpr(n.Right, &right)
	c.fs.exp2val(&right)
	c.fs.curLine = n.Op.Line()

	switch {
	case n.Type.IsBinArith():
		switch n.Type {
		case token.LTLT:
			*out = c.fs.codeShift(true, &left, &right)
		case token.GTGT:
			*out = c.fs.codeShift(false, &left, &right)
		default:
			*out = c.fs.codeArith(n.Type, &left, &right)
		}
	case n.Type.IsCompare():
		*out = c.fs.codeCompare(n.Type, &left, &right)
	case n.Type == token.DOTDOT:
		*out = c.fs.codeConcat(&left, &right)
	default:
		panic("compiler: unhandled binary operator " + n.Type.String())
	}
}

// --- calls ---

func (c *compiler) compileCallExpr(n *ast.CallExpr, out *expDesc) {
	fs := c.fs
	c.fs.curLine = n.Lparen.Line()
	var fn expDesc
	c.compileExpr(n.Fn, &fn)
	fs.exp2nextReg(&fn)
	base := fn.info

	nargs, open := c.compileExprListOpen(argsOrEmpty(n.Args))
	b := nargs + 1
	if open {
		b = 0
	}
	pc := fs.emitABC(OP_CALL, base, b, 2, false)
	fs.regs.active = base + 1
	*out = expDesc{kind: expCall, info: base, t: NoJump, f: NoJump, ival: int64(pc)}
}

func argsOrEmpty(args []ast.Expr) []ast.Expr {
	if args == nil {
		return []ast.Expr{}
	}
	return args
}

func (c *compiler) compileMethodCallExpr(n *ast.MethodCallExpr, out *expDesc) {
	fs := c.fs
	c.fs.curLine = n.Colon.Line()
	var recv expDesc
	c.compileExpr(n.Recv, &recv)
	fs.exp2anyReg(&recv)
	base := fs.reserveRegs(2) // function goes in base, self in base+1
	midx := fs.k.string(n.Method.Lit)
	fs.emitABC(OP_SELF, base, recv.info, midx, false)
	fs.regs.active = base + 2

	nargs, open := c.compileExprListOpen(argsOrEmpty(n.Args))
	b := nargs + 2 // +1 for the implicit self already in base+1
	if open {
		b = 0
	}
	pc := fs.emitABC(OP_CALL, base, b, 2, false)
	fs.regs.active = base + 1
	*out = expDesc{kind: expCall, info: base, t: NoJump, f: NoJump, ival: int64(pc)}
}

func (c *compiler) compileFuncExpr(n *ast.FuncExpr, out *expDesc) {
	c.fs.curLine = n.Fn.Line()
	pc := c.compileFuncBody(n, n.Sig, n.Body, false, n.Fn.Line(), n.End.Line())
	*out = expDesc{kind: expReloc, info: pc, t: NoJump, f: NoJump}
}

// --- table constructors ---

func (c *compiler) compileTableExpr(n *ast.TableExpr, out *expDesc) {
	fs := c.fs
	c.fs.curLine = n.Lbrace.Line()
	tableReg := fs.reserveRegs(1)
	fs.emitABC(OP_NEWTABLE, tableReg, 0, 0, false)

	arrayIdx := 0
	pending := 0
	flushBase := tableReg + 1
	for i, field := range n.Fields {
		isLast := i == len(n.Fields)-1
		if field.Key == nil {
			var v expDesc
			c.compileExpr(field.Value, &v)
			if isLast && v.hasMultiRet() {
				setReturns(fs, &v, -1)
				fs.regs.active = flushBase + pending
				fs.emitABC(OP_SETLIST, tableReg, 0, arrayIdx+1, false)
				arrayIdx = 0
				pending = 0
				continue
			}
			fs.exp2nextReg(&v)
			pending++
			arrayIdx++
			if pending >= 50 {
				fs.regs.active = flushBase + pending
				fs.emitABC(OP_SETLIST, tableReg, pending, arrayIdx-pending+1, false)
				fs.regs.active = tableReg + 1
				pending = 0
				flushBase = tableReg + 1
			}
			continue
		}
		if pending > 0 {
			fs.emitABC(OP_SETLIST, tableReg, pending, arrayIdx-pending+1, false)
			fs.regs.active = tableReg + 1
			pending = 0
			flushBase = tableReg + 1
		}
		var key expDesc
		if id, ok := field.Key.(*ast.IdentExpr); ok && field.Lbrack == 0 {
			key = expDesc{kind: expK, info: fs.k.string(id.Lit), t: NoJump, f: NoJump}
		} else {
			c.compileExpr(field.Key, &key)
		}
		var val expDesc
		c.compileExpr(field.Value, &val)
		t := expDesc{kind: expNonReloc, info: tableReg, t: NoJump, f: NoJump}
		idxD := fs.indexed(&t, &key)
		vreg := fs.exp2anyReg(&val)
		fs.storeIndexed(&idxD, vreg)
		fs.freeExp(&val)
	}
	if pending > 0 {
		fs.regs.active = flushBase + pending
		fs.emitABC(OP_SETLIST, tableReg, pending, arrayIdx-pending+1, false)
	}
	fs.regs.active = tableReg + 1
	*out = expDesc{kind: expNonReloc, info: tableReg, t: NoJump, f: NoJump}
}
