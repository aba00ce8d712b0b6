package parser

import (
	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/token"
)

func (p *parser) parseBlock() *ast.Block {
	b := &ast.Block{Start: p.tok.Pos}
	for !blockFollow(p.tok.Tok) {
		if p.tok.Tok == token.RETURN {
			b.Stmts = append(b.Stmts, p.parseStmtRecover())
			break // return must be the last statement in a block
		}
		b.Stmts = append(b.Stmts, p.parseStmtRecover())
	}
	b.End = p.tok.Pos
	return b
}

func blockFollow(tok token.Token) bool {
	switch tok {
	case token.EOF, token.END, token.ELSE, token.ELSEIF:
		return true
	default:
		return false
	}
}

// startsStmt reports whether tok begins a new statement, used to resync
// after a parse error without swallowing the next good statement.
func startsStmt(tok token.Token) bool {
	switch tok {
	case token.LOCAL, token.IF, token.WHILE, token.DO, token.FOR,
		token.FUNCTION, token.BREAK, token.RETURN:
		return true
	default:
		return false
	}
}

// parseStmtRecover parses a single statement, recovering from panic-mode
// errors by skipping tokens until a likely statement boundary.
func (p *parser) parseStmtRecover() (stmt ast.Stmt) {
	start := p.tok.Pos
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			for !blockFollow(p.tok.Tok) && !startsStmt(p.tok.Tok) && p.tok.Tok != token.SEMI {
				p.advance()
			}
			if p.tok.Tok == token.SEMI {
				p.advance()
			}
			stmt = &ast.BadStmt{Start: start, End: p.tok.Pos}
		}
	}()
	return p.parseStmt()
}

func (p *parser) parseStmt() ast.Stmt {
	for p.tok.Tok == token.SEMI {
		p.advance()
	}
	switch p.tok.Tok {
	case token.LOCAL:
		local := p.tok.Pos
		p.advance()
		if p.tok.Tok == token.FUNCTION {
			return p.parseLocalFuncStmt(local)
		}
		return p.parseLocalStmt(local)
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.DO:
		return p.parseDoStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.FUNCTION:
		return p.parseFuncStmt()
	case token.BREAK:
		pos := p.tok.Pos
		p.advance()
		return &ast.BreakStmt{Start: pos}
	case token.RETURN:
		return p.parseReturnStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *parser) parseLocalStmt(local token.Pos) *ast.LocalStmt {
	st := &ast.LocalStmt{Local: local}
	st.Names = append(st.Names, p.ident())
	for {
		pos, ok := p.accept(token.COMMA)
		if !ok {
			break
		}
		st.NameCommas = append(st.NameCommas, pos)
		st.Names = append(st.Names, p.ident())
	}
	if pos, ok := p.accept(token.ASSIGN); ok {
		st.Assign = pos
		st.Right, st.RightCommas = p.exprList()
	}
	return st
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	return p.parseIfClause(true)
}

// parseIfClause parses one clause of an if/elseif chain. isFirst is true
// only for the outermost "if" keyword; nested calls consume "elseif".
func (p *parser) parseIfClause(isFirst bool) *ast.IfStmt {
	var ifPos token.Pos
	if isFirst {
		ifPos = p.expect(token.IF)
	} else {
		ifPos = p.expect(token.ELSEIF)
	}
	cond := p.parseExpr()
	then := p.expect(token.THEN)
	body := p.parseBlock()

	st := &ast.IfStmt{If: ifPos, Cond: cond, Then: then, Body: body}
	switch p.tok.Tok {
	case token.ELSEIF:
		st.ElseIf = p.parseIfClause(false)
		st.End = st.ElseIf.End
		return st
	case token.ELSE:
		p.advance()
		st.Else = p.parseBlock()
	}
	st.End = p.expect(token.END)
	return st
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	w := p.expect(token.WHILE)
	cond := p.parseExpr()
	do := p.expect(token.DO)
	body := p.parseBlock()
	end := p.expect(token.END)
	return &ast.WhileStmt{While: w, Cond: cond, Do: do, Body: body, End: end}
}

func (p *parser) parseDoStmt() *ast.DoStmt {
	do := p.expect(token.DO)
	body := p.parseBlock()
	end := p.expect(token.END)
	return &ast.DoStmt{Do: do, Body: body, End: end}
}

func (p *parser) parseForStmt() ast.Stmt {
	forPos := p.expect(token.FOR)
	name := p.ident()
	if p.tok.Tok == token.IN {
		p.errorExpected(p.tok.Pos, "'=' (for-in loops are not supported)")
		panic(errPanicMode)
	}
	p.expect(token.ASSIGN)
	start := p.parseExpr()
	p.expect(token.COMMA)
	stop := p.parseExpr()
	var step ast.Expr
	if _, ok := p.accept(token.COMMA); ok {
		step = p.parseExpr()
	}
	do := p.expect(token.DO)
	body := p.parseBlock()
	end := p.expect(token.END)
	return &ast.NumForStmt{For: forPos, Name: name, Start: start, Stop: stop, Step: step, Do: do, Body: body, End: end}
}

func (p *parser) parseFuncStmt() *ast.FuncStmt {
	fn := p.expect(token.FUNCTION)
	target := p.ident()

	st := &ast.FuncStmt{Fn: fn, Target: target}
	if _, ok := p.accept(token.COLON); ok {
		st.Recv = target
		st.Target = nil
		st.Method = p.ident()
	}
	st.Sig = p.parseFuncSignature()
	st.Body = p.parseBlock()
	st.End = p.expect(token.END)
	return st
}

// parseLocalFuncStmt handles "local function f(...) ... end", which unlike
// a plain LocalStmt declares its name before its body so the function can
// recurse.
func (p *parser) parseLocalFuncStmt(local token.Pos) *ast.FuncStmt {
	fn := p.expect(token.FUNCTION)
	target := p.ident()
	st := &ast.FuncStmt{Local: local, Fn: fn, Target: target}
	st.Sig = p.parseFuncSignature()
	st.Body = p.parseBlock()
	st.End = p.expect(token.END)
	return st
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	ret := p.expect(token.RETURN)
	st := &ast.ReturnStmt{Return: ret}
	if !blockFollow(p.tok.Tok) && p.tok.Tok != token.SEMI {
		st.Right, st.Commas = p.exprList()
	}
	p.accept(token.SEMI)
	return st
}

// parseExprOrAssignStmt parses either a call expression statement or an
// assignment statement, which share the same "suffixed expression" prefix.
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	first := p.parseSuffixedExpr()
	if p.tok.Tok != token.ASSIGN && p.tok.Tok != token.COMMA {
		if !ast.IsValidStmt(first) {
			start, _ := first.Span()
			p.error(start, "expression cannot be used as a statement")
		}
		return &ast.ExprStmt{Expr: first}
	}

	st := &ast.AssignStmt{Left: []ast.Expr{first}}
	for {
		pos, ok := p.accept(token.COMMA)
		if !ok {
			break
		}
		st.LeftCommas = append(st.LeftCommas, pos)
		st.Left = append(st.Left, p.parseSuffixedExpr())
	}
	st.Assign = p.expect(token.ASSIGN)
	st.Right, st.RightCommas = p.exprList()
	return st
}
