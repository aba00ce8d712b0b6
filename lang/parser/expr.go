package parser

import (
	"github.com/mna/lumen/lang/ast"
	"github.com/mna/lumen/lang/token"
)

func (p *parser) parseExpr() ast.Expr {
	return p.parseSubExpr(0)
}

const unopPriority = 12

func isUnop(tok token.Token) bool {
	switch tok {
	case token.MINUS, token.NOT, token.HASH, token.TILDE:
		return true
	default:
		return false
	}
}

func binPriority(tok token.Token) (left, right int, ok bool) {
	switch tok {
	case token.OR:
		return 1, 1, true
	case token.AND:
		return 2, 2, true
	case token.LT, token.LE, token.GT, token.GE, token.EQ, token.NEQ:
		return 3, 3, true
	case token.PIPE:
		return 4, 4, true
	case token.TILDE:
		return 5, 5, true
	case token.AMPERSAND:
		return 6, 6, true
	case token.LTLT, token.GTGT:
		return 7, 7, true
	case token.DOTDOT:
		return 9, 8, true // right-associative
	case token.PLUS, token.MINUS:
		return 10, 10, true
	case token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT:
		return 11, 11, true
	case token.CIRCUMFLEX:
		return 14, 13, true // right-associative
	default:
		return 0, 0, false
	}
}

func (p *parser) parseSubExpr(limit int) ast.Expr {
	var left ast.Expr
	if isUnop(p.tok.Tok) {
		op := p.tok
		p.advance()
		left = &ast.UnaryOpExpr{Type: op.Tok, Op: op.Pos, Right: p.parseSubExpr(unopPriority)}
	} else {
		left = p.parseSimpleExpr()
	}

	for {
		lp, rp, ok := binPriority(p.tok.Tok)
		if !ok || lp <= limit {
			break
		}
		op := p.tok
		p.advance()
		right := p.parseSubExpr(rp)
		left = &ast.BinOpExpr{Left: left, Type: op.Tok, Op: op.Pos, Right: right}
	}
	return left
}

func (p *parser) parseSimpleExpr() ast.Expr {
	switch p.tok.Tok {
	case token.NIL, token.TRUE, token.FALSE, token.INT, token.FLOAT, token.STRING:
		return p.parseLiteral()
	case token.DOTS:
		pos := p.tok.Pos
		p.advance()
		return &ast.VarargExpr{Start: pos}
	case token.FUNCTION:
		return p.parseFuncExpr()
	case token.LBRACE:
		return p.parseTableExpr()
	default:
		return p.parseSuffixedExpr()
	}
}

func (p *parser) parseLiteral() *ast.LiteralExpr {
	tok := p.tok
	var val any
	switch tok.Tok {
	case token.INT:
		val = tok.Int
	case token.FLOAT:
		val = tok.Float
	case token.STRING:
		val = tok.Str
	}
	p.advance()
	return &ast.LiteralExpr{Type: tok.Tok, Start: tok.Pos, Raw: tok.Raw, Value: val}
}

// parsePrimaryExpr parses an identifier or a parenthesized expression, the
// leftmost component of a suffixed expression.
func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok.Tok {
	case token.IDENT:
		return p.ident()
	case token.LPAREN:
		lp := p.tok.Pos
		p.advance()
		e := p.parseExpr()
		rp := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lp, Expr: e, Rparen: rp}
	default:
		p.errorExpected(p.tok.Pos, "expression")
		panic(errPanicMode)
	}
}

// parseSuffixedExpr parses a primary expression followed by any number of
// '.field', '[index]', ':method(args)' or '(args)' suffixes.
func (p *parser) parseSuffixedExpr() ast.Expr {
	e := p.parsePrimaryExpr()
	for {
		switch p.tok.Tok {
		case token.DOT:
			dot := p.tok.Pos
			p.advance()
			e = &ast.DotExpr{Left: e, Dot: dot, Right: p.ident()}
		case token.LBRACK:
			lb := p.tok.Pos
			p.advance()
			idx := p.parseExpr()
			rb := p.expect(token.RBRACK)
			e = &ast.IndexExpr{Prefix: e, Lbrack: lb, Index: idx, Rbrack: rb}
		case token.COLON:
			colon := p.tok.Pos
			p.advance()
			method := p.ident()
			args, commas, lp, rp := p.parseCallArgs()
			e = &ast.MethodCallExpr{Recv: e, Colon: colon, Method: method, Lparen: lp, Args: args, Commas: commas, Rparen: rp}
		case token.LPAREN, token.STRING, token.LBRACE:
			args, commas, lp, rp := p.parseCallArgs()
			e = &ast.CallExpr{Fn: e, Lparen: lp, Args: args, Commas: commas, Rparen: rp}
		default:
			return e
		}
	}
}

// parseCallArgs parses a call's arguments, accepting the three Lua call
// forms: f(a, b), f"string" and f{table}.
func (p *parser) parseCallArgs() (args []ast.Expr, commas []token.Pos, lparen, rparen token.Pos) {
	switch p.tok.Tok {
	case token.STRING:
		lit := p.parseLiteral()
		return []ast.Expr{lit}, nil, 0, 0
	case token.LBRACE:
		tbl := p.parseTableExpr()
		return []ast.Expr{tbl}, nil, 0, 0
	case token.LPAREN:
		lp := p.tok.Pos
		p.advance()
		if p.tok.Tok == token.RPAREN {
			rp := p.tok.Pos
			p.advance()
			return nil, nil, lp, rp
		}
		args, commas = p.exprList()
		rp := p.expect(token.RPAREN)
		return args, commas, lp, rp
	default:
		p.errorExpected(p.tok.Pos, "function arguments")
		panic(errPanicMode)
	}
}

func (p *parser) parseFuncExpr() *ast.FuncExpr {
	fn := p.expect(token.FUNCTION)
	sig := p.parseFuncSignature()
	body := p.parseBlock()
	end := p.expect(token.END)
	return &ast.FuncExpr{Fn: fn, Sig: sig, Body: body, End: end}
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	lp := p.expect(token.LPAREN)
	sig := &ast.FuncSignature{Lparen: lp}
	for p.tok.Tok != token.RPAREN {
		if p.tok.Tok == token.DOTS {
			sig.DotDotDot = p.tok.Pos
			p.advance()
			break
		}
		sig.Params = append(sig.Params, p.ident())
		if pos, ok := p.accept(token.COMMA); ok {
			sig.Commas = append(sig.Commas, pos)
			continue
		}
		break
	}
	sig.Rparen = p.expect(token.RPAREN)
	return sig
}

func (p *parser) parseTableExpr() *ast.TableExpr {
	lb := p.expect(token.LBRACE)
	tbl := &ast.TableExpr{Lbrace: lb}
	for p.tok.Tok != token.RBRACE {
		tbl.Fields = append(tbl.Fields, p.parseTableField())
		if pos, ok := p.accept(token.COMMA); ok {
			tbl.Commas = append(tbl.Commas, pos)
			continue
		}
		if pos, ok := p.accept(token.SEMI); ok {
			tbl.Commas = append(tbl.Commas, pos)
			continue
		}
		break
	}
	tbl.Rbrace = p.expect(token.RBRACE)
	return tbl
}

func (p *parser) parseTableField() *ast.TableField {
	switch {
	case p.tok.Tok == token.LBRACK:
		lb := p.tok.Pos
		p.advance()
		key := p.parseExpr()
		p.expect(token.RBRACK)
		assign := p.expect(token.ASSIGN)
		val := p.parseExpr()
		return &ast.TableField{Lbrack: lb, Key: key, Assign: assign, Value: val}
	case p.tok.Tok == token.IDENT:
		// disambiguate `name = expr` from a bare expression starting with an
		// identifier by checking the token after it.
		id := p.ident()
		if p.tok.Tok == token.ASSIGN {
			assign := p.tok.Pos
			p.advance()
			val := p.parseExpr()
			return &ast.TableField{Key: id, Assign: assign, Value: val}
		}
		val := p.parseSuffixedTail(id)
		return &ast.TableField{Value: val}
	default:
		return &ast.TableField{Value: p.parseExpr()}
	}
}

// parseSuffixedTail continues parsing a suffixed/binary expression whose
// primary component (an identifier) has already been consumed, used by
// parseTableField's lookahead for `name = expr` vs. a bare expression.
func (p *parser) parseSuffixedTail(id *ast.IdentExpr) ast.Expr {
	var e ast.Expr = id
	for {
		switch p.tok.Tok {
		case token.DOT:
			dot := p.tok.Pos
			p.advance()
			e = &ast.DotExpr{Left: e, Dot: dot, Right: p.ident()}
		case token.LBRACK:
			lb := p.tok.Pos
			p.advance()
			idx := p.parseExpr()
			rb := p.expect(token.RBRACK)
			e = &ast.IndexExpr{Prefix: e, Lbrack: lb, Index: idx, Rbrack: rb}
		case token.COLON:
			colon := p.tok.Pos
			p.advance()
			method := p.ident()
			args, commas, lp, rp := p.parseCallArgs()
			e = &ast.MethodCallExpr{Recv: e, Colon: colon, Method: method, Lparen: lp, Args: args, Commas: commas, Rparen: rp}
		case token.LPAREN, token.STRING, token.LBRACE:
			args, commas, lp, rp := p.parseCallArgs()
			e = &ast.CallExpr{Fn: e, Lparen: lp, Args: args, Commas: commas, Rparen: rp}
		default:
			return p.continueBinExpr(e, 0)
		}
	}
}

func (p *parser) continueBinExpr(left ast.Expr, limit int) ast.Expr {
	for {
		lp, rp, ok := binPriority(p.tok.Tok)
		if !ok || lp <= limit {
			break
		}
		op := p.tok
		p.advance()
		right := p.parseSubExpr(rp)
		left = &ast.BinOpExpr{Left: left, Type: op.Tok, Op: op.Pos, Right: right}
	}
	return left
}
