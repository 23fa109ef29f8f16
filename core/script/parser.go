package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser builds an AST from a token stream. It is a recursive descent
// parser with one precedence level per function, mirroring the operator
// table: assignment is right associative, ?: nests on the right, and **
// binds tighter than unary minus.
type Parser struct {
	toks []Token
	pos  int
	err  *SyntaxError
}

// Parse compiles source text into a Program.
func Parse(src string) (*Program, error) {
	toks, lerr := Tokens(src)
	if lerr != nil {
		return nil, lerr
	}
	p := &Parser{toks: toks}
	prog := &Program{}
	for !p.at(EOF) {
		st := p.parseStmt()
		if p.err != nil {
			return nil, p.err
		}
		if st != nil {
			prog.Mains = append(prog.Mains, st)
		}
	}
	// Pull compile phases out of the main line.
	var mains []Stmt
	for _, st := range prog.Mains {
		switch s := st.(type) {
		case *phaseStmt:
			if s.end {
				prog.Ends = append(prog.Ends, s.body)
			} else {
				prog.Begins = append(prog.Begins, s.body)
			}
		default:
			mains = append(mains, st)
		}
	}
	prog.Mains = mains
	return prog, nil
}

// phaseStmt is a BEGIN or END block before hoisting.
type phaseStmt struct {
	base
	end  bool
	body *Block
}

func (*phaseStmt) stmtNode() {}

func (p *Parser) cur() Token { return p.toks[p.pos] }

func (p *Parser) peek(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(types ...TokenType) bool {
	t := p.cur().Type
	for _, w := range types {
		if t == w {
			return true
		}
	}
	return false
}

func (p *Parser) accept(t TokenType) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) Token {
	if p.at(t) {
		return p.next()
	}
	tok := p.cur()
	if tok.Type == EOF {
		p.errorf(tok, "unexpected end of input, expected %s", t)
	} else {
		p.errorf(tok, "expected %s, found %s", t, tok)
	}
	return tok
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) {
	if p.err == nil {
		p.err = &SyntaxError{
			Msg:  fmt.Sprintf(format, args...),
			Line: tok.Line,
			Col:  tok.Col,
		}
	}
}

func (p *Parser) pos0(tok Token) base { return base{Line: tok.Line} }

// --- Statements ---

func (p *Parser) parseStmt() Stmt {
	tok := p.cur()
	switch tok.Type {
	case SEMI:
		p.next()
		return nil
	case USE:
		// use strict; use warnings; and friends are accepted and ignored.
		p.next()
		for !p.at(SEMI, EOF) {
			p.next()
		}
		p.accept(SEMI)
		return nil
	case SUB:
		if p.peek(1).Type == IDENT {
			p.next()
			name := p.next().Text
			body := p.parseBlock()
			p.accept(SEMI)
			return &SubDecl{base: p.pos0(tok), Name: name, Body: body}
		}
	case BEGINBLK, ENDBLK:
		p.next()
		body := p.parseBlock()
		p.accept(SEMI)
		return &phaseStmt{base: p.pos0(tok), end: tok.Type == ENDBLK, body: body}
	case IF, UNLESS:
		return p.parseIf()
	case WHILE, UNTIL:
		p.next()
		p.expect(LPAREN)
		cond := p.parseExprList(RPAREN)
		p.expect(RPAREN)
		body := p.parseBlock()
		return &WhileStmt{base: p.pos0(tok), Cond: cond, Body: body, Until: tok.Type == UNTIL}
	case FOR, FOREACH:
		return p.parseFor()
	case DO:
		if p.peek(1).Type == LBRACE {
			return p.parseDoStmt()
		}
	case LAST, NEXT:
		p.next()
		st := Stmt(&LoopCtl{base: p.pos0(tok), Op: tok.Type})
		return p.finishSimpleStmt(st, tok)
	case RETURN:
		p.next()
		var val Expr
		if !p.at(SEMI, RBRACE, EOF, IF, UNLESS, WHILE, UNTIL, FOR, FOREACH) {
			val = p.parseExprList(SEMI)
		}
		st := Stmt(&ReturnStmt{base: p.pos0(tok), Val: val})
		return p.finishSimpleStmt(st, tok)
	case LBRACE:
		body := p.parseBlock()
		p.accept(SEMI)
		return &BlockStmt{base: p.pos0(tok), Body: body}
	}

	x := p.parseExprList(SEMI)
	if p.err != nil {
		return nil
	}
	st := &ExprStmt{base: p.pos0(tok), X: x}
	return p.finishSimpleStmt(st, tok)
}

// finishSimpleStmt attaches a trailing statement modifier and consumes the
// terminating semicolon.
func (p *Parser) finishSimpleStmt(st Stmt, tok Token) Stmt {
	mod := ModNone
	switch p.cur().Type {
	case IF:
		mod = ModIf
	case UNLESS:
		mod = ModUnless
	case WHILE:
		mod = ModWhile
	case UNTIL:
		mod = ModUntil
	case FOR, FOREACH:
		mod = ModForeach
	}
	if mod != ModNone {
		p.next()
		cond := p.parseExprList(SEMI)
		var inner Expr
		if es, ok := st.(*ExprStmt); ok {
			inner = es.X
		} else {
			// last/next/return with a modifier.
			inner = &stmtExpr{base: p.pos0(tok), Stmt: st}
		}
		st = &ExprStmt{base: p.pos0(tok), X: inner, Mod: mod, Cond: cond}
	}
	if !p.at(RBRACE, EOF) {
		p.expect(SEMI)
	}
	return st
}

// stmtExpr wraps a control statement so it can carry a modifier:
// `last if $done;` and `return 1 unless @rest;`.
type stmtExpr struct {
	base
	Stmt Stmt
}

func (*stmtExpr) exprNode() {}

func (p *Parser) parseIf() Stmt {
	tok := p.next() // if or unless
	p.expect(LPAREN)
	cond := p.parseExprList(RPAREN)
	p.expect(RPAREN)
	then := p.parseBlock()
	st := &IfStmt{base: p.pos0(tok), Cond: cond, Then: then, Unless: tok.Type == UNLESS}
	for p.at(ELSIF) {
		p.next()
		p.expect(LPAREN)
		c := p.parseExprList(RPAREN)
		p.expect(RPAREN)
		b := p.parseBlock()
		st.Elifs = append(st.Elifs, IfClause{Cond: c, Then: b})
	}
	if p.accept(ELSE) {
		st.Else = p.parseBlock()
	}
	return st
}

func (p *Parser) parseFor() Stmt {
	tok := p.next() // for or foreach

	// C-style: a semicolon at paren depth 1 before the closing paren.
	if p.cur().Type == LPAREN && p.cStyleForAhead() {
		p.expect(LPAREN)
		var init, cond, update Expr
		if !p.at(SEMI) {
			init = p.parseExprList(SEMI)
		}
		p.expect(SEMI)
		if !p.at(SEMI) {
			cond = p.parseExprList(SEMI)
		}
		p.expect(SEMI)
		if !p.at(RPAREN) {
			update = p.parseExprList(RPAREN)
		}
		p.expect(RPAREN)
		body := p.parseBlock()
		return &ForStmt{base: p.pos0(tok), Init: init, Cond: cond, Update: update, Body: body}
	}

	var loopVar Expr
	if p.at(MY) {
		myTok := p.next()
		v := p.parseSigilVar()
		loopVar = &MyDecl{base: p.pos0(myTok), Vars: []*Var{v}}
	} else if p.at(SCALARVAR) {
		vt := p.next()
		loopVar = &Var{base: p.pos0(vt), Sigil: '$', Name: vt.Text}
	}
	p.expect(LPAREN)
	var list []Expr
	for !p.at(RPAREN, EOF) {
		list = append(list, p.parseAssign())
		if !p.accept(COMMA) && !p.accept(FATCOMMA) {
			break
		}
	}
	p.expect(RPAREN)
	body := p.parseBlock()
	return &ForeachStmt{base: p.pos0(tok), Var: loopVar, List: list, Body: body}
}

func (p *Parser) cStyleForAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
			if depth == 0 {
				return false
			}
		case SEMI:
			if depth == 1 {
				return true
			}
		case EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseDoStmt() Stmt {
	tok := p.next() // do
	body := p.parseBlock()
	switch p.cur().Type {
	case WHILE, UNTIL:
		u := p.next().Type == UNTIL
		var cond Expr
		if p.accept(LPAREN) {
			cond = p.parseExprList(RPAREN)
			p.expect(RPAREN)
		} else {
			cond = p.parseExprList(SEMI)
		}
		if !p.at(RBRACE, EOF) {
			p.expect(SEMI)
		}
		return &WhileStmt{base: p.pos0(tok), Cond: cond, Body: body, Until: u, Post: true}
	}
	p.accept(SEMI)
	return &BlockStmt{base: p.pos0(tok), Body: body}
}

func (p *Parser) parseBlock() *Block {
	tok := p.expect(LBRACE)
	b := &Block{base: p.pos0(tok)}
	for !p.at(RBRACE, EOF) {
		if st := p.parseStmt(); st != nil {
			b.Stmts = append(b.Stmts, st)
		}
		if p.err != nil {
			return b
		}
	}
	p.expect(RBRACE)
	return b
}

func (p *Parser) parseSigilVar() *Var {
	tok := p.cur()
	switch tok.Type {
	case SCALARVAR:
		p.next()
		return &Var{base: p.pos0(tok), Sigil: '$', Name: tok.Text}
	case ARRAYVAR:
		p.next()
		return &Var{base: p.pos0(tok), Sigil: '@', Name: tok.Text}
	case HASHVAR:
		p.next()
		return &Var{base: p.pos0(tok), Sigil: '%', Name: tok.Text}
	}
	p.errorf(tok, "expected variable, found %s", tok)
	return &Var{base: p.pos0(tok), Sigil: '$', Name: "_"}
}

// --- Expressions ---

// parseExprList parses a comma separated list up to the terminator,
// collapsing a single element to itself.
func (p *Parser) parseExprList(term TokenType) Expr {
	tok := p.cur()
	var elems []Expr
	for {
		if p.at(term, EOF, RPAREN, RBRACE, RBRACKET, SEMI, IF, UNLESS, WHILE, UNTIL, FOR, FOREACH) {
			break
		}
		elems = append(elems, p.parseLowOr())
		if p.err != nil {
			return &ListExpr{base: p.pos0(tok)}
		}
		if !p.accept(COMMA) && !p.accept(FATCOMMA) {
			break
		}
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return &ListExpr{base: p.pos0(tok), Elems: elems}
}

func (p *Parser) parseLowOr() Expr {
	l := p.parseLowAnd()
	for p.at(OR) {
		tok := p.next()
		r := p.parseLowAnd()
		l = &Binary{base: p.pos0(tok), Op: OROR, L: l, R: r}
	}
	return l
}

func (p *Parser) parseLowAnd() Expr {
	l := p.parseLowNot()
	for p.at(AND) {
		tok := p.next()
		r := p.parseLowNot()
		l = &Binary{base: p.pos0(tok), Op: ANDAND, L: l, R: r}
	}
	return l
}

func (p *Parser) parseLowNot() Expr {
	if p.at(LOWNOT) {
		tok := p.next()
		return &Unary{base: p.pos0(tok), Op: NOT, Operand: p.parseLowNot()}
	}
	return p.parseAssign()
}

var assignOps = map[TokenType]bool{
	ASSIGN: true, PLUSEQ: true, MINUSEQ: true, STAREQ: true, SLASHEQ: true,
	DOTEQ: true, PERCENTEQ: true, POWEREQ: true, REPEATEQ: true,
	ANDANDEQ: true, OROREQ: true, DEFOREQ: true,
	BITANDEQ: true, BITOREQ: true, BITXOREQ: true, SHLEQ: true, SHREQ: true,
}

func (p *Parser) parseAssign() Expr {
	l := p.parseTernary()
	if assignOps[p.cur().Type] {
		tok := p.next()
		r := p.parseAssign()
		return &Assign{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseRange()
	if p.at(QUESTION) {
		tok := p.next()
		then := p.parseAssign()
		p.expect(COLON)
		els := p.parseAssign()
		return &Ternary{base: p.pos0(tok), Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *Parser) parseRange() Expr {
	l := p.parseOrOr()
	if p.at(RANGE) {
		tok := p.next()
		r := p.parseOrOr()
		return &Binary{base: p.pos0(tok), Op: RANGE, L: l, R: r}
	}
	return l
}

func (p *Parser) parseOrOr() Expr {
	l := p.parseAndAnd()
	for p.at(OROR, DEFOR) {
		tok := p.next()
		r := p.parseAndAnd()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseAndAnd() Expr {
	l := p.parseBitOr()
	for p.at(ANDAND) {
		tok := p.next()
		r := p.parseBitOr()
		l = &Binary{base: p.pos0(tok), Op: ANDAND, L: l, R: r}
	}
	return l
}

func (p *Parser) parseBitOr() Expr {
	l := p.parseBitAnd()
	for p.at(BITOR, BITXOR) {
		tok := p.next()
		r := p.parseBitAnd()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseBitAnd() Expr {
	l := p.parseEquality()
	for p.at(BITAND) {
		tok := p.next()
		r := p.parseEquality()
		l = &Binary{base: p.pos0(tok), Op: BITAND, L: l, R: r}
	}
	return l
}

func (p *Parser) parseEquality() Expr {
	l := p.parseRelational()
	for p.at(NUMEQ, NUMNE, NUMCMP, STREQ, STRNE, STRCMP) {
		tok := p.next()
		r := p.parseRelational()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseRelational() Expr {
	l := p.parseShift()
	for p.at(NUMLT, NUMGT, NUMLE, NUMGE, STRLT, STRGT, STRLE, STRGE) {
		tok := p.next()
		r := p.parseShift()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseShift() Expr {
	l := p.parseAdditive()
	for p.at(SHL, SHR) {
		tok := p.next()
		r := p.parseAdditive()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseAdditive() Expr {
	l := p.parseMultiplicative()
	for p.at(PLUS, MINUS, DOT) {
		tok := p.next()
		r := p.parseMultiplicative()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

func (p *Parser) parseMultiplicative() Expr {
	l := p.parseMatchBind()
	for p.at(STAR, SLASH, PERCENT, REPEAT) {
		tok := p.next()
		r := p.parseMatchBind()
		l = &Binary{base: p.pos0(tok), Op: tok.Type, L: l, R: r}
	}
	return l
}

// parseMatchBind handles expr =~ // and expr !~ //.
func (p *Parser) parseMatchBind() Expr {
	l := p.parseUnary()
	for p.at(MATCH, NOTMATCH) {
		tok := p.next()
		neg := tok.Type == NOTMATCH
		rt := p.cur()
		switch rt.Type {
		case REGEX:
			p.next()
			re := &RegexLit{base: p.pos0(rt), Pattern: rt.Text, Flags: rt.Flags}
			l = &Match{base: p.pos0(tok), Target: l, Re: re, Negate: neg}
		case SUBST:
			p.next()
			l = &Subst{base: p.pos0(tok), Target: l, Pattern: rt.Text, Replacement: rt.Aux, Flags: rt.Flags}
			if neg {
				l = &Unary{base: p.pos0(tok), Op: NOT, Operand: l}
			}
		case TRANS:
			p.next()
			l = &Trans{base: p.pos0(tok), Target: l, From: rt.Text, To: rt.Aux, Flags: rt.Flags}
			if neg {
				l = &Unary{base: p.pos0(tok), Op: NOT, Operand: l}
			}
		default:
			// Bind against a pattern held in a variable or expression.
			r := p.parseUnary()
			l = &Match{base: p.pos0(tok), Target: l, PatExpr: r, Negate: neg}
		}
	}
	return l
}

var fileTestOps = map[string]bool{
	"e": true, "f": true, "d": true, "s": true, "z": true,
	"r": true, "w": true, "x": true,
}

func (p *Parser) parseUnary() Expr {
	tok := p.cur()
	switch tok.Type {
	case NOT:
		p.next()
		return &Unary{base: p.pos0(tok), Op: NOT, Operand: p.parseUnary()}
	case MINUS:
		// File tests look like subtraction of a one-letter bareword.
		if nt := p.peek(1); nt.Type == IDENT && fileTestOps[nt.Text] {
			switch p.peek(2).Type {
			case SCALARVAR, STRING, LPAREN, IDENT:
				p.next()
				p.next()
				return &FileTest{base: p.pos0(tok), Op: nt.Text[0], Operand: p.parseUnary()}
			}
		}
		p.next()
		return &Unary{base: p.pos0(tok), Op: MINUS, Operand: p.parseUnary()}
	case PLUS:
		p.next()
		return p.parseUnary()
	case BACKSLASH:
		p.next()
		if p.at(AMP) {
			p.next()
			name := p.expect(IDENT)
			return &SubRef{base: p.pos0(tok), Name: name.Text}
		}
		return &RefOf{base: p.pos0(tok), Operand: p.parseUnary()}
	case INC, DEC:
		p.next()
		return &IncDec{base: p.pos0(tok), Op: tok.Type, Prefix: true, Operand: p.parseUnary()}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() Expr {
	l := p.parsePostfix()
	if p.at(POWER) {
		tok := p.next()
		r := p.parseUnary() // right associative, allows 2**-3
		return &Binary{base: p.pos0(tok), Op: POWER, L: l, R: r}
	}
	return l
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	if p.err != nil {
		return x
	}
	subscripted := false
	for {
		tok := p.cur()
		switch tok.Type {
		case LBRACKET:
			if v, ok := x.(*Var); ok && v.Sigil == '$' && !subscripted {
				p.next()
				idx := p.parseExprList(RBRACKET)
				p.expect(RBRACKET)
				x = &Elem{base: p.pos0(tok), Base: v, Index: idx}
				subscripted = true
				continue
			}
			if v, ok := x.(*Var); ok && v.Sigil == '@' {
				p.next()
				idx := p.parseSubscriptList(RBRACKET)
				p.expect(RBRACKET)
				x = &Slice{base: p.pos0(tok), Base: v, Index: idx}
				subscripted = true
				continue
			}
			if d, ok := x.(*Deref); ok && !subscripted {
				p.next()
				if d.Sigil == '@' {
					idx := p.parseSubscriptList(RBRACKET)
					p.expect(RBRACKET)
					x = &Slice{base: p.pos0(tok), Base: d, Index: idx}
				} else {
					idx := p.parseExprList(RBRACKET)
					p.expect(RBRACKET)
					x = &Elem{base: p.pos0(tok), Base: d, Index: idx}
				}
				subscripted = true
				continue
			}
			if subscripted {
				// Implicit arrow: $m[0][1].
				p.next()
				idx := p.parseExprList(RBRACKET)
				p.expect(RBRACKET)
				x = &Elem{base: p.pos0(tok), Base: x, Index: idx, Arrow: true}
				continue
			}
		case LBRACE:
			if v, ok := x.(*Var); ok && v.Sigil == '$' && !subscripted {
				p.next()
				key := p.parseHashKey()
				p.expect(RBRACE)
				x = &Elem{base: p.pos0(tok), Base: v, Index: key, Hash: true}
				subscripted = true
				continue
			}
			if v, ok := x.(*Var); ok && v.Sigil == '@' {
				p.next()
				idx := p.parseSubscriptList(RBRACE)
				p.expect(RBRACE)
				x = &Slice{base: p.pos0(tok), Base: v, Index: idx, Hash: true}
				subscripted = true
				continue
			}
			if d, ok := x.(*Deref); ok && !subscripted {
				p.next()
				if d.Sigil == '@' {
					idx := p.parseSubscriptList(RBRACE)
					p.expect(RBRACE)
					x = &Slice{base: p.pos0(tok), Base: d, Index: idx, Hash: true}
				} else {
					key := p.parseHashKey()
					p.expect(RBRACE)
					x = &Elem{base: p.pos0(tok), Base: d, Index: key, Hash: true}
				}
				subscripted = true
				continue
			}
			if subscripted {
				p.next()
				key := p.parseHashKey()
				p.expect(RBRACE)
				x = &Elem{base: p.pos0(tok), Base: x, Index: key, Hash: true, Arrow: true}
				continue
			}
		case ARROW:
			p.next()
			at := p.cur()
			switch at.Type {
			case LBRACKET:
				p.next()
				idx := p.parseExprList(RBRACKET)
				p.expect(RBRACKET)
				x = &Elem{base: p.pos0(at), Base: x, Index: idx, Arrow: true}
				subscripted = true
				continue
			case LBRACE:
				p.next()
				key := p.parseHashKey()
				p.expect(RBRACE)
				x = &Elem{base: p.pos0(at), Base: x, Index: key, Hash: true, Arrow: true}
				subscripted = true
				continue
			case LPAREN:
				p.next()
				var args []Expr
				if !p.at(RPAREN) {
					args = p.flattenList(p.parseExprList(RPAREN))
				}
				p.expect(RPAREN)
				x = &CallRef{base: p.pos0(at), Callee: x, Args: args}
				continue
			default:
				p.errorf(at, "expected subscript or argument list after ->")
				return x
			}
		case INC, DEC:
			p.next()
			return &IncDec{base: p.pos0(tok), Op: tok.Type, Operand: x}
		}
		return x
	}
}

// parseSubscriptList parses slice subscripts, which are lists.
func (p *Parser) parseSubscriptList(term TokenType) []Expr {
	var out []Expr
	for !p.at(term, EOF) {
		if p.at(IDENT) && (p.peek(1).Type == COMMA || p.peek(1).Type == FATCOMMA || p.peek(1).Type == term) {
			t := p.next()
			out = append(out, &StringLit{base: p.pos0(t), Text: t.Text})
		} else {
			out = append(out, p.parseAssign())
		}
		if !p.accept(COMMA) && !p.accept(FATCOMMA) {
			break
		}
	}
	return out
}

// keywordAsWord returns the source spelling for tokens that double as
// bareword hash keys: $h{x}, $h{if}, {eq => 1}.
func keywordAsWord(t Token) (string, bool) {
	switch t.Type {
	case IDENT:
		return t.Text, true
	case REPEAT, STREQ, STRNE, STRLT, STRGT, STRLE, STRGE, STRCMP,
		MY, SUB, IF, ELSIF, ELSE, UNLESS, WHILE, UNTIL, FOR, FOREACH,
		DO, LAST, NEXT, RETURN, AND, OR, LOWNOT, USE:
		return t.Type.String(), true
	}
	return "", false
}

// parseHashKey parses a brace subscript body, auto-quoting barewords.
func (p *Parser) parseHashKey() Expr {
	tok := p.cur()
	if w, ok := keywordAsWord(tok); ok && p.peek(1).Type == RBRACE {
		p.next()
		return &StringLit{base: p.pos0(tok), Text: w}
	}
	if tok.Type == MINUS && p.peek(1).Type == IDENT && p.peek(2).Type == RBRACE {
		p.next()
		t := p.next()
		return &StringLit{base: p.pos0(tok), Text: "-" + t.Text}
	}
	return p.parseExprList(RBRACE)
}

// flattenList splats a ListExpr into its elements.
func (p *Parser) flattenList(x Expr) []Expr {
	if lst, ok := x.(*ListExpr); ok {
		return lst.Elems
	}
	return []Expr{x}
}

// exprStart reports whether a token can begin an expression, used to decide
// whether a parenless builtin has arguments.
func exprStart(t Token) bool {
	switch t.Type {
	case NUMBER, STRING, IDENT, SCALARVAR, ARRAYVAR, HASHVAR, ARRAYLAST,
		REGEX, SUBST, TRANS, QWLIST, READLINE, LPAREN, LBRACKET,
		BACKSLASH, AMP, NOT, MINUS, PLUS, INC, DEC, MY, DO, SUB, LOWNOT:
		return true
	}
	return false
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Type {
	case NUMBER:
		p.next()
		v, err := parseNumberLiteral(tok.Text)
		if err != nil {
			p.errorf(tok, "malformed number %q", tok.Text)
		}
		return &NumberLit{base: p.pos0(tok), Val: v}

	case STRING:
		p.next()
		lit := &StringLit{base: p.pos0(tok), Text: tok.Text, Interp: tok.Interp}
		if tok.Aux == "qx" {
			return &Call{base: p.pos0(tok), Name: "qx", Args: []Expr{lit}}
		}
		return lit

	case QWLIST:
		p.next()
		lst := &ListExpr{base: p.pos0(tok)}
		for _, w := range strings.Fields(tok.Text) {
			lst.Elems = append(lst.Elems, &StringLit{base: p.pos0(tok), Text: w})
		}
		return lst

	case SCALARVAR:
		p.next()
		if tok.Text == "" {
			return &Deref{base: p.pos0(tok), Sigil: '$', Operand: p.parseDerefBody()}
		}
		return &Var{base: p.pos0(tok), Sigil: '$', Name: tok.Text}

	case ARRAYVAR:
		p.next()
		if tok.Text == "" {
			return &Deref{base: p.pos0(tok), Sigil: '@', Operand: p.parseDerefBody()}
		}
		return &Var{base: p.pos0(tok), Sigil: '@', Name: tok.Text}

	case HASHVAR:
		p.next()
		if tok.Text == "" {
			return &Deref{base: p.pos0(tok), Sigil: '%', Operand: p.parseDerefBody()}
		}
		return &Var{base: p.pos0(tok), Sigil: '%', Name: tok.Text}

	case ARRAYLAST:
		p.next()
		if tok.Text == "" {
			return &LastIndex{base: p.pos0(tok), Base: p.parseDerefBody()}
		}
		return &LastIndex{base: p.pos0(tok), Base: &Var{base: p.pos0(tok), Sigil: '@', Name: tok.Text}}

	case REGEX:
		p.next()
		re := &RegexLit{base: p.pos0(tok), Pattern: tok.Text, Flags: tok.Flags}
		if tok.Aux == "qr" {
			return re
		}
		// A bare pattern matches $_.
		return &Match{base: p.pos0(tok), Re: re}

	case SUBST:
		p.next()
		return &Subst{base: p.pos0(tok), Pattern: tok.Text, Replacement: tok.Aux, Flags: tok.Flags}

	case TRANS:
		p.next()
		return &Trans{base: p.pos0(tok), From: tok.Text, To: tok.Aux, Flags: tok.Flags}

	case READLINE:
		p.next()
		rl := &ReadLine{base: p.pos0(tok)}
		if strings.HasPrefix(tok.Text, "$") {
			rl.Var = &Var{base: p.pos0(tok), Sigil: '$', Name: tok.Text[1:]}
		} else {
			rl.Handle = tok.Text
		}
		return rl

	case LPAREN:
		p.next()
		if p.accept(RPAREN) {
			return &ListExpr{base: p.pos0(tok)}
		}
		x := p.parseExprList(RPAREN)
		p.expect(RPAREN)
		// Parens force list-ness for assignment targets and repeats:
		// (1) x 3 builds a list.
		if _, ok := x.(*ListExpr); !ok {
			if p.at(ASSIGN) || p.at(REPEAT) {
				x = &ListExpr{base: p.pos0(tok), Elems: []Expr{x}}
			}
		}
		return x

	case LBRACKET:
		p.next()
		var elems []Expr
		if !p.at(RBRACKET) {
			elems = p.flattenList(p.parseExprList(RBRACKET))
		}
		p.expect(RBRACKET)
		return &AnonArray{base: p.pos0(tok), Elems: elems}

	case LBRACE:
		p.next()
		var elems []Expr
		for !p.at(RBRACE, EOF) {
			if w, ok := keywordAsWord(p.cur()); ok && p.peek(1).Type == FATCOMMA {
				t := p.next()
				elems = append(elems, &StringLit{base: p.pos0(t), Text: w})
			} else {
				elems = append(elems, p.parseAssign())
			}
			if !p.accept(COMMA) && !p.accept(FATCOMMA) {
				break
			}
		}
		p.expect(RBRACE)
		return &AnonHash{base: p.pos0(tok), Elems: elems}

	case SUB:
		p.next()
		body := p.parseBlock()
		return &AnonSub{base: p.pos0(tok), Body: body}

	case DO:
		p.next()
		body := p.parseBlock()
		return &doExpr{base: p.pos0(tok), Body: body}

	case MY:
		p.next()
		decl := &MyDecl{base: p.pos0(tok)}
		if p.accept(LPAREN) {
			for !p.at(RPAREN, EOF) {
				decl.Vars = append(decl.Vars, p.parseSigilVar())
				if !p.accept(COMMA) {
					break
				}
			}
			p.expect(RPAREN)
			return &ListExpr{base: p.pos0(tok), Elems: []Expr{decl}}
		}
		decl.Vars = append(decl.Vars, p.parseSigilVar())
		return decl

	case AMP:
		p.next()
		if p.at(SCALARVAR) {
			callee := p.parsePrimary()
			var args []Expr
			if p.accept(LPAREN) {
				if !p.at(RPAREN) {
					args = p.flattenList(p.parseExprList(RPAREN))
				}
				p.expect(RPAREN)
			}
			return &CallRef{base: p.pos0(tok), Callee: callee, Args: args}
		}
		name := p.expect(IDENT)
		call := &Call{base: p.pos0(tok), Name: name.Text, Amp: true}
		if p.accept(LPAREN) {
			if !p.at(RPAREN) {
				call.Args = p.flattenList(p.parseExprList(RPAREN))
			}
			p.expect(RPAREN)
		}
		return call

	case IDENT:
		return p.parseCall()

	case NUMLT:
		// Only reachable when the lexer could not form a READLINE;
		// treat as an error rather than a stray comparison.
		p.errorf(tok, "unexpected <")
		return &ListExpr{base: p.pos0(tok)}
	}

	if tok.Type == EOF {
		p.errorf(tok, "unexpected end of input")
	} else {
		p.errorf(tok, "unexpected %s", tok)
	}
	return &ListExpr{base: p.pos0(tok)}
}

// doExpr is a do { ... } block in expression position; its value is the
// value of the last statement.
type doExpr struct {
	base
	Body *Block
}

func (*doExpr) exprNode() {}

// parseDerefBody parses the target of a sigil dereference: a variable,
// ${name}-style block, or chained $$$ref.
func (p *Parser) parseDerefBody() Expr {
	tok := p.cur()
	switch tok.Type {
	case LBRACE:
		p.next()
		x := p.parseExprList(RBRACE)
		p.expect(RBRACE)
		return x
	case SCALARVAR:
		p.next()
		if tok.Text == "" {
			return &Deref{base: p.pos0(tok), Sigil: '$', Operand: p.parseDerefBody()}
		}
		return &Var{base: p.pos0(tok), Sigil: '$', Name: tok.Text}
	}
	p.errorf(tok, "expected variable or block after sigil")
	return &ListExpr{base: p.pos0(tok)}
}

// Builtins that take a leading block: sort { } @x, map { } @x, grep { } @x.
var blockBuiltins = map[string]bool{"sort": true, "map": true, "grep": true, "eval": true}

// Builtins that take exactly one optional argument at named-unary
// precedence when called without parens.
var namedUnary = map[string]bool{
	"defined": true, "ref": true, "scalar": true, "length": true,
	"lc": true, "uc": true, "lcfirst": true, "ucfirst": true,
	"chomp": true, "chop": true, "chr": true, "ord": true, "hex": true,
	"oct": true, "int": true, "abs": true, "sqrt": true, "log": true,
	"exp": true, "rand": true, "srand": true, "exit": true, "quotemeta": true,
	"shift": true, "pop": true, "keys": true, "values": true, "each": true,
	"undef": true, "sleep": true, "localtime": true, "gmtime": true,
	"to_json": true, "from_json": true, "dumper": true,
}

func (p *Parser) parseCall() Expr {
	tok := p.next() // IDENT
	name := tok.Text

	// Bareword before => is a string.
	if p.at(FATCOMMA) {
		return &StringLit{base: p.pos0(tok), Text: name}
	}

	call := &Call{base: p.pos0(tok), Name: name}

	if blockBuiltins[name] && p.at(LBRACE) {
		call.Block = p.parseBlock()
		call.Args = p.parseCallArgs()
		return call
	}

	if p.accept(LPAREN) {
		if !p.at(RPAREN) {
			call.Args = p.flattenList(p.parseExprList(RPAREN))
		}
		p.expect(RPAREN)
		return call
	}

	// print/printf/say accept a leading filehandle with no comma.
	if name == "print" || name == "printf" || name == "say" {
		if h, ok := p.tryFilehandle(); ok {
			call.Handle = h
		}
	}

	if _, isBuiltin := builtinNames[name]; !isBuiltin {
		// Unknown bareword with no parens: a user sub call like `main;`
		// or a filehandle bareword left for the evaluator.
		return call
	}

	if !exprStart(p.cur()) {
		return call
	}

	if namedUnary[name] {
		call.Args = []Expr{p.parseAdditive()}
		return call
	}

	call.Args = p.parseCallArgs()
	return call
}

// parseCallArgs parses the comma list after a parenless list operator.
// Elements stop short of `and`/`or`, so `push @a, $x or die` applies the
// `or` to the push.
func (p *Parser) parseCallArgs() []Expr {
	var out []Expr
	for exprStart(p.cur()) {
		out = append(out, p.parseAssign())
		if p.err != nil {
			return out
		}
		if !p.accept(COMMA) && !p.accept(FATCOMMA) {
			break
		}
	}
	return out
}

// tryFilehandle recognizes `print STDERR ...` and `print $fh ...`: a
// handle term followed directly by an argument with no comma.
func (p *Parser) tryFilehandle() (Expr, bool) {
	tok := p.cur()
	switch tok.Type {
	case IDENT:
		if tok.Text == strings.ToUpper(tok.Text) && tok.Text != "" && exprStart(p.peek(1)) {
			if _, isBuiltin := builtinNames[tok.Text]; !isBuiltin {
				p.next()
				return &StringLit{base: p.pos0(tok), Text: tok.Text}, true
			}
		}
	case SCALARVAR:
		if tok.Text != "" {
			switch p.peek(1).Type {
			case STRING, NUMBER, SCALARVAR, ARRAYVAR, HASHVAR:
				p.next()
				return &Var{base: p.pos0(tok), Sigil: '$', Name: tok.Text}, true
			}
		}
	case LBRACE:
		// print { $fh } LIST
		if p.peek(1).Type == SCALARVAR && p.peek(2).Type == RBRACE {
			p.next()
			v := p.next()
			p.next()
			return &Var{base: p.pos0(v), Sigil: '$', Name: v.Text}, true
		}
	}
	return nil, false
}

func parseNumberLiteral(text string) (float64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		n, err := strconv.ParseUint(text[2:], 16, 64)
		return float64(n), err
	}
	if strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B") {
		n, err := strconv.ParseUint(text[2:], 2, 64)
		return float64(n), err
	}
	if len(text) > 1 && text[0] == '0' && !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseUint(text[1:], 8, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(text, 64)
}
