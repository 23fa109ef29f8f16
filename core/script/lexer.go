package script

import (
	"fmt"
	"strings"
)

// Lexer turns source text into a token stream.
//
// Like any Perl-family lexer it is stateful: whether `/` starts a regex or
// divides, and whether `%` is a sigil or the modulus operator, depends on
// whether an operand or an operator is expected at that point.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int

	// expectOperand is true when the next token should be a value
	// (start of expression, after an operator) and false after a
	// complete operand.
	expectOperand bool

	// braces records, for each open `{`, whether the matching `}`
	// completes an operand (hash subscript, anon hash) or a block.
	braces []braceKind

	// prevType is the last token handed out, used to tell a hash
	// subscript brace from a statement block brace.
	prevType TokenType

	err *SyntaxError
}

type braceKind int

const (
	braceBlock braceKind = iota
	braceOperand
)

// SyntaxError reports a lexing or parsing failure with its source position.
type SyntaxError struct {
	Msg  string
	Line int
	Col  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

// Incomplete reports whether the error is due to the source ending in the
// middle of a construct (unclosed string, brace, or regex). The REPL uses
// this to keep reading lines instead of failing.
func (e *SyntaxError) Incomplete() bool {
	return strings.HasPrefix(e.Msg, "unexpected end of input")
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1, expectOperand: true}
}

func (l *Lexer) errorf(line, col int, format string, args ...interface{}) Token {
	if l.err == nil {
		l.err = &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
	}
	return Token{Type: ILLEGAL, Line: line, Col: col}
}

// Err returns the first error encountered, if any.
func (l *Lexer) Err() *SyntaxError { return l.err }

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// punctuation variables allowed after $: $_ handled as word, these are the rest.
const punctVars = "./\\,;?!&\"@'`0123456789"

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// Next returns the next token. After an error it returns ILLEGAL forever.
func (l *Lexer) Next() Token {
	t := l.scan()
	if t.Type != EOF && t.Type != ILLEGAL {
		l.prevType = t.Type
	}
	return t
}

func (l *Lexer) scan() Token {
	if l.err != nil {
		return Token{Type: ILLEGAL, Line: l.err.Line, Col: l.err.Col}
	}
	l.skipSpaceAndComments()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Line: line, Col: col}
	}

	c := l.peek()
	switch {
	case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
		return l.lexNumber(line, col)
	case c == '\'':
		return l.lexString(line, col, '\'', '\'', false)
	case c == '"':
		return l.lexString(line, col, '"', '"', true)
	case c == '`':
		return l.lexBacktick(line, col)
	case c == '$':
		return l.lexScalar(line, col)
	case c == '@':
		return l.lexArray(line, col)
	case c == '%':
		if l.expectOperand && l.sigilFollows(1) {
			return l.lexHash(line, col)
		}
		return l.lexOperator(line, col)
	case c == '/':
		if l.expectOperand {
			l.advance()
			return l.lexRegexBody(line, col, '/', matchingDelim('/'), "regex")
		}
		return l.lexOperator(line, col)
	case c == '<':
		if l.expectOperand {
			if tok, ok := l.tryReadline(line, col); ok {
				return tok
			}
		}
		return l.lexOperator(line, col)
	case isWordStart(c):
		return l.lexWord(line, col)
	default:
		return l.lexOperator(line, col)
	}
}

// sigilFollows reports whether the byte at offset looks like the start of a
// variable name, so `%h`, `%{`, `%$r` lex as hashes while `% ` stays modulus.
func (l *Lexer) sigilFollows(off int) bool {
	c := l.peekAt(off)
	return isWordStart(c) || c == '{' || c == '$'
}

func (l *Lexer) lexNumber(line, col int) Token {
	start := l.pos
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X' || l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		for isWordChar(l.peek()) {
			l.advance()
		}
	} else {
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		if l.peek() == '.' && isDigit(l.peekAt(1)) {
			l.advance()
			for isDigit(l.peek()) || l.peek() == '_' {
				l.advance()
			}
		}
		if c := l.peek(); c == 'e' || c == 'E' {
			if n := l.peekAt(1); isDigit(n) || ((n == '+' || n == '-') && isDigit(l.peekAt(2))) {
				l.advance()
				if l.peek() == '+' || l.peek() == '-' {
					l.advance()
				}
				for isDigit(l.peek()) {
					l.advance()
				}
			}
		}
	}
	text := strings.ReplaceAll(l.src[start:l.pos], "_", "")
	l.expectOperand = false
	return Token{Type: NUMBER, Text: text, Line: line, Col: col}
}

func (l *Lexer) lexString(line, col int, open, close byte, interp bool) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return l.errorf(line, col, "unexpected end of input in string")
		}
		c := l.advance()
		if c == close {
			break
		}
		if c == '\\' {
			if l.pos >= len(l.src) {
				return l.errorf(line, col, "unexpected end of input in string")
			}
			e := l.advance()
			if interp {
				sb.WriteString(resolveEscape(e))
			} else {
				// Single quotes only escape the quote and backslash.
				if e == close || e == '\\' {
					sb.WriteByte(e)
				} else {
					sb.WriteByte('\\')
					sb.WriteByte(e)
				}
			}
			continue
		}
		sb.WriteByte(c)
	}
	l.expectOperand = false
	return Token{Type: STRING, Text: sb.String(), Interp: interp, Line: line, Col: col}
}

// resolveEscape expands a double-quote escape. Interpolation of variables
// happens later, so \$ and \@ are kept as two-byte sequences for that pass.
func resolveEscape(e byte) string {
	switch e {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case 'e':
		return "\x1b"
	case 'a':
		return "\a"
	case 'f':
		return "\f"
	case '$', '@':
		return "\\" + string(e)
	default:
		return string(e)
	}
}

func (l *Lexer) lexScalar(line, col int) Token {
	l.advance() // $
	c := l.peek()
	switch {
	case c == '#':
		// $#array or $#{...} / $#$ref: highest index.
		l.advance()
		if isWordStart(l.peek()) {
			name := l.scanWord()
			l.expectOperand = false
			return Token{Type: ARRAYLAST, Text: name, Line: line, Col: col}
		}
		if l.peek() == '{' || l.peek() == '$' {
			l.expectOperand = true
			return Token{Type: ARRAYLAST, Text: "", Line: line, Col: col}
		}
		return l.errorf(line, col, "expected array name after $#")
	case isWordStart(c):
		name := l.scanWord()
		l.expectOperand = false
		return Token{Type: SCALARVAR, Text: name, Line: line, Col: col}
	case isDigit(c):
		// Capture groups $1..$9 and the program name $0.
		var sb strings.Builder
		for isDigit(l.peek()) {
			sb.WriteByte(l.advance())
		}
		l.expectOperand = false
		return Token{Type: SCALARVAR, Text: sb.String(), Line: line, Col: col}
	case c == '{':
		// ${name} or a dereference block ${...}.
		if isWordStart(l.peekAt(1)) {
			save := l.pos
			l.advance()
			name := l.scanWord()
			if l.peek() == '}' {
				l.advance()
				l.expectOperand = false
				return Token{Type: SCALARVAR, Text: name, Line: line, Col: col}
			}
			l.pos = save
		}
		l.expectOperand = true
		return Token{Type: SCALARVAR, Text: "", Line: line, Col: col}
	case c == '$':
		// $$ref dereference.
		l.expectOperand = true
		return Token{Type: SCALARVAR, Text: "", Line: line, Col: col}
	case strings.IndexByte(punctVars, c) >= 0:
		l.advance()
		l.expectOperand = false
		return Token{Type: SCALARVAR, Text: string(c), Line: line, Col: col}
	default:
		return l.errorf(line, col, "expected variable name after $")
	}
}

func (l *Lexer) lexArray(line, col int) Token {
	l.advance() // @
	c := l.peek()
	switch {
	case isWordStart(c):
		name := l.scanWord()
		l.expectOperand = false
		return Token{Type: ARRAYVAR, Text: name, Line: line, Col: col}
	case c == '{' || c == '$':
		l.expectOperand = true
		return Token{Type: ARRAYVAR, Text: "", Line: line, Col: col}
	default:
		return l.errorf(line, col, "expected variable name after @")
	}
}

func (l *Lexer) lexHash(line, col int) Token {
	l.advance() // %
	c := l.peek()
	switch {
	case isWordStart(c):
		name := l.scanWord()
		l.expectOperand = false
		return Token{Type: HASHVAR, Text: name, Line: line, Col: col}
	case c == '{' || c == '$':
		l.expectOperand = true
		return Token{Type: HASHVAR, Text: "", Line: line, Col: col}
	default:
		return l.errorf(line, col, "expected variable name after %%")
	}
}

func (l *Lexer) scanWord() string {
	start := l.pos
	for isWordChar(l.peek()) {
		l.advance()
	}
	return l.src[start:l.pos]
}

func (l *Lexer) tryReadline(line, col int) (Token, bool) {
	// <>, <STDIN>, <$fh> and nothing else; otherwise `<` is less-than.
	i := l.pos + 1
	if i < len(l.src) && l.src[i] == '$' {
		i++
		if i >= len(l.src) || !isWordStart(l.src[i]) {
			return Token{}, false
		}
	}
	j := i
	for j < len(l.src) && isWordChar(l.src[j]) {
		j++
	}
	if j >= len(l.src) || l.src[j] != '>' {
		return Token{}, false
	}
	handle := l.src[l.pos+1 : j]
	for l.pos <= j {
		l.advance()
	}
	l.expectOperand = false
	return Token{Type: READLINE, Text: handle, Line: line, Col: col}, true
}

func matchingDelim(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	default:
		return open
	}
}

// scanDelimited reads one delimited section of a quote-like construct,
// leaving escape sequences intact for the regex translator.
func (l *Lexer) scanDelimited(line, col int, open, close byte) (string, bool) {
	var sb strings.Builder
	depth := 1
	for {
		if l.pos >= len(l.src) {
			l.errorf(line, col, "unexpected end of input in pattern")
			return "", false
		}
		c := l.advance()
		if c == '\\' && l.pos < len(l.src) {
			e := l.advance()
			// An escaped delimiter becomes the bare character.
			if e == close && open == close {
				sb.WriteByte(e)
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(e)
			}
			continue
		}
		if open != close && c == open {
			depth++
		}
		if c == close {
			depth--
			if depth == 0 {
				return sb.String(), true
			}
		}
		sb.WriteByte(c)
	}
}

func (l *Lexer) scanRegexFlags() string {
	start := l.pos
	for {
		switch l.peek() {
		case 'g', 'i', 'm', 's', 'x', 'e', 'r', 'd', 'c':
			l.advance()
		default:
			return l.src[start:l.pos]
		}
	}
}

func (l *Lexer) lexRegexBody(line, col int, open, close byte, what string) Token {
	pat, ok := l.scanDelimited(line, col, open, close)
	if !ok {
		return Token{Type: ILLEGAL, Line: line, Col: col}
	}
	flags := l.scanRegexFlags()
	l.expectOperand = false
	return Token{Type: REGEX, Text: pat, Flags: flags, Aux: what, Line: line, Col: col}
}

// lexQuoteLike handles m//, s///, tr///, y///, q//, qq//, qw// once the
// keyword has been consumed.
func (l *Lexer) lexQuoteLike(word string, line, col int) Token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return l.errorf(line, col, "unexpected end of input after %s", word)
	}
	open := l.advance()
	if isWordChar(open) || open == '=' {
		return l.errorf(line, col, "missing delimiter after %s", word)
	}
	close := matchingDelim(open)

	switch word {
	case "m", "qr":
		return l.lexRegexBody(line, col, open, close, word)
	case "q", "qq":
		body, ok := l.scanDelimited(line, col, open, close)
		if !ok {
			return Token{Type: ILLEGAL, Line: line, Col: col}
		}
		interp := word == "qq"
		if !interp {
			body = strings.ReplaceAll(body, "\\\\", "\\")
		} else {
			body = unescapeInterpBody(body)
		}
		l.expectOperand = false
		return Token{Type: STRING, Text: body, Interp: interp, Line: line, Col: col}
	case "qw":
		body, ok := l.scanDelimited(line, col, open, close)
		if !ok {
			return Token{Type: ILLEGAL, Line: line, Col: col}
		}
		l.expectOperand = false
		return Token{Type: QWLIST, Text: body, Line: line, Col: col}
	case "s", "tr", "y":
		pat, ok := l.scanDelimited(line, col, open, close)
		if !ok {
			return Token{Type: ILLEGAL, Line: line, Col: col}
		}
		if open != close {
			// Bracketing delimiters open a fresh pair: s{a}{b}.
			l.skipSpaceAndComments()
			if l.pos >= len(l.src) {
				return l.errorf(line, col, "unexpected end of input in %s", word)
			}
			open = l.advance()
			close = matchingDelim(open)
		}
		rep, ok := l.scanDelimited(line, col, open, close)
		if !ok {
			return Token{Type: ILLEGAL, Line: line, Col: col}
		}
		flags := l.scanRegexFlags()
		l.expectOperand = false
		typ := SUBST
		if word == "tr" || word == "y" {
			typ = TRANS
		}
		return Token{Type: typ, Text: pat, Aux: rep, Flags: flags, Line: line, Col: col}
	}
	return l.errorf(line, col, "unknown quote-like operator %s", word)
}

// lexBacktick reads `command` as an interpolating string tagged for the
// qx builtin.
func (l *Lexer) lexBacktick(line, col int) Token {
	t := l.lexString(line, col, '`', '`', true)
	if t.Type == STRING {
		t.Aux = "qx"
	}
	return t
}

// unescapeInterpBody applies double-quote escape resolution to a body that
// was scanned raw (used for qq).
func unescapeInterpBody(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			sb.WriteString(resolveEscape(s[i+1]))
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func (l *Lexer) lexWord(line, col int) Token {
	word := l.scanWord()

	// Quote-like operators take a delimiter, not a call list.
	switch word {
	case "m", "s", "tr", "y", "q", "qq", "qw", "qr":
		if l.quoteLikeAhead() {
			return l.lexQuoteLike(word, line, col)
		}
	}

	if typ, ok := keywords[word]; ok {
		switch typ {
		case REPEAT:
			// x= is a compound assignment.
			if l.peek() == '=' && l.peekAt(1) != '=' {
				l.advance()
				l.expectOperand = true
				return Token{Type: REPEATEQ, Line: line, Col: col}
			}
			l.expectOperand = true
			return Token{Type: REPEAT, Line: line, Col: col}
		case STREQ, STRNE, STRLT, STRGT, STRLE, STRGE, STRCMP, AND, OR, LOWNOT:
			l.expectOperand = true
			return Token{Type: typ, Line: line, Col: col}
		default:
			l.expectOperand = true
			return Token{Type: typ, Text: word, Line: line, Col: col}
		}
	}

	// A known builtin name is a prefix: an operand may follow, so
	// `split /,/, $s` lexes the slash as a pattern. Unknown barewords
	// (hash keys, filehandles) complete an operand.
	if _, ok := builtinNames[word]; ok {
		l.expectOperand = true
	} else {
		l.expectOperand = false
	}
	return Token{Type: IDENT, Text: word, Line: line, Col: col}
}

// quoteLikeAhead reports whether the next non-space byte can open a
// quote-like delimiter. This keeps hash keys like {s => 1} and calls like
// s() from colliding where possible: a following comma, fat comma, or
// closer means the word was a plain identifier.
func (l *Lexer) quoteLikeAhead() bool {
	i := l.pos
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	if i >= len(l.src) {
		return false
	}
	c := l.src[i]
	if isWordChar(c) {
		return false
	}
	switch c {
	case ',', ';', ')', ']', '}', '=':
		return false
	}
	return true
}

func (l *Lexer) lexOperator(line, col int) Token {
	c := l.advance()
	two := func(next byte, t2, t1 TokenType) Token {
		if l.peek() == next {
			l.advance()
			l.expectOperand = true
			return Token{Type: t2, Line: line, Col: col}
		}
		l.expectOperand = true
		return Token{Type: t1, Line: line, Col: col}
	}

	switch c {
	case '+':
		if l.peek() == '+' {
			l.advance()
			// ++ keeps the operand state: prefix wants one, postfix ends one.
			return Token{Type: INC, Line: line, Col: col}
		}
		return two('=', PLUSEQ, PLUS)
	case '-':
		if l.peek() == '-' {
			l.advance()
			return Token{Type: DEC, Line: line, Col: col}
		}
		if l.peek() == '>' {
			l.advance()
			l.expectOperand = true
			return Token{Type: ARROW, Line: line, Col: col}
		}
		return two('=', MINUSEQ, MINUS)
	case '*':
		if l.peek() == '*' {
			l.advance()
			return two('=', POWEREQ, POWER)
		}
		return two('=', STAREQ, STAR)
	case '/':
		if l.peek() == '/' {
			l.advance()
			return two('=', DEFOREQ, DEFOR)
		}
		return two('=', SLASHEQ, SLASH)
	case '%':
		return two('=', PERCENTEQ, PERCENT)
	case '.':
		if l.peek() == '.' {
			l.advance()
			if l.peek() == '.' {
				l.advance()
			}
			l.expectOperand = true
			return Token{Type: RANGE, Line: line, Col: col}
		}
		return two('=', DOTEQ, DOT)
	case '=':
		switch l.peek() {
		case '=':
			l.advance()
			l.expectOperand = true
			return Token{Type: NUMEQ, Line: line, Col: col}
		case '>':
			l.advance()
			l.expectOperand = true
			return Token{Type: FATCOMMA, Line: line, Col: col}
		case '~':
			l.advance()
			l.expectOperand = true
			return Token{Type: MATCH, Line: line, Col: col}
		}
		l.expectOperand = true
		return Token{Type: ASSIGN, Line: line, Col: col}
	case '!':
		switch l.peek() {
		case '=':
			l.advance()
			l.expectOperand = true
			return Token{Type: NUMNE, Line: line, Col: col}
		case '~':
			l.advance()
			l.expectOperand = true
			return Token{Type: NOTMATCH, Line: line, Col: col}
		}
		l.expectOperand = true
		return Token{Type: NOT, Line: line, Col: col}
	case '<':
		if l.peek() == '<' {
			l.advance()
			return two('=', SHLEQ, SHL)
		}
		if l.peek() == '=' {
			l.advance()
			if l.peek() == '>' {
				l.advance()
				l.expectOperand = true
				return Token{Type: NUMCMP, Line: line, Col: col}
			}
			l.expectOperand = true
			return Token{Type: NUMLE, Line: line, Col: col}
		}
		l.expectOperand = true
		return Token{Type: NUMLT, Line: line, Col: col}
	case '>':
		if l.peek() == '>' {
			l.advance()
			return two('=', SHREQ, SHR)
		}
		return two('=', NUMGE, NUMGT)
	case '&':
		if l.peek() == '&' {
			l.advance()
			return two('=', ANDANDEQ, ANDAND)
		}
		if !l.expectOperand {
			return two('=', BITANDEQ, BITAND)
		}
		// &name calls a sub by reference.
		l.expectOperand = true
		return Token{Type: AMP, Line: line, Col: col}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return two('=', OROREQ, OROR)
		}
		return two('=', BITOREQ, BITOR)
	case '^':
		return two('=', BITXOREQ, BITXOR)
	case '\\':
		l.expectOperand = true
		return Token{Type: BACKSLASH, Text: "\\", Line: line, Col: col}
	case '?':
		l.expectOperand = true
		return Token{Type: QUESTION, Line: line, Col: col}
	case ':':
		l.expectOperand = true
		return Token{Type: COLON, Line: line, Col: col}
	case ',':
		l.expectOperand = true
		return Token{Type: COMMA, Line: line, Col: col}
	case ';':
		l.expectOperand = true
		return Token{Type: SEMI, Line: line, Col: col}
	case '(':
		l.expectOperand = true
		return Token{Type: LPAREN, Line: line, Col: col}
	case ')':
		l.expectOperand = false
		return Token{Type: RPAREN, Line: line, Col: col}
	case '[':
		l.expectOperand = true
		return Token{Type: LBRACKET, Line: line, Col: col}
	case ']':
		l.expectOperand = false
		return Token{Type: RBRACKET, Line: line, Col: col}
	case '{':
		// Anon hashes, anon subs, and subscripts like $h{k} or @h{...}
		// all complete an operand at the matching brace; only statement
		// blocks reset to operand position for the next statement.
		kind := braceOperand
		if l.expectOperand {
			switch l.prevType {
			case ELSE, BEGINBLK, ENDBLK:
				kind = braceBlock
			}
		} else {
			switch l.prevType {
			case SCALARVAR, ARRAYVAR, RBRACE, RBRACKET:
				kind = braceOperand // subscript
			default:
				kind = braceBlock
			}
		}
		l.braces = append(l.braces, kind)
		l.expectOperand = true
		return Token{Type: LBRACE, Line: line, Col: col}
	case '}':
		kind := braceBlock
		if n := len(l.braces); n > 0 {
			kind = l.braces[n-1]
			l.braces = l.braces[:n-1]
		}
		// Closing a subscript or anon hash completes an operand;
		// closing a block starts a fresh statement.
		l.expectOperand = kind == braceBlock
		return Token{Type: RBRACE, Line: line, Col: col}
	default:
		return l.errorf(line, col, "unexpected character %q", string(c))
	}
}

// Tokens lexes the whole input, returning the token list and any error.
func Tokens(src string) ([]Token, *SyntaxError) {
	l := NewLexer(src)
	var out []Token
	for {
		t := l.Next()
		if t.Type == ILLEGAL {
			return out, l.Err()
		}
		out = append(out, t)
		if t.Type == EOF {
			return out, nil
		}
	}
}
