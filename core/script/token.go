package script

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	// Literals and names.
	NUMBER    // 42, 3.14, 0x1F, 1_000
	STRING    // 'single' or "double"
	IDENT     // barewords: function names, filehandles, hash keys
	SCALARVAR // $name, $_, $1, $., $/
	ARRAYVAR  // @name, @_, @ARGV, @F
	HASHVAR   // %name, %ENV
	ARRAYLAST // $#name
	REGEX     // /pat/ or m/pat/
	SUBST     // s/pat/rep/
	TRANS     // tr/from/to/
	QWLIST    // qw(a b c)
	READLINE  // <$fh>, <STDIN>, <>

	// Operators.
	ASSIGN   // =
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	POWER    // **
	DOT      // .
	REPEAT   // x
	COMMA    // ,
	FATCOMMA // =>
	ARROW    // ->
	INC      // ++
	DEC      // --
	NOT      // !
	BACKSLASH
	AMP // & (code sigil)
	QUESTION  // ?
	COLON     // :
	RANGE     // ..
	NUMEQ     // ==
	NUMNE     // !=
	NUMLT     // <
	NUMGT     // >
	NUMLE     // <=
	NUMGE     // >=
	NUMCMP    // <=>
	STREQ     // eq
	STRNE     // ne
	STRLT     // lt
	STRGT     // gt
	STRLE     // le
	STRGE     // ge
	STRCMP    // cmp
	MATCH     // =~
	NOTMATCH  // !~
	ANDAND    // &&
	OROR      // ||
	DEFOR     // //
	BITAND    // & (operator position)
	BITOR     // |
	BITXOR    // ^
	SHL       // <<
	SHR       // >>
	PLUSEQ    // +=
	MINUSEQ   // -=
	STAREQ    // *=
	SLASHEQ   // /=
	DOTEQ     // .=
	PERCENTEQ // %=
	POWEREQ   // **=
	REPEATEQ  // x=
	ANDANDEQ  // &&=
	OROREQ    // ||=
	DEFOREQ   // //=
	BITANDEQ  // &=
	BITOREQ   // |=
	BITXOREQ  // ^=
	SHLEQ     // <<=
	SHREQ     // >>=

	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	SEMI     // ;

	// Keywords.
	MY
	SUB
	IF
	ELSIF
	ELSE
	UNLESS
	WHILE
	UNTIL
	FOR
	FOREACH
	DO
	LAST
	NEXT
	RETURN
	AND // low precedence and
	OR  // low precedence or
	LOWNOT
	USE
	BEGINBLK
	ENDBLK
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	NUMBER: "NUMBER", STRING: "STRING", IDENT: "IDENT",
	SCALARVAR: "SCALARVAR", ARRAYVAR: "ARRAYVAR", HASHVAR: "HASHVAR",
	ARRAYLAST: "ARRAYLAST", REGEX: "REGEX", SUBST: "SUBST", TRANS: "TRANS",
	QWLIST: "QWLIST", READLINE: "READLINE",
	ASSIGN: "=", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/",
	PERCENT: "%", POWER: "**", DOT: ".", REPEAT: "x", COMMA: ",",
	FATCOMMA: "=>", ARROW: "->", INC: "++", DEC: "--", NOT: "!",
	BACKSLASH: "\\", AMP: "&", QUESTION: "?", COLON: ":", RANGE: "..",
	NUMEQ: "==", NUMNE: "!=", NUMLT: "<", NUMGT: ">", NUMLE: "<=",
	NUMGE: ">=", NUMCMP: "<=>", STREQ: "eq", STRNE: "ne", STRLT: "lt",
	STRGT: "gt", STRLE: "le", STRGE: "ge", STRCMP: "cmp",
	MATCH: "=~", NOTMATCH: "!~", ANDAND: "&&", OROR: "||", DEFOR: "//",
	BITAND: "&", BITOR: "|", BITXOR: "^", SHL: "<<", SHR: ">>",
	PLUSEQ: "+=", MINUSEQ: "-=", STAREQ: "*=", SLASHEQ: "/=", DOTEQ: ".=",
	PERCENTEQ: "%=", POWEREQ: "**=", REPEATEQ: "x=", ANDANDEQ: "&&=",
	OROREQ: "||=", DEFOREQ: "//=",
	BITANDEQ: "&=", BITOREQ: "|=", BITXOREQ: "^=", SHLEQ: "<<=", SHREQ: ">>=",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]",
	LBRACE: "{", RBRACE: "}", SEMI: ";",
	MY: "my", SUB: "sub", IF: "if", ELSIF: "elsif", ELSE: "else",
	UNLESS: "unless", WHILE: "while", UNTIL: "until", FOR: "for",
	FOREACH: "foreach", DO: "do", LAST: "last", NEXT: "next",
	RETURN: "return", AND: "and", OR: "or", LOWNOT: "not", USE: "use",
	BEGINBLK: "BEGIN", ENDBLK: "END",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"my": MY, "sub": SUB, "if": IF, "elsif": ELSIF, "else": ELSE,
	"unless": UNLESS, "while": WHILE, "until": UNTIL, "for": FOR,
	"foreach": FOREACH, "do": DO, "last": LAST, "next": NEXT,
	"return": RETURN, "and": AND, "or": OR, "not": LOWNOT, "use": USE,
	"eq": STREQ, "ne": STRNE, "lt": STRLT, "gt": STRGT, "le": STRLE,
	"ge": STRGE, "cmp": STRCMP, "x": REPEAT,
	"BEGIN": BEGINBLK, "END": ENDBLK,
}

// Token is a single lexeme with its source position.
type Token struct {
	Type TokenType
	// Text is the literal form: variable names without the sigil, string
	// contents with escapes resolved, number text as written.
	Text string
	// Aux carries secondary literal data: replacement text for SUBST and
	// TRANS, flags for regex-family tokens (stored by the lexer).
	Aux   string
	Flags string
	// Interp is set for double-quoted strings that may interpolate.
	Interp bool
	Line   int
	Col    int
}

func (t Token) String() string {
	switch t.Type {
	case NUMBER, IDENT:
		return t.Text
	case STRING:
		return fmt.Sprintf("%q", t.Text)
	case SCALARVAR:
		return "$" + t.Text
	case ARRAYVAR:
		return "@" + t.Text
	case HASHVAR:
		return "%" + t.Text
	case ARRAYLAST:
		return "$#" + t.Text
	default:
		return t.Type.String()
	}
}
