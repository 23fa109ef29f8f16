package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexTokens(t *testing.T, src string) []Token {
	t.Helper()
	toks, lerr := Tokens(src)
	require.Nil(t, lerr)
	require.NotEmpty(t, toks)
	require.Equal(t, EOF, toks[len(toks)-1].Type)
	return toks[:len(toks)-1]
}

func lexTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks := lexTokens(t, src)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestLex_statement(t *testing.T) {
	assert.Equal(t,
		[]TokenType{MY, SCALARVAR, ASSIGN, NUMBER, PLUS, NUMBER, SEMI},
		lexTypes(t, "my $x = 1 + 2;"))
}

func TestLex_numbers(t *testing.T) {
	cases := map[string]string{
		"42":        "42",
		"3.14":      "3.14",
		"1_000_000": "1000000",
		"0x1F":      "0x1F",
		"0b101":     "0b101",
		"017":       "017",
		"1e3":       "1e3",
		"2.5e-2":    "2.5e-2",
		".5":        ".5",
	}
	for src, want := range cases {
		toks := lexTokens(t, src)
		require.Len(t, toks, 1, src)
		assert.Equal(t, NUMBER, toks[0].Type, src)
		assert.Equal(t, want, toks[0].Text, src)
	}
}

func TestLex_strings(t *testing.T) {
	cases := map[string]struct {
		src    string
		want   string
		interp bool
	}{
		"single quotes":        {`'hello'`, "hello", false},
		"escaped quote":        {`'it\'s'`, "it's", false},
		"single keeps escapes": {`'a\nb'`, `a\nb`, false},
		"double quotes":        {`"a\tb"`, "a\tb", true},
		"newline escape":       {`"x\n"`, "x\n", true},
		"dollar escape":        {`"x\$y"`, `x\$y`, true},
		"q form":               {"q(x y)", "x y", false},
		"qq form":              {`qq{a"b}`, `a"b`, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			toks := lexTokens(t, tc.src)
			require.Len(t, toks, 1)
			assert.Equal(t, STRING, toks[0].Type)
			assert.Equal(t, tc.want, toks[0].Text)
			assert.Equal(t, tc.interp, toks[0].Interp)
		})
	}
}

func TestLex_backtick(t *testing.T) {
	toks := lexTokens(t, "`ls -l`")
	require.Len(t, toks, 1)
	assert.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "qx", toks[0].Aux)
	assert.Equal(t, "ls -l", toks[0].Text)
	assert.True(t, toks[0].Interp)
}

func TestLex_variables(t *testing.T) {
	cases := map[string]struct {
		typ  TokenType
		text string
	}{
		"$name":   {SCALARVAR, "name"},
		"${name}": {SCALARVAR, "name"},
		"$_":      {SCALARVAR, "_"},
		"$1":      {SCALARVAR, "1"},
		"$0":      {SCALARVAR, "0"},
		"$.":      {SCALARVAR, "."},
		"$/":      {SCALARVAR, "/"},
		"$!":      {SCALARVAR, "!"},
		"$@":      {SCALARVAR, "@"},
		"$?":      {SCALARVAR, "?"},
		"@list":   {ARRAYVAR, "list"},
		"@_":      {ARRAYVAR, "_"},
		"@ARGV":   {ARRAYVAR, "ARGV"},
		"%h":      {HASHVAR, "h"},
		"%ENV":    {HASHVAR, "ENV"},
		"$#a":     {ARRAYLAST, "a"},
	}
	for src, tc := range cases {
		toks := lexTokens(t, src)
		require.Len(t, toks, 1, src)
		assert.Equal(t, tc.typ, toks[0].Type, src)
		assert.Equal(t, tc.text, toks[0].Text, src)
	}
}

func TestLex_stateDependentSlash(t *testing.T) {
	// A slash where a value is expected starts a pattern; after a value
	// it divides.
	toks := lexTokens(t, "/ab/")
	require.Len(t, toks, 1)
	assert.Equal(t, REGEX, toks[0].Type)
	assert.Equal(t, "ab", toks[0].Text)

	assert.Equal(t, []TokenType{SCALARVAR, SLASH, SCALARVAR},
		lexTypes(t, "$a / $b"))

	// Same for a slash after a subscript.
	assert.Equal(t, []TokenType{SCALARVAR, LBRACE, IDENT, RBRACE, SLASH, NUMBER},
		lexTypes(t, "$h{k} / 2"))
}

func TestLex_stateDependentPercent(t *testing.T) {
	assert.Equal(t, []TokenType{HASHVAR}, lexTypes(t, "%h"))
	assert.Equal(t, []TokenType{SCALARVAR, PERCENT, SCALARVAR},
		lexTypes(t, "$a % $b"))
	// % followed by space is always modulus.
	assert.Equal(t, []TokenType{NUMBER, PERCENT, NUMBER}, lexTypes(t, "7 % 3"))
}

func TestLex_stateDependentAngle(t *testing.T) {
	cases := map[string]string{
		"<STDIN>": "STDIN",
		"<$fh>":   "$fh",
		"<>":      "",
	}
	for src, want := range cases {
		toks := lexTokens(t, src)
		require.Len(t, toks, 1, src)
		assert.Equal(t, READLINE, toks[0].Type, src)
		assert.Equal(t, want, toks[0].Text, src)
	}

	assert.Equal(t, []TokenType{SCALARVAR, NUMLT, SCALARVAR},
		lexTypes(t, "$a < $b"))
}

func TestLex_stateDependentAmp(t *testing.T) {
	assert.Equal(t, []TokenType{AMP, IDENT}, lexTypes(t, "&f"))
	assert.Equal(t, []TokenType{SCALARVAR, BITAND, SCALARVAR},
		lexTypes(t, "$a & $b"))
	assert.Equal(t, []TokenType{SCALARVAR, BITANDEQ, NUMBER},
		lexTypes(t, "$mask &= 255"))
}

func TestLex_shifts(t *testing.T) {
	assert.Equal(t, []TokenType{SCALARVAR, SHR, NUMBER}, lexTypes(t, "$? >> 8"))
	assert.Equal(t, []TokenType{NUMBER, SHL, NUMBER}, lexTypes(t, "1 << 4"))
	assert.Equal(t, []TokenType{SCALARVAR, SHLEQ, NUMBER}, lexTypes(t, "$v <<= 1"))
}

func TestLex_repeat(t *testing.T) {
	assert.Equal(t, []TokenType{SCALARVAR, REPEAT, NUMBER}, lexTypes(t, "$a x 3"))
	assert.Equal(t, []TokenType{SCALARVAR, REPEATEQ, NUMBER}, lexTypes(t, "$s x= 3"))
}

func TestLex_operators(t *testing.T) {
	cases := map[string]TokenType{
		"=~":  MATCH,
		"!~":  NOTMATCH,
		"<=>": NUMCMP,
		"=>":  FATCOMMA,
		"->":  ARROW,
		"..":  RANGE,
		"++":  INC,
		"--":  DEC,
		"+=":  PLUSEQ,
		".=":  DOTEQ,
		"**=": POWEREQ,
		"||=": OROREQ,
		"&&=": ANDANDEQ,
		"|=":  BITOREQ,
		"^=":  BITXOREQ,
		">>=": SHREQ,
	}
	for src, want := range cases {
		// Lex between operands so state-dependent forms take their
		// operator meaning.
		types := lexTypes(t, "$a "+src+" $b")
		require.Len(t, types, 3, src)
		assert.Equal(t, want, types[1], src)
	}
}

func TestLex_definedOr(t *testing.T) {
	assert.Equal(t, []TokenType{SCALARVAR, DEFOR, NUMBER}, lexTypes(t, "$a // 0"))
	assert.Equal(t, []TokenType{SCALARVAR, DEFOREQ, NUMBER}, lexTypes(t, "$a //= 0"))
}

func TestLex_wordOperators(t *testing.T) {
	cases := map[string]TokenType{
		"eq": STREQ, "ne": STRNE, "lt": STRLT, "gt": STRGT,
		"le": STRLE, "ge": STRGE, "cmp": STRCMP,
	}
	for src, want := range cases {
		types := lexTypes(t, "$a "+src+" $b")
		require.Len(t, types, 3, src)
		assert.Equal(t, want, types[1], src)
	}
}

func TestLex_comments(t *testing.T) {
	assert.Equal(t, []TokenType{NUMBER, PLUS, NUMBER},
		lexTypes(t, "1 # trailing comment\n+ 2"))
	assert.Equal(t, []TokenType{NUMBER},
		lexTypes(t, "# leading comment\n42"))
}

func TestLex_quoteLikes(t *testing.T) {
	toks := lexTokens(t, "m!ab!")
	require.Len(t, toks, 1)
	assert.Equal(t, REGEX, toks[0].Type)
	assert.Equal(t, "ab", toks[0].Text)

	toks = lexTokens(t, "qr{x+}i")
	require.Len(t, toks, 1)
	assert.Equal(t, REGEX, toks[0].Type)
	assert.Equal(t, "qr", toks[0].Aux)
	assert.Equal(t, "i", toks[0].Flags)

	toks = lexTokens(t, "s{a}{b}g")
	require.Len(t, toks, 1)
	assert.Equal(t, SUBST, toks[0].Type)
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "b", toks[0].Aux)
	assert.Equal(t, "g", toks[0].Flags)

	// An escaped delimiter is part of the pattern.
	toks = lexTokens(t, `s/a\/b/c/`)
	require.Len(t, toks, 1)
	assert.Equal(t, "a/b", toks[0].Text)

	toks = lexTokens(t, "tr/a-z/A-Z/")
	require.Len(t, toks, 1)
	assert.Equal(t, TRANS, toks[0].Type)
	assert.Equal(t, "a-z", toks[0].Text)
	assert.Equal(t, "A-Z", toks[0].Aux)

	toks = lexTokens(t, "y/ab/cd/")
	require.Len(t, toks, 1)
	assert.Equal(t, TRANS, toks[0].Type)

	toks = lexTokens(t, "qw( red  green )")
	require.Len(t, toks, 1)
	assert.Equal(t, QWLIST, toks[0].Type)
	assert.Equal(t, " red  green ", toks[0].Text)
}

func TestLex_quoteLikeWordsAsKeys(t *testing.T) {
	// s, y, q and friends stay plain identifiers before => or a closing
	// brace.
	assert.Equal(t, []TokenType{LBRACE, IDENT, FATCOMMA, NUMBER, RBRACE},
		lexTypes(t, "{ s => 1 }"))
	assert.Equal(t, []TokenType{SCALARVAR, LBRACE, IDENT, RBRACE},
		lexTypes(t, "$h{q}"))
}

func TestLex_blockVsSubscriptBraces(t *testing.T) {
	// A block close returns to statement position, so a pattern can
	// follow; a subscript close completes a value, so / divides.
	assert.Equal(t,
		[]TokenType{IF, LPAREN, SCALARVAR, RPAREN, LBRACE, RBRACE, REGEX, SEMI},
		lexTypes(t, "if ($x) { } /ab/;"))
}

func TestLex_positions(t *testing.T) {
	toks := lexTokens(t, "1 +\n2;")
	require.Len(t, toks, 4)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Col)
	assert.Equal(t, 1, toks[1].Line)
	assert.Equal(t, 3, toks[1].Col)
	assert.Equal(t, 2, toks[2].Line)
	assert.Equal(t, 1, toks[2].Col)
}

func TestLex_errors(t *testing.T) {
	cases := map[string]struct {
		src        string
		want       string
		incomplete bool
	}{
		"unclosed double": {`"abc`, "unexpected end of input in string", true},
		"unclosed single": {`'abc`, "unexpected end of input in string", true},
		"unclosed regex":  {"/abc", "unexpected end of input in pattern", true},
		"unclosed subst":  {"s/a/b", "unexpected end of input in pattern", true},
		"bare dollar":     {"$ ", "expected variable name after $", false},
		"stray tilde":     {"~", `unexpected character "~"`, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, lerr := Tokens(tc.src)
			require.NotNil(t, lerr)
			assert.Contains(t, lerr.Msg, tc.want)
			assert.Equal(t, tc.incomplete, lerr.Incomplete())
		})
	}
}
