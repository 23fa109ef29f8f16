package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matches(t *testing.T, pat, flags, s string) bool {
	t.Helper()
	p, err := CompilePattern(pat, flags)
	require.NoError(t, err)
	return p.FindSubmatchIndex(s, 0) != nil
}

func TestCompilePattern_basic(t *testing.T) {
	assert.True(t, matches(t, `\d+`, "", "abc123"))
	assert.False(t, matches(t, `\d+`, "", "abc"))
	assert.True(t, matches(t, `^a.c$`, "", "abc"))
}

func TestCompilePattern_flags(t *testing.T) {
	assert.True(t, matches(t, "abc", "i", "ABC"))
	assert.False(t, matches(t, "abc", "", "ABC"))
	assert.True(t, matches(t, "^b", "m", "a\nb"))
	assert.True(t, matches(t, "a.b", "s", "a\nb"))
	assert.False(t, matches(t, "a.b", "", "a\nb"))
}

func TestCompilePattern_trailingAnchor(t *testing.T) {
	// $ matches before a final newline too, so unchomped input lines
	// still anchor.
	assert.True(t, matches(t, "ab$", "", "ab"))
	assert.True(t, matches(t, "ab$", "", "ab\n"))
	assert.False(t, matches(t, "ab$", "", "ab\nc"))
}

func TestCompilePattern_translations(t *testing.T) {
	assert.True(t, matches(t, `a\h+b`, "", "a \tb"))
	assert.False(t, matches(t, `a\h+b`, "", "axb"))
	assert.True(t, matches(t, `a\Hb`, "", "axb"))
	assert.True(t, matches(t, `a\R`, "", "a\r\n"))
	assert.True(t, matches(t, "a(?#note)b", "", "ab"))

	// Named groups use the (?<name>) spelling.
	p, err := CompilePattern(`(?<year>\d{4})`, "")
	require.NoError(t, err)
	loc := p.FindSubmatchIndex("in 2019.", 0)
	require.NotNil(t, loc)
	assert.Equal(t, "2019", "in 2019."[loc[2]:loc[3]])
}

func TestCompilePattern_extended(t *testing.T) {
	assert.True(t, matches(t, "a b  # comment\n c", "x", "abc"))
	assert.False(t, matches(t, "a b c", "x", "a b c"))
}

func TestCompilePattern_characterClass(t *testing.T) {
	assert.True(t, matches(t, "[]]", "", "]"))
	assert.True(t, matches(t, "[^]]+", "", "xy"))
	// Whitespace inside a class survives /x.
	assert.True(t, matches(t, "[ ]", "x", "a b"))
}

func TestCompilePattern_rejections(t *testing.T) {
	_, err := CompilePattern(`(a)\1`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `backreference \1 is not supported`)

	for _, pat := range []string{"(?=x)", "(?!x)", "(?<=x)", "(?<!x)"} {
		_, err := CompilePattern(pat, "")
		require.Error(t, err, pat)
		assert.Contains(t, err.Error(), "lookaround assertions are not supported", pat)
	}

	_, err = CompilePattern("a(?#oops", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestPattern_String(t *testing.T) {
	p, err := CompilePattern("ab", "gi")
	require.NoError(t, err)
	// Stringification keeps the mode flags and drops the match-loop
	// ones.
	assert.Equal(t, "(?^i:ab)", p.String())
	assert.True(t, p.Global())

	p, err = CompilePattern("x", "")
	require.NoError(t, err)
	assert.Equal(t, "(?^:x)", p.String())
	assert.False(t, p.Global())
}

func TestPattern_FindSubmatchIndex(t *testing.T) {
	p, err := CompilePattern("b", "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, p.FindSubmatchIndex("abcb", 0))
	assert.Equal(t, []int{3, 4}, p.FindSubmatchIndex("abcb", 2))
	assert.Nil(t, p.FindSubmatchIndex("abcb", 4))
}

func TestExpandTrSet(t *testing.T) {
	assert.Equal(t, []byte("abcde"), expandTrSet("a-e"))
	assert.Equal(t, []byte("abc012"), expandTrSet("a-c0-2"))
	assert.Equal(t, []byte("a\tb"), expandTrSet(`a\tb`))
	assert.Equal(t, []byte("-x"), expandTrSet("-x"))
}

func TestTransliterate(t *testing.T) {
	cases := map[string]struct {
		s, from, to, flags string
		want               string
		count              int
	}{
		"basic":          {"hello", "el", "ip", "", "hippo", 3},
		"range":          {"hello", "a-z", "A-Z", "", "HELLO", 5},
		"count only":     {"banana", "a", "", "", "banana", 3},
		"delete":         {"hello world", "l", "", "d", "heo word", 3},
		"squeeze":        {"aabbcc", "abc", "xyz", "s", "xyz", 6},
		"pad with last":  {"abcd", "abcd", "xy", "", "xyyy", 4},
		"complement":     {"abc123", "0-9", "", "c", "abc123", 3},
		"complement del": {"abc123", "0-9", "", "cd", "123", 3},
		"tab escape":     {"a\tb", `\t`, " ", "", "a b", 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, n := Transliterate(tc.s, tc.from, tc.to, tc.flags)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.count, n)
		})
	}
}
