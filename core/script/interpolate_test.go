package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVarExpr(t *testing.T) {
	cases := map[string]struct {
		s, want string
		at      int
		isList  bool
	}{
		"plain scalar":    {"$name rest", "$name", 0, false},
		"mid string":      {"price: $price.", "$price", 7, false},
		"braced":          {"${name}!", "${name}", 0, false},
		"array":           {"x @list", "@list", 2, true},
		"hash elem":       {"$h{k}.", "$h{k}", 0, false},
		"array elem":      {"$a[0]b", "$a[0]", 0, false},
		"arrow chain":     {"$r->{k}[2]", "$r->{k}[2]", 0, false},
		"deref":           {"$$ref", "$$ref", 0, false},
		"inline block":    {"@{[ 1 + 2 ]}", "@{[ 1 + 2 ]}", 0, true},
		"capture":         {"$1 and", "$1", 0, false},
		"multi digit":     {"$12", "$12", 0, false},
		"line number":     {"$. x", "$.", 0, false},
		"nested subs":     {"$h{a{b}}", "$h{a{b}}", 0, false},
		"errno":           {"$!\n", "$!", 0, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			src, isList, end, ok := extractVarExpr(tc.s, tc.at)
			assert.True(t, ok)
			assert.Equal(t, tc.want, src)
			assert.Equal(t, tc.isList, isList)
			assert.Equal(t, tc.at+len(tc.want), end)
		})
	}
}

func TestExtractVarExpr_notAVar(t *testing.T) {
	notVars := []struct {
		s  string
		at int
	}{
		{"$ price", 0},
		{"$", 0},
		{"@ list", 0},
		{"100$", 3},
		{"@.", 0},
		{"${unclosed", 0},
	}
	for _, tc := range notVars {
		_, _, _, ok := extractVarExpr(tc.s, tc.at)
		assert.False(t, ok, "%q at %d", tc.s, tc.at)
	}
}

func TestScanBalanced(t *testing.T) {
	end, ok := scanBalanced("{a{b}}", 0)
	assert.True(t, ok)
	assert.Equal(t, 6, end)

	end, ok = scanBalanced("[xy] z", 0)
	assert.True(t, ok)
	assert.Equal(t, 4, end)

	_, ok = scanBalanced("{open", 0)
	assert.False(t, ok)

	_, ok = scanBalanced("(x)", 0)
	assert.False(t, ok)
}

func TestRun_interpolationEscapes(t *testing.T) {
	cases := scriptCases{
		"literal dollar":  {`print "cost \$5";`, "cost $5"},
		"literal at":      {`print "a\@b.com";`, "a@b.com"},
		"trailing dollar": {`print "100$";`, "100$"},
		"replacement tab": {`my $s = "ab"; $s =~ s/a/X\tY/; print $s;`, "X\tYb"},
		"pattern escape":  {`print "ok" if "a+b" =~ /a\+b/;`, "ok"},
	}
	cases.Run(t)
}
