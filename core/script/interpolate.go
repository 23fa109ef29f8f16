package script

import (
	"fmt"
	"strings"
)

// interpMode selects what kind of text is being interpolated. Strings
// arrive with their escapes already resolved except the protected \$ and
// \@ pairs; patterns keep every backslash for the regex engine; and
// substitution replacements still carry raw escapes like \n.
type interpMode int

const (
	interpString interpMode = iota
	interpPattern
	interpReplacement
)

// interpolate expands $var, ${var}, $h{k}, $a[i], $r->{k}, @arr and
// @{...} references in s. Variable text is parsed with the ordinary
// expression parser, so anything the language can say inside @{[ ... ]}
// works in a string.
func (in *Interp) interpolate(s string, mode interpMode, line int) (string, error) {
	if !strings.ContainsAny(s, "$@\\") {
		return s, nil
	}
	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			n := s[i+1]
			switch {
			case n == '$' || n == '@':
				if mode == interpPattern {
					out.WriteByte('\\')
				}
				out.WriteByte(n)
			case mode == interpPattern:
				out.WriteByte('\\')
				out.WriteByte(n)
			case mode == interpReplacement:
				out.WriteString(resolveEscape(n))
			default:
				// String escapes were resolved by the lexer; what is
				// left is a literal backslash.
				out.WriteByte('\\')
				out.WriteByte(n)
			}
			i += 2
			continue
		}
		if c == '$' || c == '@' {
			if src, isList, end, ok := extractVarExpr(s, i); ok {
				val, err := in.interpValue(src, isList, line)
				if err != nil {
					return "", err
				}
				out.WriteString(val)
				i = end
				continue
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), nil
}

// interpValue evaluates one extracted variable expression. List values
// join with $" between elements.
func (in *Interp) interpValue(src string, isList bool, line int) (string, error) {
	e, err := in.parsedInterp(src)
	if err != nil {
		return "", in.dief(line, "%v", err)
	}
	if isList {
		vals, err := in.evalExpr(e, ListCtx)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.Str()
		}
		return strings.Join(parts, in.listSep()), nil
	}
	v, err := in.evalScalar(e)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

// parsedInterp compiles a variable expression once and caches it, so a
// loop printing "$count lines\n" does not reparse per iteration.
func (in *Interp) parsedInterp(src string) (Expr, error) {
	if e, ok := in.interpCache[src]; ok {
		return e, nil
	}
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(prog.Mains) != 1 {
		return nil, fmt.Errorf("cannot interpolate %q", src)
	}
	es, ok := prog.Mains[0].(*ExprStmt)
	if !ok || es.Mod != ModNone {
		return nil, fmt.Errorf("cannot interpolate %q", src)
	}
	in.interpCache[src] = es.X
	return es.X, nil
}

// interpPunct are the punctuation variables recognized inside quoted
// text; a $ before anything else stays literal, which keeps anchors
// like /foo$/ working.
const interpPunct = "0123456789!./\\,;&`'\"?@"

// extractVarExpr finds the longest variable reference starting at i and
// returns its source text, whether it is a list, and the index after it.
func extractVarExpr(s string, i int) (src string, isList bool, end int, ok bool) {
	sig := s[i]
	j := i + 1
	if j >= len(s) {
		return "", false, 0, false
	}
	c := s[j]
	switch {
	case c == '{':
		k, balanced := scanBalanced(s, j)
		if !balanced {
			return "", false, 0, false
		}
		j = k
	case isWordStart(c):
		for j < len(s) && isWordChar(s[j]) {
			j++
		}
	case c == '$' && j+1 < len(s) && (isWordStart(s[j+1]) || s[j+1] == '{'):
		// $$name and @$name dereferences.
		j++
		if s[j] == '{' {
			k, balanced := scanBalanced(s, j)
			if !balanced {
				return "", false, 0, false
			}
			j = k
		} else {
			for j < len(s) && isWordChar(s[j]) {
				j++
			}
		}
	case sig == '$' && strings.IndexByte(interpPunct, c) >= 0:
		if isDigit(c) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
		} else {
			j++
		}
	default:
		return "", false, 0, false
	}

	// Trailing subscripts attach: "$h{k}", "$a[0]", "$r->{k}[2]".
	for j < len(s) {
		if s[j] == '[' || s[j] == '{' {
			k, balanced := scanBalanced(s, j)
			if !balanced {
				break
			}
			j = k
			continue
		}
		if s[j] == '-' && j+2 < len(s) && s[j+1] == '>' && (s[j+2] == '[' || s[j+2] == '{') {
			k, balanced := scanBalanced(s, j+2)
			if !balanced {
				break
			}
			j = k
			continue
		}
		break
	}
	return s[i:j], sig == '@', j, true
}

// scanBalanced consumes a bracketed group starting at open, returning
// the index just past its close.
func scanBalanced(s string, open int) (int, bool) {
	o := s[open]
	var cl byte
	switch o {
	case '{':
		cl = '}'
	case '[':
		cl = ']'
	default:
		return 0, false
	}
	depth := 0
	for k := open; k < len(s); k++ {
		switch s[k] {
		case o:
			depth++
		case cl:
			depth--
			if depth == 0 {
				return k + 1, true
			}
		}
	}
	return 0, false
}
