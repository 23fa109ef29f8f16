package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled match pattern. The source syntax is translated to
// the RE2 dialect, which covers the constructs the one-liner catalogue
// relies on; backreferences and lookaround are rejected with a clear
// message rather than silently misbehaving.
type Pattern struct {
	Source string
	Flags  string
	re     *regexp.Regexp
}

// CompilePattern builds a Pattern from already-interpolated source text.
func CompilePattern(src, flags string) (*Pattern, error) {
	translated, err := translatePattern(src, strings.ContainsRune(flags, 'x'))
	if err != nil {
		return nil, err
	}
	var mode strings.Builder
	for _, f := range "ims" {
		if strings.ContainsRune(flags, f) {
			mode.WriteRune(f)
		}
	}
	full := translated
	if mode.Len() > 0 {
		full = "(?" + mode.String() + ")" + translated
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %v", src, err)
	}
	return &Pattern{Source: src, Flags: flags, re: re}, nil
}

func (p *Pattern) String() string {
	return "(?^" + strings.Map(func(r rune) rune {
		if strings.ContainsRune("ims", r) {
			return r
		}
		return -1
	}, p.Flags) + ":" + p.Source + ")"
}

// Global reports whether the /g flag was given.
func (p *Pattern) Global() bool { return strings.ContainsRune(p.Flags, 'g') }

// FindSubmatchIndex exposes the underlying engine for match loops.
func (p *Pattern) FindSubmatchIndex(s string, start int) []int {
	loc := p.re.FindStringSubmatchIndex(s[start:])
	if loc == nil {
		return nil
	}
	out := make([]int, len(loc))
	for i, v := range loc {
		if v < 0 {
			out[i] = v
		} else {
			out[i] = v + start
		}
	}
	return out
}

// NumSubexp is the capture group count.
func (p *Pattern) NumSubexp() int { return p.re.NumSubexp() }

// translatePattern rewrites source-dialect constructs into RE2 syntax.
func translatePattern(src string, extended bool) (string, error) {
	var out strings.Builder
	inClass := false
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			e := src[i+1]
			switch {
			case e >= '1' && e <= '9' && !inClass:
				return "", fmt.Errorf("backreference \\%c is not supported", e)
			case e == 'h' && !inClass:
				out.WriteString(`[ \t]`)
			case e == 'H' && !inClass:
				out.WriteString(`[^ \t]`)
			case e == 'v' && !inClass:
				out.WriteString("[\\n\\x0b\\f\\r]")
			case e == 'R' && !inClass:
				out.WriteString(`(?:\r\n|[\r\n])`)
			case e == 'Z':
				out.WriteString(`(?:\n?\z)`)
			default:
				out.WriteByte(c)
				out.WriteByte(e)
			}
			i += 2
			continue
		case c == '[' && !inClass:
			inClass = true
			out.WriteByte(c)
			// A literal ] right after the opening (or after ^) needs
			// escaping for RE2.
			j := i + 1
			if j < len(src) && src[j] == '^' {
				out.WriteByte('^')
				j++
				i++
			}
			if j < len(src) && src[j] == ']' {
				out.WriteString(`\]`)
				i = j
			}
			i++
			continue
		case c == ']' && inClass:
			inClass = false
			out.WriteByte(c)
			i++
			continue
		case c == '(' && !inClass && strings.HasPrefix(src[i:], "(?"):
			rest := src[i+2:]
			switch {
			case strings.HasPrefix(rest, "="), strings.HasPrefix(rest, "!"),
				strings.HasPrefix(rest, "<="), strings.HasPrefix(rest, "<!"):
				return "", fmt.Errorf("lookaround assertions are not supported")
			case strings.HasPrefix(rest, "<"):
				out.WriteString("(?P<")
				i += 3
				continue
			case strings.HasPrefix(rest, "#"):
				// Inline comment group: skip to the closing paren.
				end := strings.IndexByte(rest, ')')
				if end < 0 {
					return "", fmt.Errorf("unterminated (?# comment")
				}
				i += 3 + end
				continue
			}
			out.WriteByte(c)
			i++
			continue
		case extended && !inClass && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			i++
			continue
		case extended && !inClass && c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '$' && !inClass && i == len(src)-1:
			// A trailing anchor also matches just before a final
			// newline, which keeps unchomped lines matching.
			out.WriteString(`\n?$`)
			i++
			continue
		default:
			out.WriteByte(c)
			i++
			continue
		}
	}
	return out.String(), nil
}

// expandTrSet expands a tr/// character set: ranges like a-z open up,
// backslash escapes resolve.
func expandTrSet(set string) []byte {
	var out []byte
	i := 0
	for i < len(set) {
		c := set[i]
		if c == '\\' && i+1 < len(set) {
			switch set[i+1] {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case 'r':
				c = '\r'
			case '\\':
				c = '\\'
			case '-':
				c = '-'
			default:
				c = set[i+1]
			}
			i += 2
		} else {
			i++
		}
		if i+1 < len(set) && set[i] == '-' {
			hi := set[i+1]
			for b := c; b <= hi; b++ {
				out = append(out, b)
			}
			i += 2
			continue
		}
		out = append(out, c)
	}
	return out
}

// Transliterate applies tr/from/to/flags to the input, returning the new
// string and the number of characters matched. Flags: d deletes
// unmatched, s squeezes repeats, c complements the from set, r leaves
// the original alone (caller keeps the result only).
func Transliterate(s, from, to, flags string) (string, int) {
	del := strings.ContainsRune(flags, 'd')
	squeeze := strings.ContainsRune(flags, 's')
	comp := strings.ContainsRune(flags, 'c')

	fromSet := expandTrSet(from)
	toSet := expandTrSet(to)

	if comp {
		member := make(map[byte]bool, len(fromSet))
		for _, b := range fromSet {
			member[b] = true
		}
		var inv []byte
		for b := 0; b < 256; b++ {
			if !member[byte(b)] {
				inv = append(inv, byte(b))
			}
		}
		fromSet = inv
	}

	repl := make(map[byte]int, len(fromSet))
	for i, b := range fromSet {
		if _, seen := repl[b]; seen {
			continue
		}
		repl[b] = i
	}

	var out strings.Builder
	count := 0
	var lastOut byte
	haveLast := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		idx, hit := repl[c]
		if !hit {
			out.WriteByte(c)
			haveLast = false
			continue
		}
		count++
		var rc byte
		switch {
		case len(toSet) == 0 && del:
			haveLast = false
			continue
		case len(toSet) == 0:
			rc = c
		case idx < len(toSet):
			rc = toSet[idx]
		case del:
			haveLast = false
			continue
		default:
			rc = toSet[len(toSet)-1]
		}
		if squeeze && haveLast && lastOut == rc {
			continue
		}
		out.WriteByte(rc)
		lastOut = rc
		haveLast = true
	}
	return out.String(), count
}
