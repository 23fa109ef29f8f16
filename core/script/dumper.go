package script

import (
	"fmt"
	"strings"
)

// DumpValues renders values the way Data::Dumper does with Indent set
// to 2: one $VARn per argument, children aligned under their opening
// bracket, hash keys in sorted order.
func DumpValues(vals []*Scalar) string {
	var b strings.Builder
	for i, v := range vals {
		lead := fmt.Sprintf("$VAR%d = ", i+1)
		b.WriteString(lead)
		dumpValue(&b, v, len(lead), make(map[*Ref]bool))
		b.WriteString(";\n")
	}
	return b.String()
}

func dumpValue(b *strings.Builder, s *Scalar, col int, seen map[*Ref]bool) {
	switch s.Kind() {
	case KindUndef:
		b.WriteString("undef")
	case KindNum:
		b.WriteString(formatNumber(s.Num()))
	case KindStr:
		b.WriteString(dumpQuote(s.Str()))
	case KindRef:
		dumpRef(b, s.Ref(), col, seen)
	}
}

func dumpRef(b *strings.Builder, r *Ref, col int, seen map[*Ref]bool) {
	if seen[r] {
		b.WriteString(dumpQuote(fmt.Sprintf("%s(0x%x)", r.Kind, r.address())))
		return
	}
	seen[r] = true
	defer delete(seen, r)

	pad := strings.Repeat(" ", col)
	inner := strings.Repeat(" ", col+2)

	switch r.Kind {
	case RefArray:
		if r.Array.Len() == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, e := range r.Array.Elems {
			b.WriteString(inner)
			if e == nil {
				b.WriteString("undef")
			} else {
				dumpValue(b, e, col+2, seen)
			}
			if i < r.Array.Len()-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(pad)
		b.WriteByte(']')

	case RefHash:
		if r.Hash.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		keys := r.Hash.Keys()
		for i, k := range keys {
			key := dumpQuote(k) + " => "
			b.WriteString(inner)
			b.WriteString(key)
			dumpValue(b, r.Hash.Get(k), col+2+len(key), seen)
			if i < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(pad)
		b.WriteByte('}')

	case RefScalar:
		b.WriteByte('\\')
		dumpValue(b, r.Scalar, col+1, seen)

	case RefCode:
		b.WriteString("sub { \"DUMMY\" }")

	case RefRegexp:
		b.WriteString(r.Regexp.String())

	case RefGlob:
		b.WriteString("\\*main::" + r.Handle.Name)
	}
}

// dumpQuote single-quotes a string, escaping quotes and backslashes.
func dumpQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('\'')
	return b.String()
}
