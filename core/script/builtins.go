package script

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

type builtinFunc func(in *Interp, c *Call, ctx Context) ([]*Scalar, error)

// builtins maps a name to its implementation. builtinNames is derived
// from it for the lexer, which needs to know that a word like split can
// be followed by a pattern.
var (
	builtins     map[string]builtinFunc
	builtinNames map[string]bool
)

func init() {
	builtins = map[string]builtinFunc{
		"print":   biPrint,
		"say":     biSay,
		"printf":  biPrintf,
		"sprintf": biSprintf,

		"length":    biLength,
		"substr":    biSubstr,
		"index":     biIndex,
		"rindex":    biRindex,
		"lc":        biLc,
		"uc":        biUc,
		"lcfirst":   biLcfirst,
		"ucfirst":   biUcfirst,
		"chomp":     biChomp,
		"chop":      biChop,
		"chr":       biChr,
		"ord":       biOrd,
		"hex":       biHex,
		"oct":       biOct,
		"quotemeta": biQuotemeta,
		"join":      biJoin,
		"split":     biSplit,
		"reverse":   biReverse,

		"abs":   biAbs,
		"int":   biInt,
		"sqrt":  biSqrt,
		"log":   biLog,
		"exp":   biExp,
		"sin":   biSin,
		"cos":   biCos,
		"atan2": biAtan2,
		"rand":  biRand,
		"srand": biSrand,

		"push":    biPush,
		"pop":     biPop,
		"shift":   biShift,
		"unshift": biUnshift,
		"splice":  biSplice,
		"sort":    biSort,
		"map":     biMap,
		"grep":    biGrep,

		"keys":   biKeys,
		"values": biValues,
		"each":   biEach,
		"exists": biExists,
		"delete": biDelete,

		"defined": biDefined,
		"undef":   biUndef,
		"scalar":  biScalar,
		"ref":     biRef,
		"eval":    biEval,

		"die":  biDie,
		"warn": biWarn,
		"exit": biExit,

		"open":    biOpen,
		"close":   biClose,
		"eof":     biEof,
		"binmode": biBinmode,
		"unlink":  biUnlink,
		"rename":  biRename,
		"mkdir":   biMkdir,
		"rmdir":   biRmdir,
		"stat":    biStat,
		"glob":    biGlob,

		"system": biSystem,
		"exec":   biExec,
		"qx":     biQx,

		"sleep":     biSleep,
		"time":      biTime,
		"localtime": biLocaltime,
		"gmtime":    biGmtime,

		"to_json":   biToJSON,
		"from_json": biFromJSON,
		"Dumper":    biDumper,
		"dumper":    biDumper,
	}
	builtinNames = make(map[string]bool, len(builtins))
	for name := range builtins {
		builtinNames[name] = true
	}
}

func (in *Interp) evalCall(c *Call, ctx Context) ([]*Scalar, error) {
	if c.Amp {
		code, ok := in.subs[c.Name]
		if !ok {
			return nil, in.dief(c.Line, "Undefined subroutine &main::%s called", c.Name)
		}
		args, err := in.evalExprs(c.Args, ListCtx)
		if err != nil {
			return nil, err
		}
		return in.callCode(code, args, ctx, c.Line)
	}
	if fn, ok := builtins[c.Name]; ok {
		return fn(in, c, ctx)
	}
	if code, ok := in.subs[c.Name]; ok {
		args, err := in.evalExprs(c.Args, ListCtx)
		if err != nil {
			return nil, err
		}
		return in.callCode(code, args, ctx, c.Line)
	}
	return nil, in.dief(c.Line, "Undefined subroutine &main::%s called", c.Name)
}

// --- Argument helpers ---

func (in *Interp) argValues(c *Call) ([]*Scalar, error) {
	return in.evalExprs(c.Args, ListCtx)
}

// argOrTopic is the common one-optional-argument shape: length, lc, chr
// and friends default to $_.
func (in *Interp) argOrTopic(c *Call) (*Scalar, error) {
	if len(c.Args) == 0 {
		return in.Topic(), nil
	}
	return in.evalScalar(c.Args[0])
}

func (in *Interp) argNum(c *Call, i int, def float64) (float64, error) {
	if i >= len(c.Args) {
		return def, nil
	}
	v, err := in.evalScalar(c.Args[i])
	if err != nil {
		return 0, err
	}
	return v.Num(), nil
}

// handleArg resolves a filehandle argument: a bareword parsed as a call,
// or a scalar holding a handle reference.
func (in *Interp) handleArg(e Expr, line int) (*Handle, error) {
	name := ""
	switch x := e.(type) {
	case *Call:
		if len(x.Args) == 0 && x.Block == nil {
			name = x.Name
		}
	case *StringLit:
		if !x.Interp {
			name = x.Text
		}
	}
	if name != "" {
		if h, ok := in.handles[name]; ok {
			return h, nil
		}
		return nil, in.dief(line, "Bad filehandle: %s", name)
	}
	sc, err := in.evalScalar(e)
	if err != nil {
		return nil, err
	}
	if sc.IsRef() && sc.Ref().Kind == RefGlob {
		return sc.Ref().Handle, nil
	}
	return nil, in.dief(line, "Bad filehandle")
}

// --- Output ---

func (in *Interp) outputHandle(c *Call) (*Handle, error) {
	if c.Handle == nil {
		return in.stdout, nil
	}
	if lit, ok := c.Handle.(*StringLit); ok {
		if h, ok := in.handles[lit.Text]; ok {
			return h, nil
		}
		return nil, in.dief(c.Line, "Bad filehandle: %s", lit.Text)
	}
	sc, err := in.evalScalar(c.Handle)
	if err != nil {
		return nil, err
	}
	if sc.IsRef() && sc.Ref().Kind == RefGlob {
		return sc.Ref().Handle, nil
	}
	return nil, in.dief(c.Line, "Bad filehandle")
}

func biPrint(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.outputHandle(c)
	if err != nil {
		return nil, err
	}
	var vals []*Scalar
	if len(c.Args) == 0 {
		vals = one(in.Topic())
	} else {
		vals, err = in.argValues(c)
		if err != nil {
			return nil, err
		}
	}
	ofs, ors := in.outputSeps()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Str()
	}
	if _, err := h.Write([]byte(strings.Join(parts, ofs) + ors)); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biSay(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.outputHandle(c)
	if err != nil {
		return nil, err
	}
	var vals []*Scalar
	if len(c.Args) == 0 {
		vals = one(in.Topic())
	} else {
		vals, err = in.argValues(c)
		if err != nil {
			return nil, err
		}
	}
	ofs, _ := in.outputSeps()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Str()
	}
	if _, err := h.Write([]byte(strings.Join(parts, ofs) + "\n")); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biPrintf(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.outputHandle(c)
	if err != nil {
		return nil, err
	}
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for printf")
	}
	out := perlSprintf(vals[0].Str(), vals[1:])
	if _, err := h.Write([]byte(out)); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biSprintf(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for sprintf")
	}
	return one(Str(perlSprintf(vals[0].Str(), vals[1:]))), nil
}

// perlSprintf renders a format string, coercing each argument to what
// its conversion wants. Star widths consume an argument.
func perlSprintf(format string, args []*Scalar) string {
	var out strings.Builder
	ai := 0
	next := func() *Scalar {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return Undef()
	}

	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			out.WriteByte(ch)
			continue
		}
		if i+1 >= len(format) {
			out.WriteByte('%')
			break
		}

		spec := []byte{'%'}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ 0#", format[j]) >= 0 {
			spec = append(spec, format[j])
			j++
		}
		if j < len(format) && format[j] == '*' {
			spec = append(spec, []byte(strconv.Itoa(next().Int()))...)
			j++
		} else {
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				spec = append(spec, format[j])
				j++
			}
		}
		if j < len(format) && format[j] == '.' {
			spec = append(spec, '.')
			j++
			if j < len(format) && format[j] == '*' {
				spec = append(spec, []byte(strconv.Itoa(next().Int()))...)
				j++
			} else {
				for j < len(format) && format[j] >= '0' && format[j] <= '9' {
					spec = append(spec, format[j])
					j++
				}
			}
		}
		if j >= len(format) {
			out.Write(spec)
			break
		}

		verb := format[j]
		switch verb {
		case '%':
			out.WriteByte('%')
		case 's':
			fmt.Fprintf(&out, string(append(spec, 's')), next().Str())
		case 'c':
			fmt.Fprintf(&out, string(append(spec, 'c')), rune(next().Int()))
		case 'd', 'i':
			fmt.Fprintf(&out, string(append(spec, 'd')), int64(next().Num()))
		case 'u':
			fmt.Fprintf(&out, string(append(spec, 'd')), uint64(int64(next().Num())))
		case 'o', 'x', 'X', 'b':
			fmt.Fprintf(&out, string(append(spec, verb)), int64(next().Num()))
		case 'e', 'E', 'f', 'g', 'G':
			fmt.Fprintf(&out, string(append(spec, verb)), next().Num())
		default:
			out.Write(spec)
			out.WriteByte(verb)
		}
		i = j
	}
	return out.String()
}

// --- Strings ---

func biLength(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	if !v.Defined() {
		return one(Undef()), nil
	}
	return one(Num(float64(len(v.Str())))), nil
}

func biSubstr(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) < 2 {
		return nil, in.dief(c.Line, "Not enough arguments for substr")
	}
	if len(c.Args) >= 4 {
		// Four arguments: splice the replacement into the target.
		slot, err := in.lvalue(c.Args[0])
		if err != nil {
			return nil, err
		}
		off, err := in.argNum(c, 1, 0)
		if err != nil {
			return nil, err
		}
		length, err := in.argNum(c, 2, 0)
		if err != nil {
			return nil, err
		}
		repl, err := in.evalScalar(c.Args[3])
		if err != nil {
			return nil, err
		}
		s := slot.Str()
		lo, hi, ok := substrRange(len(s), int(off), int(length), true)
		if !ok {
			return nil, in.dief(c.Line, "substr outside of string")
		}
		removed := s[lo:hi]
		slot.SetStr(s[:lo] + repl.Str() + s[hi:])
		return one(Str(removed)), nil
	}

	v, err := in.evalScalar(c.Args[0])
	if err != nil {
		return nil, err
	}
	off, err := in.argNum(c, 1, 0)
	if err != nil {
		return nil, err
	}
	s := v.Str()
	var lo, hi int
	var ok bool
	if len(c.Args) >= 3 {
		length, err := in.argNum(c, 2, 0)
		if err != nil {
			return nil, err
		}
		lo, hi, ok = substrRange(len(s), int(off), int(length), true)
	} else {
		lo, hi, ok = substrRange(len(s), int(off), 0, false)
	}
	if !ok {
		return one(Undef()), nil
	}
	return one(Str(s[lo:hi])), nil
}

// substrRange resolves the offset and length rules: negatives count from
// the end, and an out-of-range start yields no string.
func substrRange(n, off, length int, haveLen bool) (lo, hi int, ok bool) {
	if off < 0 {
		off = n + off
	}
	if off < 0 || off > n {
		return 0, 0, false
	}
	if !haveLen {
		return off, n, true
	}
	if length < 0 {
		hi = n + length
	} else {
		hi = off + length
	}
	if hi > n {
		hi = n
	}
	if hi < off {
		hi = off
	}
	return off, hi, true
}

func biIndex(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, in.dief(c.Line, "Not enough arguments for index")
	}
	s, sub := vals[0].Str(), vals[1].Str()
	from := 0
	if len(vals) >= 3 {
		from = vals[2].Int()
	}
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		return one(Num(-1)), nil
	}
	i := strings.Index(s[from:], sub)
	if i < 0 {
		return one(Num(-1)), nil
	}
	return one(Num(float64(i + from))), nil
}

func biRindex(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, in.dief(c.Line, "Not enough arguments for rindex")
	}
	s, sub := vals[0].Str(), vals[1].Str()
	limit := len(s)
	if len(vals) >= 3 {
		limit = vals[2].Int() + len(sub)
		if limit > len(s) {
			limit = len(s)
		}
		if limit < 0 {
			return one(Num(-1)), nil
		}
	}
	i := strings.LastIndex(s[:limit], sub)
	return one(Num(float64(i))), nil
}

func biLc(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Str(strings.ToLower(v.Str()))), nil
}

func biUc(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Str(strings.ToUpper(v.Str()))), nil
}

func biLcfirst(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := v.Str()
	if s == "" {
		return one(Str("")), nil
	}
	return one(Str(strings.ToLower(s[:1]) + s[1:])), nil
}

func biUcfirst(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := v.Str()
	if s == "" {
		return one(Str("")), nil
	}
	return one(Str(strings.ToUpper(s[:1]) + s[1:])), nil
}

// chompTargets resolves the writable scalars chomp and chop operate on.
func (in *Interp) chompTargets(c *Call) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return one(in.Topic()), nil
	}
	var out []*Scalar
	for _, a := range c.Args {
		if v, ok := a.(*Var); ok && v.Sigil == '@' {
			arr := in.namedArray(v.Name, false)
			for i := range arr.Elems {
				out = append(out, arr.Elems[i])
			}
			continue
		}
		slot, err := in.lvalue(a)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

func biChomp(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	targets, err := in.chompTargets(c)
	if err != nil {
		return nil, err
	}
	sep := "\n"
	if sp := in.inputSep(); sp != nil && *sp != "" {
		sep = *sp
	}
	count := 0
	for _, t := range targets {
		if !t.Defined() {
			continue
		}
		s := t.Str()
		if strings.HasSuffix(s, sep) {
			t.SetStr(s[:len(s)-len(sep)])
			count += len(sep)
		}
	}
	return one(Num(float64(count))), nil
}

func biChop(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	targets, err := in.chompTargets(c)
	if err != nil {
		return nil, err
	}
	last := ""
	for _, t := range targets {
		s := t.Str()
		if s == "" {
			continue
		}
		last = s[len(s)-1:]
		t.SetStr(s[:len(s)-1])
	}
	return one(Str(last)), nil
}

func biChr(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Str(string(rune(v.Int())))), nil
}

func biOrd(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := v.Str()
	if s == "" {
		return one(Num(0)), nil
	}
	r := []rune(s)
	return one(Num(float64(r[0]))), nil
}

func biHex(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := strings.TrimPrefix(strings.TrimPrefix(v.Str(), "0x"), "0X")
	n, _ := strconv.ParseUint(leadingDigits(s, 16), 16, 64)
	return one(Num(float64(n))), nil
}

func biOct(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(v.Str())
	base := 8
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		s, base = s[2:], 2
	case strings.HasPrefix(s, "0o"):
		s = s[2:]
	}
	n, _ := strconv.ParseUint(leadingDigits(s, base), base, 64)
	return one(Num(float64(n))), nil
}

// leadingDigits keeps the prefix of s valid in the given base, the way
// numeric conversion stops at the first bad character.
func leadingDigits(s string, base int) string {
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		case c == '_':
			continue
		default:
			d = 99
		}
		if d >= base {
			break
		}
	}
	return strings.ReplaceAll(s[:i], "_", "")
}

func biQuotemeta(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	s := v.Str()
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		isWord := ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
		if !isWord {
			out.WriteByte('\\')
		}
		out.WriteByte(ch)
	}
	return one(Str(out.String())), nil
}

func biJoin(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for join")
	}
	sep := vals[0].Str()
	parts := make([]string, len(vals)-1)
	for i, v := range vals[1:] {
		parts[i] = v.Str()
	}
	return one(Str(strings.Join(parts, sep))), nil
}

// --- split ---

var awkSplit *Pattern

func init() {
	awkSplit, _ = CompilePattern(`\s+`, "")
}

// splitPattern interprets the first split argument: a pattern literal
// compiles directly, anything else evaluates to a string pattern, and
// the single-space string selects awk-style field splitting.
func (in *Interp) splitPattern(e Expr) (*Pattern, bool, error) {
	switch x := e.(type) {
	case *Match:
		if x.Re != nil {
			src, err := in.interpolate(x.Re.Pattern, interpPattern, x.Re.Line)
			if err != nil {
				return nil, false, err
			}
			p, err := in.compilePattern(src, x.Re.Flags, x.Re.Line)
			return p, false, err
		}
	case *RegexLit:
		src, err := in.interpolate(x.Pattern, interpPattern, x.Line)
		if err != nil {
			return nil, false, err
		}
		p, err := in.compilePattern(src, x.Flags, x.Line)
		return p, false, err
	}
	v, err := in.evalScalar(e)
	if err != nil {
		return nil, false, err
	}
	if v.IsRef() && v.Ref().Kind == RefRegexp {
		return v.Ref().Regexp, false, nil
	}
	if v.Str() == " " {
		return nil, true, nil
	}
	p, err := in.compilePattern(v.Str(), "", e.Pos())
	return p, false, err
}

func biSplit(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	pat := awkSplit
	awk := true
	if len(c.Args) > 0 {
		var err error
		pat, awk, err = in.splitPattern(c.Args[0])
		if err != nil {
			return nil, err
		}
		if awk {
			pat = awkSplit
		}
	}
	var target *Scalar
	var err error
	if len(c.Args) > 1 {
		target, err = in.evalScalar(c.Args[1])
		if err != nil {
			return nil, err
		}
	} else {
		target = in.Topic()
	}
	limit := 0
	if len(c.Args) > 2 {
		lv, err := in.evalScalar(c.Args[2])
		if err != nil {
			return nil, err
		}
		limit = lv.Int()
	}

	out := splitFields(pat, awk, target.Str(), limit)
	if ctx == ScalarCtx {
		return one(Num(float64(len(out)))), nil
	}
	return out, nil
}

func splitFields(pat *Pattern, awk bool, s string, limit int) []*Scalar {
	if awk {
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if s == "" {
		return nil
	}
	var out []*Scalar
	last, search := 0, 0
	for search <= len(s) {
		if limit > 0 && len(out) >= limit-1 {
			break
		}
		loc := pat.FindSubmatchIndex(s, search)
		if loc == nil {
			break
		}
		if loc[0] == loc[1] {
			// A zero-width match at the front never makes an empty
			// leading field; one at the end stops the scan.
			if loc[0] == 0 {
				search = 1
				continue
			}
			if loc[0] >= len(s) {
				break
			}
			out = append(out, Str(s[last:loc[0]]))
			out = appendSplitCaptures(out, s, pat, loc)
			last = loc[0]
			search = loc[0] + 1
			continue
		}
		out = append(out, Str(s[last:loc[0]]))
		out = appendSplitCaptures(out, s, pat, loc)
		last = loc[1]
		search = loc[1]
	}
	out = append(out, Str(s[last:]))
	if limit <= 0 {
		for len(out) > 0 && out[len(out)-1].Str() == "" {
			out = out[:len(out)-1]
		}
	}
	return out
}

func appendSplitCaptures(out []*Scalar, s string, pat *Pattern, loc []int) []*Scalar {
	for g := 1; g <= pat.NumSubexp(); g++ {
		if loc[2*g] >= 0 {
			out = append(out, Str(s[loc[2*g]:loc[2*g+1]]))
		} else {
			out = append(out, Undef())
		}
	}
	return out
}

func biReverse(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if ctx == ScalarCtx {
		var b strings.Builder
		for _, v := range vals {
			b.WriteString(v.Str())
		}
		s := []byte(b.String())
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
		return one(Str(string(s))), nil
	}
	out := make([]*Scalar, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = v
	}
	return out, nil
}

// --- Numbers ---

func biAbs(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Abs(v.Num()))), nil
}

func biInt(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Trunc(v.Num()))), nil
}

func biSqrt(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	n := v.Num()
	if n < 0 {
		return nil, in.dief(c.Line, "Can't take sqrt of %s", formatNumber(n))
	}
	return one(Num(math.Sqrt(n))), nil
}

func biLog(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	n := v.Num()
	if n <= 0 {
		return nil, in.dief(c.Line, "Can't take log of %s", formatNumber(n))
	}
	return one(Num(math.Log(n))), nil
}

func biExp(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Exp(v.Num()))), nil
}

func biSin(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Sin(v.Num()))), nil
}

func biCos(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Cos(v.Num()))), nil
}

func biAtan2(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	y, err := in.argNum(c, 0, 0)
	if err != nil {
		return nil, err
	}
	x, err := in.argNum(c, 1, 0)
	if err != nil {
		return nil, err
	}
	return one(Num(math.Atan2(y, x))), nil
}

func (in *Interp) ensureRand() {
	if !in.seeded {
		in.rng = rand.New(rand.NewSource(in.host.Now().UnixNano()))
		in.seeded = true
	}
}

func biRand(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	in.ensureRand()
	max, err := in.argNum(c, 0, 1)
	if err != nil {
		return nil, err
	}
	if max == 0 {
		max = 1
	}
	return one(Num(in.rng.Float64() * max)), nil
}

func biSrand(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	seed, err := in.argNum(c, 0, float64(in.host.Now().UnixNano()))
	if err != nil {
		return nil, err
	}
	old := in.lastSeed
	in.rng = rand.New(rand.NewSource(int64(seed)))
	in.seeded = true
	in.lastSeed = seed
	return one(Num(old)), nil
}

// --- Arrays ---

func biPush(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for push")
	}
	arr, err := in.arrayTarget(c.Args[0], true, c.Line)
	if err != nil {
		return nil, err
	}
	vals, err := in.evalExprs(c.Args[1:], ListCtx)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		arr.Push(v.Copy())
	}
	return one(Num(float64(arr.Len()))), nil
}

func biUnshift(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for unshift")
	}
	arr, err := in.arrayTarget(c.Args[0], true, c.Line)
	if err != nil {
		return nil, err
	}
	vals, err := in.evalExprs(c.Args[1:], ListCtx)
	if err != nil {
		return nil, err
	}
	arr.Unshift(copyScalars(vals)...)
	return one(Num(float64(arr.Len()))), nil
}

// defaultPopArray is the no-argument target of shift and pop: @_ inside
// a sub, @ARGV at the top level.
func (in *Interp) defaultPopArray() *Array {
	if a, ok := in.cur.findArray("_"); ok {
		return a
	}
	return in.GlobalArray("ARGV")
}

func biPop(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	var arr *Array
	var err error
	if len(c.Args) == 0 {
		arr = in.defaultPopArray()
	} else {
		arr, err = in.arrayTarget(c.Args[0], true, c.Line)
		if err != nil {
			return nil, err
		}
	}
	return one(arr.Pop()), nil
}

func biShift(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	var arr *Array
	var err error
	if len(c.Args) == 0 {
		arr = in.defaultPopArray()
	} else {
		arr, err = in.arrayTarget(c.Args[0], true, c.Line)
		if err != nil {
			return nil, err
		}
	}
	return one(arr.Shift()), nil
}

func biSplice(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for splice")
	}
	arr, err := in.arrayTarget(c.Args[0], true, c.Line)
	if err != nil {
		return nil, err
	}
	off, err := in.argNum(c, 1, 0)
	if err != nil {
		return nil, err
	}
	length := float64(arr.Len())
	if len(c.Args) > 2 {
		length, err = in.argNum(c, 2, 0)
		if err != nil {
			return nil, err
		}
	}
	var repl []*Scalar
	if len(c.Args) > 3 {
		repl, err = in.evalExprs(c.Args[3:], ListCtx)
		if err != nil {
			return nil, err
		}
	}
	removed := arr.Splice(int(off), int(length), copyScalars(repl))
	if ctx == ScalarCtx {
		if len(removed) == 0 {
			return one(Undef()), nil
		}
		return one(removed[len(removed)-1]), nil
	}
	return removed, nil
}

func biSort(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	out := make([]*Scalar, len(vals))
	copy(out, vals)

	if c.Block == nil {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Str() < out[j].Str()
		})
		return out, nil
	}

	savedA := in.globals.scalars["a"]
	savedB := in.globals.scalars["b"]
	defer func() {
		in.globals.scalars["a"] = savedA
		in.globals.scalars["b"] = savedB
	}()

	var cmpErr error
	sort.SliceStable(out, func(i, j int) bool {
		if cmpErr != nil {
			return false
		}
		in.globals.scalars["a"] = out[i]
		in.globals.scalars["b"] = out[j]
		res, err := in.execBlockValue(c.Block, ScalarCtx)
		if err != nil {
			cmpErr = err
			return false
		}
		n := 0.0
		if len(res) > 0 {
			n = res[len(res)-1].Num()
		}
		return n < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return out, nil
}

// mapBody returns the per-element body of map and grep in either of the
// two call shapes: a block, or a leading expression.
func mapBody(c *Call) (body Expr, block *Block, rest []Expr, err error) {
	if c.Block != nil {
		return nil, c.Block, c.Args, nil
	}
	if len(c.Args) == 0 {
		return nil, nil, nil, fmt.Errorf("Not enough arguments for %s", c.Name)
	}
	return c.Args[0], nil, c.Args[1:], nil
}

func biMap(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	body, block, listArgs, err := mapBody(c)
	if err != nil {
		return nil, in.dief(c.Line, "%v", err)
	}
	vals, err := in.evalExprs(listArgs, ListCtx)
	if err != nil {
		return nil, err
	}

	saved := in.globals.scalars["_"]
	defer func() { in.globals.scalars["_"] = saved }()

	var out []*Scalar
	for _, elem := range vals {
		in.globals.scalars["_"] = elem
		var res []*Scalar
		if block != nil {
			res, err = in.execBlockValue(block, ListCtx)
		} else {
			res, err = in.evalExpr(body, ListCtx)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	if ctx == ScalarCtx {
		return one(Num(float64(len(out)))), nil
	}
	return out, nil
}

func biGrep(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	body, block, listArgs, err := mapBody(c)
	if err != nil {
		return nil, in.dief(c.Line, "%v", err)
	}
	vals, err := in.evalExprs(listArgs, ListCtx)
	if err != nil {
		return nil, err
	}

	saved := in.globals.scalars["_"]
	defer func() { in.globals.scalars["_"] = saved }()

	var out []*Scalar
	for _, elem := range vals {
		in.globals.scalars["_"] = elem
		var keep bool
		if block != nil {
			res, err := in.execBlockValue(block, ScalarCtx)
			if err != nil {
				return nil, err
			}
			keep = len(res) > 0 && res[len(res)-1].Bool()
		} else {
			keep, err = in.evalBool(body)
			if err != nil {
				return nil, err
			}
		}
		if keep {
			out = append(out, elem)
		}
	}
	if ctx == ScalarCtx {
		return one(Num(float64(len(out)))), nil
	}
	return out, nil
}

// --- Hashes ---

func (in *Interp) hashArg(c *Call) (*Hash, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for %s", c.Name)
	}
	return in.hashTarget(c.Args[0], false, c.Line)
}

func biKeys(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.hashArg(c)
	if err != nil {
		return nil, err
	}
	keys := h.Keys()
	if ctx == ScalarCtx {
		return one(Num(float64(len(keys)))), nil
	}
	out := make([]*Scalar, len(keys))
	for i, k := range keys {
		out[i] = Str(k)
	}
	return out, nil
}

func biValues(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.hashArg(c)
	if err != nil {
		return nil, err
	}
	keys := h.Keys()
	if ctx == ScalarCtx {
		return one(Num(float64(len(keys)))), nil
	}
	out := make([]*Scalar, len(keys))
	for i, k := range keys {
		out[i] = h.Get(k)
	}
	return out, nil
}

func biEach(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	h, err := in.hashArg(c)
	if err != nil {
		return nil, err
	}
	k, v, done := h.Each()
	if done {
		return nil, nil
	}
	return []*Scalar{Str(k), v}, nil
}

func biExists(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for exists")
	}
	el, ok := c.Args[0].(*Elem)
	if !ok {
		return nil, in.dief(c.Line, "exists argument is not a HASH or ARRAY element")
	}
	arr, hash, err := in.elemBase(el, true)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		k, err := in.evalScalar(el.Index)
		if err != nil {
			return nil, err
		}
		return one(boolVal(hash.Exists(k.Str()))), nil
	}
	i, err := in.evalScalar(el.Index)
	if err != nil {
		return nil, err
	}
	idx := i.Int()
	if idx < 0 {
		idx += arr.Len()
	}
	return one(boolVal(idx >= 0 && idx < arr.Len())), nil
}

func biDelete(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for delete")
	}
	switch t := c.Args[0].(type) {
	case *Elem:
		arr, hash, err := in.elemBase(t, true)
		if err != nil {
			return nil, err
		}
		if hash != nil {
			k, err := in.evalScalar(t.Index)
			if err != nil {
				return nil, err
			}
			return one(hash.Delete(k.Str())), nil
		}
		i, err := in.evalScalar(t.Index)
		if err != nil {
			return nil, err
		}
		idx := i.Int()
		if idx < 0 {
			idx += arr.Len()
		}
		if idx < 0 || idx >= arr.Len() {
			return one(Undef()), nil
		}
		v := arr.Elems[idx].Copy()
		if idx == arr.Len()-1 {
			arr.Truncate(idx)
		} else {
			arr.Elems[idx].SetUndef()
		}
		return one(v), nil
	case *Slice:
		if !t.Hash {
			return nil, in.dief(c.Line, "delete of an array slice is not supported")
		}
		h, err := in.hashTarget(t.Base, true, t.Line)
		if err != nil {
			return nil, err
		}
		idx, err := in.evalExprs(t.Index, ListCtx)
		if err != nil {
			return nil, err
		}
		out := make([]*Scalar, len(idx))
		for i, k := range idx {
			out[i] = h.Delete(k.Str())
		}
		return out, nil
	}
	return nil, in.dief(c.Line, "delete argument is not a HASH or ARRAY element")
}

// --- Values and control ---

func biDefined(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return one(boolVal(in.Topic().Defined())), nil
	}
	v, err := in.evalScalar(c.Args[0])
	if err != nil {
		return nil, err
	}
	return one(boolVal(v.Defined())), nil
}

func biUndef(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return one(Undef()), nil
	}
	switch t := c.Args[0].(type) {
	case *Var:
		switch t.Sigil {
		case '@':
			in.namedArray(t.Name, true).Clear()
			return one(Undef()), nil
		case '%':
			in.namedHash(t.Name, true).Clear()
			return one(Undef()), nil
		}
	}
	slot, err := in.lvalue(c.Args[0])
	if err != nil {
		return nil, err
	}
	slot.SetUndef()
	return one(Undef()), nil
}

func biScalar(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for scalar")
	}
	v, err := in.evalScalar(c.Args[0])
	if err != nil {
		return nil, err
	}
	return one(v), nil
}

func biRef(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	if !v.IsRef() {
		return one(Str("")), nil
	}
	return one(Str(v.Ref().Kind.String())), nil
}

func biEval(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if c.Block == nil {
		return nil, in.dief(c.Line, "string eval is not supported; use an eval block")
	}
	errv := in.GlobalScalar("@")
	vals, err := in.execBlockValue(c.Block, ctx)
	if err != nil {
		if de, ok := err.(*DieError); ok {
			errv.Set(de.Value)
			return one(Undef()), nil
		}
		return nil, err
	}
	errv.SetStr("")
	return vals, nil
}

func biDie(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 1 && vals[0].IsRef() {
		return nil, &DieError{Value: vals[0]}
	}
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(v.Str())
	}
	msg := b.String()
	if msg == "" {
		msg = "Died"
	}
	if !strings.HasSuffix(msg, "\n") {
		msg = fmt.Sprintf("%s at %s line %d.\n", msg, in.scriptName, c.Line)
	}
	return nil, &DieError{Value: Str(msg)}
}

func biWarn(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(v.Str())
	}
	msg := b.String()
	if msg == "" {
		msg = "Warning: something's wrong"
	}
	if !strings.HasSuffix(msg, "\n") {
		msg = fmt.Sprintf("%s at %s line %d.\n", msg, in.scriptName, c.Line)
	}
	fmt.Fprint(in.host.Stderr(), msg)
	return one(Num(1)), nil
}

func biExit(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	code, err := in.argNum(c, 0, 0)
	if err != nil {
		return nil, err
	}
	return nil, exitSignal{code: int(code)}
}

// --- Filehandles and the filesystem ---

func biOpen(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) < 2 {
		return nil, in.dief(c.Line, "Not enough arguments for open")
	}
	mode := ""
	var path string
	if len(c.Args) >= 3 {
		m, err := in.evalScalar(c.Args[1])
		if err != nil {
			return nil, err
		}
		p, err := in.evalScalar(c.Args[2])
		if err != nil {
			return nil, err
		}
		mode, path = strings.TrimSpace(m.Str()), p.Str()
	} else {
		spec, err := in.evalScalar(c.Args[1])
		if err != nil {
			return nil, err
		}
		s := strings.TrimSpace(spec.Str())
		switch {
		case strings.HasPrefix(s, ">>"):
			mode, path = ">>", strings.TrimSpace(s[2:])
		case strings.HasPrefix(s, ">"):
			mode, path = ">", strings.TrimSpace(s[1:])
		case strings.HasPrefix(s, "<"):
			mode, path = "<", strings.TrimSpace(s[1:])
		default:
			mode, path = "<", s
		}
	}

	var h *Handle
	switch mode {
	case "<":
		f, err := in.host.Open(path)
		if err != nil {
			in.setErrno(err)
			return one(Str("")), nil
		}
		h = NewReadHandle(path, f)
	case ">":
		f, err := in.host.Create(path)
		if err != nil {
			in.setErrno(err)
			return one(Str("")), nil
		}
		h = NewWriteHandle(path, f)
	case ">>":
		f, err := in.host.Append(path)
		if err != nil {
			in.setErrno(err)
			return one(Str("")), nil
		}
		h = NewWriteHandle(path, f)
	default:
		return nil, in.dief(c.Line, "Unknown open() mode '%s'", mode)
	}

	switch t := c.Args[0].(type) {
	case *Call:
		if len(t.Args) == 0 && t.Block == nil {
			in.handles[t.Name] = h
			return one(Num(1)), nil
		}
	case *StringLit:
		in.handles[t.Text] = h
		return one(Num(1)), nil
	}
	slot, err := in.lvalue(c.Args[0])
	if err != nil {
		return nil, err
	}
	slot.Set(NewHandleRef(h))
	return one(Num(1)), nil
}

func biClose(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for close")
	}
	h, err := in.handleArg(c.Args[0], c.Line)
	if err != nil {
		return nil, err
	}
	if err := h.Close(); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biEof(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		h := in.currentArgvHandle()
		if h == nil {
			return one(Num(1)), nil
		}
		return one(boolVal(h.EOF())), nil
	}
	h, err := in.handleArg(c.Args[0], c.Line)
	if err != nil {
		return nil, err
	}
	return one(boolVal(h.EOF())), nil
}

func biBinmode(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	return one(Num(1)), nil
}

func biUnlink(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		vals = one(in.Topic())
	}
	count := 0
	for _, v := range vals {
		if err := in.host.Remove(v.Str()); err != nil {
			in.setErrno(err)
			continue
		}
		count++
	}
	return one(Num(float64(count))), nil
}

func biRename(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, in.dief(c.Line, "Not enough arguments for rename")
	}
	if err := in.host.Rename(vals[0].Str(), vals[1].Str()); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biMkdir(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	if err := in.host.Mkdir(v.Str()); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biRmdir(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	if err := in.host.Remove(v.Str()); err != nil {
		in.setErrno(err)
		return one(Str("")), nil
	}
	return one(Num(1)), nil
}

func biStat(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	info, err := in.host.Stat(v.Str())
	if err != nil {
		in.setErrno(err)
		return nil, nil
	}
	mtime := info.ModTime().Unix()
	blocks := (info.Size() + 511) / 512
	fields := []float64{
		0, 0, float64(info.Mode().Perm()), 1, 0, 0, 0,
		float64(info.Size()), float64(mtime), float64(mtime), float64(mtime),
		4096, float64(blocks),
	}
	out := make([]*Scalar, len(fields))
	for i, f := range fields {
		out[i] = Num(f)
	}
	return out, nil
}

func biGlob(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	names, err := in.host.Glob(v.Str())
	if err != nil {
		in.setErrno(err)
		return nil, nil
	}
	out := make([]*Scalar, len(names))
	for i, n := range names {
		out[i] = Str(n)
	}
	if ctx == ScalarCtx {
		if len(out) == 0 {
			return one(Undef()), nil
		}
		return one(out[0]), nil
	}
	return out, nil
}

// --- Processes ---

func (in *Interp) commandArgv(vals []*Scalar) []string {
	argv := make([]string, len(vals))
	for i, v := range vals {
		argv[i] = v.Str()
	}
	return argv
}

func biSystem(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for system")
	}
	code, err := in.host.Run(in.commandArgv(vals))
	status := in.GlobalScalar("?")
	if err != nil {
		in.setErrno(err)
		status.SetNum(-1)
		return one(Num(-1)), nil
	}
	status.SetNum(float64(code * 256))
	return one(Num(float64(code * 256))), nil
}

func biExec(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for exec")
	}
	code, err := in.host.Run(in.commandArgv(vals))
	if err != nil {
		in.setErrno(err)
		return nil, exitSignal{code: 127}
	}
	return nil, exitSignal{code: code}
}

func biQx(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for qx")
	}
	out, code, err := in.host.Capture(in.commandArgv(vals))
	status := in.GlobalScalar("?")
	if err != nil {
		in.setErrno(err)
		status.SetNum(-1)
		return one(Undef()), nil
	}
	status.SetNum(float64(code * 256))
	if ctx == ScalarCtx {
		return one(Str(out)), nil
	}
	return splitKeepLines(out), nil
}

// splitKeepLines breaks captured output into records with their
// terminators attached, matching backticks in list context.
func splitKeepLines(s string) []*Scalar {
	var out []*Scalar
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, Str(s))
			break
		}
		out = append(out, Str(s[:i+1]))
		s = s[i+1:]
	}
	return out
}

// --- Time ---

func biSleep(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	secs, err := in.argNum(c, 0, 0)
	if err != nil {
		return nil, err
	}
	if secs > 0 && in.host.Interactive() {
		time.Sleep(time.Duration(secs * float64(time.Second)))
	}
	return one(Num(math.Trunc(secs))), nil
}

func biTime(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	return one(Num(float64(in.host.Now().Unix()))), nil
}

func (in *Interp) timeArg(c *Call) (time.Time, error) {
	if len(c.Args) == 0 {
		return in.host.Now().UTC(), nil
	}
	v, err := in.evalScalar(c.Args[0])
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(v.Num()), 0).UTC(), nil
}

func timeFields(t time.Time, ctx Context) []*Scalar {
	if ctx == ScalarCtx {
		return one(Str(t.Format("Mon Jan  2 15:04:05 2006")))
	}
	fields := []int{
		t.Second(), t.Minute(), t.Hour(), t.Day(), int(t.Month()) - 1,
		t.Year() - 1900, int(t.Weekday()), t.YearDay() - 1, 0,
	}
	out := make([]*Scalar, len(fields))
	for i, f := range fields {
		out[i] = Num(float64(f))
	}
	return out
}

// The sandbox clock runs in UTC, so localtime and gmtime agree.
func biLocaltime(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	t, err := in.timeArg(c)
	if err != nil {
		return nil, err
	}
	return timeFields(t, ctx), nil
}

func biGmtime(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	t, err := in.timeArg(c)
	if err != nil {
		return nil, err
	}
	return timeFields(t, ctx), nil
}

// --- JSON ---

func biToJSON(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	if len(c.Args) == 0 {
		return nil, in.dief(c.Line, "Not enough arguments for to_json")
	}
	v, err := in.evalScalar(c.Args[0])
	if err != nil {
		return nil, err
	}
	goVal, err := scalarToGo(v, make(map[*Ref]bool))
	if err != nil {
		return nil, in.dief(c.Line, "%v", err)
	}
	data, err := json.Marshal(goVal)
	if err != nil {
		return nil, in.dief(c.Line, "to_json: %v", err)
	}
	return one(Str(string(data))), nil
}

func biFromJSON(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	v, err := in.argOrTopic(c)
	if err != nil {
		return nil, err
	}
	var goVal interface{}
	if err := json.Unmarshal([]byte(v.Str()), &goVal); err != nil {
		return nil, in.dief(c.Line, "malformed JSON string: %v", err)
	}
	return one(goToScalar(goVal)), nil
}

func scalarToGo(s *Scalar, seen map[*Ref]bool) (interface{}, error) {
	switch s.Kind() {
	case KindUndef:
		return nil, nil
	case KindNum:
		return s.num, nil
	case KindStr:
		return s.str, nil
	}
	r := s.Ref()
	if seen[r] {
		return nil, fmt.Errorf("to_json: cannot encode cyclic data")
	}
	seen[r] = true
	defer delete(seen, r)
	switch r.Kind {
	case RefScalar:
		return scalarToGo(r.Scalar, seen)
	case RefArray:
		out := make([]interface{}, r.Array.Len())
		for i, e := range r.Array.Elems {
			v, err := scalarToGo(e, seen)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case RefHash:
		out := make(map[string]interface{}, r.Hash.Len())
		for _, k := range r.Hash.Keys() {
			v, err := scalarToGo(r.Hash.Get(k), seen)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("to_json: cannot encode a %s reference", r.Kind)
}

func goToScalar(v interface{}) *Scalar {
	switch x := v.(type) {
	case nil:
		return Undef()
	case bool:
		return boolVal(x)
	case float64:
		return Num(x)
	case string:
		return Str(x)
	case []interface{}:
		arr := &Array{}
		for _, e := range x {
			arr.Push(goToScalar(e))
		}
		return NewArrayRef(arr)
	case map[string]interface{}:
		h := NewHash()
		for k, e := range x {
			h.Slot(k).Set(goToScalar(e))
		}
		return NewHashRef(h)
	}
	return Undef()
}

func biDumper(in *Interp, c *Call, ctx Context) ([]*Scalar, error) {
	vals, err := in.argValues(c)
	if err != nil {
		return nil, err
	}
	return one(Str(DumpValues(vals))), nil
}
