package script

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"
)

// Kind is the state a scalar is in. A scalar holds exactly one thing at a
// time: nothing, a number, a string, or a reference. Conversions between
// number and string happen on demand and never fail.
type Kind int

const (
	KindUndef Kind = iota
	KindNum
	KindStr
	KindRef
)

// Scalar is the single-value variable. All variables, array elements and
// hash values share this representation, so aliasing (foreach loop
// variables, @_) works by passing the same *Scalar around.
type Scalar struct {
	kind Kind
	num  float64
	str  string
	ref  *Ref

	// pos is the resume offset for global matches in scalar context;
	// any write resets it.
	pos int
}

// RefKind is what a reference points at.
type RefKind int

const (
	RefScalar RefKind = iota
	RefArray
	RefHash
	RefCode
	RefGlob
	RefRegexp
)

func (k RefKind) String() string {
	switch k {
	case RefScalar:
		return "SCALAR"
	case RefArray:
		return "ARRAY"
	case RefHash:
		return "HASH"
	case RefCode:
		return "CODE"
	case RefGlob:
		return "GLOB"
	case RefRegexp:
		return "Regexp"
	}
	return "REF"
}

// refAddr doles out stable printable addresses so that stringified
// references are reproducible run to run.
var refAddr int64 = 0x559000

func nextRefAddr() int64 { return atomic.AddInt64(&refAddr, 0x18) }

// Ref is the target of a reference scalar.
type Ref struct {
	Kind   RefKind
	Scalar *Scalar
	Array  *Array
	Hash   *Hash
	Code   *Code
	Handle *Handle
	Regexp *Pattern
	addr   int64
}

func (r *Ref) address() int64 {
	if r.addr == 0 {
		r.addr = nextRefAddr()
	}
	return r.addr
}

// Array is an ordered list of scalars.
type Array struct {
	Elems []*Scalar
}

// Hash is a string-keyed map of scalars. Iteration order is the sorted
// key order, which keeps keys/values/each reproducible.
type Hash struct {
	m map[string]*Scalar

	// each() iterator state; reset by Keys and Clear.
	iter []string
	pos  int
}

// Code is a named or anonymous sub with its captured scope.
type Code struct {
	Name    string
	Body    *Block
	Closure *scope
}

// --- Constructors ---

func Undef() *Scalar        { return &Scalar{} }
func Num(f float64) *Scalar { return &Scalar{kind: KindNum, num: f} }
func Str(s string) *Scalar  { return &Scalar{kind: KindStr, str: s} }

// boolVal is the canonical comparison result: 1 for true, "" for false.
func boolVal(b bool) *Scalar {
	if b {
		return Num(1)
	}
	return Str("")
}

func NewArrayRef(a *Array) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefArray, Array: a}}
}

func NewHashRef(h *Hash) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefHash, Hash: h}}
}

func NewScalarRef(s *Scalar) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefScalar, Scalar: s}}
}

func NewCodeRef(c *Code) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefCode, Code: c}}
}

func NewHandleRef(h *Handle) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefGlob, Handle: h}}
}

func NewRegexpRef(p *Pattern) *Scalar {
	return &Scalar{kind: KindRef, ref: &Ref{Kind: RefRegexp, Regexp: p}}
}

// --- Inspection ---

func (s *Scalar) Kind() Kind     { return s.kind }
func (s *Scalar) Defined() bool  { return s.kind != KindUndef }
func (s *Scalar) IsRef() bool    { return s.kind == KindRef }
func (s *Scalar) Ref() *Ref      { return s.ref }

// Bool applies the truth rules: undef, the number 0, the empty string and
// the string "0" are false; everything else, including "00" and "0.0", is
// true. References are always true.
func (s *Scalar) Bool() bool {
	switch s.kind {
	case KindUndef:
		return false
	case KindNum:
		return s.num != 0
	case KindStr:
		return s.str != "" && s.str != "0"
	case KindRef:
		return true
	}
	return false
}

// Num converts to a number. Strings convert by their leading numeric
// prefix, so "42" is 42 and "3 apples" is 3; a string with no leading
// number is 0. Undef is 0.
func (s *Scalar) Num() float64 {
	switch s.kind {
	case KindNum:
		return s.num
	case KindStr:
		return leadingNumber(s.str)
	case KindRef:
		return float64(s.ref.address())
	}
	return 0
}

// Int truncates toward zero, the way array indexes and modulus operands
// are taken.
func (s *Scalar) Int() int { return int(int64(s.Num())) }

// Str converts to a string. Numbers format with up to 15 significant
// digits and no trailing zeros, so integral values print without a
// decimal point: 50 is "50", not "50.0". Undef is "".
func (s *Scalar) Str() string {
	switch s.kind {
	case KindNum:
		return formatNumber(s.num)
	case KindStr:
		return s.str
	case KindRef:
		return fmt.Sprintf("%s(0x%x)", s.ref.Kind, s.ref.address())
	}
	return ""
}

// --- Mutation ---

func (s *Scalar) Set(src *Scalar) {
	s.kind = src.kind
	s.num = src.num
	s.str = src.str
	s.ref = src.ref
	s.pos = 0
}

func (s *Scalar) SetNum(f float64) {
	s.kind = KindNum
	s.num = f
	s.str = ""
	s.ref = nil
	s.pos = 0
}

func (s *Scalar) SetStr(v string) {
	s.kind = KindStr
	s.str = v
	s.num = 0
	s.ref = nil
	s.pos = 0
}

func (s *Scalar) SetUndef() {
	s.kind = KindUndef
	s.num = 0
	s.str = ""
	s.ref = nil
	s.pos = 0
}

func (s *Scalar) SetRef(r *Ref) {
	s.kind = KindRef
	s.ref = r
	s.num = 0
	s.str = ""
	s.pos = 0
}

// Copy returns a detached scalar with the same value.
func (s *Scalar) Copy() *Scalar {
	c := &Scalar{}
	c.Set(s)
	return c
}

// Increment applies ++. A string of letters optionally followed by digits
// steps alphabetically with carry: "aa" to "ab", "Az" to "Ba", "a9" to
// "b0", "zz" to "aaa". Anything else increments numerically.
func (s *Scalar) Increment() {
	if s.kind == KindStr && isMagicIncrementable(s.str) {
		s.SetStr(magicIncrement(s.str))
		return
	}
	s.SetNum(s.Num() + 1)
}

func (s *Scalar) Decrement() { s.SetNum(s.Num() - 1) }

func isMagicIncrementable(v string) bool {
	if v == "" {
		return false
	}
	i := 0
	for i < len(v) && (v[i] >= 'a' && v[i] <= 'z' || v[i] >= 'A' && v[i] <= 'Z') {
		i++
	}
	if i == 0 {
		return false
	}
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		i++
	}
	return i == len(v)
}

func magicIncrement(v string) string {
	b := []byte(v)
	i := len(b) - 1
	for i >= 0 {
		switch {
		case b[i] >= '0' && b[i] <= '8', b[i] >= 'a' && b[i] <= 'y', b[i] >= 'A' && b[i] <= 'Y':
			b[i]++
			return string(b)
		case b[i] == '9':
			b[i] = '0'
		case b[i] == 'z':
			b[i] = 'a'
		case b[i] == 'Z':
			b[i] = 'A'
		}
		i--
	}
	// All positions carried; grow on the left with a matching character.
	switch {
	case v[0] == '0':
		return "1" + string(b)
	case b[0] == 'A':
		return "A" + string(b)
	default:
		return "a" + string(b)
	}
}

// leadingNumber parses the numeric prefix of a string, after optional
// leading whitespace: sign, digits, fraction, exponent.
func leadingNumber(v string) float64 {
	i := 0
	for i < len(v) && (v[i] == ' ' || v[i] == '\t' || v[i] == '\n' || v[i] == '\r') {
		i++
	}
	start := i
	if i < len(v) && (v[i] == '+' || v[i] == '-') {
		i++
	}
	digits := 0
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		i++
		digits++
	}
	if i < len(v) && v[i] == '.' {
		j := i + 1
		for j < len(v) && v[j] >= '0' && v[j] <= '9' {
			j++
			digits++
		}
		if j > i+1 || digits > 0 {
			i = j
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(v) && (v[i] == 'e' || v[i] == 'E') {
		j := i + 1
		if j < len(v) && (v[j] == '+' || v[j] == '-') {
			j++
		}
		exp := 0
		for j < len(v) && v[j] >= '0' && v[j] <= '9' {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	var f float64
	fmt.Sscanf(v[start:i], "%g", &f)
	return f
}

// formatNumber renders a float the way print does: %.15g, which keeps
// integers clean and strips trailing zeros.
func formatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.15g", f)
}

// --- Array ---

func NewArray(elems ...*Scalar) *Array {
	return &Array{Elems: elems}
}

func (a *Array) Len() int { return len(a.Elems) }

// index resolves a possibly negative index; ok is false when a negative
// index reaches before the start.
func (a *Array) index(i int) (int, bool) {
	if i < 0 {
		i += len(a.Elems)
		if i < 0 {
			return 0, false
		}
	}
	return i, true
}

// Get fetches an element without extending the array. Out of range reads
// yield undef.
func (a *Array) Get(i int) *Scalar {
	ri, ok := a.index(i)
	if !ok || ri >= len(a.Elems) {
		return Undef()
	}
	if a.Elems[ri] == nil {
		a.Elems[ri] = Undef()
	}
	return a.Elems[ri]
}

// Slot returns the element's storage, growing the array as needed so
// that $a[10] = 1 vivifies the gap with undef.
func (a *Array) Slot(i int) *Scalar {
	ri, ok := a.index(i)
	if !ok {
		return Undef()
	}
	for len(a.Elems) <= ri {
		a.Elems = append(a.Elems, Undef())
	}
	if a.Elems[ri] == nil {
		a.Elems[ri] = Undef()
	}
	return a.Elems[ri]
}

func (a *Array) Push(vals ...*Scalar) {
	a.Elems = append(a.Elems, vals...)
}

func (a *Array) Pop() *Scalar {
	if len(a.Elems) == 0 {
		return Undef()
	}
	v := a.Elems[len(a.Elems)-1]
	a.Elems = a.Elems[:len(a.Elems)-1]
	if v == nil {
		return Undef()
	}
	return v
}

func (a *Array) Shift() *Scalar {
	if len(a.Elems) == 0 {
		return Undef()
	}
	v := a.Elems[0]
	a.Elems = a.Elems[1:]
	if v == nil {
		return Undef()
	}
	return v
}

func (a *Array) Unshift(vals ...*Scalar) {
	a.Elems = append(vals, a.Elems...)
}

// Replace swaps in a fresh element list of copies of vals.
func (a *Array) Replace(vals []*Scalar) {
	a.Elems = make([]*Scalar, len(vals))
	for i, v := range vals {
		a.Elems[i] = v.Copy()
	}
}

func (a *Array) Clear() { a.Elems = nil }

// Truncate implements $#a = n, growing or shrinking to length n+1.
func (a *Array) Truncate(last int) {
	n := last + 1
	if n < 0 {
		n = 0
	}
	for len(a.Elems) < n {
		a.Elems = append(a.Elems, Undef())
	}
	a.Elems = a.Elems[:n]
}

// Splice removes count elements at offset, inserting repl in their
// place, and returns the removed elements.
func (a *Array) Splice(offset, count int, repl []*Scalar) []*Scalar {
	n := len(a.Elems)
	if offset < 0 {
		offset += n
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	if count < 0 {
		count = n - offset + count
	}
	if count < 0 {
		count = 0
	}
	if offset+count > n {
		count = n - offset
	}
	removed := make([]*Scalar, count)
	copy(removed, a.Elems[offset:offset+count])
	tail := make([]*Scalar, n-offset-count)
	copy(tail, a.Elems[offset+count:])
	a.Elems = append(a.Elems[:offset], append(copyScalars(repl), tail...)...)
	return removed
}

func copyScalars(in []*Scalar) []*Scalar {
	out := make([]*Scalar, len(in))
	for i, v := range in {
		out[i] = v.Copy()
	}
	return out
}

// --- Hash ---

func NewHash() *Hash {
	return &Hash{m: make(map[string]*Scalar)}
}

func (h *Hash) Len() int { return len(h.m) }

// Keys returns the keys in sorted order and resets the each() iterator.
func (h *Hash) Keys() []string {
	keys := make([]string, 0, len(h.m))
	for k := range h.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h.iter = nil
	h.pos = 0
	return keys
}

func (h *Hash) Exists(k string) bool {
	_, ok := h.m[k]
	return ok
}

// Get fetches without vivifying; missing keys yield undef.
func (h *Hash) Get(k string) *Scalar {
	if v, ok := h.m[k]; ok {
		return v
	}
	return Undef()
}

// Slot returns the value's storage, creating the entry if missing.
func (h *Hash) Slot(k string) *Scalar {
	if v, ok := h.m[k]; ok {
		return v
	}
	v := Undef()
	h.m[k] = v
	return v
}

func (h *Hash) Delete(k string) *Scalar {
	if v, ok := h.m[k]; ok {
		delete(h.m, k)
		return v
	}
	return Undef()
}

func (h *Hash) Clear() {
	h.m = make(map[string]*Scalar)
	h.iter = nil
	h.pos = 0
}

// Each steps the pair iterator; done is true once the snapshot is
// exhausted, after which the iterator rewinds.
func (h *Hash) Each() (key string, val *Scalar, done bool) {
	if h.iter == nil {
		h.iter = h.Keys()
		h.pos = 0
	}
	for h.pos < len(h.iter) {
		k := h.iter[h.pos]
		h.pos++
		if v, ok := h.m[k]; ok {
			return k, v, false
		}
	}
	h.iter = nil
	h.pos = 0
	return "", nil, true
}

// Replace fills the hash from a flattened key/value list; an odd trailing
// key gets undef.
func (h *Hash) Replace(vals []*Scalar) {
	h.Clear()
	for i := 0; i < len(vals); i += 2 {
		k := vals[i].Str()
		if i+1 < len(vals) {
			h.m[k] = vals[i+1].Copy()
		} else {
			h.m[k] = Undef()
		}
	}
}

// Pairs flattens to a key, value, key, value list in sorted key order.
func (h *Hash) Pairs() []*Scalar {
	var out []*Scalar
	for _, k := range h.Keys() {
		out = append(out, Str(k), h.m[k])
	}
	return out
}

// compareNum is the <=> operator.
func compareNum(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareStr is the cmp operator.
func compareStr(a, b string) int { return strings.Compare(a, b) }
