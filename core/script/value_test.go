package script

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarNum(t *testing.T) {
	cases := map[string]struct {
		in   *Scalar
		want float64
	}{
		"digits":             {Str("42"), 42},
		"float":              {Str("3.14"), 3.14},
		"leading prefix":     {Str("3 apples"), 3},
		"no leading number":  {Str("apples"), 0},
		"leading whitespace": {Str("  -7"), -7},
		"exponent":           {Str("1e3"), 1000},
		"bare fraction":      {Str(".5"), 0.5},
		"empty":              {Str(""), 0},
		"undef":              {Undef(), 0},
		"number passthrough": {Num(2.5), 2.5},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Num())
		})
	}
}

func TestScalarNum_stringArithmetic(t *testing.T) {
	// The conversion that makes "42" + 8 come out to 50.
	assert.Equal(t, 50.0, Str("42").Num()+8)
}

func TestScalarStr(t *testing.T) {
	cases := map[string]struct {
		in   *Scalar
		want string
	}{
		"integer stays clean": {Num(50), "50"},
		"fraction":            {Num(0.5), "0.5"},
		"negative":            {Num(-3), "-3"},
		"undef":               {Undef(), ""},
		"string passthrough":  {Str("x"), "x"},
		"repeating decimal":   {Num(1.0 / 3.0), "0.333333333333333"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Str())
		})
	}
}

func TestScalarBool(t *testing.T) {
	cases := map[string]struct {
		in   *Scalar
		want bool
	}{
		"undef":         {Undef(), false},
		"zero":          {Num(0), false},
		"empty string":  {Str(""), false},
		"string zero":   {Str("0"), false},
		"double zero":   {Str("00"), true},
		"zero point":    {Str("0.0"), true},
		"space":         {Str(" "), true},
		"word":          {Str("false"), true},
		"nonzero":       {Num(-1), true},
		"array ref":     {NewArrayRef(&Array{}), true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Bool())
		})
	}
}

func TestScalarIncrement(t *testing.T) {
	cases := map[string]struct {
		in   *Scalar
		want string
	}{
		"number":         {Num(41), "42"},
		"numeric string": {Str("41"), "42"},
		"letters":        {Str("aa"), "ab"},
		"carry":          {Str("Az"), "Ba"},
		"grow":           {Str("zz"), "aaa"},
		"grow upper":     {Str("Zz"), "AAa"},
		"letter digit":   {Str("a9"), "b0"},
		"undef":          {Undef(), "1"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			tc.in.Increment()
			assert.Equal(t, tc.want, tc.in.Str())
		})
	}
}

func TestScalarCopy_detached(t *testing.T) {
	orig := Str("before")
	dup := orig.Copy()
	orig.SetStr("after")

	assert.Equal(t, "before", dup.Str())
}

func TestRefStringify(t *testing.T) {
	a := NewArrayRef(&Array{})
	h := NewHashRef(NewHash())

	assert.Regexp(t, `^ARRAY\(0x[0-9a-f]+\)$`, a.Str())
	assert.Regexp(t, `^HASH\(0x[0-9a-f]+\)$`, h.Str())
	// Distinct referents get distinct addresses.
	assert.NotEqual(t, a.Str(), NewArrayRef(&Array{}).Str())
	// The same ref stringifies stably.
	assert.Equal(t, a.Str(), a.Str())
}

func TestArrayIndex(t *testing.T) {
	a := NewArray(Str("a"), Str("b"), Str("c"))

	assert.Equal(t, "a", a.Get(0).Str())
	assert.Equal(t, "c", a.Get(-1).Str())
	assert.Equal(t, "b", a.Get(-2).Str())
	assert.False(t, a.Get(5).Defined())
	assert.False(t, a.Get(-5).Defined())
}

func TestArrayStack(t *testing.T) {
	a := &Array{}
	a.Push(Str("x"), Str("y"))
	a.Unshift(Str("w"))

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "y", a.Pop().Str())
	assert.Equal(t, "w", a.Shift().Str())
	assert.Equal(t, 1, a.Len())

	a.Pop()
	assert.False(t, a.Pop().Defined(), "pop on empty yields undef")
}

func TestArrayTruncate(t *testing.T) {
	a := NewArray(Str("a"), Str("b"), Str("c"))

	a.Truncate(0)
	assert.Equal(t, 1, a.Len())

	a.Truncate(2)
	assert.Equal(t, 3, a.Len())
	assert.False(t, a.Get(2).Defined(), "growth fills with undef")
}

func TestArraySplice(t *testing.T) {
	a := NewArray(Str("a"), Str("b"), Str("c"), Str("d"))
	removed := a.Splice(1, 2, []*Scalar{Str("X")})

	assert.Equal(t, 2, len(removed))
	assert.Equal(t, "b", removed[0].Str())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "X", a.Get(1).Str())
	assert.Equal(t, "d", a.Get(2).Str())
}

func TestHashKeysSorted(t *testing.T) {
	h := NewHash()
	h.Slot("banana").SetNum(1)
	h.Slot("apple").SetNum(2)
	h.Slot("cherry").SetNum(3)

	assert.Equal(t, []string{"apple", "banana", "cherry"}, h.Keys())
}

func TestHashExistsDelete(t *testing.T) {
	h := NewHash()
	h.Slot("k").SetUndef()

	assert.True(t, h.Exists("k"), "undef value still exists")
	assert.False(t, h.Exists("missing"))

	old := h.Delete("k")
	assert.False(t, old.Defined())
	assert.False(t, h.Exists("k"))
}

func TestHashEach(t *testing.T) {
	h := NewHash()
	h.Slot("a").SetNum(1)
	h.Slot("b").SetNum(2)

	var got []string
	for {
		k, v, done := h.Each()
		if done {
			break
		}
		got = append(got, fmt.Sprintf("%s=%s", k, v.Str()))
	}
	assert.Equal(t, []string{"a=1", "b=2"}, got)

	// A fresh pass starts over.
	k, _, done := h.Each()
	assert.False(t, done)
	assert.Equal(t, "a", k)
}

func ExampleScalar_Str() {
	fmt.Println(Num(50).Str())
	fmt.Println(Str("42").Num() + 8)
	fmt.Println(Num(2.50).Str())

	// Output: 50
	// 50
	// 2.5
}
