package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSort(t *testing.T) {
	cases := goldenTestSuite{
		"lexical":         {Args: []string{"sort", "numbers.txt"}},
		"numeric":         {Args: []string{"sort", "-n", "numbers.txt"}},
		"reverse-numeric": {Args: []string{"sort", "-rn", "numbers.txt"}},
		"unique":          {Args: []string{"sort", "-u", "todo.txt"}},
		"stdin":           {Args: []string{"sort"}, Stdin: "pear\napple\nquince\n"},
	}

	cases.Run(t, Sort)
}

func TestNumericValue(t *testing.T) {
	cases := map[string]struct {
		input string
		want  float64
	}{
		"integer":        {"42", 42},
		"float":          {"3.5", 3.5},
		"negative":       {"-7", -7},
		"leading spaces": {"   19 ", 19},
		"trailing text":  {"19 bottles", 19},
		"no number":      {"bottles", 0},
		"empty":          {"", 0},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, numericValue(tc.input))
		})
	}
}
