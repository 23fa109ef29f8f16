package commands

import (
	"testing"
)

func TestTail(t *testing.T) {
	cases := goldenTestSuite{
		"lines":   {Args: []string{"tail", "-n", "2", "todo.txt"}},
		"default": {Args: []string{"tail", "numbers.txt"}},
		"stdin":   {Args: []string{"tail", "-n", "1"}, Stdin: "first\nsecond\n"},
	}

	cases.Run(t, Tail)
}
