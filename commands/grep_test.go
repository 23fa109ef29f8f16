package commands

import (
	"testing"
)

func TestGrep(t *testing.T) {
	cases := goldenTestSuite{
		"match":        {Args: []string{"grep", "water", "todo.txt"}},
		"ignore-case":  {Args: []string{"grep", "-i", "september", "todo.txt"}},
		"line-numbers": {Args: []string{"grep", "-n", "water", "todo.txt"}},
		"invert":       {Args: []string{"grep", "-v", "water", "todo.txt"}},
		"multi-file":   {Args: []string{"grep", "water", "todo.txt", "numbers.txt"}},
		"stdin":        {Args: []string{"grep", "ssh"}, Stdin: "ssh login\ntelnet login\n"},
		"no-pattern":   {Args: []string{"grep"}},
		"bad-pattern":  {Args: []string{"grep", "(unclosed"}},
	}

	cases.Run(t, Grep)
}
