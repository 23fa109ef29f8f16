package commands

import "testing"

func TestHelp(t *testing.T) {
	goldenTestSuite{
		"default": {Args: []string{"help"}},
	}.Run(t, Help)
}
