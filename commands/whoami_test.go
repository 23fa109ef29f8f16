package commands

import (
	"testing"
)

func TestWhoami(t *testing.T) {
	cases := goldenTestSuite{
		"plain": {Args: []string{"whoami"}},
	}

	cases.Run(t, Whoami)
}
