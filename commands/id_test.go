package commands

import (
	"testing"
)

func TestId(t *testing.T) {
	cases := goldenTestSuite{
		"plain": {Args: []string{"id"}},
	}

	cases.Run(t, Id)
}
