package commands

import (
	"testing"
)

func TestUptime(t *testing.T) {
	cases := goldenTestSuite{
		"plain": {Args: []string{"uptime"}},
	}

	cases.Run(t, Uptime)
}
