package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/stretchr/testify/assert"
)

func TestClear_noPTY(t *testing.T) {
	cmd := vostest.Command(Clear, "clear")

	out, err := cmd.CombinedOutput()

	assert.Nil(t, err)
	assert.Equal(t, 0, cmd.ExitStatus, "exit code")
	assert.Empty(t, string(out))
}
