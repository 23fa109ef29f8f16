package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/stretchr/testify/assert"
)

func TestPwd(t *testing.T) {
	cases := goldenTestSuite{
		"home": {Args: []string{"pwd"}},
	}

	cases.Run(t, Pwd)
}

func TestPwd_afterChdir(t *testing.T) {
	cmd := vostest.Command(Pwd, "pwd")
	cmd.Dir = "/var/log"

	out, err := cmd.CombinedOutput()

	assert.Nil(t, err)
	assert.Equal(t, 0, cmd.ExitStatus, "exit code")
	assert.Equal(t, "/var/log\n", string(out))
}
