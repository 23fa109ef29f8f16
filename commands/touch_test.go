package commands

import (
	"testing"
	"time"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouch(t *testing.T) {
	goldenTestSuite{
		"create":          {Args: []string{"touch", "notes.txt"}},
		"no-create":       {Args: []string{"touch", "-c", "ghost.txt"}},
		"missing-operand": {Args: []string{"touch"}},
	}.Run(t, Touch)
}

func TestTouch_createsFile(t *testing.T) {
	cmd := vostest.Command(Touch, "touch", "/home/student/new.txt")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Empty(t, string(out))
	assert.Equal(t, 0, cmd.ExitStatus)

	fi, err := cmd.VOS.Stat("/home/student/new.txt")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC), fi.ModTime())
}

func TestTouch_noCreateSkipsMissing(t *testing.T) {
	cmd := vostest.Command(Touch, "touch", "-c", "/home/student/ghost.txt")
	_, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)

	exists, err := afero.Exists(cmd.VOS, "/home/student/ghost.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}
