package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRmdir(t *testing.T) {
	goldenTestSuite{
		"not-exist":       {Args: []string{"rmdir", "ghost"}},
		"not-empty":       {Args: []string{"rmdir", "/etc"}},
		"not-dir":         {Args: []string{"rmdir", "todo.txt"}},
		"missing-operand": {Args: []string{"rmdir"}},
	}.Run(t, Rmdir)
}

func TestRmdir_removesEmptyDirectory(t *testing.T) {
	cmd := vostest.Command(Rmdir, "rmdir", "/home/student/empty")
	require.NoError(t, cmd.VOS.Mkdir("/home/student/empty", 0755))

	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Empty(t, string(out))
	assert.Equal(t, 0, cmd.ExitStatus)

	exists, err := afero.DirExists(cmd.VOS, "/home/student/empty")
	require.NoError(t, err)
	assert.False(t, exists)
}
