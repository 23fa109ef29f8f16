package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRm(t *testing.T) {
	goldenTestSuite{
		"missing":         {Args: []string{"rm", "nope.txt"}},
		"force-missing":   {Args: []string{"rm", "-f", "nope.txt"}},
		"dir-refused":     {Args: []string{"rm", "/tmp"}},
		"missing-operand": {Args: []string{"rm"}},
	}.Run(t, Rm)
}

func TestRm_removesFile(t *testing.T) {
	cmd := vostest.Command(Rm, "rm", "/home/student/scratch.txt")
	require.NoError(t, afero.WriteFile(cmd.VOS, "/home/student/scratch.txt", []byte("gone soon"), 0644))

	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Empty(t, string(out))
	assert.Equal(t, 0, cmd.ExitStatus)

	exists, err := afero.Exists(cmd.VOS, "/home/student/scratch.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRm_recursive(t *testing.T) {
	cmd := vostest.Command(Rm, "rm", "-r", "/home/student/scratch")
	require.NoError(t, cmd.VOS.MkdirAll("/home/student/scratch", 0755))
	require.NoError(t, afero.WriteFile(cmd.VOS, "/home/student/scratch/a.txt", []byte("a"), 0644))

	_, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)

	exists, err := afero.Exists(cmd.VOS, "/home/student/scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}
