package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestWhich(t *testing.T) {
	cmd := vostest.Command(Which, "which", "cat", "missing")
	assert.Nil(t, afero.WriteFile(cmd.VOS, "/bin/cat", []byte("#!/bin/sh\n"), 0755))

	out, err := cmd.CombinedOutput()

	assert.Nil(t, err)
	assert.Equal(t, 1, cmd.ExitStatus, "exit code")
	assert.Equal(t, "/bin/cat\nwhich: executable file not found in $PATH\n", string(out))
}

func TestWhich_direct(t *testing.T) {
	cmd := vostest.Command(Which, "which", "/bin/sigil")
	assert.Nil(t, afero.WriteFile(cmd.VOS, "/bin/sigil", []byte("#!/bin/sh\n"), 0755))

	out, err := cmd.CombinedOutput()

	assert.Nil(t, err)
	assert.Equal(t, 0, cmd.ExitStatus, "exit code")
	assert.Equal(t, "/bin/sigil\n", string(out))
}
