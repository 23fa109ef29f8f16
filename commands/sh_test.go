package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellCommand builds a shell invocation backed by the real userland so
// scripts can fork cat, wc and friends.
func shellCommand(t *testing.T, script string) *vostest.Cmd {
	t.Helper()

	cmd := vostest.Command(RunShell, "/bin/sh", "-c", script)
	cmd.VOS = vostest.NewDeterministicOS(BuiltinProcessResolver)
	for _, name := range BinNames() {
		require.NoError(t, afero.WriteFile(cmd.VOS, "/bin/"+name, []byte("ELF"), 0755))
	}
	return cmd
}

func TestRunShell_scripts(t *testing.T) {
	cases := map[string]struct {
		script   string
		want     string
		wantExit int
	}{
		"words": {
			script: `echo hello class`,
			want:   "hello class\n",
		},
		"pipeline": {
			script: `cat /etc/hostname | wc -c`,
			want:   "10\n",
		},
		"and-chain": {
			script: `cat /etc/hostname && echo yes`,
			want:   "classroom\nyes\n",
		},
		"or-fallback": {
			script:   `cat nope.txt || echo fallback`,
			want:     "cat: open /home/student/nope.txt: file does not exist\nfallback\n",
			wantExit: 0,
		},
		"redirect": {
			script: `echo saved > notes.txt && cat notes.txt`,
			want:   "saved\n",
		},
		"cd-builtin": {
			script: `cd /tmp && pwd`,
			want:   "/tmp\n",
		},
		"not-found": {
			script:   `frobnicate`,
			want:     "sh: frobnicate: command not found\n",
			wantExit: 127,
		},
		"glob": {
			script: `echo *.txt`,
			want:   "numbers.txt todo.txt\n",
		},
		"quoted-glob": {
			script: `echo "*.txt"`,
			want:   "*.txt\n",
		},
		"param-expansion": {
			script: `echo $USER`,
			want:   "student\n",
		},
		"assignment": {
			script: `X=5; echo $X`,
			want:   "5\n",
		},
		"last-status": {
			script:   `cat nope.txt; echo $?`,
			want:     "cat: open /home/student/nope.txt: file does not exist\n1\n",
			wantExit: 0,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := shellCommand(t, tc.script)
			out, err := cmd.CombinedOutput()
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
			assert.Equal(t, tc.wantExit, cmd.ExitStatus)
		})
	}
}

func TestShell_prompt(t *testing.T) {
	cmd := shellCommand(t, "pwd")
	_, err := cmd.CombinedOutput()
	require.NoError(t, err)

	proc, err := cmd.VOS.StartProcess("/bin/sh", []string{"sh"}, nil)
	require.NoError(t, err)

	shell, err := NewShell(proc)
	require.NoError(t, err)
	assert.Equal(t, "student@classroom:~$ ", shell.prompt())

	require.NoError(t, proc.Chdir("/etc"))
	assert.Equal(t, "student@classroom:/etc$ ", shell.prompt())
}

func TestShell_envAssignmentsPersist(t *testing.T) {
	cmd := shellCommand(t, `CLASS=sigil`)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Empty(t, string(out))
	assert.Equal(t, 0, cmd.ExitStatus)
}
