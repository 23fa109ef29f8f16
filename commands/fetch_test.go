package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	goldenTestSuite{
		"page":         {Args: []string{"fetch", "example.com"}},
		"words":        {Args: []string{"fetch", "mirror.classroom.test/words.txt"}},
		"stdout":       {Args: []string{"fetch", "-O", "-", "mirror.classroom.test/words.txt"}},
		"not-found":    {Args: []string{"fetch", "example.com/missing.html"}},
		"unknown-host": {Args: []string{"fetch", "nowhere.invalid"}},
		"no-url":       {Args: []string{"fetch"}},
	}.Run(t, Fetch)
}

func TestFetch_savesFile(t *testing.T) {
	cmd := vostest.Command(Fetch, "fetch", "mirror.classroom.test/words.txt")
	_, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)

	want, err := afero.ReadFile(cmd.VOS, "/usr/share/dict/words")
	require.NoError(t, err)
	got, err := afero.ReadFile(cmd.VOS, "/home/student/words.txt")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestFetch_exitCodes(t *testing.T) {
	cases := map[string]struct {
		url  string
		want int
	}{
		"ok":        {url: "example.com", want: 0},
		"not-found": {url: "example.com/nope", want: 8},
		"no-host":   {url: "nowhere.invalid", want: 4},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := vostest.Command(Fetch, "fetch", tc.url)
			_, err := cmd.CombinedOutput()
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd.ExitStatus)
		})
	}
}
