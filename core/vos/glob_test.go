package vos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlob(t *testing.T) {
	vOS := newLoginOS(t)

	cases := map[string]struct {
		pattern string
		want    []string
	}{
		"relative": {
			pattern: "*.txt",
			want:    []string{"numbers.txt", "todo.txt"},
		},
		"absolute": {
			pattern: "/etc/pass*",
			want:    []string{"/etc/passwd"},
		},
		"recursive": {
			pattern: "/home/**/*.csv",
			want:    []string{"/home/student/users.csv"},
		},
		"single char": {
			pattern: "/var/log/sysl?g",
			want:    []string{"/var/log/syslog"},
		},
		"no match": {
			pattern: "*.zip",
			want:    nil,
		},
		"no metacharacters": {
			pattern: "todo.txt",
			want:    nil,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := Glob(vOS, tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGlob_badPattern(t *testing.T) {
	vOS := newLoginOS(t)

	_, err := Glob(vOS, "/etc/[")
	assert.Error(t, err)
}
