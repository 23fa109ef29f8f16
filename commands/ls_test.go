package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLs(t *testing.T) {
	cases := goldenTestSuite{
		"home":          {Args: []string{"ls"}},
		"long":          {Args: []string{"ls", "-l"}},
		"root":          {Args: []string{"ls", "/"}},
		"etc-long":      {Args: []string{"ls", "-l", "/etc"}},
		"file-long":     {Args: []string{"ls", "-l", "todo.txt"}},
		"home-dir-long": {Args: []string{"ls", "-l", "/home"}},
		"missing":       {Args: []string{"ls", "nope"}},
	}

	cases.Run(t, Ls)
}

func TestColumnize(t *testing.T) {
	short := func(names ...string) []lsEntry {
		var out []lsEntry
		for _, n := range names {
			out = append(out, lsEntry{name: n})
		}
		return out
	}

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, []int{0}, columnize(nil, 80))
	})

	t.Run("single column when narrow", func(t *testing.T) {
		widths := columnize(short("aaaa", "bbbb", "cccc"), 5)
		assert.Equal(t, 1, len(widths))
		assert.Equal(t, 4, widths[0])
	})
}
