package vos

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Glob expands a shell pattern against the process's filesystem. Relative
// patterns resolve against the working directory and come back relative,
// the way a shell would report them. A pattern with no matches returns
// nil so callers can fall back to the literal text.
func Glob(virtOS VOS, pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return nil, nil
	}

	if path.IsAbs(pattern) {
		// io/fs names are unrooted, so anchor the filesystem at / before
		// matching and put the slash back afterwards.
		root := afero.NewIOFS(afero.NewBasePathFs(virtOS, "/"))
		matches, err := doublestar.Glob(root, strings.TrimPrefix(pattern, "/"))
		if err != nil {
			return nil, err
		}
		for i, m := range matches {
			matches[i] = "/" + m
		}
		sort.Strings(matches)
		return matches, nil
	}

	wd, err := virtOS.Getwd()
	if err != nil {
		wd = "/"
	}
	subtree := afero.NewIOFS(afero.NewBasePathFs(virtOS, wd))
	matches, err := doublestar.Glob(subtree, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
