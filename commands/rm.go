package commands

import (
	"errors"
	"fmt"

	"github.com/sigil-lang/sigil/core/vos"
)

// Rm implements a POSIX rm command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/rm.html
func Rm(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "rm [OPTION]... FILE...",
		Short: "Remove files or directories.",
	}

	recursive := cmd.Flags().BoolLong("recursive", 'r', "remove directories and their contents recursively")
	force := cmd.Flags().BoolLong("force", 'f', "ignore missing files, never prompt")

	return cmd.Run(virtOS, func() int {
		files := cmd.Flags().Args()
		if len(files) == 0 {
			if *force {
				return 0
			}
			cmd.LogProgramError(virtOS, errors.New("missing operand"))
			return 1
		}

		anyFailed := false
		for _, file := range files {
			info, err := virtOS.Stat(file)
			if err != nil {
				if !*force {
					fmt.Fprintf(virtOS.Stderr(), "rm: cannot remove %q: %s\n", file, err)
					anyFailed = true
				}
				continue
			}

			if info.IsDir() && !*recursive {
				fmt.Fprintf(virtOS.Stderr(), "rm: cannot remove %q: is a directory\n", file)
				anyFailed = true
				continue
			}

			op := virtOS.Remove
			if *recursive {
				op = virtOS.RemoveAll
			}
			if err := op(file); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "rm: cannot remove %q: %s\n", file, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

var _ vos.ProcessFunc = Rm

func init() {
	mustAddBinCmd("rm", Rm)
}
