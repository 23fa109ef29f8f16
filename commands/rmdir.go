package commands

import (
	"errors"
	"fmt"

	"github.com/sigil-lang/sigil/core/vos"
	"github.com/spf13/afero"
)

// Rmdir implements a POSIX rmdir command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/rmdir.html
func Rmdir(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "rmdir DIRECTORY...",
		Short: "Remove empty directories.",
	}

	return cmd.Run(virtOS, func() int {
		directories := cmd.Flags().Args()
		if len(directories) == 0 {
			cmd.LogProgramError(virtOS, errors.New("missing operand"))
			return 1
		}

		anyFailed := false
		for _, dir := range directories {
			info, err := virtOS.Stat(dir)
			switch {
			case err != nil:
				fmt.Fprintf(virtOS.Stderr(), "rmdir: failed to remove %q: %s\n", dir, err)
				anyFailed = true
				continue

			case !info.IsDir():
				fmt.Fprintf(virtOS.Stderr(), "rmdir: failed to remove %q: not a directory\n", dir)
				anyFailed = true
				continue
			}

			entries, err := afero.ReadDir(virtOS, dir)
			switch {
			case err != nil:
				fmt.Fprintf(virtOS.Stderr(), "rmdir: failed to remove %q: %s\n", dir, err)
				anyFailed = true

			case len(entries) > 0:
				fmt.Fprintf(virtOS.Stderr(), "rmdir: failed to remove %q: directory not empty\n", dir)
				anyFailed = true

			default:
				if err := virtOS.Remove(dir); err != nil {
					fmt.Fprintf(virtOS.Stderr(), "rmdir: failed to remove %q: %s\n", dir, err)
					anyFailed = true
				}
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

var _ vos.ProcessFunc = Rmdir

func init() {
	mustAddBinCmd("rmdir", Rmdir)
}
