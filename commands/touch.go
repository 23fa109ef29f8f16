package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/sigil-lang/sigil/core/vos"
)

// Touch implements a POSIX touch command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/touch.html
func Touch(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "touch FILE...",
		Short: "Update file timestamps, creating files that don't exist.",
	}

	noCreate := cmd.Flags().BoolLong("no-create", 'c', "don't create files")

	return cmd.Run(virtOS, func() int {
		files := cmd.Flags().Args()
		if len(files) == 0 {
			cmd.LogProgramError(virtOS, errors.New("missing file operand"))
			return 1
		}

		now := virtOS.Now()
		anyFailed := false
		for _, file := range files {
			if _, err := virtOS.Stat(file); err != nil {
				if *noCreate {
					continue
				}

				fd, err := virtOS.OpenFile(file, os.O_CREATE|os.O_WRONLY, 0644)
				if err != nil {
					fmt.Fprintf(virtOS.Stderr(), "touch: cannot touch %q: %s\n", file, err)
					anyFailed = true
					continue
				}
				fd.Close()
			}

			if err := virtOS.Chtimes(file, now, now); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "touch: cannot touch %q: %s\n", file, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

var _ vos.ProcessFunc = Touch

func init() {
	mustAddBinCmd("touch", Touch)
}
