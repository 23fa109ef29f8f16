package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sigil-lang/sigil/core/vos"
)

// Chmod implements a POSIX chmod command with octal modes.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/chmod.html
func Chmod(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "chmod MODE FILE...",
		Short: "Change file modes.",
	}

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		if len(args) < 2 {
			cmd.LogProgramError(virtOS, errors.New("missing operand"))
			return 1
		}

		mode, err := strconv.ParseUint(args[0], 8, 32)
		if err != nil {
			cmd.LogProgramError(virtOS, fmt.Errorf("invalid mode: %q", args[0]))
			return 1
		}

		anyFailed := false
		for _, file := range args[1:] {
			if err := virtOS.Chmod(file, os.FileMode(mode)); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "chmod: cannot access %q: %s\n", file, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

var _ vos.ProcessFunc = Chmod

func init() {
	mustAddBinCmd("chmod", Chmod)
}
