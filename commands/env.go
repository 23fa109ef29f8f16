package commands

import (
	"fmt"

	"github.com/sigil-lang/sigil/core/vos"
)

// Env implements the POSIX env command.
func Env(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "env",
		Short: "Print the current environment.",

		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.Run(virtOS, func() int {
		for _, env := range virtOS.Environ() {
			fmt.Fprintln(virtOS.Stdout(), env)
		}
		return 0
	})
}

var _ vos.ProcessFunc = Env

func init() {
	mustAddBinCmd("env", Env)
}
