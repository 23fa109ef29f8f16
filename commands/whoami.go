package commands

import (
	"fmt"

	"github.com/sigil-lang/sigil/core/vos"
)

// Whoami implements the UNIX whoami command.
func Whoami(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "whoami",
		Short: "Print the user name for the current user.",

		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.Run(virtOS, func() int {
		fmt.Fprintln(virtOS.Stdout(), virtOS.SSHUser())
		return 0
	})
}

var _ vos.ProcessFunc = Whoami

func init() {
	mustAddBinCmd("whoami", Whoami)
}
