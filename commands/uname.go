package commands

import (
	"fmt"
	"strings"

	"github.com/sigil-lang/sigil/core/vos"
)

// Uname implements the UNIX uname command.
func Uname(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "uname [OPTION]...",
		Short: "Print system information.",
	}

	flags := cmd.Flags()
	all := flags.BoolLong("all", 'a', "print all information")
	kernelName := flags.BoolLong("kernel-name", 's', "print the kernel name")
	nodename := flags.BoolLong("nodename", 'n', "print the network node hostname")
	release := flags.BoolLong("kernel-release", 'r', "print the kernel release")
	version := flags.BoolLong("kernel-version", 'v', "print the kernel version")
	machine := flags.BoolLong("machine", 'm', "print the machine hardware name")

	return cmd.Run(virtOS, func() int {
		uname := virtOS.Uname()

		var fields []string
		appendField := func(enabled bool, value string) {
			if *all || enabled {
				fields = append(fields, value)
			}
		}

		nothingPicked := !(*all || *kernelName || *nodename || *release || *version || *machine)

		appendField(*kernelName || nothingPicked, uname.Sysname)
		appendField(*nodename, uname.Nodename)
		appendField(*release, uname.Release)
		appendField(*version, uname.Version)
		appendField(*machine, uname.Machine)

		fmt.Fprintln(virtOS.Stdout(), strings.Join(fields, " "))
		return 0
	})
}

var _ vos.ProcessFunc = Uname

func init() {
	mustAddBinCmd("uname", Uname)
}
