package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sigil-lang/sigil/core/vos"
)

// Help lists everything a student can run in the sandbox.
func Help(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:       "help",
		Short:     "List the commands available in the sandbox.",
		NeverBail: true,
	}

	return cmd.Run(virtOS, func() int {
		w := virtOS.Stdout()
		fmt.Fprintln(w, "These commands are available in the classroom sandbox.")
		fmt.Fprintln(w, "Most accept --help. Try `recipes list` for worked one-liner examples.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")

		var names []string
		for _, entry := range ListBuiltinCommands() {
			names = append(names, strings.Join(entry.Names, ", "))
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Shell builtins:")
		for _, name := range BuiltinNames() {
			fmt.Fprintf(w, "  %s\n", name)
		}
		return 0
	})
}

var _ vos.ProcessFunc = Help

func init() {
	mustAddBinCmd("help", Help)
}
