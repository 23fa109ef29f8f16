package commands

import (
	"fmt"
	"sort"

	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds the shell builtins by name. Builtins run inside the
// shell's own process so they can change its state, unlike the userland
// commands which always fork.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

func cdBuiltin(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, s.VirtualOS.Getenv(EnvHome))
		fallthrough
	case 2:
		if err := s.VirtualOS.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.VirtualOS.Stderr(), "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.VirtualOS.Stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// exitBuiltin quits the shell and hangs up the session.
func exitBuiltin(s *Shell, args []string) int {
	s.Quit = true
	s.VirtualOS.SSHExit(0)
	return 0
}

func historyBuiltin(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.VirtualOS.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Display or manipulate the history list.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		s.Readline.Operation.ResetHistory()
		s.history = nil
		return 0
	}

	for i, line := range s.history {
		fmt.Fprintf(s.VirtualOS.Stdout(), "% 5d  %s\n", i, line)
	}
	return 0
}

func unsetBuiltin(s *Shell, args []string) int {
	opts := getopt.New()
	opts.Bool('f', "treat NAME as a function")
	opts.Bool('v', "treat NAME as a variable")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	optErr := opts.Getopt(args, nil)
	if optErr != nil || *helpOpt {
		w := s.VirtualOS.Stdout()
		fmt.Fprintln(w, "usage: unset [-fv] [NAME...]")
		fmt.Fprintln(w, "Unset shell values and functions.")
		return 0
	}

	for _, name := range opts.Args() {
		s.VirtualOS.Unsetenv(name)
	}
	return 0
}

// BuiltinNames returns the shell builtin names in sorted order.
func BuiltinNames() []string {
	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)
	return builtins
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(cdBuiltin)
	AllBuiltins["exit"] = ShellBuiltinFunc(exitBuiltin)
	AllBuiltins["history"] = ShellBuiltinFunc(historyBuiltin)
	AllBuiltins["logout"] = ShellBuiltinFunc(exitBuiltin)
	AllBuiltins["unset"] = ShellBuiltinFunc(unsetBuiltin)
}
