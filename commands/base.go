package commands

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	getopt "github.com/pborman/getopt/v2"
	"github.com/sigil-lang/sigil/core/vos"
)

// CommandEntry is one registered userland command.
type CommandEntry struct {
	// Names the command answers to, e.g. sh.
	Names []string
	// Paths the command is installed at inside the sandbox.
	Paths []string
	Proc  vos.ProcessFunc
}

// allCommands maps an absolute sandbox path to its implementation.
var allCommands = make(map[string]vos.ProcessFunc)

var builtinEntries []CommandEntry

func mustAddCmd(cmd vos.ProcessFunc, dirs []string, names ...string) {
	if cmd == nil {
		panic(fmt.Sprintf("nil command: %v", names))
	}

	entry := CommandEntry{Names: names, Proc: cmd}
	for _, name := range names {
		for _, dir := range dirs {
			installPath := path.Join(dir, name)
			if _, exists := allCommands[installPath]; exists {
				panic(fmt.Sprintf("duplicate command: %s", installPath))
			}
			allCommands[installPath] = cmd
			entry.Paths = append(entry.Paths, installPath)
		}
	}
	builtinEntries = append(builtinEntries, entry)
}

// mustAddBinCmd registers a command under /bin and /usr/bin.
func mustAddBinCmd(name string, cmd vos.ProcessFunc, aliases ...string) {
	mustAddCmd(cmd, []string{"/bin", "/usr/bin"}, append([]string{name}, aliases...)...)
}

// ListBuiltinCommands returns the registered commands sorted by name.
func ListBuiltinCommands() []CommandEntry {
	out := append([]CommandEntry(nil), builtinEntries...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Names[0] < out[j].Names[0]
	})
	return out
}

// BinNames returns the command names to materialize under /bin.
func BinNames() []string {
	var names []string
	for _, entry := range builtinEntries {
		names = append(names, entry.Names...)
	}
	sort.Strings(names)
	return names
}

// BuiltinProcessResolver resolves an absolute path to the command
// installed there, or nil.
func BuiltinProcessResolver(path string) vos.ProcessFunc {
	return allCommands[path]
}

// SimpleCommand handles the boilerplate shared by the userland: getopt
// flag parsing, a --help flag and usage output.
type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(virtOS vos.VOS, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(virtOS.Args(), nil)
	if err != nil {
		virtOS.LogInvalidInvocation(err)
	}

	if err != nil && !s.NeverBail {
		fmt.Fprintf(virtOS.Stderr(), "error: %s\n\n", err)

		s.PrintHelp(virtOS.Stdout())
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(virtOS.Stdout())
		return 0
	}

	return callback()
}

// RunE runs the command reporting any error the callback returns in the
// command's name.
func (s *SimpleCommand) RunE(virtOS vos.VOS, callback func() error) int {
	return s.Run(virtOS, func() int {
		if err := callback(); err != nil {
			fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
			return 1
		}
		return 0
	})
}

// RunEachArg runs the callback once per positional argument, reporting
// errors but continuing with the remaining arguments.
func (s *SimpleCommand) RunEachArg(virtOS vos.VOS, callback func(arg string) error) int {
	return s.Run(virtOS, func() int {
		exitCode := 0
		for _, arg := range s.Flags().Args() {
			if err := callback(arg); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
				exitCode = 1
			}
		}
		return exitCode
	})
}

// RunEachFileOrStdin runs the callback once per named file, falling
// back to stdin when no files are listed. The name "-" also selects
// stdin. Call it from inside Run once flags are parsed.
func (s *SimpleCommand) RunEachFileOrStdin(virtOS vos.VOS, files []string, callback func(name string, fd io.Reader) error) int {
	if len(files) == 0 {
		files = []string{"-"}
	}

	exitCode := 0
	for _, name := range files {
		err := func() error {
			if name == "-" {
				return callback("-", virtOS.Stdin())
			}
			fd, err := virtOS.Open(name)
			if err != nil {
				return err
			}
			defer fd.Close()
			return callback(name, fd)
		}()
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
			exitCode = 1
		}
	}
	return exitCode
}

// LogProgramError records and reports an error in the command's name.
func (s *SimpleCommand) LogProgramError(virtOS vos.VOS, err error) {
	virtOS.LogInvalidInvocation(err)
	fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
}

func commandName(virtOS vos.VOS) string {
	if args := virtOS.Args(); len(args) > 0 {
		return path.Base(args[0])
	}
	return "?"
}

// BytesToHuman formats a byte count the way ls -h does.
func BytesToHuman(bytes int64) string {
	for _, e := range []struct {
		unit  string
		power int64
	}{
		{"P", 1e15},
		{"T", 1e12},
		{"G", 1e9},
		{"M", 1e6},
		{"K", 1e3},
	} {
		quotient := bytes / e.power
		switch {
		case quotient == 0:
			continue
		case quotient > 10:
			return fmt.Sprintf("%d%s", quotient, e.unit)
		default:
			return fmt.Sprintf("%0.1f%s", float64(bytes)/float64(e.power), e.unit)
		}
	}

	return fmt.Sprintf("%d", bytes)
}

// UidResolver maps UIDs to names using the sandbox's /etc/passwd.
func UidResolver(virtOS vos.VOS) (resolver func(int) string) {
	mapping := map[int]string{
		0: "root", // seed in case we don't see any others.
	}

	resolver = func(uid int) string {
		if resolved, ok := mapping[uid]; ok {
			return resolved
		}
		return fmt.Sprintf("%d", uid)
	}

	passwdBytes, err := readFile(virtOS, "/etc/passwd")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(passwdBytes), "\n") {
		entry := strings.Split(line, ":")
		if len(entry) < 3 {
			continue
		}
		// name:X:uid:
		name := entry[0]
		if uid, err := strconv.Atoi(entry[2]); err == nil {
			mapping[uid] = name
		}
	}

	return
}

// GidResolver maps GIDs to names. The sandbox has no /etc/group, but by
// convention every user has a group of the same name, so the names come
// from /etc/passwd.
func GidResolver(virtOS vos.VOS) (resolver func(int) string) {
	mapping := map[int]string{
		0: "root", // seed in case we don't see any others.
	}

	resolver = func(gid int) string {
		if resolved, ok := mapping[gid]; ok {
			return resolved
		}
		return fmt.Sprintf("%d", gid)
	}

	passwdBytes, err := readFile(virtOS, "/etc/passwd")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(passwdBytes), "\n") {
		entry := strings.Split(line, ":")
		if len(entry) < 4 {
			continue
		}
		// name:X:uid:gid:
		name := entry[0]
		if gid, err := strconv.Atoi(entry[3]); err == nil {
			mapping[gid] = name
		}
	}

	return
}

func readFile(virtOS vos.VOS, name string) ([]byte, error) {
	fd, err := virtOS.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return io.ReadAll(fd)
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter colorizes output for terminals, following a --color flag
// like GNU ls does.
type ColorPrinter struct {
	value  *string
	virtOS vos.VOS
}

// Init sets up the flag and virtual OS to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, virtOS vos.VOS) {
	c.virtOS = virtOS
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize the output (always|auto|never)")
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		return c.virtOS.GetPTY().IsPTY
	}
}

func (c *ColorPrinter) Sprintf(color *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		return color.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
