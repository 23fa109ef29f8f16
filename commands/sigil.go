package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/script"
	"github.com/sigil-lang/sigil/core/vos"
	"github.com/spf13/afero"
)

// scriptHost adapts the sandbox's virtual OS to the interpreter's Host
// interface. Its stdout is one level indirect so in-place editing can
// point print at the file being rewritten while the process keeps its
// real streams.
type scriptHost struct {
	virtOS vos.VOS
	args   []string
	out    io.Writer
}

func newScriptHost(virtOS vos.VOS, args []string) *scriptHost {
	return &scriptHost{virtOS: virtOS, args: args, out: virtOS.Stdout()}
}

func (h *scriptHost) Write(p []byte) (int, error) { return h.out.Write(p) }

func (h *scriptHost) Stdin() io.Reader  { return h.virtOS.Stdin() }
func (h *scriptHost) Stdout() io.Writer { return h }
func (h *scriptHost) Stderr() io.Writer { return h.virtOS.Stderr() }

func (h *scriptHost) Environ() []string { return h.virtOS.Environ() }
func (h *scriptHost) Args() []string    { return h.args }

func (h *scriptHost) Open(name string) (io.ReadCloser, error) {
	f, err := h.virtOS.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (h *scriptHost) Create(name string) (io.WriteCloser, error) {
	f, err := h.virtOS.Create(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (h *scriptHost) Append(name string) (io.WriteCloser, error) {
	f, err := h.virtOS.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (h *scriptHost) Remove(name string) error             { return h.virtOS.Remove(name) }
func (h *scriptHost) Rename(oldname, newname string) error { return h.virtOS.Rename(oldname, newname) }
func (h *scriptHost) Mkdir(name string) error              { return h.virtOS.Mkdir(name, 0755) }

func (h *scriptHost) Stat(name string) (fs.FileInfo, error) { return h.virtOS.Stat(name) }

func (h *scriptHost) Glob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		// A plain name expands to itself whether or not it exists.
		return []string{pattern}, nil
	}
	return vos.Glob(h.virtOS, pattern)
}

func (h *scriptHost) Now() time.Time    { return h.virtOS.Now() }
func (h *scriptHost) Interactive() bool { return h.virtOS.GetPTY().IsPTY }

// Run backs the system builtin. Children share the process's real
// streams, not the in-place edit stream.
func (h *scriptHost) Run(argv []string) (int, error) {
	return h.exec(argv, h.virtOS.Stdout())
}

// Capture backs backticks, collecting the child's stdout.
func (h *scriptHost) Capture(argv []string) (string, int, error) {
	var buf bytes.Buffer
	code, err := h.exec(argv, &buf)
	return buf.String(), code, err
}

// shellMeta are the characters that hand a one-string command to the
// shell instead of word splitting.
const shellMeta = "|&;<>()$`*?[]{}~#\n"

// splitCommand turns a one-string command into an argv. Plain strings
// split into words, anything needing expansion goes through sh -c.
func splitCommand(argv []string) []string {
	if len(argv) != 1 {
		return argv
	}
	cmdline := argv[0]
	if strings.ContainsAny(cmdline, shellMeta) {
		return []string{"/bin/sh", "-c", cmdline}
	}
	parts, err := shlex.Split(cmdline, true)
	if err != nil || len(parts) == 0 {
		return argv
	}
	return parts
}

func (h *scriptHost) exec(argv []string, stdout io.Writer) (int, error) {
	argv = splitCommand(argv)
	if len(argv) == 0 || argv[0] == "" {
		return -1, errors.New("empty command")
	}

	execPath, err := vos.LookPath(h.virtOS, argv[0])
	if err != nil {
		status := logger.CommandLookupError
		switch {
		case errors.Is(err, vos.ErrNotFound):
			status = logger.CommandNotFound
		case errors.Is(err, fs.ErrPermission):
			status = logger.CommandNotExecutable
		}
		h.virtOS.LogUnknownCommand(&logger.UnknownCommand{
			Command:      argv,
			Status:       status,
			ErrorMessage: err.Error(),
		})
		return -1, err
	}

	proc, err := h.virtOS.StartProcess(execPath, argv, &vos.ProcAttr{
		Env:   h.virtOS.Environ(),
		Files: vos.NewVIOAdapter(h.virtOS.Stdin(), stdout, h.virtOS.Stderr()),
	})
	if err != nil {
		return -1, err
	}
	return proc.Run(), nil
}

// Sigil interprets sigil programs and one-liners. The switches mirror
// the classic scripting workhorses: -e gives program text on the
// command line, -n and -p wrap it in a read loop over the input files,
// -a splits records into @F, -i edits files in place.
func Sigil(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "sigil [OPTION]... [PROGRAM] [FILE]...",
		Short: "Interpreter for the sigil scripting language.",
	}

	flags := cmd.Flags()
	snippets := flags.List('e', "one line of program; several -e lines run as one script", "LINE")
	scanFlag := flags.Bool('n', "run the program once for every input record")
	printFlag := flags.Bool('p', "like -n but print $_ after every record")
	splitFlag := flags.Bool('a', "autosplit each record into @F")
	fieldPat := flags.String('F', "", "autosplit on PATTERN instead of whitespace; implies -a", "PATTERN")
	lineEnd := flags.Bool('l', "strip the record separator on input and restore it on print")
	backupExt := ""
	inPlace := flags.Flag(&backupExt, 'i', "edit files in place, keeping a backup when EXT is given", "EXT")
	inPlace.SetOptional()

	return cmd.Run(virtOS, func() int {
		args := flags.Args()

		var scriptName, src string
		switch {
		case len(*snippets) > 0:
			scriptName = "-e"
			src = strings.Join(*snippets, "\n")
		case len(args) > 0:
			scriptName = args[0]
			text, err := readFile(virtOS, args[0])
			if err != nil {
				cmd.LogProgramError(virtOS, fmt.Errorf("cannot open script %s: %s", args[0], script.ErrnoText(err)))
				return 2
			}
			src = string(text)
			args = args[1:]
		default:
			if virtOS.GetPTY().IsPTY {
				return runScriptRepl(virtOS)
			}
			scriptName = "-"
			text, err := io.ReadAll(virtOS.Stdin())
			if err != nil {
				cmd.LogProgramError(virtOS, err)
				return 2
			}
			src = string(text)
		}

		prog, err := script.Parse(src)
		if err != nil {
			virtOS.LogInvalidInvocation(err)
			fmt.Fprintln(virtOS.Stderr(), err)
			fmt.Fprintf(virtOS.Stderr(), "Execution of %s aborted due to compilation errors.\n", scriptName)
			return 255
		}

		var pat *script.Pattern
		if *fieldPat != "" {
			raw := stripPatternDelims(*fieldPat)
			if raw != " " { // a lone space keeps the whitespace default
				pat, err = script.CompilePattern(raw, "")
				if err != nil {
					cmd.LogProgramError(virtOS, fmt.Errorf("invalid field pattern %q: %v", *fieldPat, err))
					return 2
				}
			}
		}

		host := newScriptHost(virtOS, append([]string{scriptName}, args...))
		in := script.NewInterp(host)
		if *lineEnd {
			// -l makes print put the separator back on.
			in.GlobalScalar("\\").SetStr(in.GlobalScalar("/").Str())
		}

		doSplit := *splitFlag || *fieldPat != ""
		if !*scanFlag && !*printFlag && !doSplit && !inPlace.Seen() {
			code, runErr := in.RunProgram(prog)
			if runErr != nil {
				printFatal(virtOS.Stderr(), runErr)
			}
			return code
		}

		loop := &recordLoop{
			virtOS: virtOS,
			host:   host,
			in:     in,
			prog:   prog,
			print:  *printFlag,
			chomp:  *lineEnd,
			split:  doSplit,
			pat:    pat,
		}
		if inPlace.Seen() {
			return loop.runInPlace(args, backupExt)
		}
		return loop.run()
	})
}

// stripPatternDelims peels the /.../ or quote wrapper habit writes
// around -F patterns.
func stripPatternDelims(p string) string {
	if len(p) >= 2 {
		switch c := p[0]; c {
		case '/', '\'', '"':
			if p[len(p)-1] == c {
				return p[1 : len(p)-1]
			}
		}
	}
	return p
}

// printFatal reports a script failure on stderr and returns the
// process exit status: 255 unless the script chose its own with exit.
func printFatal(w io.Writer, err error) int {
	if code, ok := script.ExitCode(err); ok {
		return code
	}
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
	return 255
}

// recordLoop drives the implicit while-read loop behind -n and -p.
type recordLoop struct {
	virtOS vos.VOS
	host   *scriptHost
	in     *script.Interp
	prog   *script.Program

	print bool
	chomp bool
	split bool
	pat   *script.Pattern
}

func (d *recordLoop) run() int {
	if err := d.in.RunBegins(d.prog); err != nil {
		return d.exitWith(err)
	}
	for {
		rec, ok := d.in.NextInputRecord()
		if !ok {
			break
		}
		stop, err := d.step(rec)
		if stop || err != nil {
			return d.exitWith(err)
		}
	}
	return d.exitWith(nil)
}

// step runs the program body once for rec, then the continue-style
// print when -p is on. stop asks the loop to wind down early.
func (d *recordLoop) step(rec string) (stop bool, err error) {
	if d.chomp {
		rec = chompRecord(rec, d.in.GlobalScalar("/"))
	}
	d.in.SetTopic(rec)
	if d.split {
		d.in.Autosplit(rec, d.pat)
	}

	if runErr := d.in.RunMains(d.prog); runErr != nil {
		next, last := script.LoopSignal(runErr)
		switch {
		case last:
			return true, nil
		case next:
			// next still reaches the print below, like a continue block.
		default:
			return true, runErr
		}
	}

	if d.print {
		out := d.in.Topic().Str() + d.in.GlobalScalar("\\").Str()
		if _, werr := io.WriteString(d.host, out); werr != nil {
			return true, werr
		}
	}
	return false, nil
}

// exitWith winds the loop down the way the interpreter's own main path
// does: END blocks run unless the script died, exit keeps its code.
func (d *recordLoop) exitWith(err error) int {
	if err != nil {
		if _, ok := script.ExitCode(err); !ok {
			return printFatal(d.virtOS.Stderr(), err)
		}
	}
	if endErr := d.in.RunEnds(d.prog); endErr != nil {
		return printFatal(d.virtOS.Stderr(), endErr)
	}
	if err != nil {
		code, _ := script.ExitCode(err)
		return code
	}
	return 0
}

// runInPlace edits each named file in turn: records come from the old
// contents while the implicit print writes the replacement. A non-empty
// ext keeps the original, with * standing for the file's name.
func (d *recordLoop) runInPlace(files []string, ext string) int {
	if len(files) == 0 {
		fmt.Fprintln(d.virtOS.Stderr(), "-i used with no filenames on the command line, reading from STDIN.")
		return d.run()
	}

	if err := d.in.RunBegins(d.prog); err != nil {
		return d.exitWith(err)
	}
	for _, name := range files {
		d.in.GlobalArray("ARGV").Shift()

		content, err := readFile(d.virtOS, name)
		if err != nil {
			fmt.Fprintf(d.virtOS.Stderr(), "Can't open %s: %s.\n", name, script.ErrnoText(err))
			continue
		}
		if ext != "" {
			backup := backupName(name, ext)
			if werr := afero.WriteFile(d.virtOS, backup, content, 0644); werr != nil {
				fmt.Fprintf(d.virtOS.Stderr(), "Can't rename %s to %s: %s, skipping file.\n", name, backup, script.ErrnoText(werr))
				continue
			}
		}
		out, err := d.virtOS.Create(name)
		if err != nil {
			fmt.Fprintf(d.virtOS.Stderr(), "Can't open %s for writing: %s.\n", name, script.ErrnoText(err))
			continue
		}

		d.in.GlobalScalar("ARGV").SetStr(name)
		d.host.out = out
		h := script.NewReadHandle(name, strings.NewReader(string(content)))

		var fatal error
		stop := false
		for {
			rec, ok := h.ReadRecord(inputSepPtr(d.in))
			if !ok {
				break
			}
			d.in.SetInputLineNumber(d.in.InputLineNumber() + 1)
			if s, serr := d.step(rec); s || serr != nil {
				stop, fatal = true, serr
				break
			}
		}

		out.Close()
		d.host.out = d.virtOS.Stdout()
		if stop || fatal != nil {
			return d.exitWith(fatal)
		}
	}
	return d.exitWith(nil)
}

// backupName forms the -i backup path. A * in the extension stands for
// the original name, otherwise the extension is appended.
func backupName(name, ext string) string {
	if strings.Contains(ext, "*") {
		return strings.ReplaceAll(ext, "*", name)
	}
	return name + ext
}

// chompRecord strips one trailing input separator, or every trailing
// newline in paragraph mode, the way chomp does.
func chompRecord(rec string, sep *script.Scalar) string {
	if !sep.Defined() {
		return rec
	}
	if s := sep.Str(); s != "" {
		return strings.TrimSuffix(rec, s)
	}
	return strings.TrimRight(rec, "\n")
}

func inputSepPtr(in *script.Interp) *string {
	sep := in.GlobalScalar("/")
	if !sep.Defined() {
		return nil
	}
	s := sep.Str()
	return &s
}

// runScriptRepl is the interactive loop behind a bare sigil on a
// terminal. State carries over between lines so values built up while
// reading the handbook stay around to poke at.
func runScriptRepl(virtOS vos.VOS) int {
	cfg := &readline.Config{
		Prompt: "sigil> ",
		Stdin:  readline.NewCancelableStdin(virtOS.Stdin()),
		Stdout: virtOS.Stdout(),
		Stderr: virtOS.Stderr(),
		FuncGetWidth: func() int {
			return virtOS.GetPTY().Width
		},
		FuncIsTerminal: func() bool {
			return virtOS.GetPTY().IsPTY
		},
	}
	if err := cfg.Init(); err != nil {
		fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
		return 1
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", commandName(virtOS), err)
		return 1
	}

	host := newScriptHost(virtOS, []string{commandName(virtOS)})
	in := script.NewInterp(host)

	fmt.Fprintln(virtOS.Stdout(), "Interactive sigil. Statements run as you finish them; Ctrl-D leaves.")

	var pending string
	for {
		line, err := rl.Readline()
		switch {
		case err == io.EOF:
			fmt.Fprintln(virtOS.Stdout())
			return 0
		case err == readline.ErrInterrupt:
			pending = ""
			rl.SetPrompt("sigil> ")
			continue
		case err != nil:
			log.Printf("Error readline: %v", err)
			continue
		}

		src := pending + line
		if strings.TrimSpace(src) == "" {
			continue
		}

		vals, evalErr := in.EvalString(src)
		switch {
		case evalErr != nil && script.IsIncomplete(evalErr):
			pending = src + "\n"
			rl.SetPrompt("  ...> ")
			continue
		case evalErr != nil:
			if code, ok := script.ExitCode(evalErr); ok {
				return code
			}
			printFatal(virtOS.Stderr(), evalErr)
		default:
			if len(vals) > 0 {
				parts := make([]string, len(vals))
				for i, v := range vals {
					parts[i] = v.Str()
				}
				fmt.Fprintf(virtOS.Stdout(), "=> %s\n", strings.Join(parts, " "))
			}
		}
		pending = ""
		rl.SetPrompt("sigil> ")
	}
}

func init() {
	mustAddBinCmd("sigil", Sigil, "perl")
}
