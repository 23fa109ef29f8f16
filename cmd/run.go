package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// runCmd runs the one-liner driver in the sandbox with local stdio, so
// handbook examples can be piped to and from real files.
var runCmd = &cobra.Command{
	Use:   "run [-e EXPR | PROGRAM] [FILE]...",
	Short: "Run a sigil one-liner in the sandbox.",
	Long: `Run the sigil interpreter inside the sandbox using the local terminal.

Everything after "run" is passed to the in-sandbox interpreter untouched,
so the driver flags work exactly as they do in the handbook:

  sigil run -e 'print "hello, world\n"'
  sigil run -ne 'print if /water/' todo.txt
  sigil run -F: -lane 'print $F[0]' /etc/passwd

Input files name sandbox paths. "sigil run --help" shows the driver's own
flag listing.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		exitCode, err := runSandbox(loadConfigOrDefault(), hostPTY(), false,
			"/bin/sigil", append([]string{"sigil"}, args...))
		if err != nil {
			return err
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
