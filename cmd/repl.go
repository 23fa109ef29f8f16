package cmd

import (
	"github.com/spf13/cobra"
)

// replCmd starts the language REPL in the sandbox.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive sigil language shell.",
	Long: `Start an interactive read-eval-print loop for the sigil language.

Values built up on earlier lines stay around, so the handbook's variable
chapters can be worked through piece by piece. Results echo back in
dumper notation.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		// A bare sigil drops into the REPL only on a terminal; force the
		// point since the user asked for one.
		pty := hostPTY()
		pty.IsPTY = true

		_, err := runSandbox(loadConfigOrDefault(), pty, false, "/bin/sigil", []string{"sigil"})
		return err
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
