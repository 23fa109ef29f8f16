package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// playCmd opens an interactive shell session in the sandbox, the same
// experience students get over SSH but through the local terminal.
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open an interactive shell in the sandbox.",
	Long: `Open an interactive shell session in the sandbox.

This is the classroom experience without the SSH server: the teaching
corpus in the home directory, the sandbox userland on the path, and the
recipes catalogue a command away. Changes to the filesystem last until
the session ends.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg := loadConfigOrDefault()

		pty := hostPTY()
		pty.IsPTY = true

		shell := cfg.OS.DefaultShell
		exitCode, err := runSandbox(cfg, pty, true, shell, []string{shell})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Session ended with exit code %d\n", exitCode)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
