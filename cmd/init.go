package cmd

import (
	"log"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/spf13/cobra"
)

// initCmd scaffolds a sandbox workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sandbox workspace in the current directory.",
	Long: `Create a workspace: config.yaml, a corpus/ directory seeded with the
teaching files, a session_logs/ directory and an SSH host key.

Existing files are kept, so re-running after an upgrade only adds what's
missing. Edit config.yaml or drop files into corpus/ to customize the
sandbox; the --config flag points other commands at the workspace.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		_, err := config.Initialize(cfgPath, logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
