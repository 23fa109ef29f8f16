package cmd

import (
	"fmt"

	"github.com/sigil-lang/sigil/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	reportBySession bool
	reportBugs      bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the classroom event log.",
	Long: `Aggregate the events.log of a workspace into a YAML report: logins,
commands run, recipes replayed, unknown commands, and panics.

Pass --sessions for a per-session breakdown or --bugs to pull out only
the entries that point at gaps in the sandbox.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig()
		if err != nil {
			return err
		}

		fd, err := config.ReadEventLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		var report interface {
			Update(le *logger.LogEntry)
		}
		switch {
		case reportBySession:
			report = &logger.InteractionReport{}
		case reportBugs:
			report = logger.NewBugReport()
		default:
			report = &logger.Report{}
		}

		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportBySession, "sessions", false, "group events by session")
	reportCmd.Flags().BoolVar(&reportBugs, "bugs", false, "show only likely sandbox gaps")
}
