package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sigil-lang/sigil/core/ttylog"
	"github.com/spf13/cobra"
)

var (
	idleTimeLimit  time.Duration
	convertMaxIdle time.Duration
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Explore recorded terminal sessions.",
}

var listSessionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recordings in the workspace.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig()
		if err != nil {
			return err
		}

		names, err := config.ListSessionLogs()
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	},
}

var playSessionCmd = &cobra.Command{
	Use:   "play RECORDING",
	Short: "Replay a recorded session in the terminal.",
	Long:  `Plays a recorded session back to the current terminal at its original pace.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := openRecording(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		sink := ttylog.NewClientOutput(cmd.OutOrStdout())
		sink = ttylog.NewRealTimePlayback(idleTimeLimit, sink)
		return ttylog.Replay(ttylog.NewAsciicastLogSource(fd), sink)
	},
}

var catSessionCmd = &cobra.Command{
	Use:   "cat RECORDING",
	Short: "Print the full output of a recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := openRecording(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		sink := ttylog.NewClientOutput(cmd.OutOrStdout())
		return ttylog.Replay(ttylog.NewAsciicastLogSource(fd), sink)
	},
}

var convertSessionCmd = &cobra.Command{
	Use:   "convert RECORDING > OUTPUT.cast",
	Short: "Rewrite a recording with long pauses compacted.",
	Long: `Re-emits a recording as asciicast v2 with every idle gap longer than
--max-idle trimmed down to it, so reviewing a session doesn't mean
sitting through the minutes a student spent thinking.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := openRecording(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		source := ttylog.NewAsciicastLogSource(fd)
		header, err := source.Header()
		if err != nil {
			return err
		}

		sink := ttylog.NewAsciicastLogSink(cmd.OutOrStdout(), *header)
		return ttylog.Replay(source, ttylog.NewIdleClampAdapter(convertMaxIdle, sink))
	},
}

// openRecording opens a recording by path. Bare names that don't exist
// locally fall back to the workspace session_logs directory, so the
// output of "sessions list" can be passed straight back in.
func openRecording(arg string) (io.ReadCloser, error) {
	fd, err := os.Open(arg)
	if err == nil {
		return fd, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || filepath.Base(arg) != arg {
		return nil, err
	}

	config, cfgErr := loadConfig()
	if cfgErr != nil {
		return nil, err
	}
	if fd, logErr := config.OpenSessionLog(arg); logErr == nil {
		return fd, nil
	}

	return nil, err
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(listSessionsCmd)
	sessionsCmd.AddCommand(playSessionCmd)
	sessionsCmd.AddCommand(catSessionCmd)
	sessionsCmd.AddCommand(convertSessionCmd)

	playSessionCmd.Flags().DurationVarP(&idleTimeLimit, "idle-time-limit", "i", 3*time.Second, "Maximum time output can be idle. (e.g. 3s, 2m, 100ms)")
	convertSessionCmd.Flags().DurationVar(&convertMaxIdle, "max-idle", 3*time.Second, "Longest pause to keep. (0 keeps the original timing)")
}
