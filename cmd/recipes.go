package cmd

import (
	"os"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/spf13/cobra"
)

// recipesCmd browses the catalogue by running the in-sandbox recipes
// command over local stdio, so `run NAME` replays against the pristine
// corpus and prints exactly what the catalogue documents.
var recipesCmd = &cobra.Command{
	Use:   "recipes [list [CATEGORY] | show NAME | run NAME]",
	Short: "Browse and run the one-liner catalogue.",
	Long: `Browse the catalogue of worked one-liner examples.

  sigil recipes list          all recipes by category
  sigil recipes show NAME     the command line, sample output and notes
  sigil recipes run NAME      run it in a fresh sandbox

Recipes always run against the pristine teaching corpus, so the output
matches the sample byte for byte.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		// Always the built-in corpus, never a customized workspace. The
		// samples were recorded against it and the byte-for-byte promise
		// only holds there.
		exitCode, err := runSandbox(config.Default(), hostPTY(), false,
			"/bin/recipes", append([]string{"recipes"}, args...))
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
	rootCmd.AddCommand(recipesCmd)
}
