package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/spf13/cobra"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault returns the workspace configuration, or the built-in
// one when the directory was never initialized. One-shot commands like run
// and repl shouldn't demand a workspace just to try the language.
func loadConfigOrDefault() *config.Configuration {
	configuration, err := config.Load(cfgPath)
	if err != nil {
		return config.Default()
	}
	return configuration
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sigil",
	Short: "A teaching sandbox for scripting-language one-liners.",
	Long: `sigil is a small scripting language and a hermetic sandbox to learn it in.

The sandbox boots with a teaching corpus (logs, CSVs, JSON, a dictionary)
and a familiar userland, so every example from the handbook runs the same
way on every machine. Use "run" for quick one-liners, "play" for a full
shell, and "serve" to share the sandbox with a class over SSH.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "workspace path")
}
