package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sigil-lang/sigil/commands"
	"github.com/spf13/cobra"
)

// binCmd lists the commands available inside the sandbox.
var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "List the sandbox userland commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var names []string

		for _, entry := range commands.ListBuiltinCommands() {
			names = append(names, strings.Join(entry.Names, ", "))
		}

		for _, builtin := range commands.BuiltinNames() {
			names = append(names, "shell:"+builtin)
		}

		sort.Strings(names)

		for _, v := range names {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(binCmd)
}
