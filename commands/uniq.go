package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sigil-lang/sigil/core/vos"
)

// Uniq implements the UNIX uniq command. Like the real one it only
// folds adjacent duplicates, so input usually comes through sort first.
func Uniq(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "uniq [-cdu] [FILE]...",
		Short: "Filter adjacent repeated lines.",
	}

	count := cmd.Flags().BoolLong("count", 'c', "prefix lines by the number of occurrences")
	dupsOnly := cmd.Flags().BoolLong("repeated", 'd', "only print duplicated lines")
	uniqueOnly := cmd.Flags().BoolLong("unique", 'u', "only print lines that are not repeated")

	return cmd.Run(virtOS, func() int {
		w := virtOS.Stdout()

		var current string
		occurrences := 0
		flush := func() {
			if occurrences == 0 {
				return
			}
			if (*dupsOnly && occurrences < 2) || (*uniqueOnly && occurrences > 1) {
				return
			}
			if *count {
				fmt.Fprintf(w, "%7d %s\n", occurrences, current)
				return
			}
			fmt.Fprintln(w, current)
		}

		exitCode := cmd.RunEachFileOrStdin(virtOS, cmd.Flags().Args(), func(name string, fd io.Reader) error {
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				line := scanner.Text()
				if occurrences > 0 && line == current {
					occurrences++
					continue
				}
				flush()
				current = line
				occurrences = 1
			}
			return scanner.Err()
		})
		flush()

		return exitCode
	})
}

var _ vos.ProcessFunc = Uniq

func init() {
	mustAddBinCmd("uniq", Uniq)
}
