package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sigil-lang/sigil/core/vos"
)

// Tail implements the UNIX tail command.
func Tail(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "tail [-n LINES] [FILE]...",
		Short: "Output the last part of files.",
	}

	lineCount := cmd.Flags().IntLong("lines", 'n', 10, "print the last LINES lines")

	return cmd.Run(virtOS, func() int {
		files := cmd.Flags().Args()
		showHeaders := len(files) > 1
		printed := 0

		return cmd.RunEachFileOrStdin(virtOS, files, func(name string, fd io.Reader) error {
			w := virtOS.Stdout()
			if showHeaders {
				if printed > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "==> %s <==\n", name)
			}
			printed++

			// Keep a sliding window rather than the whole input so
			// tailing a large log stays cheap.
			var window []string
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				window = append(window, scanner.Text())
				if len(window) > *lineCount {
					window = window[1:]
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			for _, line := range window {
				fmt.Fprintln(w, line)
			}
			return nil
		})
	})
}

var _ vos.ProcessFunc = Tail

func init() {
	mustAddBinCmd("tail", Tail)
}
