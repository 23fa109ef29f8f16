package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sigil-lang/sigil/core/vos"
)

// Head implements the UNIX head command.
func Head(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "head [-n LINES | -c BYTES] [FILE]...",
		Short: "Output the first part of files.",
	}

	lineCount := cmd.Flags().IntLong("lines", 'n', 10, "print the first LINES lines")
	byteCount := cmd.Flags().IntLong("bytes", 'c', 0, "print the first BYTES bytes")

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

			if *byteCount > 0 {
				if _, err := io.CopyN(w, fd, int64(*byteCount)); err != nil && err != io.EOF {
					return err
				}
				return nil
			}

			scanner := bufio.NewScanner(fd)
			for i := 0; i < *lineCount && scanner.Scan(); i++ {
				fmt.Fprintln(w, scanner.Text())
			}
			return scanner.Err()
		})
	})
}

var _ vos.ProcessFunc = Head

func init() {
	mustAddBinCmd("head", Head)
}
