package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sigil-lang/sigil/core/vos"
)

// Cat implements the UNIX cat command.
func Cat(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "cat [OPTION]... [FILE]...",
		Short: "Concatenate FILE(s) to standard output.",
	}

	numberLines := cmd.Flags().BoolLong("number", 'n', "number all output lines")

	return cmd.Run(virtOS, func() int {
		return cmd.RunEachFileOrStdin(virtOS, cmd.Flags().Args(), func(name string, fd io.Reader) error {
			w := virtOS.Stdout()
			if !*numberLines {
				_, err := io.Copy(w, fd)
				return err
			}

			scanner := bufio.NewScanner(fd)
			lineNo := 1
			for scanner.Scan() {
				fmt.Fprintf(w, "%6d\t%s\n", lineNo, scanner.Text())
				lineNo++
			}
			return scanner.Err()
		})
	})
}

var _ vos.ProcessFunc = Cat

func init() {
	mustAddBinCmd("cat", Cat)
}
