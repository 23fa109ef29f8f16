package commands

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/sigil-lang/sigil/core/vos"
)

// textTally holds the running counts for one input.
type textTally struct {
	lines int
	words int
	bytes int
	chars int
}

func (t *textTally) add(other textTally) {
	t.lines += other.lines
	t.words += other.words
	t.bytes += other.bytes
	t.chars += other.chars
}

// tallyReader counts the input rune by rune. Invalid UTF-8 bytes still
// count towards the byte total.
func tallyReader(r io.Reader) (textTally, error) {
	var tally textTally
	br := bufio.NewReader(r)
	inWord := false
	for {
		c, size, err := br.ReadRune()
		if err == io.EOF {
			return tally, nil
		}
		if err != nil {
			return tally, err
		}

		tally.bytes += size
		tally.chars++
		if c == '\n' {
			tally.lines++
		}
		if unicode.IsSpace(c) {
			inWord = false
		} else if !inWord {
			inWord = true
			tally.words++
		}
	}
}

// Wc implements the POSIX wc command.
// https://pubs.opengroup.org/onlinepubs/009695399/utilities/wc.html
func Wc(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "wc [-clmw] [FILE...]",
		Short: "Count newlines, words, and bytes in each FILE.",
	}

	flags := cmd.Flags()
	countLines := flags.Bool('l', "count newlines")
	countWords := flags.Bool('w', "count words")
	countBytes := flags.Bool('c', "count bytes")
	countChars := flags.Bool('m', "count characters")

	return cmd.Run(virtOS, func() int {
		defaultSet := !(*countLines || *countWords || *countBytes || *countChars)

		columns := func(t textTally) []string {
			var out []string
			if *countLines || defaultSet {
				out = append(out, strconv.Itoa(t.lines))
			}
			if *countWords || defaultSet {
				out = append(out, strconv.Itoa(t.words))
			}
			if *countBytes || defaultSet {
				out = append(out, strconv.Itoa(t.bytes))
			}
			if *countChars {
				out = append(out, strconv.Itoa(t.chars))
			}
			return out
		}

		var total textTally
		counted := 0
		exitCode := cmd.RunEachFileOrStdin(virtOS, cmd.Flags().Args(), func(name string, fd io.Reader) error {
			tally, err := tallyReader(fd)
			if err != nil {
				return err
			}

			counted++
			total.add(tally)

			cells := columns(tally)
			if name != "-" {
				cells = append(cells, name)
			}
			fmt.Fprintln(virtOS.Stdout(), strings.Join(cells, " "))
			return nil
		})

		if counted > 1 {
			fmt.Fprintln(virtOS.Stdout(), strings.Join(append(columns(total), "total"), " "))
		}
		return exitCode
	})
}

var _ vos.ProcessFunc = Wc

func init() {
	mustAddBinCmd("wc", Wc)
}
