package commands

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sigil-lang/sigil/core/vos"
)

// numericValue parses the leading number the way sort -n does, treating
// lines without one as zero.
func numericValue(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for ; end < len(s); end++ {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
		case (c == '-' || c == '+') && end == 0:
		case c == '.':
		default:
			return parseOrZero(s[:end])
		}
	}
	return parseOrZero(s[:end])
}

func parseOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Sort implements the UNIX sort command.
func Sort(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "sort [-nru] [FILE]...",
		Short: "Sort lines of text files.",
	}

	numeric := cmd.Flags().BoolLong("numeric-sort", 'n', "compare according to numerical value")
	reverse := cmd.Flags().BoolLong("reverse", 'r', "reverse the result of comparisons")
	unique := cmd.Flags().BoolLong("unique", 'u', "output only the first of equal lines")

	return cmd.Run(virtOS, func() int {
		var lines []string
		exitCode := cmd.RunEachFileOrStdin(virtOS, cmd.Flags().Args(), func(name string, fd io.Reader) error {
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			return scanner.Err()
		})

		less := func(a, b string) bool { return a < b }
		if *numeric {
			less = func(a, b string) bool {
				av, bv := numericValue(a), numericValue(b)
				if av != bv {
					return av < bv
				}
				return a < b
			}
		}

		sort.SliceStable(lines, func(i, j int) bool {
			if *reverse {
				return less(lines[j], lines[i])
			}
			return less(lines[i], lines[j])
		})

		w := virtOS.Stdout()
		var prev string
		for i, line := range lines {
			if *unique && i > 0 && line == prev {
				continue
			}
			prev = line
			fmt.Fprintln(w, line)
		}
		return exitCode
	})
}

var _ vos.ProcessFunc = Sort

func init() {
	mustAddBinCmd("sort", Sort)
}
