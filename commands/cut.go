package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sigil-lang/sigil/core/vos"
)

// fieldSpan is a 1-based inclusive range from a cut LIST argument. A hi
// of zero means the range is open ended.
type fieldSpan struct {
	lo, hi int
}

func spanListContains(spans []fieldSpan, n int) bool {
	for _, s := range spans {
		if n >= s.lo && (s.hi == 0 || n <= s.hi) {
			return true
		}
	}
	return false
}

// parseFieldList parses cut's LIST argument, e.g. "1", "1,3-5" or "2-".
func parseFieldList(list string) ([]fieldSpan, error) {
	var spans []fieldSpan
	for _, part := range strings.Split(list, ",") {
		lo, hi := part, part
		if dash := strings.Index(part, "-"); dash >= 0 {
			lo, hi = part[:dash], part[dash+1:]
		}

		span := fieldSpan{lo: 1}
		var err error
		if lo != "" {
			if span.lo, err = strconv.Atoi(lo); err != nil || span.lo < 1 {
				return nil, fmt.Errorf("invalid field list: %q", list)
			}
		}
		if hi != "" {
			if span.hi, err = strconv.Atoi(hi); err != nil || span.hi < span.lo {
				return nil, fmt.Errorf("invalid field list: %q", list)
			}
		}
		if lo == "" && hi == "" {
			return nil, fmt.Errorf("invalid field list: %q", list)
		}
		spans = append(spans, span)
	}
	return spans, nil
}

// Cut implements the UNIX cut command.
func Cut(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "cut -f LIST [-d DELIM] [FILE]... | cut -c LIST [FILE]...",
		Short: "Remove sections from each line of files.",
	}

	fieldList := cmd.Flags().StringLong("fields", 'f', "", "select only these fields")
	charList := cmd.Flags().StringLong("characters", 'c', "", "select only these character positions")
	delim := cmd.Flags().StringLong("delimiter", 'd', "\t", "use DELIM instead of TAB as the field delimiter")

	return cmd.Run(virtOS, func() int {
		if *fieldList == "" && *charList == "" {
			cmd.LogProgramError(virtOS, errors.New("you must specify a list of fields or characters"))
			return 1
		}
		if utf8.RuneCountInString(*delim) != 1 {
			cmd.LogProgramError(virtOS, errors.New("the delimiter must be a single character"))
			return 1
		}

		list := *fieldList
		if list == "" {
			list = *charList
		}
		spans, err := parseFieldList(list)
		if err != nil {
			cmd.LogProgramError(virtOS, err)
			return 1
		}

		return cmd.RunEachFileOrStdin(virtOS, cmd.Flags().Args(), func(name string, fd io.Reader) error {
			w := virtOS.Stdout()
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				line := scanner.Text()

				if *charList != "" {
					var out []rune
					for i, r := range []rune(line) {
						if spanListContains(spans, i+1) {
							out = append(out, r)
						}
					}
					fmt.Fprintln(w, string(out))
					continue
				}

				// Lines without the delimiter pass through whole.
				if !strings.Contains(line, *delim) {
					fmt.Fprintln(w, line)
					continue
				}

				var out []string
				for i, field := range strings.Split(line, *delim) {
					if spanListContains(spans, i+1) {
						out = append(out, field)
					}
				}
				fmt.Fprintln(w, strings.Join(out, *delim))
			}
			return scanner.Err()
		})
	})
}

var _ vos.ProcessFunc = Cut

func init() {
	mustAddBinCmd("cut", Cut)
}
