package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigil-lang/sigil/core/vos"
)

// Seq implements the UNIX seq command.
func Seq(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "seq [OPTION]... [FIRST [INCREMENT]] LAST",
		Short: "Print a sequence of numbers.",
	}

	separator := cmd.Flags().StringLong("separator", 's', "\n", "use STRING to separate numbers")

	return cmd.RunE(virtOS, func() error {
		args := cmd.Flags().Args()

		first, increment := 1.0, 1.0
		var last float64
		var err error
		switch len(args) {
		case 1:
			last, err = parseSeqArg(args[0])
		case 2:
			if first, err = parseSeqArg(args[0]); err == nil {
				last, err = parseSeqArg(args[1])
			}
		case 3:
			if first, err = parseSeqArg(args[0]); err == nil {
				if increment, err = parseSeqArg(args[1]); err == nil {
					last, err = parseSeqArg(args[2])
				}
			}
		default:
			err = errors.New("missing operand")
		}
		if err != nil {
			return err
		}
		if increment == 0 {
			return errors.New("invalid zero increment")
		}

		var out []string
		for v := first; (increment > 0 && v <= last) || (increment < 0 && v >= last); v += increment {
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if len(out) > 0 {
			fmt.Fprintf(virtOS.Stdout(), "%s\n", strings.Join(out, *separator))
		}
		return nil
	})
}

func parseSeqArg(arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid floating point argument: %q", arg)
	}
	return v, nil
}

var _ vos.ProcessFunc = Seq

func init() {
	mustAddBinCmd("seq", Seq)
}
