package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sigil-lang/sigil/core/vos"
)

// Echo implements the UNIX echo command.
func Echo(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "echo [OPTION]... [STRING]...",
		Short: "Display a line of text.",

		// Never bail, even if args are bad.
		NeverBail: true,
	}

	noNewline := cmd.Flags().Bool('n', "do not output the trailing newline")
	escapes := cmd.Flags().Bool('e', "enable interpretation of backslash escapes")

	return cmd.Run(virtOS, func() int {
		line := strings.Join(cmd.Flags().Args(), " ")
		if *escapes {
			line = unescape(line)
		}
		if !*noNewline {
			line += "\n"
		}
		fmt.Fprint(virtOS.Stdout(), line)
		return 0
	})
}

// unescape interprets the backslash escapes echo -e and shell prompts
// understand, including \0NNN octal and \xHH hex forms.
func unescape(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			out.WriteByte(c)
			continue
		}

		i++
		switch s[i] {
		case 'a':
			out.WriteByte('\a')
		case 'b':
			out.WriteByte('\b')
		case 'e':
			out.WriteByte(0x1b)
		case 'f':
			out.WriteByte('\f')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'v':
			out.WriteByte('\v')
		case '\\':
			out.WriteByte('\\')
		case '0':
			digits := ""
			for len(digits) < 3 && i+1 < len(s) && '0' <= s[i+1] && s[i+1] <= '7' {
				i++
				digits += string(s[i])
			}
			value, err := strconv.ParseUint(digits, 8, 8)
			if err != nil {
				out.WriteString("\\0" + digits)
				continue
			}
			out.WriteByte(byte(value))
		case 'x':
			digits := ""
			for len(digits) < 2 && i+1 < len(s) && isHexDigit(s[i+1]) {
				i++
				digits += string(s[i])
			}
			value, err := strconv.ParseUint(digits, 16, 8)
			if err != nil {
				out.WriteString("\\x" + digits)
				continue
			}
			out.WriteByte(byte(value))
		default:
			out.WriteByte('\\')
			out.WriteByte(s[i])
		}
	}
	return out.String()
}

func isHexDigit(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

var _ vos.ProcessFunc = Echo

func init() {
	mustAddBinCmd("echo", Echo)
}
