package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sigil-lang/sigil/core/vos"
)

// strftime renders the subset of date format escapes the classroom
// needs, leaving unknown escapes in place.
func strftime(format string, t time.Time) string {
	var out strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			out.WriteByte(c)
			continue
		}

		i++
		switch format[i] {
		case 'Y':
			out.WriteString(t.Format("2006"))
		case 'y':
			out.WriteString(t.Format("06"))
		case 'm':
			out.WriteString(t.Format("01"))
		case 'd':
			out.WriteString(t.Format("02"))
		case 'e':
			out.WriteString(t.Format("_2"))
		case 'H':
			out.WriteString(t.Format("15"))
		case 'M':
			out.WriteString(t.Format("04"))
		case 'S':
			out.WriteString(t.Format("05"))
		case 'a':
			out.WriteString(t.Format("Mon"))
		case 'A':
			out.WriteString(t.Format("Monday"))
		case 'b':
			out.WriteString(t.Format("Jan"))
		case 'B':
			out.WriteString(t.Format("January"))
		case 'j':
			out.WriteString(fmt.Sprintf("%03d", t.YearDay()))
		case 's':
			out.WriteString(strconv.FormatInt(t.Unix(), 10))
		case 'F':
			out.WriteString(t.Format("2006-01-02"))
		case 'T':
			out.WriteString(t.Format("15:04:05"))
		case 'Z':
			out.WriteString(t.Format("MST"))
		case 'n':
			out.WriteByte('\n')
		case '%':
			out.WriteByte('%')
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return out.String()
}

// Date implements the UNIX date command against the sandbox clock.
func Date(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "date [+FORMAT]",
		Short: "Print the system date and time.",

		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.Run(virtOS, func() int {
		format := "%a %b %e %H:%M:%S %Z %Y"
		if args := cmd.Flags().Args(); len(args) > 0 && strings.HasPrefix(args[0], "+") {
			format = args[0][1:]
		}
		fmt.Fprintln(virtOS.Stdout(), strftime(format, virtOS.Now()))
		return 0
	})
}

var _ vos.ProcessFunc = Date

func init() {
	mustAddBinCmd("date", Date)
}
