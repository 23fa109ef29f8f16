package commands

import (
	"fmt"

	"github.com/sigil-lang/sigil/core/vos"
)

// Clear implements the UNIX clear command.
func Clear(virtOS vos.VOS) int {
	if virtOS.GetPTY().IsPTY {
		// Erase the display and put the cursor back at the top left.
		fmt.Fprint(virtOS.Stdout(), "\033[2J\033[0;0H")
	}
	return 0
}

var _ vos.ProcessFunc = Clear

func init() {
	mustAddBinCmd("clear", Clear)
}
