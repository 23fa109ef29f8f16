package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/sigil-lang/sigil/core/vos"
	"github.com/sigil-lang/sigil/core/vos/vostest"
)

func ExampleBytesToHuman() {

	// < 1k is presented directly
	fmt.Println(BytesToHuman(512))

	// Multiples > 10 are shown without decimal.
	fmt.Println(BytesToHuman(23 * 10e8))

	// Multiples < 10 are shown with decimal.
	fmt.Println(BytesToHuman(5 * 1024))

	// Output: 512
	// 23G
	// 5.1K
}

func TestAllCommands(t *testing.T) {
	for _, cmdEntry := range ListBuiltinCommands() {
		t.Run(strings.Join(cmdEntry.Names, ","), func(t *testing.T) {
			if cmdEntry.Proc == nil {
				t.Fatal("nil command", cmdEntry.Names)
			}
			if len(cmdEntry.Paths) == 0 {
				t.Fatal("unreachable command", cmdEntry.Names)
			}
		})
	}
}

func TestBuiltinProcessResolver(t *testing.T) {
	for _, cmdEntry := range ListBuiltinCommands() {
		for _, path := range cmdEntry.Paths {
			if BuiltinProcessResolver(path) == nil {
				t.Errorf("no process at %s", path)
			}
		}
	}

	if BuiltinProcessResolver("/bin/no-such-command") != nil {
		t.Error("expected nil for unregistered path")
	}
}

type goldenTestSuite map[string]goldenTest

type goldenTest struct {
	Args  []string
	Stdin string
}

func (gts goldenTestSuite) Run(t *testing.T, cmd vos.ProcessFunc) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, tc := range gts {
		t.Run(tn, func(t *testing.T) {
			cmd := vostest.Command(cmd, tc.Args[0], tc.Args[1:]...)
			if tc.Stdin != "" {
				cmd.Stdin = strings.NewReader(tc.Stdin)
			}
			out, err := cmd.CombinedOutput()
			if err != nil {
				t.Fatal(err)
			}

			g.Assert(t, tn, out)
		})
	}
}
