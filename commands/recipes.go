package commands

import (
	"fmt"
	"strings"

	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/recipes"
	"github.com/sigil-lang/sigil/core/vos"
)

// Recipes browses the cookbook of worked one-liner examples. Every
// recipe targets the corpus files installed in the sandbox, so a
// student can run one, see the promised output, and start tweaking.
func Recipes(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "recipes [list [CATEGORY]|show NAME|run NAME]",
		Short: "Browse worked one-liner examples for the sandbox files.",
	}

	var color ColorPrinter
	color.Init(cmd.Flags(), virtOS)

	return cmd.Run(virtOS, func() int {
		catalogue, err := recipes.Load()
		if err != nil {
			cmd.LogProgramError(virtOS, err)
			return 1
		}

		args := cmd.Flags().Args()
		verb := "list"
		if len(args) > 0 {
			verb, args = args[0], args[1:]
		}

		switch verb {
		case "list":
			return listRecipes(virtOS, &color, catalogue, args)

		case "show":
			if len(args) != 1 {
				cmd.LogProgramError(virtOS, fmt.Errorf("show needs exactly one recipe name"))
				return 1
			}
			return showRecipe(virtOS, &color, catalogue, args[0])

		case "run":
			if len(args) != 1 {
				cmd.LogProgramError(virtOS, fmt.Errorf("run needs exactly one recipe name"))
				return 1
			}
			return runRecipe(virtOS, cmd, catalogue, args[0])

		default:
			cmd.LogProgramError(virtOS, fmt.Errorf("unknown subcommand %q, try list, show, or run", verb))
			return 1
		}
	})
}

func listRecipes(virtOS vos.VOS, color *ColorPrinter, catalogue *recipes.Catalogue, args []string) int {
	packs := catalogue.Packs
	if len(args) > 0 {
		pack := catalogue.Pack(args[0])
		if pack == nil {
			fmt.Fprintf(virtOS.Stderr(), "recipes: no %q pack, categories are text, sysadmin, and data\n", args[0])
			return 1
		}
		packs = []recipes.Pack{*pack}
	}

	w := virtOS.Stdout()
	for i, pack := range packs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, color.Sprintf(ColorBoldBlue, "%s (%s)", pack.Title, pack.Category))
		for _, r := range pack.Recipes {
			fmt.Fprintf(w, "  %s  %s\n", color.Sprintf(ColorBoldCyan, "%-14s", r.Name), r.Synopsis)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use `recipes show NAME` for details or `recipes run NAME` to try one.")
	return 0
}

func showRecipe(virtOS vos.VOS, color *ColorPrinter, catalogue *recipes.Catalogue, name string) int {
	r := catalogue.Find(name)
	if r == nil {
		fmt.Fprintf(virtOS.Stderr(), "recipes: unknown recipe %q, `recipes list` shows what's available\n", name)
		return 1
	}

	w := virtOS.Stdout()
	fmt.Fprintf(w, "%s (%s)\n", color.Sprintf(ColorBoldCyan, "%s", r.Name), r.Category)
	fmt.Fprintln(w, r.Synopsis)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", color.Sprintf(ColorBoldGreen, "$ %s", r.Command))
	fmt.Fprint(w, indentLines(r.Output, "  "))
	if r.Notes != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, r.Notes)
	}
	return 0
}

func runRecipe(virtOS vos.VOS, cmd *SimpleCommand, catalogue *recipes.Catalogue, name string) int {
	r := catalogue.Find(name)
	if r == nil {
		fmt.Fprintf(virtOS.Stderr(), "recipes: unknown recipe %q, `recipes list` shows what's available\n", name)
		return 1
	}

	virtOS.LogRunRecipe(&logger.RunRecipe{
		Name:        r.Name,
		Category:    r.Category,
		CommandLine: r.Command,
	})

	proc, err := virtOS.StartProcess("/bin/sh", []string{"sh", "-c", r.Command}, &vos.ProcAttr{
		Env:   virtOS.Environ(),
		Files: vos.NewVIOAdapter(virtOS.Stdin(), virtOS.Stdout(), virtOS.Stderr()),
	})
	if err != nil {
		cmd.LogProgramError(virtOS, err)
		return 127
	}
	return proc.Run()
}

// indentLines prefixes each non-empty line of s, keeping blank lines
// blank so terminals don't show trailing spaces.
func indentLines(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

var _ vos.ProcessFunc = Recipes

func init() {
	mustAddBinCmd("recipes", Recipes)
}
