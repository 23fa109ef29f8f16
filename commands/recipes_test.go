package commands

import (
	"testing"

	"github.com/sigil-lang/sigil/core/recipes"
	"github.com/sigil-lang/sigil/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipes(t *testing.T) {
	goldenTestSuite{
		"list":           {Args: []string{"recipes"}},
		"list-data":      {Args: []string{"recipes", "list", "data"}},
		"show":           {Args: []string{"recipes", "show", "count-lines"}},
		"show-busiest":   {Args: []string{"recipes", "show", "busiest-path"}},
		"unknown-recipe": {Args: []string{"recipes", "show", "brew-coffee"}},
		"unknown-pack":   {Args: []string{"recipes", "list", "gardening"}},
		"unknown-verb":   {Args: []string{"recipes", "dance"}},
	}.Run(t, Recipes)
}

// recipesCommand builds an invocation on a sandbox that can launch the
// real userland, since run hands the command line to /bin/sh.
func recipesCommand(t *testing.T, args ...string) *vostest.Cmd {
	t.Helper()
	cmd := vostest.Command(Recipes, "/bin/recipes", args...)
	cmd.VOS = vostest.NewDeterministicOS(BuiltinProcessResolver)
	for _, name := range BinNames() {
		require.NoError(t, afero.WriteFile(cmd.VOS, "/bin/"+name, []byte("ELF"), 0755))
	}
	return cmd
}

func TestRecipes_run(t *testing.T) {
	cmd := recipesCommand(t, "run", "count-lines")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, "9 todo.txt\n", string(out))
	assert.Equal(t, 0, cmd.ExitStatus)
}

func TestRecipes_runUnknown(t *testing.T) {
	cmd := recipesCommand(t, "run", "brew-coffee")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), `unknown recipe "brew-coffee"`)
	assert.Equal(t, 1, cmd.ExitStatus)
}

// TestRecipes_catalogueFidelity replays every recipe on a pristine
// sandbox and checks the catalogue's promised output, so the packs
// can't drift from the corpus or the commands they document.
func TestRecipes_catalogueFidelity(t *testing.T) {
	catalogue, err := recipes.Load()
	require.NoError(t, err)

	for _, recipe := range catalogue.All() {
		t.Run(recipe.Name, func(t *testing.T) {
			cmd := recipesCommand(t, "run", recipe.Name)
			out, err := cmd.CombinedOutput()
			require.NoError(t, err)
			assert.Equal(t, recipe.Output, string(out))
			assert.Equal(t, 0, cmd.ExitStatus)
		})
	}
}
