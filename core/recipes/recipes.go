// Package recipes holds the cookbook of worked one-liner examples
// shipped with the sandbox. Recipes are grouped into themed packs,
// authored as YAML and compiled into the binary, so the catalogue a
// student browses always matches the corpus files installed next to it.
package recipes

import (
	"embed"
	"fmt"
	"io/fs"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

//go:embed packs/*.yaml
var packFS embed.FS

// categoryOrder is the teaching progression packs display in.
var categoryOrder = []string{"text", "sysadmin", "data"}

// Recipe is one worked example: a command line to try against the
// corpus, what it teaches, and the output it should reproduce.
type Recipe struct {
	Name     string `yaml:"name" validate:"required"`
	Synopsis string `yaml:"synopsis" validate:"required"`
	Command  string `yaml:"command" validate:"required"`
	Notes    string `yaml:"notes"`

	// Output is the exact bytes the command writes on a pristine
	// corpus. Recipes with environment-dependent output don't belong
	// in the catalogue.
	Output string `yaml:"output" validate:"required"`

	// Category names the pack the recipe came from, filled at load.
	Category string `yaml:"-"`
}

// Pack is one themed recipe file.
type Pack struct {
	Category string   `yaml:"category" validate:"required,oneof=text sysadmin data"`
	Title    string   `yaml:"title" validate:"required"`
	Recipes  []Recipe `yaml:"recipes" validate:"min=1,unique=Name,dive"`
}

// Catalogue is every loaded pack, indexed for lookup.
type Catalogue struct {
	Packs []Pack

	byName map[string]*Recipe
}

// Load parses and validates the embedded packs.
func Load() (*Catalogue, error) {
	return loadFS(packFS)
}

func loadFS(fsys fs.FS) (*Catalogue, error) {
	files, err := fs.Glob(fsys, "packs/*.yaml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no recipe packs found")
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	cat := &Catalogue{byName: make(map[string]*Recipe)}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}

		var pack Pack
		if err := yaml.UnmarshalStrict(data, &pack); err != nil {
			return nil, fmt.Errorf("parsing %s: %v", file, err)
		}
		if err := validate.Struct(&pack); err != nil {
			return nil, fmt.Errorf("validating %s: %v", file, err)
		}
		cat.Packs = append(cat.Packs, pack)
	}

	sort.SliceStable(cat.Packs, func(i, j int) bool {
		return categoryRank(cat.Packs[i].Category) < categoryRank(cat.Packs[j].Category)
	})

	for pi := range cat.Packs {
		pack := &cat.Packs[pi]
		for ri := range pack.Recipes {
			r := &pack.Recipes[ri]
			r.Category = pack.Category
			r.Command = strings.TrimSpace(r.Command)
			if dup, exists := cat.byName[r.Name]; exists {
				return nil, fmt.Errorf("recipe %q appears in both %s and %s", r.Name, dup.Category, r.Category)
			}
			cat.byName[r.Name] = r
		}
	}

	return cat, nil
}

func categoryRank(category string) int {
	for i, c := range categoryOrder {
		if c == category {
			return i
		}
	}
	return len(categoryOrder)
}

// Find returns the named recipe, nil if the catalogue has none.
func (c *Catalogue) Find(name string) *Recipe {
	return c.byName[name]
}

// Pack returns the pack for a category, nil if the catalogue has none.
func (c *Catalogue) Pack(category string) *Pack {
	for i := range c.Packs {
		if c.Packs[i].Category == category {
			return &c.Packs[i]
		}
	}
	return nil
}

// Names returns every recipe name in sorted order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every recipe in display order.
func (c *Catalogue) All() []*Recipe {
	var out []*Recipe
	for pi := range c.Packs {
		for ri := range c.Packs[pi].Recipes {
			out = append(out, &c.Packs[pi].Recipes[ri])
		}
	}
	return out
}
