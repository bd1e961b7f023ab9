// Package catalog provides the fixed set of selectable expense categories
// and the chart palette.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"spendchart/internal/chart"
)

var defaultCategories = []string{"Food", "Transport", "Housing", "Entertainment", "Utilities", "Other"}

type Catalog struct {
	categories []string
	palette    chart.Palette
}

type rawCatalog struct {
	Categories []string `toml:"categories"`
	Palette    []string `toml:"palette"`
}

func New(categories []string, palette []string) *Catalog {
	cats := dedupe(categories)
	if len(cats) == 0 {
		cats = slices.Clone(defaultCategories)
	}
	pal := chart.Palette(dedupe(palette))
	if len(pal) == 0 {
		pal = slices.Clone(chart.DefaultPalette)
	}
	return &Catalog{categories: cats, palette: pal}
}

func Default() *Catalog {
	return New(nil, nil)
}

// Load reads a TOML catalog. An empty path or a missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	var raw rawCatalog
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return New(raw.Categories, raw.Palette), nil
}

func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

func (c *Catalog) Palette() chart.Palette {
	return slices.Clone(c.palette)
}

func (c *Catalog) Has(name string) bool {
	return slices.Contains(c.categories, strings.TrimSpace(name))
}

// dedupe trims entries and drops blanks, comments and repeats, keeping order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

