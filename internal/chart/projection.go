// Package chart turns ledger records into per-category time series for a
// line chart.
package chart

import (
	"slices"

	"spendchart/internal/core"
)

// Palette is the list of colors assigned to series in order.
type Palette []string

// DefaultPalette cycles through red, blue, teal and yellow.
var DefaultPalette = Palette{
	"rgba(255, 99, 132, 1)",
	"rgba(54, 162, 235, 1)",
	"rgba(75, 192, 192, 1)",
	"rgba(255, 206, 86, 1)",
}

// Color returns the color for the i-th series, wrapping around.
func (p Palette) Color(i int) string {
	if len(p) == 0 {
		return DefaultPalette.Color(i)
	}
	return p[i%len(p)]
}

type Series struct {
	Label string
	Color string
	Data  []float64 // aligned with Projection.Labels
}

type Projection struct {
	Labels []string // MM/DD/YYYY, chronological
	Series []Series // one per category, first-seen order
}

// Empty reports whether there is nothing to draw.
func (p Projection) Empty() bool { return len(p.Labels) == 0 }

// Project groups expenses by category and display date, sums same-day
// amounts and zero-fills dates where a category has no spending.
func Project(expenses []core.Expense, palette Palette) Projection {
	var (
		categories []string
		sums       = make(map[string]map[string]int64)
		days       = make(map[string]struct{})
	)
	for _, e := range expenses {
		key := e.Date.Display()
		byDay, ok := sums[e.Category]
		if !ok {
			byDay = make(map[string]int64)
			sums[e.Category] = byDay
			categories = append(categories, e.Category)
		}
		byDay[key] += e.Amount.Cents
		days[key] = struct{}{}
	}

	labels := sortDisplayDates(days)
	p := Projection{Labels: labels, Series: make([]Series, 0, len(categories))}
	for i, cat := range categories {
		data := make([]float64, len(labels))
		for j, day := range labels {
			data[j] = core.Money{Cents: sums[cat][day]}.Float64()
		}
		p.Series = append(p.Series, Series{Label: cat, Color: palette.Color(i), Data: data})
	}
	return p
}

// sortDisplayDates orders MM/DD/YYYY keys chronologically by converting them
// to YYYY-MM-DD, sorting, and converting back.
func sortDisplayDates(days map[string]struct{}) []string {
	sortable := make([]string, 0, len(days))
	for day := range days {
		d, err := core.ParseDisplayDate(day)
		if err != nil {
			continue
		}
		sortable = append(sortable, d.Sortable())
	}
	slices.Sort(sortable)

	out := make([]string, 0, len(sortable))
	for _, s := range sortable {
		d, err := core.ParseDate(s)
		if err != nil {
			continue
		}
		out = append(out, d.Display())
	}
	return out
}
