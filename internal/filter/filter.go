// Package filter narrows a location set by category, item and month.
package filter

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/season"
)

// All selects every value of a facet.
const All = "all"

// Selection is the state of the three filter controls.
type Selection struct {
	Category string `json:"category"`
	Item     string `json:"item"`
	Months   []int  `json:"months"`
}

// Everything is the selection that passes every location.
var Everything = Selection{Category: All, Item: All}

// categoryKeys maps lower-case UI keys to canonical category names.
var categoryKeys = map[string]string{
	"fruit":      model.CategoryFruit,
	"fruits":     model.CategoryFruit,
	"vegetable":  model.CategoryVegetable,
	"vegetables": model.CategoryVegetable,
	"veg":        model.CategoryVegetable,
	"flower":     model.CategoryFlower,
	"flowers":    model.CategoryFlower,
	"herb":       model.CategoryHerb,
	"herbs":      model.CategoryHerb,
	"mushroom":   model.CategoryMushroom,
	"mushrooms":  model.CategoryMushroom,
	"other":      model.CategoryOther,
}

// CanonicalCategory maps a UI key like "fruits" to "Fruit". Unknown keys,
// including already-canonical names, are returned unchanged.
func CanonicalCategory(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.EqualFold(key, All) {
		return All
	}
	if c, ok := categoryKeys[key]; ok {
		return c
	}
	return key
}

// Normalized returns s with empty facets set to All and the category mapped
// to its canonical name.
func (s Selection) Normalized() Selection {
	out := Selection{
		Category: CanonicalCategory(s.Category),
		Item:     strings.TrimSpace(s.Item),
		Months:   season.FromValue(s.Months),
	}
	if out.Item == "" || out.Item == All {
		out.Item = All
	}
	return out
}

// Match reports whether loc passes every facet of s. s is expected to be
// normalized.
func (s Selection) Match(loc model.Location) bool {
	if s.Category != All && loc.Category != s.Category {
		return false
	}
	if s.Item != All && loc.Name != s.Item {
		return false
	}
	if len(s.Months) > 0 && !season.Intersects(loc.Season, s.Months) {
		return false
	}
	return true
}

// Filter returns the locations passing sel, in input order. The input is
// not modified.
func Filter(locs []model.Location, sel Selection) []model.Location {
	sel = sel.Normalized()
	out := make([]model.Location, 0, len(locs))
	for _, l := range locs {
		if sel.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// MonthOption is one entry of the month control.
type MonthOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Options are the choices offered by the filter controls.
type Options struct {
	Categories []string      `json:"categories"`
	Items      []string      `json:"items"`
	Months     []MonthOption `json:"months"`
}

// BuildOptions collects the distinct categories and item names of locs.
// Categories are sorted with "Other" last; items are sorted.
func BuildOptions(locs []model.Location) Options {
	cats := map[string]bool{}
	items := map[string]bool{}
	for _, l := range locs {
		if l.Category != "" {
			cats[l.Category] = true
		}
		if l.Name != "" {
			items[l.Name] = true
		}
	}

	var opts Options
	for c := range cats {
		if c != model.CategoryOther {
			opts.Categories = append(opts.Categories, c)
		}
	}
	sort.Strings(opts.Categories)
	if cats[model.CategoryOther] {
		opts.Categories = append(opts.Categories, model.CategoryOther)
	}

	opts.Items = sortedKeys(items)
	for m := 1; m <= 12; m++ {
		opts.Months = append(opts.Months, MonthOption{Value: m, Label: season.Name(m)})
	}
	return opts
}

// ItemsForCategory returns the sorted item names within category.
func ItemsForCategory(locs []model.Location, category string) []string {
	category = CanonicalCategory(category)
	items := map[string]bool{}
	for _, l := range locs {
		if l.Name != "" && (category == All || l.Category == category) {
			items[l.Name] = true
		}
	}
	return sortedKeys(items)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SuggestItem returns the known item name closest to query by edit
// distance, ignoring case. It returns "" when nothing is within a third of
// the query's length.
func SuggestItem(locs []model.Location, query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ""
	}

	best, bestDist := "", -1
	for _, name := range ItemsForCategory(locs, All) {
		d := levenshtein.ComputeDistance(q, strings.ToLower(name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	limit := len([]rune(q))/3 + 1
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
