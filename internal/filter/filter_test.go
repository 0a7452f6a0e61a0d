package filter

import (
	"reflect"
	"testing"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

var sample = []model.Location{
	{ID: 1, Name: "Apple", Category: "Fruit", Season: []int{8, 9, 10}},
	{ID: 2, Name: "Strawberry", Category: "Fruit", Season: []int{5, 6, 7}},
	{ID: 3, Name: "Mint", Category: "Herb", Season: []int{}},
	{ID: 4, Name: "Apple", Category: "Fruit", Season: []int{9}},
	{ID: 5, Name: "Bench", Category: "Other", Season: nil},
	{ID: 6, Name: "Carrot", Category: "Vegetable", Season: []int{6}},
}

func ids(locs []model.Location) []int {
	out := make([]int, len(locs))
	for i, l := range locs {
		out[i] = l.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want []int
	}{
		{"everything", Everything, []int{1, 2, 3, 4, 5, 6}},
		{"zero selection", Selection{}, []int{1, 2, 3, 4, 5, 6}},
		{"canonical category", Selection{Category: "Fruit", Item: All}, []int{1, 2, 4}},
		{"ui key category", Selection{Category: "fruits", Item: All}, []int{1, 2, 4}},
		{"veg key", Selection{Category: "vegetables"}, []int{6}},
		{"item", Selection{Category: All, Item: "Apple"}, []int{1, 4}},
		{"june excludes empty seasons", Selection{Months: []int{6}}, []int{2, 6}},
		{"month and category", Selection{Category: "fruits", Months: []int{9}}, []int{1, 4}},
		{"invalid months ignored", Selection{Months: []int{0, 13}}, []int{1, 2, 3, 4, 5, 6}},
		{"no match", Selection{Category: "Herb", Months: []int{1}}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sample, tt.sel))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterEmptySeasonNeverMatchesMonths(t *testing.T) {
	locs := []model.Location{
		{ID: 1, Season: []int{}},
		{ID: 2, Season: []int{5, 6, 7}},
	}
	got := ids(Filter(locs, Selection{Months: []int{6}}))
	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("got %v", got)
	}
}

func TestFilterIdempotentAndPure(t *testing.T) {
	before := make([]model.Location, len(sample))
	copy(before, sample)

	sel := Selection{Category: "fruits", Months: []int{9, 10}}
	once := Filter(sample, sel)
	twice := Filter(once, sel)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filter not idempotent: %v vs %v", ids(once), ids(twice))
	}
	if !reflect.DeepEqual(before, sample) {
		t.Error("filter modified its input")
	}
}

func TestCanonicalCategory(t *testing.T) {
	tests := map[string]string{
		"fruits":  "Fruit",
		"herbs":   "Herb",
		"Fruit":   "Fruit",
		"":        All,
		"ALL":     All,
		"Berries": "Berries",
	}
	for in, want := range tests {
		if got := CanonicalCategory(in); got != want {
			t.Errorf("CanonicalCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions(sample)

	wantCats := []string{"Fruit", "Herb", "Vegetable", "Other"}
	if !reflect.DeepEqual(opts.Categories, wantCats) {
		t.Errorf("categories: %v", opts.Categories)
	}
	wantItems := []string{"Apple", "Bench", "Carrot", "Mint", "Strawberry"}
	if !reflect.DeepEqual(opts.Items, wantItems) {
		t.Errorf("items: %v", opts.Items)
	}
	if len(opts.Months) != 12 || opts.Months[8].Label != "September" || opts.Months[8].Value != 9 {
		t.Errorf("months: %v", opts.Months)
	}
}

func TestItemsForCategory(t *testing.T) {
	got := ItemsForCategory(sample, "fruits")
	if !reflect.DeepEqual(got, []string{"Apple", "Strawberry"}) {
		t.Errorf("got %v", got)
	}
}

func TestSuggestItem(t *testing.T) {
	tests := []struct {
		query, want string
	}{
		{"aple", "Apple"},
		{"STRAWBERY", "Strawberry"},
		{"carot", "Carrot"},
		{"zzzzzzzz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SuggestItem(sample, tt.query); got != tt.want {
			t.Errorf("SuggestItem(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
