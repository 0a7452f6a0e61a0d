package model

// Location is the canonical, normalized record for one point of interest.
type Location struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	DisplayName      string  `json:"displayName,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Category         string  `json:"category"`
	OriginalType     string  `json:"originalType,omitempty"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	Season           []int   `json:"season"`
	Link             string  `json:"link,omitempty"`
	Image            string  `json:"image,omitempty"`
	Likes            int     `json:"likes"`
	Dislikes         int     `json:"dislikes"`
	Town             string  `json:"town,omitempty"`
	County           string  `json:"county,omitempty"`
	Postcode         string  `json:"postcode,omitempty"`
	Address          string  `json:"address,omitempty"`
	Tags             string  `json:"tags,omitempty"`
	CountyID         string  `json:"countyId,omitempty"`
}

// DefaultCategory is assigned when a source row carries no category.
const DefaultCategory = "Other"

// Category names in canonical (display) form.
const (
	CategoryFruit     = "Fruit"
	CategoryVegetable = "Vegetable"
	CategoryFlower    = "Flower"
	CategoryHerb      = "Herb"
	CategoryMushroom  = "Mushroom"
	CategoryOther     = DefaultCategory
)

// Action is a feedback signal a visitor can send for a location.
type Action string

const (
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionReport  Action = "report"
)

// Actions lists every feedback action in display order.
var Actions = []Action{ActionLike, ActionDislike, ActionReport}

// Valid reports whether a is a known feedback action.
func (a Action) Valid() bool {
	switch a {
	case ActionLike, ActionDislike, ActionReport:
		return true
	}
	return false
}

// Bounds is a lat/lng bounding box as found in the county manifest.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// LatLng is a single coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// County describes one shard of per-county location data.
type County struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Bounds  Bounds     `json:"bounds"`
	Center  [2]float64 `json:"center"` // [lat, lng]
	CSVFile string     `json:"csvFile"`
}

// Centroid returns the county center as a LatLng.
func (c County) Centroid() LatLng {
	return LatLng{Lat: c.Center[0], Lng: c.Center[1]}
}

// Preferences are the per-visitor display and data-source settings.
type Preferences struct {
	UseFontAwesome bool   `json:"useFontAwesome"`
	DarkMode       bool   `json:"darkMode"`
	SavedAddress   string `json:"savedAddress,omitempty"`
	SheetURL       string `json:"sheetURL,omitempty"`
	UseJSONSource  bool   `json:"useJsonAsSource"`
	ShowImages     bool   `json:"showImages"`
}

// DefaultPreferences mirrors the page defaults.
func DefaultPreferences() Preferences {
	return Preferences{UseFontAwesome: true, ShowImages: true}
}
