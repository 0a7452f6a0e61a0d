// Package render decides how a filtered location set is shown on the map
// and applies that decision to a drawing surface.
package render

import (
	"fmt"
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

// Mode is how locations are drawn.
type Mode int

const (
	Empty Mode = iota
	Markers
	Heatmap
)

func (m Mode) String() string {
	switch m {
	case Markers:
		return "markers"
	case Heatmap:
		return "heatmap"
	}
	return "empty"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Origin is the event that caused a plan to be computed.
type Origin int

const (
	FromFilter Origin = iota
	FromZoom
	FromCountyMerge
	FromFeedback
)

// Config holds the thresholds and defaults of the map.
type Config struct {
	HeatmapZoom   int
	FitPadding    int
	DefaultCenter model.LatLng
	DefaultZoom   int
	HeatPrecision int
}

// Marker is one location drawn as a pin.
type Marker struct {
	ID               int                   `json:"id"`
	Lat              float64               `json:"lat"`
	Lng              float64               `json:"lng"`
	Name             string                `json:"name"`
	DisplayName      string                `json:"displayName,omitempty"`
	Category         string                `json:"category"`
	ShortDescription string                `json:"short_description"`
	Description      string                `json:"description,omitempty"`
	Image            string                `json:"image,omitempty"`
	Link             string                `json:"link,omitempty"`
	Season           string                `json:"season,omitempty"`
	Likes            int                   `json:"likes"`
	Dislikes         int                   `json:"dislikes"`
	Color            string                `json:"color"`
	Icon             string                `json:"icon"`
	Disabled         map[model.Action]bool `json:"disabled,omitempty"`
}

// HeatPoint is one weighted point of the density layer.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// HeatCell aggregates the points falling in one geohash cell.
type HeatCell struct {
	Geohash string  `json:"geohash"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Count   int     `json:"count"`
}

// HeatLayer is the single density layer drawn in Heatmap mode.
type HeatLayer struct {
	Points []HeatPoint `json:"points"`
	Cells  []HeatCell  `json:"cells,omitempty"`
}

// Viewport tells the map where to look after a plan is applied. When Fit
// is set the map fits Bounds with Padding; when Reset is set it moves to
// Center at Zoom; otherwise the current view is kept.
type Viewport struct {
	Fit     bool          `json:"fit"`
	Bounds  *model.Bounds `json:"bounds,omitempty"`
	Padding int           `json:"padding,omitempty"`
	Reset   bool          `json:"reset"`
	Center  *model.LatLng `json:"center,omitempty"`
	Zoom    int           `json:"zoom,omitempty"`
}

// Plan is the full description of what to draw.
type Plan struct {
	Mode     Mode       `json:"mode"`
	Count    int        `json:"count"`
	Markers  []Marker   `json:"markers,omitempty"`
	Heat     *HeatLayer `json:"heat,omitempty"`
	Viewport Viewport   `json:"viewport"`
	Status   string     `json:"status"`
}

// ComputePlan chooses the render mode for locs at zoom: markers above the
// heatmap threshold, a single heat layer at or below it, nothing when locs
// is empty. It does not touch any shared state.
func ComputePlan(locs []model.Location, zoom int, origin Origin, cfg Config) Plan {
	if len(locs) == 0 {
		center := cfg.DefaultCenter
		return Plan{
			Mode:     Empty,
			Viewport: Viewport{Reset: true, Center: &center, Zoom: cfg.DefaultZoom},
			Status:   "No locations match the current filters",
		}
	}

	p := Plan{Count: len(locs)}
	if zoom > cfg.HeatmapZoom {
		p.Mode = Markers
		p.Markers = make([]Marker, len(locs))
		for i, l := range locs {
			p.Markers[i] = NewMarker(l)
		}
	} else {
		p.Mode = Heatmap
		p.Heat = BuildHeat(locs, cfg.HeatPrecision)
	}

	if origin == FromFilter {
		b := BoundsOf(locs)
		p.Viewport = Viewport{Fit: true, Bounds: &b, Padding: cfg.FitPadding}
	}
	p.Status = fmt.Sprintf("Showing %d locations", len(locs))
	return p
}

// BoundsOf returns the bounding box of locs.
func BoundsOf(locs []model.Location) model.Bounds {
	b := model.Bounds{North: math.Inf(-1), South: math.Inf(1), East: math.Inf(-1), West: math.Inf(1)}
	for _, l := range locs {
		b.North = math.Max(b.North, l.Lat)
		b.South = math.Min(b.South, l.Lat)
		b.East = math.Max(b.East, l.Lng)
		b.West = math.Min(b.West, l.Lng)
	}
	return b
}

// BuildHeat returns a uniformly weighted heat layer for locs. When
// precision is positive the points are also binned into geohash cells.
func BuildHeat(locs []model.Location, precision int) *HeatLayer {
	h := &HeatLayer{Points: make([]HeatPoint, len(locs))}
	for i, l := range locs {
		h.Points[i] = HeatPoint{Lat: l.Lat, Lng: l.Lng, Weight: 1}
	}
	if precision <= 0 {
		return h
	}

	index := map[string]int{}
	for _, l := range locs {
		hash := geohash.EncodeWithPrecision(l.Lat, l.Lng, precision)
		if i, ok := index[hash]; ok {
			h.Cells[i].Count++
			continue
		}
		c := geohash.Decode(hash).Center()
		index[hash] = len(h.Cells)
		h.Cells = append(h.Cells, HeatCell{Geohash: hash, Lat: c.Lat(), Lng: c.Lng(), Count: 1})
	}
	return h
}
