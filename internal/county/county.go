// Package county reads the county manifest and answers the geometric
// questions the loader asks of it: which counties a viewport touches and
// which county centroid lies nearest a point.
package county

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"

	"github.com/Sussexdowns/Foodshare/internal/fetch"
	"github.com/Sussexdowns/Foodshare/internal/model"
)

// Manifest is the list of per-county datasets.
type Manifest struct {
	Counties []model.County
	byID     map[string]int
}

// ParseManifest decodes a manifest that is either a bare array of county
// descriptors or an object with a "counties" key.
func ParseManifest(data []byte) (*Manifest, error) {
	data = bytes.TrimSpace(data)
	var counties []model.County

	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Counties []model.County `json:"counties"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decoding county manifest: %w", err)
		}
		counties = wrapped.Counties
	} else if err := json.Unmarshal(data, &counties); err != nil {
		return nil, fmt.Errorf("decoding county manifest: %w", err)
	}

	return NewManifest(counties)
}

// NewManifest indexes counties by id. Ids must be unique and non-empty.
func NewManifest(counties []model.County) (*Manifest, error) {
	m := &Manifest{Counties: counties, byID: make(map[string]int, len(counties))}
	for i, c := range counties {
		if c.ID == "" {
			return nil, fmt.Errorf("county %d (%q) has no id", i, c.Name)
		}
		if _, dup := m.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate county id %q", c.ID)
		}
		m.byID[c.ID] = i
	}
	return m, nil
}

// LoadManifest fetches and parses the manifest at loc (URL or path).
func LoadManifest(ctx context.Context, c *fetch.Client, loc string) (*Manifest, error) {
	text, err := c.GetText(ctx, loc)
	if err != nil {
		return nil, err
	}
	return ParseManifest([]byte(text))
}

// Get returns the county with the given id.
func (m *Manifest) Get(id string) (model.County, bool) {
	i, ok := m.byID[id]
	if !ok {
		return model.County{}, false
	}
	return m.Counties[i], true
}

// Bound converts manifest bounds to an orb.Bound (X = lng, Y = lat).
func Bound(b model.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(b.West, b.East), math.Min(b.South, b.North)},
		Max: orb.Point{math.Max(b.West, b.East), math.Max(b.South, b.North)},
	}
}

// Intersecting returns the counties whose bounding box intersects view, in
// manifest order.
func (m *Manifest) Intersecting(view orb.Bound) []model.County {
	var out []model.County
	for _, c := range m.Counties {
		if Bound(c.Bounds).Intersects(view) {
			out = append(out, c)
		}
	}
	return out
}

// Nearest returns the county whose centroid is closest to p by plain
// Euclidean distance in degree space. Ties go to the earlier county.
func (m *Manifest) Nearest(p model.LatLng) (model.County, bool) {
	if len(m.Counties) == 0 {
		return model.County{}, false
	}
	q := r2.Point{X: p.Lng, Y: p.Lat}

	best, bestDist := 0, math.Inf(1)
	for i, c := range m.Counties {
		cen := c.Centroid()
		d := r2.Point{X: cen.Lng, Y: cen.Lat}.Sub(q).Norm()
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.Counties[best], true
}

// CSVLocation resolves a county's csvFile against base.
func CSVLocation(base string, c model.County) string {
	return fetch.Resolve(base, c.CSVFile)
}

// tileSize is the web-map tile edge in pixels.
const tileSize = 256

// Viewport approximates the bound a map of widthPx x heightPx pixels shows
// at the given center and zoom in web mercator.
func Viewport(center model.LatLng, zoom int, widthPx, heightPx int) orb.Bound {
	worldPx := tileSize * math.Exp2(float64(zoom))
	halfLng := float64(widthPx) / 2 * 360 / worldPx

	cy := mercY(center.Lat)
	halfY := float64(heightPx) / 2 / worldPx * 2 * math.Pi
	north := invMercY(cy + halfY)
	south := invMercY(cy - halfY)

	return orb.Bound{
		Min: orb.Point{center.Lng - halfLng, south},
		Max: orb.Point{center.Lng + halfLng, north},
	}
}

func mercY(lat float64) float64 {
	r := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + r/2))
}

func invMercY(y float64) float64 {
	return (2*math.Atan(math.Exp(y)) - math.Pi/2) * 180 / math.Pi
}

// BoundOf converts a model.Bounds-like viewport posted by a client.
func BoundOf(north, south, east, west float64) orb.Bound {
	return Bound(model.Bounds{North: north, South: south, East: east, West: west})
}

// IDs returns the ids of counties, sorted.
func IDs(counties []model.County) []string {
	ids := make([]string, len(counties))
	for i, c := range counties {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}
