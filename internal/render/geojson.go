package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON exports the drawable content of p as a FeatureCollection. Markers
// become points carrying their display properties; a heat layer becomes
// points carrying a weight.
func GeoJSON(p Plan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, m := range p.Markers {
		f := geojson.NewFeature(orb.Point{m.Lng, m.Lat})
		f.ID = m.ID
		f.Properties["name"] = m.Name
		f.Properties["category"] = m.Category
		f.Properties["color"] = m.Color
		f.Properties["icon"] = m.Icon
		f.Properties["likes"] = m.Likes
		f.Properties["dislikes"] = m.Dislikes
		if m.ShortDescription != "" {
			f.Properties["short_description"] = m.ShortDescription
		}
		if m.Season != "" {
			f.Properties["season"] = m.Season
		}
		fc.Append(f)
	}

	if p.Heat != nil {
		for _, pt := range p.Heat.Points {
			f := geojson.NewFeature(orb.Point{pt.Lng, pt.Lat})
			f.Properties["weight"] = pt.Weight
			fc.Append(f)
		}
	}
	return fc
}
