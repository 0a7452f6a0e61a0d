package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/season"
)

func (j JSONLocation) RawID() string { return strings.TrimSpace(stringValue(j["id"])) }

func (j JSONLocation) normalize() (model.Location, error) {
	rawID := j.RawID()
	id, ok := ParseID(rawID)
	if !ok {
		return model.Location{}, &RejectError{ID: rawID, Err: ErrMissingID}
	}
	rawLat, rawLng := stringValue(j.first("lat", "latitude")), stringValue(j.first("lng", "lon", "longitude"))
	lat, lng, ok := parseCoords(rawLat, rawLng)
	if !ok {
		return model.Location{}, &RejectError{ID: rawID, Lat: rawLat, Lng: rawLng, Err: ErrBadCoordinates}
	}

	loc := model.Location{
		ID:               id,
		Lat:              lat,
		Lng:              lng,
		Name:             firstNonEmpty(j.str("name"), fmt.Sprintf("Location %d", id)),
		DisplayName:      firstNonEmpty(j.str("displayName"), j.str("locationName")),
		Category:         firstNonEmpty(j.str("category"), model.DefaultCategory),
		OriginalType:     j.str("type"),
		Description:      j.str("description"),
		ShortDescription: firstNonEmpty(j.str("short_description"), j.str("shortDescription")),
		Season:           season.FromValue(j.first("season", "months")),
		Link:             j.str("link"),
		Image:            j.str("image"),
		Likes:            ParseCount(stringValue(j["likes"])),
		Dislikes:         ParseCount(stringValue(j["dislikes"])),
		Town:             j.str("town"),
		County:           j.str("county"),
		Postcode:         j.str("postcode"),
		Address:          j.str("address"),
		Tags:             j.str("tags"),
	}
	return loc, nil
}

func (j JSONLocation) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := j[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (j JSONLocation) str(key string) string {
	return strings.TrimSpace(stringValue(j[key]))
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

type locationsEnvelope struct {
	Locations []JSONLocation `json:"locations"`
}

// ParseLocationsJSON decodes a JSON location feed. It accepts a bare array,
// an object with a "locations" array, or an array embedded in other text.
func ParseLocationsJSON(data []byte) ([]JSONLocation, error) {
	data = bytes.TrimSpace(data)

	if out, err := decodeArray(data); err == nil {
		return out, nil
	}

	var env locationsEnvelope
	if err := decodeInto(data, &env); err == nil && env.Locations != nil {
		return env.Locations, nil
	}

	if start := bytes.IndexByte(data, '['); start >= 0 {
		if end := bytes.LastIndexByte(data, ']'); end > start {
			if out, err := decodeArray(data[start : end+1]); err == nil {
				return out, nil
			}
		}
	}

	return nil, fmt.Errorf("failed to parse locations JSON: %.200s", data)
}

func decodeArray(data []byte) ([]JSONLocation, error) {
	var out []JSONLocation
	if err := decodeInto(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
