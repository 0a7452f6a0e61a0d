// Package normalize maps raw rows from every source shape into model.Location.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/records"
	"github.com/Sussexdowns/Foodshare/internal/season"
)

var (
	// ErrMissingID marks a row without a resolvable integer id.
	ErrMissingID = errors.New("missing id")
	// ErrBadCoordinates marks a row whose lat/lng are not finite numbers.
	ErrBadCoordinates = errors.New("invalid coordinates")
)

// RejectError describes a dropped row.
type RejectError struct {
	ID  string // raw id as found, may be empty
	Lat string
	Lng string
	Err error
}

func (e *RejectError) Error() string {
	if errors.Is(e.Err, ErrBadCoordinates) {
		return fmt.Sprintf("location %s: %v (lat=%q, lng=%q)", e.ID, e.Err, e.Lat, e.Lng)
	}
	return fmt.Sprintf("row rejected: %v", e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

// RawRecord is one input row in any supported source shape.
type RawRecord interface {
	normalize() (model.Location, error)
	// RawID returns the id as written in the source, trimmed.
	RawID() string
}

// GenericCSVRow is a row from a single-file CSV (local or published sheet).
type GenericCSVRow records.Record

// CountyCSVRow is a row from a per-county CSV file.
type CountyCSVRow struct {
	Row      records.Record
	CountyID string
	// CountyName fills the county column when the row leaves it empty.
	CountyName string
}

// JSONLocation is one decoded object from a JSON location array.
type JSONLocation map[string]any

// Normalize converts a raw row into a Location or returns a *RejectError.
func Normalize(r RawRecord) (model.Location, error) {
	return r.normalize()
}

func (r GenericCSVRow) RawID() string { return strings.TrimSpace(records.Record(r).Get("id")) }

func (r GenericCSVRow) normalize() (model.Location, error) {
	rec := records.Record(r)
	loc, err := baseFromRecord(rec)
	if err != nil {
		return model.Location{}, err
	}
	loc.Name = firstNonEmpty(
		rec.Get("name"),
		subCategory(rec),
		rec.Get("category"),
		fmt.Sprintf("Location %d", loc.ID),
	)
	return loc, nil
}

func (r CountyCSVRow) RawID() string { return strings.TrimSpace(r.Row.Get("id")) }

func (r CountyCSVRow) normalize() (model.Location, error) {
	loc, err := baseFromRecord(r.Row)
	if err != nil {
		return model.Location{}, err
	}
	placeName := r.Row.Get("name")
	loc.Name = firstNonEmpty(
		subCategory(r.Row),
		r.Row.Get("category"),
		placeName,
		fmt.Sprintf("Location %d", loc.ID),
	)
	if placeName != "" && placeName != loc.Name {
		loc.DisplayName = placeName
	}
	loc.CountyID = r.CountyID
	if loc.County == "" {
		loc.County = r.CountyName
	}
	return loc, nil
}

// baseFromRecord resolves every field shared by the CSV shapes.
func baseFromRecord(rec records.Record) (model.Location, error) {
	rawID := strings.TrimSpace(rec.Get("id"))
	id, ok := ParseID(rawID)
	if !ok {
		return model.Location{}, &RejectError{ID: rawID, Err: ErrMissingID}
	}
	rawLat, rawLng := rec.Get("lat", "latitude"), rec.Get("lng", "lon", "long", "longitude")
	lat, lng, ok := parseCoords(rawLat, rawLng)
	if !ok {
		return model.Location{}, &RejectError{ID: rawID, Lat: rawLat, Lng: rawLng, Err: ErrBadCoordinates}
	}

	return model.Location{
		ID:               id,
		Lat:              lat,
		Lng:              lng,
		Category:         firstNonEmpty(rec.Get("category"), model.DefaultCategory),
		OriginalType:     rec.Get("type"),
		Description:      rec.Get("description"),
		ShortDescription: rec.Get("short_description", "shortDescription", "short-description"),
		Season:           season.Decode(rec.Get("season", "months")),
		Link:             rec.Get("link"),
		Image:            rec.Get("image"),
		Town:             rec.Get("town"),
		County:           rec.Get("county"),
		Postcode:         rec.Get("postcode"),
		Address:          rec.Get("address"),
		Tags:             rec.Get("tags"),
	}, nil
}

func subCategory(rec records.Record) string {
	return rec.Get("sub_category", "sub-category", "subcategory")
}

// ParseID reads a location id. It accepts integers written plainly, with
// leading zeros, or with a trailing ".0".
func ParseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int(f), true
	}
	return 0, false
}

func parseCoords(lat, lng string) (float64, float64, bool) {
	la, ok1 := parseFinite(lat)
	ln, ok2 := parseFinite(lng)
	return la, ln, ok1 && ok2
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCount parses a feedback counter, defaulting to 0 and never negative.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	if f, ok := parseFinite(s); ok {
		return max(int(f), 0)
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
