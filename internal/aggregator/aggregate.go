package aggregator

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/normalize"
	"github.com/Sussexdowns/Foodshare/internal/records"
)

// Batch is the outcome of one parse pass over a CSV source.
type Batch struct {
	Locations []model.Location
	Rejected  []error
	Rows      int
}

// Shape wraps a parsed row as the raw record variant of its source.
type Shape func(records.Record) normalize.RawRecord

// Generic is the Shape for single-file CSV sources.
func Generic(r records.Record) normalize.RawRecord { return normalize.GenericCSVRow(r) }

// County returns the Shape for rows of one county's CSV file.
func County(c model.County) Shape {
	return func(r records.Record) normalize.RawRecord {
		return normalize.CountyCSVRow{Row: r, CountyID: c.ID, CountyName: c.Name}
	}
}

// AggregateCSV folds rows into unique locations keyed by id. The last valid
// row for an id wins for field values; approved feedback accumulates across
// every row sharing the id. Output keeps first-seen order.
func AggregateCSV(rows []records.Record, shape Shape, logger *slog.Logger) Batch {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	byID := make(map[int]*model.Location)
	var order []int
	batch := Batch{Rows: len(rows)}

	for _, row := range rows {
		raw := shape(row)
		loc, err := normalize.Normalize(raw)

		if err != nil {
			if errors.Is(err, normalize.ErrBadCoordinates) {
				// Feedback still counts for an id that already has a location.
				if id, ok := existingID(raw, byID); ok {
					Apply(byID[id], row)
					continue
				}
				logger.Warn("skipping row", "error", err)
			} else {
				logger.Debug("skipping row", "error", err)
			}
			batch.Rejected = append(batch.Rejected, err)
			continue
		}

		if prev, ok := byID[loc.ID]; ok {
			loc.Likes, loc.Dislikes = prev.Likes, prev.Dislikes
			*prev = loc
		} else {
			l := loc
			byID[loc.ID] = &l
			order = append(order, loc.ID)
		}
		Apply(byID[loc.ID], row)
	}

	batch.Locations = make([]model.Location, 0, len(order))
	for _, id := range order {
		batch.Locations = append(batch.Locations, *byID[id])
	}
	logger.Debug("aggregated CSV", "rows", len(rows), "locations", len(batch.Locations), "rejected", len(batch.Rejected))
	return batch
}

func existingID(raw normalize.RawRecord, byID map[int]*model.Location) (int, bool) {
	loc, err := normalize.Normalize(withDummyCoords(raw))
	if err != nil {
		return 0, false
	}
	_, ok := byID[loc.ID]
	return loc.ID, ok
}

// withDummyCoords lets an id be resolved for a row whose coordinates are bad.
func withDummyCoords(raw normalize.RawRecord) normalize.RawRecord {
	patch := func(r records.Record) records.Record {
		c := make(records.Record, len(r)+2)
		for k, v := range r {
			c[k] = v
		}
		c["lat"], c["lng"] = "0", "0"
		return c
	}
	switch r := raw.(type) {
	case normalize.GenericCSVRow:
		return normalize.GenericCSVRow(patch(records.Record(r)))
	case normalize.CountyCSVRow:
		r.Row = patch(r.Row)
		return r
	}
	return raw
}

// Approved reports whether a feedback row carries approved == TRUE.
func Approved(row records.Record) bool {
	return strings.ToUpper(strings.TrimSpace(row.Get("approved", "Approved"))) == "TRUE"
}

// Apply adds an approved row's likes and dislikes to loc.
func Apply(loc *model.Location, row records.Record) {
	if !Approved(row) {
		return
	}
	loc.Likes += normalize.ParseCount(row.Get("likes"))
	loc.Dislikes += normalize.ParseCount(row.Get("dislikes"))
}

// MergeFeedback applies approved feedback rows to JSON-sourced locations in place.
// Rows whose id matches no location are ignored.
func MergeFeedback(locs []model.Location, rows []records.Record) int {
	index := make(map[int]int, len(locs))
	for i, l := range locs {
		index[l.ID] = i
	}
	applied := 0
	for _, row := range rows {
		id, ok := normalize.ParseID(strings.TrimSpace(row.Get("id")))
		if !ok || !Approved(row) {
			continue
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		Apply(&locs[i], row)
		applied++
	}
	return applied
}
