// Package loader decides which upstream source to read, fetches it, and
// installs the normalized result in a LocationStore.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/Sussexdowns/Foodshare/internal/aggregator"
	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/county"
	"github.com/Sussexdowns/Foodshare/internal/fetch"
	"github.com/Sussexdowns/Foodshare/internal/geocode"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/normalize"
	"github.com/Sussexdowns/Foodshare/internal/records"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

// State is the loader's position in its load cycle.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	PartiallyLoaded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case PartiallyLoaded:
		return "partially-loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Source names reported in results.
const (
	SourceLocalCSV  = "local-csv"
	SourceCounty    = "county"
	SourceRemoteCSV = "remote-csv"
	SourceJSON      = "json"
	SourceHTML      = "html"
)

// ErrEmptySource is returned when a source parses to no locations.
var ErrEmptySource = errors.New("source contained no usable locations")

// PartialBatchError reports county fetches that failed while others succeeded.
type PartialBatchError struct {
	Loaded int
	Failed int
	Errors map[string]error // county id -> cause
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%d datasets loaded, %d unavailable", e.Loaded, e.Failed)
}

// Request carries the per-visitor inputs of a load.
type Request struct {
	Prefs  model.Preferences
	Device *model.LatLng
	// View is the visible map area. When nil it is derived from the
	// resolved center, Zoom and the Width/Height in pixels.
	View   *orb.Bound
	Zoom   int
	Width  int
	Height int
}

// Result describes a completed load.
type Result struct {
	State        State
	Source       string
	Added        int
	Total        int
	Loaded       int // counties loaded in this pass
	Failed       int // counties that failed in this pass
	Center       model.LatLng
	CenterSource string
	Message      string
	Warnings     []string
	// CountyMerge is set when locations arrived through an incremental
	// county merge, so the view should not refit.
	CountyMerge bool
}

// Status is a snapshot of the loader's state for display.
type Status struct {
	State   State  `json:"-"`
	Name    string `json:"state"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

// Loader runs the source decision policy against one LocationStore.
type Loader struct {
	Source      config.SourceConfig
	Map         config.MapConfig
	Client      *fetch.Client
	Geocoder    *geocode.Geocoder
	Store       *store.LocationStore
	Concurrency int
	Logger      *slog.Logger

	mu       sync.Mutex
	status   Status
	manifest *county.Manifest
	inflight map[string]bool
	failed   map[string]bool
}

// New returns a Loader wired from cfg.
func New(cfg *config.Config, st *store.LocationStore, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := fetch.NewClient(cfg.Fetch.TimeoutDuration(), cfg.Fetch.RateLimit, cfg.Fetch.UserAgent)
	geoClient := fetch.NewClient(cfg.Fetch.TimeoutDuration(), cfg.Geocode.RateLimit, cfg.Fetch.UserAgent)
	return &Loader{
		Source:      cfg.Source,
		Map:         cfg.Map,
		Client:      client,
		Geocoder:    geocode.New(cfg.Geocode.URL, geoClient),
		Store:       st,
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      logger,
		status:      Status{State: Idle, Name: Idle.String()},
	}
}

// Status returns the current load status.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loader) setStatus(s State, source, msg string) {
	l.mu.Lock()
	l.status = Status{State: s, Name: s.String(), Source: source, Message: msg}
	l.mu.Unlock()
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

// CountyMode reports whether per-county data is the active source.
func (l *Loader) CountyMode() bool {
	switch l.Source.Mode {
	case config.ModeCounty:
		return true
	case "", config.ModeAuto:
		return !config.Configured(l.Source.LocalCSV) && config.Configured(l.Source.CountyManifest)
	}
	return false
}

// ShouldLoadCounties reports whether a pan or zoom at zoom should trigger
// a county pass.
func (l *Loader) ShouldLoadCounties(zoom int) bool {
	return l.CountyMode() && zoom >= l.Map.CountyLoadMinZoom
}

// Load performs the initial load, replacing the store's contents.
func (l *Loader) Load(ctx context.Context, req Request) (Result, error) {
	src := l.Source
	override := sheetOverride(req.Prefs.SheetURL)
	if override != "" {
		src.SheetURL = override
		if src.Mode == config.ModeCounty {
			src.Mode = config.ModeAuto
		}
	}
	cfg := config.Config{Source: src, Map: l.Map}
	if err := cfg.Validate(); err != nil {
		l.setStatus(Failed, "", err.Error())
		return Result{State: Failed, Message: err.Error()}, err
	}

	switch src.Mode {
	case config.ModeCSV:
		if config.Configured(src.LocalCSV) {
			return l.loadSingleCSV(ctx, SourceLocalCSV, src.LocalCSV)
		}
		return l.loadRemote(ctx, src, false)
	case config.ModeJSON:
		return l.loadRemote(ctx, src, true)
	case config.ModeHTML:
		return l.loadHTML(ctx, src.HTMLURL)
	case config.ModeCounty:
		return l.loadInitialCounties(ctx, req)
	}

	switch {
	case config.Configured(src.LocalCSV):
		return l.loadSingleCSV(ctx, SourceLocalCSV, src.LocalCSV)
	case config.Configured(src.CountyManifest) && override == "":
		return l.loadInitialCounties(ctx, req)
	case config.Configured(src.SheetURL) || config.Configured(src.JSONURL):
		jsonFirst := (req.Prefs.UseJSONSource && config.Configured(src.JSONURL)) || !config.Configured(src.SheetURL)
		return l.loadRemote(ctx, src, jsonFirst)
	default:
		return l.loadHTML(ctx, src.HTMLURL)
	}
}

// sheetOverride returns the visitor's sheet URL when it may replace the
// configured one. Only http(s) URLs qualify; local paths come from config.
func sheetOverride(u string) string {
	u = strings.TrimSpace(u)
	if !config.Configured(u) || !fetch.IsRemote(u) {
		return ""
	}
	return u
}

// loadRemote fetches the primary remote source and falls back to the other
// of CSV/JSON when the primary fetch fails and both are configured.
func (l *Loader) loadRemote(ctx context.Context, src config.SourceConfig, jsonFirst bool) (Result, error) {
	primary := func() (Result, error) { return l.loadSingleCSV(ctx, SourceRemoteCSV, src.SheetURL) }
	secondary := func() (Result, error) { return l.loadJSON(ctx, src) }
	canFallback := config.Configured(src.JSONURL)
	if jsonFirst {
		primary, secondary = secondary, primary
		canFallback = config.Configured(src.SheetURL)
	}

	res, err := primary()
	var fe *fetch.FetchError
	if err != nil && canFallback && errors.As(err, &fe) {
		l.logger().Warn("primary source failed, trying fallback", "err", err)
		fres, ferr := secondary()
		if ferr == nil {
			fres.Warnings = append(fres.Warnings, err.Error())
			return fres, nil
		}
		return fres, errors.Join(err, ferr)
	}
	if err != nil && config.Configured(src.HTMLURL) && errors.As(err, &fe) {
		return l.loadHTML(ctx, src.HTMLURL)
	}
	return res, err
}

func (l *Loader) fail(source string, err error) (Result, error) {
	l.logger().Error("load failed", "source", source, "err", err)
	l.setStatus(Failed, source, err.Error())
	return Result{State: Failed, Source: source, Message: err.Error(), Total: l.Store.Len()}, err
}

func (l *Loader) replace(source string, locs []model.Location, rejected int) (Result, error) {
	l.Store.Replace(locs)
	msg := fmt.Sprintf("Loaded %d locations", len(locs))
	res := Result{State: Loaded, Source: source, Added: len(locs), Total: l.Store.Len(), Message: msg}
	if rejected > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d rows skipped", rejected))
	}
	l.logger().Info("source loaded", "source", source, "locations", len(locs), "rejected", rejected)
	l.setStatus(Loaded, source, msg)
	return res, nil
}

func (l *Loader) fetchCSV(ctx context.Context, loc string, shape aggregator.Shape) (aggregator.Batch, error) {
	text, err := l.Client.GetText(ctx, loc)
	if err != nil {
		return aggregator.Batch{}, err
	}
	if strings.TrimSpace(text) == "" {
		return aggregator.Batch{}, fmt.Errorf("%s: %w", loc, ErrEmptySource)
	}
	batch := aggregator.AggregateCSV(records.ParseCSV(text).Rows, shape, l.logger())
	if len(batch.Locations) == 0 {
		return batch, fmt.Errorf("%s: %w", loc, ErrEmptySource)
	}
	return batch, nil
}

func (l *Loader) loadSingleCSV(ctx context.Context, source, loc string) (Result, error) {
	l.setStatus(Loading, source, "")
	batch, err := l.fetchCSV(ctx, loc, aggregator.Generic)
	if err != nil {
		return l.fail(source, err)
	}
	return l.replace(source, batch.Locations, len(batch.Rejected))
}

func (l *Loader) loadHTML(ctx context.Context, loc string) (Result, error) {
	l.setStatus(Loading, SourceHTML, "")
	body, err := l.Client.Open(ctx, loc)
	if err != nil {
		return l.fail(SourceHTML, err)
	}
	defer body.Close()

	table, err := records.ParseHTMLTable(body)
	if err != nil {
		return l.fail(SourceHTML, fmt.Errorf("parsing %s: %w", loc, err))
	}
	batch := aggregator.AggregateCSV(table.Rows, aggregator.Generic, l.logger())
	if len(batch.Locations) == 0 {
		return l.fail(SourceHTML, fmt.Errorf("%s: %w", loc, ErrEmptySource))
	}
	return l.replace(SourceHTML, batch.Locations, len(batch.Rejected))
}

// loadJSON fetches the JSON source and, in parallel, a best-effort CSV
// feedback feed whose approved rows are added to the JSON counters.
func (l *Loader) loadJSON(ctx context.Context, src config.SourceConfig) (Result, error) {
	l.setStatus(Loading, SourceJSON, "")

	feedbackURL := src.FeedbackURL
	if !config.Configured(feedbackURL) {
		feedbackURL = src.SheetURL
	}

	var jsonText, feedbackText string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		jsonText, err = l.Client.GetText(ctx, src.JSONURL)
		return err
	})
	if config.Configured(feedbackURL) {
		g.Go(func() error {
			text, err := l.Client.GetText(ctx, feedbackURL)
			if err != nil {
				l.logger().Warn("feedback feed unavailable", "url", feedbackURL, "err", err)
				return nil
			}
			feedbackText = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return l.fail(SourceJSON, err)
	}

	raw, err := normalize.ParseLocationsJSON([]byte(jsonText))
	if err != nil {
		return l.fail(SourceJSON, fmt.Errorf("%s: %w", src.JSONURL, err))
	}

	locs := make([]model.Location, 0, len(raw))
	seen := make(map[int]int, len(raw))
	rejected := 0
	for _, r := range raw {
		loc, err := normalize.Normalize(r)
		if err != nil {
			l.logger().Warn("skipping JSON location", "err", err)
			rejected++
			continue
		}
		if i, ok := seen[loc.ID]; ok {
			locs[i] = loc
			continue
		}
		seen[loc.ID] = len(locs)
		locs = append(locs, loc)
	}
	if len(locs) == 0 {
		return l.fail(SourceJSON, fmt.Errorf("%s: %w", src.JSONURL, ErrEmptySource))
	}

	if feedbackText != "" {
		n := aggregator.MergeFeedback(locs, records.ParseCSV(feedbackText).Rows)
		l.logger().Debug("merged feedback", "rows", n)
	}
	return l.replace(SourceJSON, locs, rejected)
}
