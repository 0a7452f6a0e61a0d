package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/Sussexdowns/Foodshare/internal/aggregator"
	"github.com/Sussexdowns/Foodshare/internal/county"
	"github.com/Sussexdowns/Foodshare/internal/geocode"
	"github.com/Sussexdowns/Foodshare/internal/model"
)

// Default viewport size in pixels when a request does not name one.
const (
	defaultWidth  = 1024
	defaultHeight = 768
)

// countyResult is the outcome of one county fetch in a fan-out.
type countyResult struct {
	county model.County
	batch  aggregator.Batch
	err    error
}

// Manifest returns the county manifest, fetching it on first use.
func (l *Loader) Manifest(ctx context.Context) (*county.Manifest, error) {
	l.mu.Lock()
	m := l.manifest
	l.mu.Unlock()
	if m != nil {
		return m, nil
	}

	m, err := county.LoadManifest(ctx, l.Client, l.Source.CountyManifest)
	if err != nil {
		return nil, fmt.Errorf("loading county manifest: %w", err)
	}

	l.mu.Lock()
	if l.manifest == nil {
		l.manifest = m
	}
	m = l.manifest
	l.mu.Unlock()
	return m, nil
}

// SetManifest installs an already-parsed manifest.
func (l *Loader) SetManifest(m *county.Manifest) {
	l.mu.Lock()
	l.manifest = m
	l.mu.Unlock()
}

func (l *Loader) defaultCenter() model.LatLng {
	return model.LatLng{Lat: l.Map.DefaultCenter[0], Lng: l.Map.DefaultCenter[1]}
}

func (l *Loader) loadInitialCounties(ctx context.Context, req Request) (Result, error) {
	l.setStatus(Loading, SourceCounty, "")

	center, from := geocode.ResolveCenter(ctx, l.Geocoder, req.Prefs.SavedAddress, req.Device, l.defaultCenter(), l.logger())
	l.logger().Debug("resolved map center", "lat", center.Lat, "lng", center.Lng, "from", from)

	view := l.viewFor(req, center)
	l.Store.Replace(nil)
	l.mu.Lock()
	l.failed = nil
	l.mu.Unlock()

	res, err := l.LoadCounties(ctx, view, center)
	res.Center, res.CenterSource = center, from
	res.CountyMerge = false
	return res, err
}

func (l *Loader) viewFor(req Request, center model.LatLng) orb.Bound {
	if req.View != nil {
		return *req.View
	}
	zoom, w, h := req.Zoom, req.Width, req.Height
	if zoom <= 0 {
		zoom = l.Map.DefaultZoom
	}
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return county.Viewport(center, zoom, w, h)
}

// LoadCounties fetches every county intersecting view that has not been
// loaded yet and merges the successes into the store. When nothing
// intersects and no county has ever loaded, the county nearest center is
// loaded instead. A failing county never aborts the others.
func (l *Loader) LoadCounties(ctx context.Context, view orb.Bound, center model.LatLng) (Result, error) {
	log := l.logger()

	m, err := l.Manifest(ctx)
	if err != nil {
		return l.fail(SourceCounty, err)
	}

	targets := m.Intersecting(view)
	if len(targets) == 0 && len(l.Store.LoadedCounties()) == 0 {
		if nearest, ok := m.Nearest(center); ok {
			log.Info("no county in view, loading nearest", "county", nearest.ID)
			targets = []model.County{nearest}
		}
	}
	targets = l.claim(targets)
	defer l.release(targets)

	if len(targets) == 0 {
		res := Result{State: Loaded, Source: SourceCounty, Total: l.Store.Len(), Center: center, CountyMerge: true}
		return res, nil
	}

	l.setStatus(Loading, SourceCounty, fmt.Sprintf("Loading %d datasets", len(targets)))
	results := make([]countyResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	for i, c := range targets {
		g.Go(func() error {
			loc := county.CSVLocation(l.Source.CountyBase, c)
			batch, err := l.fetchCSV(gctx, loc, aggregator.County(c))
			results[i] = countyResult{county: c, batch: batch, err: err}
			return nil
		})
	}
	g.Wait()

	return l.mergeCounties(results, center)
}

func (l *Loader) mergeCounties(results []countyResult, center model.LatLng) (Result, error) {
	log := l.logger()
	res := Result{Source: SourceCounty, Center: center, CountyMerge: true}
	failures := make(map[string]error)

	for _, r := range results {
		if r.err != nil {
			failures[r.county.ID] = r.err
			l.markFailed(r.county.ID)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s unavailable: %v", r.county.Name, r.err))
			log.Warn("county load failed", "county", r.county.ID, "err", r.err)
			continue
		}
		added := l.Store.Merge(r.batch.Locations, r.county.ID)
		res.Added += added
		res.Loaded++
		if n := len(r.batch.Rejected); n > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d rows skipped", r.county.Name, n))
		}
		log.Info("county merged", "county", r.county.ID, "added", added, "rejected", len(r.batch.Rejected))
	}
	res.Failed = len(failures)
	res.Total = l.Store.Len()
	res.Message = fmt.Sprintf("%d datasets loaded, %d unavailable", res.Loaded, res.Failed)

	switch {
	case res.Failed == 0:
		res.State = Loaded
	case res.Loaded > 0:
		res.State = PartiallyLoaded
	default:
		res.State = Failed
	}
	l.setStatus(res.State, SourceCounty, res.Message)

	if res.Failed == 0 {
		return res, nil
	}
	pbe := &PartialBatchError{Loaded: res.Loaded, Failed: res.Failed, Errors: failures}
	if res.Loaded == 0 {
		errs := make([]error, 0, len(failures))
		for _, err := range failures {
			errs = append(errs, err)
		}
		return res, errors.Join(pbe, errors.Join(errs...))
	}
	return res, pbe
}

// claim filters out counties already loaded, being fetched by another pass,
// or failed since the last full load, and marks the rest in flight.
func (l *Loader) claim(cs []model.County) []model.County {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight == nil {
		l.inflight = make(map[string]bool)
	}

	var out []model.County
	for _, c := range cs {
		if l.Store.IsCountyLoaded(c.ID) || l.inflight[c.ID] || l.failed[c.ID] {
			continue
		}
		l.inflight[c.ID] = true
		out = append(out, c)
	}
	return out
}

func (l *Loader) markFailed(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed == nil {
		l.failed = make(map[string]bool)
	}
	l.failed[id] = true
}

func (l *Loader) release(cs []model.County) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range cs {
		delete(l.inflight, c.ID)
	}
}

// Summary formats a county result for the status bar.
func Summary(res Result) string {
	if len(res.Warnings) == 0 {
		return res.Message
	}
	return res.Message + " (" + strings.Join(res.Warnings, "; ") + ")"
}
