// Package mapview holds the per-visitor state of the map page and turns
// page events into store, loader and presenter calls.
package mapview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"

	"github.com/Sussexdowns/Foodshare/internal/feedback"
	"github.com/Sussexdowns/Foodshare/internal/filter"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/render"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

// Controller owns one visitor's view of the shared location store.
type Controller struct {
	Store     *store.LocationStore
	Loader    *loader.Loader
	Submitter *feedback.Submitter
	Config    render.Config
	Logger    *slog.Logger

	mu        sync.Mutex
	scene     *render.Scene
	presenter *render.Presenter
	guard     *feedback.Guard
	board     *StatusBoard
	selection filter.Selection
	zoom      int
	center    model.LatLng
	plan      render.Plan
}

// New returns a controller at the configured default zoom.
func New(st *store.LocationStore, l *loader.Loader, sub *feedback.Submitter, cfg render.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	scene := render.NewScene()
	guard := feedback.NewGuard()
	return &Controller{
		Store:     st,
		Loader:    l,
		Submitter: sub,
		Config:    cfg,
		Logger:    logger,
		scene:     scene,
		presenter: render.NewPresenter(scene, guard),
		guard:     guard,
		board:     NewStatusBoard(),
		selection: filter.Everything,
		zoom:      cfg.DefaultZoom,
		center:    cfg.DefaultCenter,
	}
}

// Guard returns the session's feedback guard.
func (c *Controller) Guard() *feedback.Guard { return c.guard }

// Status returns the unexpired status messages.
func (c *Controller) Status() []Message { return c.board.Active() }

// Scene returns what is currently drawn.
func (c *Controller) Scene() render.Plan { return c.scene.Snapshot() }

// Plan returns the last computed plan.
func (c *Controller) Plan() render.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan
}

// Selection returns the active filter selection.
func (c *Controller) Selection() filter.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Start loads data when the store is empty and draws the initial view.
func (c *Controller) Start(ctx context.Context, req loader.Request) error {
	if req.Zoom > 0 {
		c.mu.Lock()
		c.zoom = req.Zoom
		c.mu.Unlock()
	}

	if c.Store.Len() == 0 && c.Loader != nil {
		c.board.Add(feedback.LevelInfo, "Loading locations...")
		res, err := c.Loader.Load(ctx, req)
		c.report(res, err)
		if res.Center != (model.LatLng{}) {
			c.mu.Lock()
			c.center = res.Center
			c.mu.Unlock()
		}
		if err != nil && c.Store.Len() == 0 {
			c.redraw(render.FromFilter)
			return err
		}
	}
	c.redraw(render.FromFilter)
	return nil
}

func (c *Controller) report(res loader.Result, err error) {
	switch {
	case res.State == loader.Failed:
		c.board.Add(feedback.LevelError, res.Message)
	case res.Source == loader.SourceCounty && (res.Loaded > 0 || res.Failed > 0):
		level := feedback.LevelSuccess
		if res.Failed > 0 {
			level = feedback.LevelWarning
		}
		c.board.Add(level, res.Message)
	case res.Message != "":
		c.board.Add(feedback.LevelSuccess, res.Message)
	}
	for _, w := range res.Warnings {
		c.board.Add(feedback.LevelWarning, w)
	}
	if err != nil {
		c.Logger.Warn("load finished with errors", "err", err)
	}
}

// SetFilter applies a new selection and refits the view to the result.
func (c *Controller) SetFilter(sel filter.Selection) render.Plan {
	c.mu.Lock()
	c.selection = sel.Normalized()
	c.mu.Unlock()

	p := c.redraw(render.FromFilter)
	if p.Mode == render.Empty {
		msg := "No results"
		if sel.Item != "" && sel.Item != filter.All {
			if s := filter.SuggestItem(c.Store.All(), sel.Item); s != "" && s != sel.Item {
				msg = fmt.Sprintf("No results. Did you mean %q?", s)
			}
		}
		c.board.Add(feedback.LevelWarning, msg)
	} else {
		c.board.Add(feedback.LevelSuccess, fmt.Sprintf("Filtered to %d locations", p.Count))
	}
	return p
}

// ZoomEnd re-selects the render mode for zoom without moving the view.
func (c *Controller) ZoomEnd(zoom int) render.Plan {
	c.mu.Lock()
	c.zoom = zoom
	c.mu.Unlock()
	return c.redraw(render.FromZoom)
}

// MoveEnd records the visible area and, past the county load threshold,
// merges any counties newly in view. The view is never refit for a merge.
func (c *Controller) MoveEnd(ctx context.Context, view orb.Bound) (render.Plan, error) {
	center := model.LatLng{Lat: view.Center()[1], Lng: view.Center()[0]}
	c.mu.Lock()
	c.center = center
	zoom := c.zoom
	c.mu.Unlock()

	if c.Loader == nil || !c.Loader.ShouldLoadCounties(zoom) {
		return c.Plan(), nil
	}

	res, err := c.Loader.LoadCounties(ctx, view, center)
	if res.Loaded > 0 || res.Failed > 0 {
		c.report(res, err)
	}
	if res.Added == 0 {
		return c.Plan(), err
	}
	return c.redraw(render.FromCountyMerge), err
}

// Feedback records a visitor action and redraws so the marker shows the new
// count and disabled button.
func (c *Controller) Feedback(id int, action model.Action) (feedback.Outcome, error) {
	out, err := feedback.Submit(c.guard, c.Store, c.Submitter, id, action, c.board.Add)
	if err != nil {
		return out, err
	}
	c.board.Add(out.Level, out.Message)
	if out.Accepted {
		c.redraw(render.FromFeedback)
	}
	return out, nil
}

// Filtered returns the locations passing the active selection.
func (c *Controller) Filtered() []model.Location {
	return filter.Filter(c.Store.All(), c.Selection())
}

func (c *Controller) redraw(origin render.Origin) render.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	locs := filter.Filter(c.Store.All(), c.selection)
	p := render.ComputePlan(locs, c.zoom, origin, c.Config)
	c.presenter.Apply(p)
	c.plan = p
	return p
}
