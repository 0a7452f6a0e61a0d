package render

import (
	"sync"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

// LayerID identifies an overlay drawn on a Canvas.
type LayerID int

// Canvas is the drawing surface a Presenter paints on.
type Canvas interface {
	AddMarker(m Marker) LayerID
	AddHeat(h HeatLayer) LayerID
	Remove(id LayerID)
	FitBounds(b model.Bounds, padding int)
	SetView(center model.LatLng, zoom int)
}

// Guard reports whether a feedback action was already sent for a location.
type Guard interface {
	Sent(id int, action model.Action) bool
}

// DrawnOverlaySet is the set of overlays the presenter currently owns on
// its canvas.
type DrawnOverlaySet struct {
	Mode   Mode
	Layers []LayerID
}

// Presenter applies plans to a Canvas, always removing what it drew last
// before drawing anything new.
type Presenter struct {
	mu     sync.Mutex
	canvas Canvas
	guard  Guard
	drawn  DrawnOverlaySet
}

// NewPresenter returns a Presenter drawing on c. guard may be nil.
func NewPresenter(c Canvas, guard Guard) *Presenter {
	return &Presenter{canvas: c, guard: guard}
}

// Apply clears the previous overlays, draws plan and moves the view.
func (p *Presenter) Apply(plan Plan) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.drawn.Layers {
		p.canvas.Remove(id)
	}
	p.drawn = DrawnOverlaySet{Mode: plan.Mode}

	switch plan.Mode {
	case Markers:
		for _, m := range plan.Markers {
			p.drawn.Layers = append(p.drawn.Layers, p.canvas.AddMarker(p.decorate(m)))
		}
	case Heatmap:
		if plan.Heat != nil {
			p.drawn.Layers = append(p.drawn.Layers, p.canvas.AddHeat(*plan.Heat))
		}
	}

	v := plan.Viewport
	switch {
	case v.Fit && v.Bounds != nil:
		p.canvas.FitBounds(*v.Bounds, v.Padding)
	case v.Reset && v.Center != nil:
		p.canvas.SetView(*v.Center, v.Zoom)
	}
}

// decorate sets the per-button disabled flags from the session guard.
func (p *Presenter) decorate(m Marker) Marker {
	if p.guard == nil {
		return m
	}
	for _, a := range model.Actions {
		if p.guard.Sent(m.ID, a) {
			if m.Disabled == nil {
				m.Disabled = make(map[model.Action]bool)
			}
			m.Disabled[a] = true
		}
	}
	return m
}

// Drawn returns a copy of the overlays currently on the canvas.
func (p *Presenter) Drawn() DrawnOverlaySet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return DrawnOverlaySet{Mode: p.drawn.Mode, Layers: append([]LayerID(nil), p.drawn.Layers...)}
}
