package render

import (
	"sort"
	"sync"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

// Scene is an in-memory Canvas. It holds exactly what a browser map should
// currently show and is what the web page renders from.
type Scene struct {
	mu      sync.Mutex
	next    LayerID
	markers map[LayerID]Marker
	heat    map[LayerID]HeatLayer
	view    Viewport
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{markers: map[LayerID]Marker{}, heat: map[LayerID]HeatLayer{}}
}

func (s *Scene) AddMarker(m Marker) LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.markers[s.next] = m
	return s.next
}

func (s *Scene) AddHeat(h HeatLayer) LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.heat[s.next] = h
	return s.next
}

func (s *Scene) Remove(id LayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, id)
	delete(s.heat, id)
}

func (s *Scene) FitBounds(b model.Bounds, padding int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = Viewport{Fit: true, Bounds: &b, Padding: padding}
}

func (s *Scene) SetView(center model.LatLng, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = Viewport{Reset: true, Center: &center, Zoom: zoom}
}

// Layers returns the number of overlays on the scene.
func (s *Scene) Layers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers) + len(s.heat)
}

// Snapshot returns the scene contents as a Plan, markers in draw order.
func (s *Scene) Snapshot() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Plan{Viewport: s.view}
	ids := make([]LayerID, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p.Markers = append(p.Markers, s.markers[id])
	}
	for _, h := range s.heat {
		p.Heat = &h
	}

	switch {
	case len(p.Markers) > 0:
		p.Mode, p.Count = Markers, len(p.Markers)
	case p.Heat != nil:
		p.Mode, p.Count = Heatmap, len(p.Heat.Points)
	}
	return p
}
