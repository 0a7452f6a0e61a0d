package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/county"
	"github.com/Sussexdowns/Foodshare/internal/feedback"
	"github.com/Sussexdowns/Foodshare/internal/filter"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/mapview"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/render"
	"github.com/Sussexdowns/Foodshare/internal/season"
)

// selectionFromQuery reads category, item and month query parameters.
// month may repeat or hold a comma list of numbers or names.
func selectionFromQuery(r *http.Request) filter.Selection {
	q := r.URL.Query()
	sel := filter.Selection{Category: q.Get("category"), Item: q.Get("item")}
	for _, m := range q["month"] {
		if m == filter.All {
			continue
		}
		sel.Months = append(sel.Months, season.Decode(m)...)
	}
	return sel
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	all := s.Locations.All()
	if r.URL.RawQuery == "" {
		writeJSON(w, all)
		return
	}
	writeJSON(w, filter.Filter(all, selectionFromQuery(r)))
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	all := s.Locations.All()
	opts := filter.BuildOptions(all)
	if cat := r.URL.Query().Get("category"); cat != "" {
		opts.Items = filter.ItemsForCategory(all, cat)
	}
	writeJSON(w, map[string]any{
		"options":   opts,
		"selection": c.Selection(),
	})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	var sel filter.Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c.SetFilter(sel)
	s.writeView(w, c)
}

type startRequest struct {
	Zoom   int           `json:"zoom"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Device *model.LatLng `json:"device,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, c := s.session(w, r)
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	prefs := model.DefaultPreferences()
	if s.Store != nil {
		if p, err := s.Store.ReadPrefs(id); err == nil {
			prefs = p
		}
	}
	// Locations is shared by every session, so a visitor's sheet URL stays
	// on their page and never picks the server's source.
	prefs.SheetURL = ""

	hadData := s.Locations.Len() > 0
	err := c.Start(r.Context(), loader.Request{Prefs: prefs, Device: req.Device, Zoom: req.Zoom, Width: req.Width, Height: req.Height})
	if err != nil {
		var ce *config.ConfigurationError
		status := http.StatusBadGateway
		if errors.As(err, &ce) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, map[string]any{"error": err.Error(), "status": c.Status(), "plan": c.Scene()}, status)
		return
	}
	if !hadData && s.Locations.Len() > 0 {
		s.persist(s.Loader.Status().Source)
	}
	s.writeView(w, c)
}

// writeView sends what is drawn for c. The viewport comes from the last
// computed plan so the page only moves when that plan asked it to.
func (s *Server) writeView(w http.ResponseWriter, c *mapview.Controller) {
	plan := c.Scene()
	last := c.Plan()
	plan.Viewport, plan.Status = last.Viewport, last.Status
	writeJSON(w, map[string]any{
		"plan":   plan,
		"status": c.Status(),
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	s.writeView(w, c)
}

func (s *Server) handlePlanGeoJSON(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	fc := render.GeoJSON(c.Scene())
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

type viewRequest struct {
	Zoom  int     `json:"zoom"`
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.North < req.South {
		writeError(w, http.StatusBadRequest, errors.New("north must not be below south"))
		return
	}

	c.ZoomEnd(req.Zoom)
	before := s.Locations.Len()
	view := county.BoundOf(req.North, req.South, req.East, req.West)
	if _, err := c.MoveEnd(r.Context(), view); err != nil {
		s.logger().Warn("county pass finished with errors", "err", err)
	}
	if s.Locations.Len() > before {
		s.persist(loader.SourceCounty)
	}
	s.writeView(w, c)
}

type feedbackRequest struct {
	ID     int          `json:"id"`
	Action model.Action `json:"action"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	_, c := s.session(w, r)
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := c.Feedback(req.ID, req.Action)
	switch {
	case errors.Is(err, feedback.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, feedback.ErrUnknownLocation):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"loader":         s.Loader.Status(),
		"locations":      s.Locations.Len(),
		"loadedCounties": s.Locations.LoadedCounties(),
	}
	if s.Store != nil {
		resp["snapshot"] = map[string]any{
			"locations":  s.Store.LocationCount(),
			"counties":   s.Store.CountyCount(),
			"categories": s.Store.CountByCategory(),
		}
	}
	writeJSON(w, resp)
}

type countyView struct {
	model.County
	Loaded bool `json:"loaded"`
}

func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	if !s.Loader.CountyMode() {
		writeJSON(w, []countyView{})
		return
	}
	m, err := s.Loader.Manifest(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	out := make([]countyView, len(m.Counties))
	for i, c := range m.Counties {
		out[i] = countyView{County: c, Loaded: s.Locations.IsCountyLoaded(c.ID)}
	}
	writeJSON(w, out)
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	id, _ := s.session(w, r)
	p := model.DefaultPreferences()
	if s.Store != nil {
		var err error
		if p, err = s.Store.ReadPrefs(id); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, p)
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	id, _ := s.session(w, r)
	p := model.DefaultPreferences()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("preferences are not persisted"))
		return
	}
	if err := s.Store.WritePrefs(id, p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, p)
}

func writeJSON(w http.ResponseWriter, v any, status ...int) {
	w.Header().Set("Content-Type", "application/json")
	if len(status) > 0 {
		w.WriteHeader(status[0])
	}
	if v == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, map[string]string{"error": err.Error()}, status)
}
