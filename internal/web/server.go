package web

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sussexdowns/Foodshare/internal/feedback"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/mapview"
	"github.com/Sussexdowns/Foodshare/internal/render"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

//go:embed all:static
var staticFS embed.FS

// sessionCookie names the cookie carrying a visitor's session id.
const sessionCookie = "foodshare_session"

// DefaultSessionIdle is used when Server.SessionIdle is zero.
const DefaultSessionIdle = 30 * time.Minute

type session struct {
	ctrl     *mapview.Controller
	lastSeen time.Time
}

// Server serves the interactive map web app and API.
type Server struct {
	Store     *store.Store
	Locations *store.LocationStore
	Loader    *loader.Loader
	Submitter *feedback.Submitter
	Render    render.Config
	Addr      string
	Logger    *slog.Logger
	// SessionIdle is how long a session's map state outlives its last request.
	SessionIdle time.Duration

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
	now       func() time.Time
}

// Handler returns the routed API and static file handler.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/locations", s.handleLocations)
	mux.HandleFunc("GET /api/filters", s.handleFilters)
	mux.HandleFunc("POST /api/filter", s.handleSetFilter)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("GET /api/plan", s.handlePlan)
	mux.HandleFunc("GET /api/plan.geojson", s.handlePlanGeoJSON)
	mux.HandleFunc("POST /api/view", s.handleView)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/counties", s.handleCounties)
	mux.HandleFunc("GET /api/prefs", s.handleGetPrefs)
	mux.HandleFunc("PUT /api/prefs", s.handlePutPrefs)

	// Static files
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating sub filesystem: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSub)))
	return mux, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	fmt.Printf("Serving at http://%s\n", s.Addr)
	srv := &http.Server{Addr: s.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// session returns the visitor's id and controller, issuing a new session
// cookie when the request carries none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *mapview.Controller) {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if s.sessions == nil {
		s.sessions = make(map[string]*session)
	}
	s.sweep(now)
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{ctrl: mapview.New(s.Locations, s.Loader, s.Submitter, s.Render, s.logger().With("session", id))}
		s.sessions[id] = sess
	}
	sess.lastSeen = now
	return id, sess.ctrl
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Server) idle() time.Duration {
	if s.SessionIdle > 0 {
		return s.SessionIdle
	}
	return DefaultSessionIdle
}

// sweep drops sessions idle for longer than SessionIdle. It runs at most
// once per quarter of that period. s.mu must be held.
func (s *Server) sweep(now time.Time) {
	idle := s.idle()
	if now.Sub(s.lastSweep) < idle/4 {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > idle {
			delete(s.sessions, id)
		}
	}
}

// persist writes the working set to the snapshot store.
func (s *Server) persist(source string) {
	if s.Store == nil {
		return
	}
	snap := &store.Snapshot{
		Locations:      s.Locations.All(),
		LoadedCounties: s.Locations.LoadedCounties(),
		Source:         source,
		TakenAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Store.WriteSnapshot(snap); err != nil {
		s.logger().Warn("writing snapshot", "err", err)
	}
}

// Restore installs the persisted snapshot, if any, into the working set.
func (s *Server) Restore() (int, error) {
	if s.Store == nil {
		return 0, nil
	}
	snap, err := s.Store.ReadSnapshot()
	if err != nil {
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(snap.Locations) == 0 {
		return 0, nil
	}
	s.Locations.Replace(snap.Locations)
	s.Locations.Merge(nil, snap.LoadedCounties...)
	s.logger().Info("restored snapshot", "locations", len(snap.Locations), "counties", len(snap.LoadedCounties), "taken_at", snap.TakenAt)
	return len(snap.Locations), nil
}
