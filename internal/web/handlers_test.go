package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/render"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

const testCSV = `id,name,lat,lng,category,season,short_description
1,Apple,50.87,0.01,Fruit,"August, September",Old tree
2,Strawberry,50.88,0.02,Fruit,June,
3,Mint,50.86,0.00,Herb,,By the gate
`

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := filepath.Join(os.TempDir(), "foodshare-web-test-"+t.Name())
	os.RemoveAll(dir)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := store.New(dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	csvPath := filepath.Join(dir, "locations.csv")
	if err := os.WriteFile(csvPath, []byte(testCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Source = config.SourceConfig{Mode: config.ModeAuto, LocalCSV: csvPath}

	locs := store.NewLocationStore()
	return &Server{
		Store:     s,
		Locations: locs,
		Loader:    loader.New(cfg, locs, nil),
		Render: render.Config{
			HeatmapZoom:   12,
			FitPadding:    50,
			DefaultCenter: model.LatLng{Lat: 50.873, Lng: 0.009},
			DefaultZoom:   14,
		},
		Addr: "localhost:0",
	}
}

// client wraps an httptest server with a cookie jar so requests share a session.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, s *Server) *client {
	t.Helper()
	h, err := s.Handler()
	if err != nil {
		t.Fatalf("building handler: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	jar, _ := cookiejar.New(nil)
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, c.base+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type viewResponse struct {
	Raw    json.RawMessage `json:"plan"`
	Status []struct {
		Level string `json:"level"`
		Text  string `json:"text"`
	} `json:"status"`
}

type planJSON struct {
	Mode     string            `json:"mode"`
	Count    int               `json:"count"`
	Markers  []render.Marker   `json:"markers"`
	Heat     *render.HeatLayer `json:"heat"`
	Viewport render.Viewport   `json:"viewport"`
}

func decodePlan(t *testing.T, v viewResponse) planJSON {
	t.Helper()
	var p planJSON
	if err := json.Unmarshal(v.Raw, &p); err != nil {
		t.Fatalf("decoding plan: %v", err)
	}
	return p
}

func TestStartAndPlan(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)

	var v viewResponse
	if code := c.do("POST", "/api/start", map[string]any{"zoom": 14}, &v); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	p := decodePlan(t, v)
	if p.Mode != "markers" || p.Count != 3 || !p.Viewport.Fit {
		t.Errorf("start plan: %+v", p)
	}
	if srv.Store.LocationCount() != 3 {
		t.Errorf("snapshot not persisted: %d", srv.Store.LocationCount())
	}

	var again viewResponse
	c.do("GET", "/api/plan", nil, &again)
	if got := decodePlan(t, again); got.Count != 3 {
		t.Errorf("plan after start: %+v", got)
	}
}

func TestFilterEndpoints(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)
	c.do("POST", "/api/start", nil, nil)

	var filters struct {
		Options struct {
			Categories []string `json:"categories"`
			Items      []string `json:"items"`
		} `json:"options"`
	}
	c.do("GET", "/api/filters", nil, &filters)
	if strings.Join(filters.Options.Categories, ",") != "Fruit,Herb" {
		t.Errorf("categories: %v", filters.Options.Categories)
	}

	var v viewResponse
	c.do("POST", "/api/filter", map[string]any{"category": "fruits", "item": "all", "months": []int{6}}, &v)
	p := decodePlan(t, v)
	if p.Count != 1 || p.Markers[0].Name != "Strawberry" {
		t.Errorf("filtered plan: %+v", p)
	}

	var locs []model.Location
	c.do("GET", "/api/locations?category=Herb", nil, &locs)
	if len(locs) != 1 || locs[0].Name != "Mint" {
		t.Errorf("locations query: %+v", locs)
	}
	c.do("GET", "/api/locations?month=Sept", nil, &locs)
	if len(locs) != 1 || locs[0].ID != 1 {
		t.Errorf("month query: %+v", locs)
	}
}

func TestViewSwitchesToHeatmap(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)
	c.do("POST", "/api/start", nil, nil)

	var v viewResponse
	code := c.do("POST", "/api/view", map[string]any{"zoom": 10, "north": 51, "south": 50, "east": 1, "west": -1}, &v)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	p := decodePlan(t, v)
	if p.Mode != "heatmap" || p.Heat == nil || len(p.Heat.Points) != 3 || len(p.Markers) != 0 {
		t.Errorf("heat plan: %+v", p)
	}
	if p.Viewport.Fit {
		t.Error("a view change should not refit")
	}

	code = c.do("POST", "/api/view", map[string]any{"zoom": 10, "north": 49, "south": 50}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted bounds, got %d", code)
	}
}

func TestFeedbackOncePerSession(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)
	c.do("POST", "/api/start", nil, nil)

	var out struct {
		Accepted bool           `json:"accepted"`
		Location model.Location `json:"location"`
	}
	if code := c.do("POST", "/api/feedback", map[string]any{"id": 1, "action": "like"}, &out); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !out.Accepted || out.Location.Likes != 1 {
		t.Errorf("first like: %+v", out)
	}
	c.do("POST", "/api/feedback", map[string]any{"id": 1, "action": "like"}, &out)
	if out.Accepted {
		t.Error("second like in the same session should be refused")
	}

	// A different visitor has their own guard.
	other := newClient(t, srv)
	other.do("POST", "/api/feedback", map[string]any{"id": 1, "action": "like"}, &out)
	if !out.Accepted || out.Location.Likes != 2 {
		t.Errorf("other visitor: %+v", out)
	}

	if code := c.do("POST", "/api/feedback", map[string]any{"id": 1, "action": "love"}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown action: expected 400, got %d", code)
	}
	if code := c.do("POST", "/api/feedback", map[string]any{"id": 404, "action": "like"}, nil); code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", code)
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)

	var p model.Preferences
	c.do("GET", "/api/prefs", nil, &p)
	if !p.UseFontAwesome || !p.ShowImages {
		t.Errorf("defaults: %+v", p)
	}

	want := model.Preferences{DarkMode: true, SavedAddress: "Lewes", UseFontAwesome: true}
	if code := c.do("PUT", "/api/prefs", want, &p); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var got model.Preferences
	c.do("GET", "/api/prefs", nil, &got)
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSheetPreferenceDoesNotChangeSharedStore(t *testing.T) {
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testCSV))
	}))
	t.Cleanup(sheet.Close)

	srv := testServer(t)
	srv.Loader.Source = config.SourceConfig{Mode: config.ModeAuto, SheetURL: sheet.URL + "/sheet.csv"}

	secret := filepath.Join(t.TempDir(), "secret.csv")
	if err := os.WriteFile(secret, []byte("id,lat,lng,name\n1,1,1,SECRET-ROW\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	visitor := newClient(t, srv)
	if code := visitor.do("PUT", "/api/prefs", model.Preferences{SheetURL: secret}, nil); code != http.StatusOK {
		t.Fatalf("prefs: expected 200, got %d", code)
	}
	if code := visitor.do("POST", "/api/start", map[string]any{"zoom": 14}, nil); code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", code)
	}

	other := newClient(t, srv)
	var locs []model.Location
	other.do("GET", "/api/locations", nil, &locs)
	if len(locs) != 3 {
		t.Fatalf("expected the configured sheet's 3 locations, got %d", len(locs))
	}
	for _, l := range locs {
		if l.Name == "SECRET-ROW" {
			t.Fatal("a visitor's sheet URL replaced the shared locations")
		}
	}
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func TestIdleSessionsExpire(t *testing.T) {
	srv := testServer(t)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }
	srv.SessionIdle = time.Minute

	a, b := newClient(t, srv), newClient(t, srv)
	a.do("GET", "/api/plan", nil, nil)
	b.do("GET", "/api/plan", nil, nil)
	if n := srv.sessionCount(); n != 2 {
		t.Fatalf("expected 2 sessions, got %d", n)
	}

	clock = clock.Add(30 * time.Second)
	b.do("GET", "/api/plan", nil, nil)

	clock = clock.Add(45 * time.Second)
	newClient(t, srv).do("GET", "/api/plan", nil, nil)
	if n := srv.sessionCount(); n != 2 {
		t.Errorf("expected the idle session to be dropped, got %d sessions", n)
	}

	var locs []model.Location
	newClient(t, srv).do("GET", "/api/locations", nil, &locs)
	if n := srv.sessionCount(); n != 2 {
		t.Errorf("read-only location listing should not open a session, got %d", n)
	}
}

func TestStatusAndCounties(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)
	c.do("POST", "/api/start", nil, nil)

	var status struct {
		Loader struct {
			State  string `json:"state"`
			Source string `json:"source"`
		} `json:"loader"`
		Locations int `json:"locations"`
	}
	c.do("GET", "/api/status", nil, &status)
	if status.Loader.State != "loaded" || status.Loader.Source != "local-csv" || status.Locations != 3 {
		t.Errorf("status: %+v", status)
	}

	var counties []any
	c.do("GET", "/api/counties", nil, &counties)
	if len(counties) != 0 {
		t.Errorf("expected no counties outside county mode, got %v", counties)
	}
}

func TestPlanGeoJSON(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)
	c.do("POST", "/api/start", nil, nil)

	var fc struct {
		Type     string `json:"type"`
		Features []any  `json:"features"`
	}
	c.do("GET", "/api/plan.geojson", nil, &fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Errorf("geojson: %+v", fc)
	}
}

func TestRestoreFromSnapshot(t *testing.T) {
	srv := testServer(t)
	snap := &store.Snapshot{
		Locations:      []model.Location{{ID: 9, Name: "Fig", Category: "Fruit", Lat: 50.9, Lng: 0.1, Season: []int{}}},
		LoadedCounties: []string{"kent"},
	}
	if err := srv.Store.WriteSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	n, err := srv.Restore()
	if err != nil || n != 1 {
		t.Fatalf("restore: %d, %v", n, err)
	}
	if !srv.Locations.IsCountyLoaded("kent") {
		t.Error("loaded counties not restored")
	}

	c := newClient(t, srv)
	var v viewResponse
	c.do("POST", "/api/start", nil, &v)
	if p := decodePlan(t, v); p.Count != 1 {
		t.Errorf("start should use the restored set, got %+v", p)
	}
}

func TestStaticIndex(t *testing.T) {
	srv := testServer(t)
	c := newClient(t, srv)

	resp, err := c.http.Get(c.base + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
