package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sussexdowns/Foodshare/internal/fetch"
	"github.com/Sussexdowns/Foodshare/internal/model"
)

func testGeocoder(t *testing.T, h http.HandlerFunc) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/search", fetch.NewClient(time.Second, 0, "test"))
}

func TestGeocode(t *testing.T) {
	var gotQ string
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		w.Write([]byte(`[{"lat":"50.8730","lon":"0.0090","display_name":"Lewes"}]`))
	})

	ll, err := g.Geocode(context.Background(), " Lewes ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ll.Lat != 50.873 || ll.Lng != 0.009 {
		t.Errorf("got %+v", ll)
	}
	if gotQ != "Lewes" {
		t.Errorf("query: %q", gotQ)
	}
}

func TestGeocodeNoResult(t *testing.T) {
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	if _, err := g.Geocode(context.Background(), "Atlantis"); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
	if _, err := g.Geocode(context.Background(), "  "); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult for blank address, got %v", err)
	}
}

func TestResolveCenter(t *testing.T) {
	ok := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"51","lon":"1"}]`))
	})
	failing := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	device := &model.LatLng{Lat: 50.5, Lng: -0.5}
	def := model.LatLng{Lat: 50.873, Lng: 0.009}
	ctx := context.Background()

	tests := []struct {
		name    string
		g       *Geocoder
		address string
		device  *model.LatLng
		want    model.LatLng
		source  string
	}{
		{"address wins", ok, "Canterbury", device, model.LatLng{Lat: 51, Lng: 1}, FromAddress},
		{"geocode failure falls to device", failing, "Canterbury", device, *device, FromDevice},
		{"no address uses device", ok, "", device, *device, FromDevice},
		{"nothing uses default", failing, "Canterbury", nil, def, FromDefault},
		{"nil geocoder", nil, "Canterbury", nil, def, FromDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src := ResolveCenter(ctx, tt.g, tt.address, tt.device, def, nil)
			if got != tt.want || src != tt.source {
				t.Errorf("got %+v (%s), want %+v (%s)", got, src, tt.want, tt.source)
			}
		})
	}
}
