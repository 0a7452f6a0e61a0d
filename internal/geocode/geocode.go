// Package geocode turns a saved address into map coordinates using a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sussexdowns/Foodshare/internal/fetch"
	"github.com/Sussexdowns/Foodshare/internal/model"
)

// ErrNoResult is returned when the search endpoint finds nothing.
var ErrNoResult = errors.New("geocode: no result")

// Geocoder queries a Nominatim-style /search endpoint.
type Geocoder struct {
	URL    string
	Client *fetch.Client
}

// New returns a Geocoder for endpoint using c for requests.
func New(endpoint string, c *fetch.Client) *Geocoder {
	return &Geocoder{URL: endpoint, Client: c}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves address to the first matching coordinate.
func (g *Geocoder) Geocode(ctx context.Context, address string) (model.LatLng, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.LatLng{}, ErrNoResult
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	sep := "?"
	if strings.Contains(g.URL, "?") {
		sep = "&"
	}
	body, err := g.Client.GetText(ctx, g.URL+sep+q.Encode())
	if err != nil {
		return model.LatLng{}, fmt.Errorf("geocoding %q: %w", address, err)
	}

	var places []place
	if err := json.Unmarshal([]byte(body), &places); err != nil {
		return model.LatLng{}, fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(places) == 0 {
		return model.LatLng{}, ErrNoResult
	}

	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(places[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return model.LatLng{}, fmt.Errorf("geocode result for %q has bad coordinates", address)
	}
	return model.LatLng{Lat: lat, Lng: lng}, nil
}

// Center sources, reported alongside a resolved center.
const (
	FromAddress = "address"
	FromDevice  = "device"
	FromDefault = "default"
)

// ResolveCenter picks the map center in order of preference: the geocoded
// saved address, the device position, then def. Failures fall through to the
// next option and are logged, never returned.
func ResolveCenter(ctx context.Context, g *Geocoder, savedAddress string, device *model.LatLng, def model.LatLng, logger *slog.Logger) (model.LatLng, string) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if g != nil && strings.TrimSpace(savedAddress) != "" {
		ll, err := g.Geocode(ctx, savedAddress)
		if err == nil {
			return ll, FromAddress
		}
		logger.Warn("saved address could not be geocoded", "address", savedAddress, "err", err)
	}
	if device != nil {
		return *device, FromDevice
	}
	return def, FromDefault
}
