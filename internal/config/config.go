package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// SheetPlaceholder is the value shipped in sample configs before a real
// published sheet URL has been filled in.
const SheetPlaceholder = "YOUR_PUBLISHED_GOOGLE_SHEET_CSV_URL"

// Source modes.
const (
	ModeAuto   = "auto"
	ModeCSV    = "csv"
	ModeCounty = "county"
	ModeJSON   = "json"
	ModeHTML   = "html"
)

// Config holds all user-facing configuration for foodshare.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
	Source   SourceConfig   `toml:"source"`
	Map      MapConfig      `toml:"map"`
	Feedback FeedbackConfig `toml:"feedback"`
	Fetch    FetchConfig    `toml:"fetch"`
	Geocode  GeocodeConfig  `toml:"geocode"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	SessionIdle duration `toml:"session_idle"`
}

// SessionIdleDuration returns how long an unused map session is kept.
func (s ServerConfig) SessionIdleDuration() time.Duration {
	return s.SessionIdle.Duration
}

// SourceConfig names where location data comes from. Any of the fields may
// be a local path or an http(s) URL.
type SourceConfig struct {
	Mode           string `toml:"mode"`
	LocalCSV       string `toml:"local_csv"`
	SheetURL       string `toml:"sheet_url"`
	JSONURL        string `toml:"json_url"`
	FeedbackURL    string `toml:"feedback_url"`
	HTMLURL        string `toml:"html_url"`
	CountyManifest string `toml:"county_manifest"`
	CountyBase     string `toml:"county_base"`
}

type MapConfig struct {
	DefaultCenter     [2]float64 `toml:"default_center"` // [lat, lng]
	DefaultZoom       int        `toml:"default_zoom"`
	HeatmapZoom       int        `toml:"heatmap_zoom"`
	CountyLoadMinZoom int        `toml:"county_load_min_zoom"`
	FitPadding        int        `toml:"fit_padding"`
	HeatPrecision     int        `toml:"heat_precision"`
}

type FeedbackConfig struct {
	Endpoint string            `toml:"endpoint"`
	Columns  map[string]string `toml:"columns"`
}

type FetchConfig struct {
	Timeout     duration `toml:"timeout"`
	RateLimit   float64  `toml:"rate_limit"`
	Concurrency int      `toml:"concurrency"`
	UserAgent   string   `toml:"user_agent"`
}

type GeocodeConfig struct {
	URL       string  `toml:"url"`
	RateLimit float64 `toml:"rate_limit"`
}

// duration lets TOML carry values like "15s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// TimeoutDuration returns the per-request fetch timeout.
func (f FetchConfig) TimeoutDuration() time.Duration {
	return f.Timeout.Duration
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data:   DataConfig{Dir: "data"},
		Server: ServerConfig{Host: "localhost", Port: 8080, SessionIdle: duration{30 * time.Minute}},
		Source: SourceConfig{Mode: ModeAuto},
		Map: MapConfig{
			DefaultCenter:     [2]float64{50.873, 0.009},
			DefaultZoom:       14,
			HeatmapZoom:       12,
			CountyLoadMinZoom: 9,
			FitPadding:        50,
			HeatPrecision:     6,
		},
		Feedback: FeedbackConfig{
			Columns: map[string]string{
				"id":     "id",
				"action": "action",
			},
		},
		Fetch: FetchConfig{
			Timeout:     duration{15 * time.Second},
			RateLimit:   5,
			Concurrency: 4,
			UserAgent:   "foodshare/1.0",
		},
		Geocode: GeocodeConfig{
			URL:       "https://nominatim.openstreetmap.org/search",
			RateLimit: 1,
		},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigurationError reports that no usable data source is configured.
// It is raised before any network call is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Configured reports whether v names a real source (non-empty and not the
// sample placeholder).
func Configured(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.Contains(v, SheetPlaceholder)
}

// Validate checks that the source section names at least one usable source
// for the selected mode.
func (c *Config) Validate() error {
	s := c.Source
	switch s.Mode {
	case "", ModeAuto:
		if Configured(s.LocalCSV) || Configured(s.CountyManifest) || Configured(s.SheetURL) ||
			Configured(s.JSONURL) || Configured(s.HTMLURL) {
			return nil
		}
		if strings.Contains(s.SheetURL, SheetPlaceholder) {
			return &ConfigurationError{Field: "source.sheet_url", Reason: "still set to the placeholder URL"}
		}
		return &ConfigurationError{Field: "source", Reason: "no data source configured"}
	case ModeCSV:
		if !Configured(s.LocalCSV) && !Configured(s.SheetURL) {
			return &ConfigurationError{Field: "source.sheet_url", Reason: "csv mode needs local_csv or sheet_url"}
		}
	case ModeCounty:
		if !Configured(s.CountyManifest) {
			return &ConfigurationError{Field: "source.county_manifest", Reason: "county mode needs a manifest"}
		}
	case ModeJSON:
		if !Configured(s.JSONURL) {
			return &ConfigurationError{Field: "source.json_url", Reason: "json mode needs json_url"}
		}
	case ModeHTML:
		if !Configured(s.HTMLURL) {
			return &ConfigurationError{Field: "source.html_url", Reason: "html mode needs html_url"}
		}
	default:
		return &ConfigurationError{Field: "source.mode", Reason: fmt.Sprintf("unknown mode %q", s.Mode)}
	}

	if c.Map.HeatmapZoom < 0 || c.Map.CountyLoadMinZoom < 0 {
		return &ConfigurationError{Field: "map", Reason: "zoom thresholds must be non-negative"}
	}
	return nil
}
