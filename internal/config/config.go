// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"time"

	"github.com/woozymasta/discardpile/internal/geo"

	"gopkg.in/yaml.v3"
)

// Defaults applied to zero values after loading.
const (
	DefaultAPIURL        = "http://localhost:3333"
	DefaultLocalitiesURL = "https://servicodados.ibge.gov.br/api/v1/localidades"
	DefaultTileSource    = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution   = `&copy; <a href="https://osm.org/copyright">OpenStreetMap</a> contributors`
	DefaultZoom          = 14
	DefaultMaxZoom       = 19
	DefaultCheckoutDelay = 2 * time.Second
	DefaultVisitTTL      = 30 * time.Minute
	DefaultHTTPTimeout   = 15 * time.Second
	DefaultLocalitiesTTL = 24 * time.Hour
)

// Config represents the root configuration file structure.
type Config struct {
	// Base URL of the collection points REST API (items, points)
	APIURL string `yaml:"api_url"`

	// Base URL of the IBGE localities API (estados, municipios)
	LocalitiesURL string        `yaml:"localities_url"`
	LocalitiesTTL time.Duration `yaml:"localities_ttl,omitempty"`

	// Map center used until the device reports its position
	Center geo.Position `yaml:"center"`
	Zoom   int          `yaml:"zoom,omitempty"`

	Tiles Tiles `yaml:"tiles"`

	CheckoutDelay time.Duration `yaml:"checkout_delay,omitempty"`
	VisitTTL      time.Duration `yaml:"visit_ttl,omitempty"`
	HTTPTimeout   time.Duration `yaml:"http_timeout,omitempty"`
}

// Tiles configures the cached map tile layer.
type Tiles struct {
	Source      string `yaml:"source"` // URL template with {z} {x} {y}, optionally {s} and {tms_y}
	CacheDir    string `yaml:"cache_dir"`
	Attribution string `yaml:"attribution,omitempty"`
	UserAgent   string `yaml:"user_agent,omitempty"`
	MaxZoom     int    `yaml:"max_zoom,omitempty"`

	// Prefetch window used by the loader
	PrefetchMinZoom int `yaml:"prefetch_min_zoom,omitempty"`
	PrefetchMaxZoom int `yaml:"prefetch_max_zoom,omitempty"`
	PrefetchRadius  int `yaml:"prefetch_radius,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.LocalitiesURL == "" {
		c.LocalitiesURL = DefaultLocalitiesURL
	}
	if c.LocalitiesTTL <= 0 {
		c.LocalitiesTTL = DefaultLocalitiesTTL
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if c.CheckoutDelay <= 0 {
		c.CheckoutDelay = DefaultCheckoutDelay
	}
	if c.VisitTTL <= 0 {
		c.VisitTTL = DefaultVisitTTL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}

	t := &c.Tiles
	if t.Source == "" {
		t.Source = DefaultTileSource
	}
	if t.CacheDir == "" {
		t.CacheDir = "tiles"
	}
	if t.Attribution == "" {
		t.Attribution = DefaultAttribution
	}
	if t.UserAgent == "" {
		t.UserAgent = "discardpile/1.0"
	}
	if t.MaxZoom <= 0 {
		t.MaxZoom = DefaultMaxZoom
	}
	if t.PrefetchMaxZoom <= 0 {
		t.PrefetchMaxZoom = c.Zoom
	}
	if t.PrefetchMinZoom <= 0 || t.PrefetchMinZoom > t.PrefetchMaxZoom {
		t.PrefetchMinZoom = t.PrefetchMaxZoom
	}
	if t.PrefetchRadius < 0 {
		t.PrefetchRadius = 0
	}
}
