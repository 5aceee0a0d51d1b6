package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_ParsesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
api_url: http://api.local:3333
center:
  latitude: -23.5
  longitude: -46.6
checkout_delay: 3s
tiles:
  cache_dir: /var/cache/tiles
  prefetch_min_zoom: 12
  prefetch_max_zoom: 15
  prefetch_radius: 2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := &Config{
		APIURL:        "http://api.local:3333",
		LocalitiesURL: DefaultLocalitiesURL,
		LocalitiesTTL: DefaultLocalitiesTTL,
		Zoom:          DefaultZoom,
		CheckoutDelay: 3 * time.Second,
		VisitTTL:      DefaultVisitTTL,
		HTTPTimeout:   DefaultHTTPTimeout,
		Tiles: Tiles{
			Source:          DefaultTileSource,
			CacheDir:        "/var/cache/tiles",
			Attribution:     DefaultAttribution,
			UserAgent:       "discardpile/1.0",
			MaxZoom:         DefaultMaxZoom,
			PrefetchMinZoom: 12,
			PrefetchMaxZoom: 15,
			PrefetchRadius:  2,
		},
	}
	want.Center.Latitude = -23.5
	want.Center.Longitude = -46.6

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDefault_PrefetchFollowsZoom(t *testing.T) {
	cfg := Default()
	if cfg.Tiles.PrefetchMinZoom != DefaultZoom || cfg.Tiles.PrefetchMaxZoom != DefaultZoom {
		t.Fatalf("unexpected prefetch window: %d..%d", cfg.Tiles.PrefetchMinZoom, cfg.Tiles.PrefetchMaxZoom)
	}
}
