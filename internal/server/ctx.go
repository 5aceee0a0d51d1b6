package server

import (
	"bytes"

	"github.com/woozymasta/discardpile/internal/assets"
	"github.com/woozymasta/discardpile/internal/checkout"
	"github.com/woozymasta/discardpile/internal/config"
	"github.com/woozymasta/discardpile/internal/registration"
	"github.com/woozymasta/discardpile/internal/routes"
	"github.com/woozymasta/discardpile/internal/tiles"

	"github.com/flosch/pongo2/v6"
	"github.com/rs/zerolog/log"
)

// TileURL is the tile layer template handed to the map.
const TileURL = "/tiles/{z}/{x}/{y}.webp"

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Assets   *assets.Bundle
	Visits   *registration.Store
	Tiles    *tiles.Store
	Redirect checkout.Redirect

	// Pages without per-request data are rendered once.
	LandingHTML     []byte
	CheckoutHTML    []byte
	TransparentTile []byte
}

// NewServerContext renders the static pages and prepares the fallback tile.
func NewServerContext(cfg *config.Config, bundle *assets.Bundle, visits *registration.Store, tileStore *tiles.Store) (*ServerContext, error) {
	s := &ServerContext{
		Config:   cfg,
		Assets:   bundle,
		Visits:   visits,
		Tiles:    tileStore,
		Redirect: checkout.New(cfg.CheckoutDelay),
	}

	var buf bytes.Buffer
	if err := bundle.Render(&buf, assets.PageLanding, pongo2.Context{"routes": routeNames()}); err != nil {
		return nil, err
	}
	s.LandingHTML = append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := bundle.Render(&buf, assets.PageCheckout, pongo2.Context{
		"routes": routeNames(),
		"redirect": map[string]any{
			"route":    s.Redirect.Route,
			"delay_ms": s.Redirect.Delay.Milliseconds(),
		},
	}); err != nil {
		return nil, err
	}
	s.CheckoutHTML = append([]byte(nil), buf.Bytes()...)

	transparent, err := tiles.Transparent()
	if err != nil {
		return nil, err
	}
	s.TransparentTile = transparent

	log.Info().
		Str("assets_version", bundle.Version).
		Str("api_url", cfg.APIURL).
		Str("tiles_dir", cfg.Tiles.CacheDir).
		Msg("Server context initialized successfully")

	return s, nil
}

func routeNames() map[string]string {
	return map[string]string{
		"landing":      routes.Landing,
		"registration": routes.Registration,
		"checkout":     routes.Checkout,
	}
}
