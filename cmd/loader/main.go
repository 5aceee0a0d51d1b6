package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/woozymasta/discardpile/internal/config"
	"github.com/woozymasta/discardpile/internal/geo"
	"github.com/woozymasta/discardpile/internal/logger"
	"github.com/woozymasta/discardpile/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string  `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Concurrency int     `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"8"`
	MinZoom     int     `long:"min-zoom"              description:"Lowest zoom to prefetch (config prefetch_min_zoom if 0)"`
	MaxZoom     int     `long:"max-zoom"              description:"Highest zoom to prefetch (config prefetch_max_zoom if 0)"`
	Radius      int     `short:"r" long:"radius"      description:"Tiles around the center on each side (config prefetch_radius if 0)"`
	Latitude    float64 `long:"lat"                   description:"Center latitude (config center if unset)"`
	Longitude   float64 `long:"lng"                   description:"Center longitude (config center if unset)"`
	Force       bool    `short:"f" long:"force"       description:"Force overwrite of existing files"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", opts.ConfigFile).Msg("Configuration file not found, using defaults")
		cfg = config.Default()
	} else if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: cfg.HTTPTimeout,
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	center := geo.Position{Latitude: opts.Latitude, Longitude: opts.Longitude}
	if center.IsZero() {
		center = cfg.Center
	}
	minZoom := pick(opts.MinZoom, cfg.Tiles.PrefetchMinZoom)
	maxZoom := pick(opts.MaxZoom, cfg.Tiles.PrefetchMaxZoom)
	if cfg.Tiles.MaxZoom > 0 && maxZoom > cfg.Tiles.MaxZoom {
		maxZoom = cfg.Tiles.MaxZoom
	}
	radius := pick(opts.Radius, cfg.Tiles.PrefetchRadius)

	queue := geo.TilesAround(center, minZoom, maxZoom, radius)

	log.Info().
		Float64("lat", center.Latitude).
		Float64("lng", center.Longitude).
		Int("min_zoom", minZoom).
		Int("max_zoom", maxZoom).
		Int("radius", radius).
		Int("tiles_queued", len(queue)).
		Str("cache_dir", cfg.Tiles.CacheDir).
		Msg("Starting loader")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := tiles.New(client, cfg.Tiles).Prefetch(ctx, queue, opts.Concurrency, opts.Force)

	log.Info().
		Int("cached", stats.Cached).
		Int("fetched", stats.Fetched).
		Int("missing", stats.Missing).
		Int("failed", stats.Failed).
		Msg("Loader finished")

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func pick(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}
