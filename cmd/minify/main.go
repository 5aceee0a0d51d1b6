package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/woozymasta/discardpile/internal/assets"
	"github.com/woozymasta/discardpile/internal/config"
	"github.com/woozymasta/discardpile/internal/logger"
	"github.com/woozymasta/discardpile/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Output     string `short:"o" long:"out"    description:"Output directory" default:"dist"`
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
		cfg = config.Default()
	} else if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	bundle, err := assets.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load assets")
	}

	// only the pages without per-visit data can be exported
	srvCtx, err := server.NewServerContext(cfg, bundle, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render pages")
	}

	staticDir := filepath.Join(opts.Output, "static")
	if err := os.MkdirAll(staticDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	write := func(path string, data []byte) {
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to write file")
		}
		log.Debug().Str("path", path).Int("bytes", len(data)).Msg("File written")
	}

	for _, a := range bundle.Assets() {
		write(filepath.Join(staticDir, a.Name), a.Body)
	}
	write(filepath.Join(opts.Output, "index.html"), srvCtx.LandingHTML)
	write(filepath.Join(opts.Output, "checkout-point.html"), srvCtx.CheckoutHTML)

	log.Info().
		Str("out", opts.Output).
		Str("version", bundle.Version).
		Int("assets", len(bundle.Assets())).
		Msg("Minify done")
}
