// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/woozymasta/discardpile/internal/assets"
	"github.com/woozymasta/discardpile/internal/geo"
	"github.com/woozymasta/discardpile/internal/tiles"

	"github.com/flosch/pongo2/v6"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const etagCap = 64

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK\n"))
}

// HandleLanding serves the landing page.
func (s *ServerContext) HandleLanding(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.LandingHTML)
}

// HandleCheckout serves the confirmation page.
func (s *ServerContext) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.CheckoutHTML)
}

func (s *ServerContext) servePage(w http.ResponseWriter, r *http.Request, page []byte) {
	etag := `"` + s.Assets.Version + "-" + strconv.FormatInt(int64(len(page)), 16) + `"`

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(page)
}

// HandleCreatePoint opens a new registration visit and renders its page.
func (s *ServerContext) HandleCreatePoint(w http.ResponseWriter, r *http.Request) {
	screen := s.Visits.Create()

	var buf bytes.Buffer
	err := s.Assets.Render(&buf, assets.PageCreate, pongo2.Context{
		"visit":  screen.ID(),
		"center": s.Config.Center,
		"zoom":   s.Config.Zoom,
		"tiles": map[string]any{
			"url":         TileURL,
			"max_zoom":    s.Config.Tiles.MaxZoom,
			"attribution": s.Config.Tiles.Attribution,
		},
		"routes": routeNames(),
	})
	if err != nil {
		log.Error().Err(err).Str("visit", screen.ID()).Msg("Failed to render registration page")
		s.Visits.Remove(screen.ID())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// HandleCheckoutEvents streams a single navigate event once the
// confirmation delay has elapsed. Nothing is sent if the client leaves first.
func (s *ServerContext) HandleCheckoutEvents(w http.ResponseWriter, r *http.Request) {
	es, err := newEventStream(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	navigate := make(chan string, 1)
	stop := s.Redirect.Schedule(r.Context(), func(route string) { navigate <- route })
	defer stop()

	select {
	case <-r.Context().Done():
		log.Debug().Msg("Checkout redirect cancelled: client left")
	case route := <-navigate:
		_ = es.Send("navigate", map[string]string{"route": route})
	}
}

// HandleStatic serves the minified static files.
func (s *ServerContext) HandleStatic(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, mux.Vars(r)["name"])
}

// HandleFavicon serves the site icon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "logo.svg")
}

func (s *ServerContext) serveAsset(w http.ResponseWriter, r *http.Request, name string) {
	asset, ok := s.Assets.Asset(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == asset.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("ETag", asset.ETag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(asset.Body)
}

// HandleTile serves a map tile from the cache, fetching it on a miss.
// Unavailable tiles fall back to a transparent one.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	z, errZ := strconv.Atoi(vars["z"])
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errZ != nil || errX != nil || errY != nil {
		http.NotFound(w, r)
		return
	}

	tile := geo.Tile{Z: z, X: x, Y: y}
	path, err := s.Tiles.Get(r.Context(), tile)
	if errors.Is(err, tiles.ErrOutOfRange) {
		http.NotFound(w, r)
		return
	}
	if err == nil && s.serveFile(w, r, path, "image/webp") {
		return
	}

	if err != nil && !errors.Is(err, tiles.ErrNotFound) {
		log.Debug().Err(err).Int("z", z).Int("x", x).Int("y", y).Msg("Tile unavailable, serving transparent tile")
	}

	// cache transparent tile
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.TransparentTile)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
