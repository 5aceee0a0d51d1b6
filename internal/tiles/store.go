// Package tiles serves map tiles from an on-disk WebP cache filled from an
// upstream tile server.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/discardpile/internal/config"
	"github.com/woozymasta/discardpile/internal/geo"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const tileSize = 256

var (
	// ErrNotFound is returned when the upstream has no tile at a coordinate.
	ErrNotFound = errors.New("tiles: tile not found")

	// ErrOutOfRange is returned for coordinates outside the grid or above the zoom limit.
	ErrOutOfRange = errors.New("tiles: tile out of range")
)

// Store is a WebP tile cache rooted at a directory.
type Store struct {
	client    *http.Client
	source    string
	dir       string
	userAgent string
	maxZoom   int
}

// New returns a store for the tile settings. A nil client uses http.DefaultClient.
func New(client *http.Client, cfg config.Tiles) *Store {
	if client == nil {
		client = http.DefaultClient
	}

	return &Store{
		client:    client,
		source:    cfg.Source,
		dir:       cfg.CacheDir,
		userAgent: cfg.UserAgent,
		maxZoom:   cfg.MaxZoom,
	}
}

// Path returns the cache file of t.
func (s *Store) Path(t geo.Tile) string {
	return filepath.Join(
		s.dir,
		strconv.Itoa(t.Z),
		strconv.Itoa(t.X),
		strconv.Itoa(t.Y)+".webp",
	)
}

// Get returns the path of the cached tile, downloading it first on a miss.
func (s *Store) Get(ctx context.Context, t geo.Tile) (string, error) {
	if !t.Valid() || (s.maxZoom > 0 && t.Z > s.maxZoom) {
		return "", ErrOutOfRange
	}

	path := s.Path(t)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	if err := s.fetch(ctx, t, path); err != nil {
		return "", err
	}
	return path, nil
}

// fetch downloads t, re-encodes it to WebP and writes it to path.
func (s *Store) fetch(ctx context.Context, t geo.Tile, path string) error {
	url := BuildURL(s.source, t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download tile %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download tile %s: status code %d", url, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("download tile %s: %w", url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("decode tile %s: %w", url, err)
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		return ErrNotFound
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		return fmt.Errorf("encode tile %s: %w", url, err)
	}

	return writeAtomic(path, buf.Bytes())
}

// writeAtomic writes through a temporary file so concurrent readers never
// see a partial tile.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// BuildURL expands a tile URL template.
func BuildURL(tpl string, t geo.Tile) string {
	s := strings.ReplaceAll(tpl, "{z}", strconv.Itoa(t.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(t.X))
	s = strings.ReplaceAll(s, "{y}", strconv.Itoa(t.Y))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << t.Z) - 1
		tmsY := maxCoord - t.Y
		s = strings.ReplaceAll(s, "{tms_y}", strconv.Itoa(tmsY))
	}

	if strings.Contains(s, "{s}") {
		subdomains := "abc"
		s = strings.ReplaceAll(s, "{s}", string(subdomains[(t.X+t.Y)%len(subdomains)]))
	}

	return s
}

// Transparent returns an empty WebP tile served when no tile is available.
func Transparent() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
