// Package localities reads Brazilian states and municipalities from the IBGE
// localities API and keeps them in memory for a while.
package localities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNoRegion is returned when cities are requested without a region.
var ErrNoRegion = errors.New("localities: missing region")

// Internal structures for JSON parsing
type ufResponse struct {
	Sigla string `json:"sigla"`
}

type cityResponse struct {
	Nome string `json:"nome"`
}

type cached struct {
	names   []string
	fetched time.Time
}

// Client fetches and caches region and city names.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	regions *cached
	cities  map[string]*cached
}

// New returns a client rooted at baseURL. A non-positive ttl disables caching.
func New(baseURL string, httpClient *http.Client, ttl time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		ttl:     ttl,
		now:     time.Now,
		cities:  make(map[string]*cached),
	}
}

// Regions returns the state abbreviations ordered by state name.
func (c *Client) Regions(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.fresh(c.regions) {
		names := clone(c.regions.names)
		c.mu.Unlock()
		return names, nil
	}
	c.mu.Unlock()

	var ufs []ufResponse
	if err := c.get(ctx, "/estados?orderBy=nome", &ufs); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	names := make([]string, 0, len(ufs))
	for _, uf := range ufs {
		names = append(names, uf.Sigla)
	}

	c.mu.Lock()
	c.regions = &cached{names: names, fetched: c.now()}
	c.mu.Unlock()

	return clone(names), nil
}

// Cities returns the municipality names of uf in Brazilian Portuguese collation order.
func (c *Client) Cities(ctx context.Context, uf string) ([]string, error) {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if uf == "" {
		return nil, ErrNoRegion
	}

	c.mu.Lock()
	if entry := c.cities[uf]; c.fresh(entry) {
		names := clone(entry.names)
		c.mu.Unlock()
		return names, nil
	}
	c.mu.Unlock()

	var cities []cityResponse
	if err := c.get(ctx, "/estados/"+url.PathEscape(uf)+"/municipios", &cities); err != nil {
		return nil, fmt.Errorf("list cities of %s: %w", uf, err)
	}

	names := make([]string, 0, len(cities))
	for _, city := range cities {
		names = append(names, city.Nome)
	}
	// collators keep internal buffers, one per call
	collate.New(language.BrazilianPortuguese).SortStrings(names)

	c.mu.Lock()
	c.cities[uf] = &cached{names: names, fetched: c.now()}
	c.mu.Unlock()

	return clone(names), nil
}

func (c *Client) fresh(entry *cached) bool {
	if entry == nil || c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.fetched) < c.ttl
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func clone(s []string) []string {
	return append(make([]string, 0, len(s)), s...)
}
