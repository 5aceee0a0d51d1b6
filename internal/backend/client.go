// Package backend is the client of the collection points REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Item is a selectable waste category of the catalog.
type Item struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Point is the body of a collection point registration.
type Point struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Whatsapp  string  `json:"whatsapp"`
	UF        string  `json:"uf"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Items     []int   `json:"items"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// Client talks to the API rooted at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Items fetches the catalog. Titles are stripped of any markup.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus("list items", resp); err != nil {
		return nil, err
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("list items: decode: %w", err)
	}

	if items == nil {
		items = []Item{}
	}
	for i := range items {
		items[i].Title = plainText(items[i].Title)
	}

	return items, nil
}

// CreatePoint registers a collection point. The response body is ignored.
func (c *Client) CreatePoint(ctx context.Context, p Point) error {
	if p.Items == nil {
		p.Items = []int{}
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("create point: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/points", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create point: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus("create point", resp); err != nil {
		return err
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Op:   op,
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(snippet)),
	}
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// plainText drops any markup from s. bluemonday escapes entities, which are
// decoded again since the view escapes on output.
func plainText(s string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})

	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
