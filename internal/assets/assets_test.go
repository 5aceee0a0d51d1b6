package assets

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return b
}

func TestLoad_StaticAssets(t *testing.T) {
	b := loadBundle(t)

	names := make([]string, 0)
	for _, a := range b.Assets() {
		names = append(names, a.Name)
		if len(a.Body) == 0 || a.ETag == "" {
			t.Fatalf("asset %s not loaded: %+v", a.Name, a)
		}
	}
	if strings.Join(names, ",") != "app.js,logo.svg,style.css" {
		t.Fatalf("unexpected assets: %v", names)
	}

	css, ok := b.Asset("style.css")
	if !ok || css.ContentType != "text/css" {
		t.Fatalf("unexpected style.css: %+v", css)
	}
	if bytes.Contains(css.Body, []byte("\n  ")) {
		t.Fatalf("expected minified css")
	}
	if b.Version == "" {
		t.Fatalf("expected bundle version")
	}
}

func TestRender_CreatePoint(t *testing.T) {
	b := loadBundle(t)

	var buf bytes.Buffer
	err := b.Render(&buf, PageCreate, pongo2.Context{
		"visit":  "visit-1",
		"center": struct{ Latitude, Longitude float64 }{-23.5, -46.6},
		"zoom":   14,
		"tiles": map[string]any{
			"url":         "/tiles/{z}/{x}/{y}.webp",
			"max_zoom":    19,
			"attribution": `<a href="https://osm.org/copyright">OSM</a>`,
		},
		"routes": map[string]string{"landing": "/", "registration": "/create-point"},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`data-page="create-point"`,
		`data-visit="visit-1"`,
		`id="point-form"`,
		`/static/app.js?v=` + b.Version,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRender_UnknownPage(t *testing.T) {
	if err := loadBundle(t).Render(&bytes.Buffer{}, "missing", nil); err == nil {
		t.Fatalf("expected error for unknown page")
	}
}
