// Package assets embeds the page templates and static files, renders pages
// with pongo2 and serves everything minified.
package assets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

//go:embed templates/*.html static/*
var files embed.FS

// Page template names.
const (
	PageLanding  = "landing"
	PageCreate   = "create_point"
	PageCheckout = "checkout_point"
)

var contentTypes = map[string]string{
	".css": "text/css",
	".js":  "text/javascript",
	".svg": "image/svg+xml",
}

// Asset is a minified static file.
type Asset struct {
	Name        string
	ContentType string
	Body        []byte
	ETag        string
}

// Bundle holds parsed templates and minified static files.
type Bundle struct {
	// Version changes whenever any static file changes.
	Version string

	minifier *minify.M
	pages    map[string]*pongo2.Template
	assets   map[string]Asset
}

// Load parses every page template and minifies every static file.
func Load() (*Bundle, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})

	b := &Bundle{
		minifier: m,
		pages:    make(map[string]*pongo2.Template),
		assets:   make(map[string]Asset),
	}

	if err := b.loadStatic(); err != nil {
		return nil, err
	}
	if err := b.loadTemplates(); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Bundle) loadStatic() error {
	entries, err := fs.ReadDir(files, "static")
	if err != nil {
		return err
	}

	version := sha256.New()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		contentType, ok := contentTypes[path.Ext(name)]
		if !ok {
			continue
		}

		raw, err := files.ReadFile("static/" + name)
		if err != nil {
			return err
		}
		body, err := b.minifier.Bytes(contentType, raw)
		if err != nil {
			return fmt.Errorf("minify %s: %w", name, err)
		}

		sum := sha256.Sum256(body)
		b.assets[name] = Asset{
			Name:        name,
			ContentType: contentType,
			Body:        body,
			ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		version.Write(sum[:])
	}

	b.Version = hex.EncodeToString(version.Sum(nil)[:6])
	return nil
}

func (b *Bundle) loadTemplates() error {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		return err
	}

	set := pongo2.NewSet("discardpile", pongo2.NewFSLoader(sub))
	for _, page := range []string{PageLanding, PageCreate, PageCheckout} {
		tpl, err := set.FromFile(page + ".html")
		if err != nil {
			return fmt.Errorf("parse template %s: %w", page, err)
		}
		b.pages[page] = tpl
	}

	return nil
}

// Render executes a page template with data and writes minified HTML to w.
func (b *Bundle) Render(w io.Writer, page string, data pongo2.Context) error {
	tpl, ok := b.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	ctx := pongo2.Context{
		"page":    strings.ReplaceAll(page, "_", "-"),
		"version": b.Version,
	}
	ctx = ctx.Update(data)

	out, err := tpl.Execute(ctx)
	if err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	return b.minifier.Minify("text/html", w, strings.NewReader(out))
}

// Asset returns the static file called name.
func (b *Bundle) Asset(name string) (Asset, bool) {
	a, ok := b.assets[name]
	return a, ok
}

// Assets returns every static file ordered by name.
func (b *Bundle) Assets() []Asset {
	out := make([]Asset, 0, len(b.assets))
	for _, a := range b.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
