package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestItems_DecodesAndStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"title":"<b>Lamps</b>","image_url":"http://cdn/lamps.svg"},
			{"id":2,"title":"Papers & Cardboard","image_url":"http://cdn/papers.svg"}
		]`))
	}))
	defer srv.Close()

	items, err := New(srv.URL+"/", srv.Client()).Items(context.Background())
	if err != nil {
		t.Fatalf("Items() failed: %v", err)
	}

	want := []Item{
		{ID: 1, Title: "Lamps", ImageURL: "http://cdn/lamps.svg"},
		{ID: 2, Title: "Papers & Cardboard", ImageURL: "http://cdn/papers.svg"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestItems_EmptyCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	items, err := New(srv.URL, srv.Client()).Items(context.Background())
	if err != nil {
		t.Fatalf("Items() failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil catalog, got %#v", items)
	}
}

func TestCreatePoint_SendsExactFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/points" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := New(srv.URL, srv.Client()).CreatePoint(context.Background(), Point{
		Name: "Eco", Email: "eco@example.com", Whatsapp: "5511999999999",
		UF: "SP", City: "São Paulo", Latitude: -23.5, Longitude: -46.6,
	})
	if err != nil {
		t.Fatalf("CreatePoint() failed: %v", err)
	}

	want := map[string]any{
		"name": "Eco", "email": "eco@example.com", "whatsapp": "5511999999999",
		"uf": "SP", "city": "São Paulo", "latitude": -23.5, "longitude": -46.6,
		"items": []any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePoint_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, srv.Client()).CreatePoint(context.Background(), Point{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError || statusErr.Body != "boom" {
		t.Fatalf("unexpected status error: %#v", statusErr)
	}
}
