package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/woozymasta/discardpile/internal/geo"
	"github.com/woozymasta/discardpile/internal/registration"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type positionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

type regionRequest struct {
	UF string `json:"uf"`
}

type cityRequest struct {
	City string `json:"city"`
}

type fieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type submitResponse struct {
	Redirect string `json:"redirect"`
}

func (s *ServerContext) screen(r *http.Request) (*registration.Screen, error) {
	return s.Visits.Get(mux.Vars(r)["id"])
}

// visitOp decodes body (when not nil), applies op to the visit's screen and
// answers with the resulting snapshot.
func (s *ServerContext) visitOp(w http.ResponseWriter, r *http.Request, body any, op func(*registration.Screen) error) {
	screen, err := s.screen(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if body != nil {
		if err := decodeJSON(w, r, body); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := op(screen); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, screen.State())
}

// HandleVisitState returns the current snapshot of a visit.
func (s *ServerContext) HandleVisitState(w http.ResponseWriter, r *http.Request) {
	screen, err := s.screen(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, screen.State())
}

// HandleVisitDelete tears a visit down.
func (s *ServerContext) HandleVisitDelete(w http.ResponseWriter, r *http.Request) {
	s.Visits.Remove(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// HandleVisitEvents streams every snapshot of a visit until the client
// leaves or the visit ends.
func (s *ServerContext) HandleVisitEvents(w http.ResponseWriter, r *http.Request) {
	screen, err := s.screen(r)
	if err != nil {
		writeError(w, err)
		return
	}

	es, err := newEventStream(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	states, cancel := screen.Subscribe()
	defer cancel()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-screen.Done():
			return
		case <-ticker.C:
			if err := es.Ping(); err != nil {
				return
			}
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := es.Send("state", st); err != nil {
				log.Debug().Err(err).Str("visit", screen.ID()).Msg("Event stream write failed")
				return
			}
		}
	}
}

// HandleMarkerGeoJSON returns the marker as a GeoJSON point feature.
func (s *ServerContext) HandleMarkerGeoJSON(w http.ResponseWriter, r *http.Request) {
	screen, err := s.screen(r)
	if err != nil {
		writeError(w, err)
		return
	}

	st := screen.State()
	feature := geo.PointFeature(st.Marker, map[string]interface{}{
		"visit": screen.ID(),
		"uf":    st.Region,
		"city":  st.City,
	})

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(feature)
}

// HandlePosition records the device position or the reason it is unavailable.
func (s *ServerContext) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	s.visitOp(w, r, &req, func(screen *registration.Screen) error {
		if req.Latitude == nil || req.Longitude == nil {
			return screen.ReportPositionError(req.Error)
		}
		return screen.ReportPosition(geo.Position{Latitude: *req.Latitude, Longitude: *req.Longitude})
	})
}

// HandleRegion selects a region.
func (s *ServerContext) HandleRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	s.visitOp(w, r, &req, func(screen *registration.Screen) error {
		return screen.SelectRegion(req.UF)
	})
}

// HandleCity selects a city.
func (s *ServerContext) HandleCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	s.visitOp(w, r, &req, func(screen *registration.Screen) error {
		return screen.SelectCity(req.City)
	})
}

// HandleMarker moves the marker to a clicked position.
func (s *ServerContext) HandleMarker(w http.ResponseWriter, r *http.Request) {
	var req geo.Position
	s.visitOp(w, r, &req, func(screen *registration.Screen) error {
		return screen.ClickMap(req)
	})
}

// HandleField edits one contact field.
func (s *ServerContext) HandleField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	s.visitOp(w, r, &req, func(screen *registration.Screen) error {
		return screen.EditField(req.Name, req.Value)
	})
}

// HandleToggleItem toggles an item of the catalog.
func (s *ServerContext) HandleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["item"])
	if err != nil {
		writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}
	s.visitOp(w, r, nil, func(screen *registration.Screen) error {
		return screen.ToggleItem(id)
	})
}

// HandleRetry reloads a failed source.
func (s *ServerContext) HandleRetry(w http.ResponseWriter, r *http.Request) {
	source := registration.Source(mux.Vars(r)["source"])
	s.visitOp(w, r, nil, func(screen *registration.Screen) error {
		return screen.Retry(source)
	})
}

// HandleSubmit registers the collection point and tells the client where to go next.
func (s *ServerContext) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	screen, err := s.screen(r)
	if err != nil {
		writeError(w, err)
		return
	}

	route, err := screen.Submit(r.Context())
	if err != nil {
		if !errors.Is(err, registration.ErrClosed) {
			err = StatusError{Code: http.StatusBadGateway, Err: err}
		}
		writeError(w, err)
		return
	}

	s.Visits.Remove(screen.ID())
	writeJSON(w, http.StatusOK, submitResponse{Redirect: route})
}
