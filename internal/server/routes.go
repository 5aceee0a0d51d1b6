package server

import (
	"net/http"

	"github.com/woozymasta/discardpile/internal/routes"

	"github.com/gorilla/mux"
)

// VisitAPI is the prefix of the per-visit JSON API.
const VisitAPI = "/api/visits/{id}"

// Router wires every handler and wraps it with request logging.
func (s *ServerContext) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/favicon.svg", s.HandleFavicon).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", s.HandleFavicon).Methods(http.MethodGet)
	r.HandleFunc("/static/{name}", s.HandleStatic).Methods(http.MethodGet)
	r.HandleFunc("/tiles/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.webp", s.HandleTile).Methods(http.MethodGet)

	r.HandleFunc(routes.Landing, s.HandleLanding).Methods(http.MethodGet)
	r.HandleFunc(routes.Registration, s.HandleCreatePoint).Methods(http.MethodGet)
	r.HandleFunc(routes.Checkout, s.HandleCheckout).Methods(http.MethodGet)
	r.HandleFunc(routes.Checkout+"/events", s.HandleCheckoutEvents).Methods(http.MethodGet)

	r.HandleFunc(VisitAPI, s.HandleVisitState).Methods(http.MethodGet)
	r.HandleFunc(VisitAPI, s.HandleVisitDelete).Methods(http.MethodDelete)
	r.HandleFunc(VisitAPI+"/events", s.HandleVisitEvents).Methods(http.MethodGet)
	r.HandleFunc(VisitAPI+"/marker.geojson", s.HandleMarkerGeoJSON).Methods(http.MethodGet)
	r.HandleFunc(VisitAPI+"/position", s.HandlePosition).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/region", s.HandleRegion).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/city", s.HandleCity).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/marker", s.HandleMarker).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/field", s.HandleField).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/items/{item:[0-9]+}/toggle", s.HandleToggleItem).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/retry/{source}", s.HandleRetry).Methods(http.MethodPost)
	r.HandleFunc(VisitAPI+"/submit", s.HandleSubmit).Methods(http.MethodPost)

	return RequestLogger(r)
}
