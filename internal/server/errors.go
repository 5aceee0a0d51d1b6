package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/woozymasta/discardpile/internal/registration"
)

const maxBodyBytes = 64 << 10

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, 500 when unset.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	var statusErr StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.StatusCode()
	case errors.Is(err, registration.ErrVisitNotFound):
		return http.StatusNotFound
	case errors.Is(err, registration.ErrClosed):
		return http.StatusGone
	case errors.Is(err, registration.ErrUnknownField), errors.Is(err, registration.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, registration.ErrNothingToRetry):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return StatusError{Code: http.StatusBadRequest, Err: err}
	}
	return nil
}
