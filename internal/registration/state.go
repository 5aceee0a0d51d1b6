package registration

import (
	"errors"

	"github.com/woozymasta/discardpile/internal/backend"
	"github.com/woozymasta/discardpile/internal/geo"
)

// Status of an asynchronous piece of screen state.
type Status string

const (
	StatusIdle    Status = "idle"    // not requested
	StatusPending Status = "pending" // in flight
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Result carries the outcome of one external call.
type Result[T any] struct {
	Status Status `json:"status"`
	Value  T      `json:"value"`
	Err    string `json:"error,omitempty"`
}

func idle[T any]() Result[T] { return Result[T]{Status: StatusIdle} }

func pending[T any]() Result[T] { return Result[T]{Status: StatusPending} }

func ready[T any](v T) Result[T] { return Result[T]{Status: StatusReady, Value: v} }

func failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err.Error()}
}

func resultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return failed[T](err)
	}
	return ready(v)
}

// Source names a piece of state loaded from outside the screen.
type Source string

const (
	SourceRegions  Source = "regions"
	SourceCities   Source = "cities"
	SourceItems    Source = "items"
	SourceLocation Source = "location"
)

// ErrUnknownField is returned by EditField for names outside FormData.
var ErrUnknownField = errors.New("registration: unknown form field")

// FormData holds the free-text contact fields.
type FormData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Whatsapp string `json:"whatsapp"`
}

// With returns a copy of f with the named field replaced.
func (f FormData) With(name, value string) (FormData, error) {
	switch name {
	case "name":
		f.Name = value
	case "email":
		f.Email = value
	case "whatsapp":
		f.Whatsapp = value
	default:
		return f, ErrUnknownField
	}
	return f, nil
}

// Selection is the ordered set of selected item ids.
// Toggle always returns a new slice so snapshots can share the old one.
type Selection []int

// Contains reports whether id is selected.
func (s Selection) Contains(id int) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle removes id when present and appends it otherwise.
func (s Selection) Toggle(id int) Selection {
	out := make(Selection, 0, len(s)+1)
	found := false
	for _, v := range s {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// State is a snapshot of a registration screen.
// Slices in a snapshot are never mutated after publication.
type State struct {
	Version uint64 `json:"version"`

	Form FormData `json:"form"`

	// Location is the device position, Marker the point to register.
	Location Result[geo.Position] `json:"location"`
	Marker   geo.Position         `json:"marker"`

	Region string `json:"uf"`
	City   string `json:"city"`

	Regions Result[[]string]       `json:"regions"`
	Cities  Result[[]string]       `json:"cities"`
	Items   Result[[]backend.Item] `json:"items"`

	Selected Selection `json:"selected_items"`

	// Submission holds the route to navigate to once the point is stored.
	Submission Result[string] `json:"submission"`
}

func initialState() State {
	return State{
		Location:   pending[geo.Position](),
		Regions:    pending[[]string](),
		Cities:     idle[[]string](),
		Items:      pending[[]backend.Item](),
		Selected:   Selection{},
		Submission: idle[string](),
	}
}

// Payload composes the registration body from the snapshot.
// Nothing is validated: empty fields are sent as they are.
func (s State) Payload() backend.Point {
	items := make([]int, len(s.Selected))
	copy(items, s.Selected)

	return backend.Point{
		Name:      s.Form.Name,
		Email:     s.Form.Email,
		Whatsapp:  s.Form.Whatsapp,
		UF:        s.Region,
		City:      s.City,
		Latitude:  s.Marker.Latitude,
		Longitude: s.Marker.Longitude,
		Items:     items,
	}
}

// regionSelected reports whether uf is a real region and not the placeholder.
func regionSelected(uf string) bool {
	return uf != "" && uf != "0"
}
