// Package registration holds the state of the collection point registration
// screen: contact form, marker, region and city selection, item catalog and
// selected items, loaded from independent sources as they resolve.
package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/woozymasta/discardpile/internal/backend"
	"github.com/woozymasta/discardpile/internal/geo"
	"github.com/woozymasta/discardpile/internal/routes"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned by operations on a screen that was torn down.
	ErrClosed = errors.New("registration: screen closed")

	// ErrNothingToRetry is returned by Retry when the source has not failed.
	ErrNothingToRetry = errors.New("registration: source has not failed")

	// ErrUnknownSource is returned by Retry for a source it cannot reload.
	ErrUnknownSource = errors.New("registration: unknown source")
)

// Backend is the collection points API.
type Backend interface {
	Items(ctx context.Context) ([]backend.Item, error)
	CreatePoint(ctx context.Context, p backend.Point) error
}

// Localities provides the region list and the cities of a region.
type Localities interface {
	Regions(ctx context.Context) ([]string, error)
	Cities(ctx context.Context, uf string) ([]string, error)
}

// Sources groups the external collaborators of a screen.
type Sources struct {
	Backend    Backend
	Localities Localities
}

// Screen is one visit of the registration screen.
//
// Every fetch runs bound to the screen context and is cancelled by Close.
// Cancelling the parent context closes the screen too.
// Results arriving after Close, or after their request was superseded,
// are dropped.
type Screen struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	sources Sources
	log     zerolog.Logger

	mu         sync.Mutex
	state      State
	closed     bool
	markerSet  bool
	citySeq    uint64
	cityCancel context.CancelFunc
	subs       map[int]chan State
	nextSub    int
}

// Open creates a screen and starts loading the region list and the catalog.
// The device position is reported later through ReportPosition.
func Open(parent context.Context, id string, sources Sources) *Screen {
	ctx, cancel := context.WithCancel(parent)

	s := &Screen{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		log:     log.With().Str("visit", id).Logger(),
		state:   initialState(),
		subs:    make(map[int]chan State),
	}

	// a cancelled parent tears the screen down like Close
	context.AfterFunc(ctx, s.Close)

	s.loadRegions()
	s.loadItems()

	s.log.Debug().Msg("Registration screen opened")
	return s
}

// ID returns the visit id.
func (s *Screen) ID() string { return s.id }

// Done is closed when the screen is torn down.
func (s *Screen) Done() <-chan struct{} { return s.ctx.Done() }

// Closed reports whether the screen was torn down.
func (s *Screen) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// State returns the current snapshot.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving the current snapshot and then every
// change. Slow readers only see the latest snapshot. The channel is closed by
// the returned cancel func or when the screen closes.
func (s *Screen) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		ch <- s.state
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close tears the screen down, cancelling every in-flight fetch.
func (s *Screen) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	s.log.Debug().Msg("Registration screen closed")
}

// SelectRegion sets the region, resets the city list and the selected city,
// and starts loading the cities of the new region. A previous city fetch is
// cancelled.
func (s *Screen) SelectRegion(uf string) error {
	return s.mutate(func(st *State) {
		if s.cityCancel != nil {
			s.cityCancel()
			s.cityCancel = nil
		}
		s.citySeq++

		st.Region = uf
		st.City = ""

		if !regionSelected(uf) {
			st.Cities = idle[[]string]()
			return
		}

		st.Cities = pending[[]string]()
		s.loadCitiesLocked(uf)
	})
}

// SelectCity sets the city. It is not checked against the city list.
func (s *Screen) SelectCity(city string) error {
	return s.mutate(func(st *State) {
		st.City = city
	})
}

// ClickMap moves the marker to p.
func (s *Screen) ClickMap(p geo.Position) error {
	return s.mutate(func(st *State) {
		s.markerSet = true
		st.Marker = p
	})
}

// ReportPosition records the device position. The marker follows it only
// until the map is clicked.
func (s *Screen) ReportPosition(p geo.Position) error {
	return s.mutate(func(st *State) {
		st.Location = ready(p)
		if !s.markerSet {
			st.Marker = p
		}
	})
}

// ReportPositionError records that the device could not be located.
func (s *Screen) ReportPositionError(reason string) error {
	if reason == "" {
		reason = "position unavailable"
	}
	s.log.Warn().Str("source", string(SourceLocation)).Str("reason", reason).Msg("Geolocation failed")

	return s.mutate(func(st *State) {
		st.Location = failed[geo.Position](errors.New(reason))
	})
}

// EditField merges one contact field into the form.
func (s *Screen) EditField(name, value string) error {
	var fieldErr error
	err := s.mutate(func(st *State) {
		st.Form, fieldErr = st.Form.With(name, value)
	})
	if err != nil {
		return err
	}
	return fieldErr
}

// ToggleItem adds or removes an item id from the selection.
func (s *Screen) ToggleItem(id int) error {
	return s.mutate(func(st *State) {
		st.Selected = st.Selected.Toggle(id)
	})
}

// Retry reloads a source whose last fetch failed.
func (s *Screen) Retry(source Source) error {
	var retryErr error
	err := s.mutate(func(st *State) {
		switch source {
		case SourceRegions:
			if st.Regions.Status != StatusFailed {
				retryErr = ErrNothingToRetry
				return
			}
			st.Regions = pending[[]string]()
			s.loadRegions()
		case SourceItems:
			if st.Items.Status != StatusFailed {
				retryErr = ErrNothingToRetry
				return
			}
			st.Items = pending[[]backend.Item]()
			s.loadItems()
		case SourceCities:
			if st.Cities.Status != StatusFailed || !regionSelected(st.Region) {
				retryErr = ErrNothingToRetry
				return
			}
			s.citySeq++
			st.Cities = pending[[]string]()
			s.loadCitiesLocked(st.Region)
		default:
			retryErr = fmt.Errorf("%w %q", ErrUnknownSource, source)
		}
	})
	if err != nil {
		return err
	}
	return retryErr
}

// Submit sends the current snapshot as a new collection point and returns
// the route to navigate to. The screen is closed once the point is stored.
//
// Nothing is validated and concurrent submissions are not prevented.
func (s *Screen) Submit(ctx context.Context) (string, error) {
	var payload backend.Point
	if err := s.mutate(func(st *State) {
		payload = st.Payload()
		st.Submission = pending[string]()
	}); err != nil {
		return "", err
	}

	if err := s.sources.Backend.CreatePoint(ctx, payload); err != nil {
		s.log.Warn().Err(err).Msg("Point submission failed")
		_ = s.mutate(func(st *State) {
			st.Submission = failed[string](err)
		})
		return "", fmt.Errorf("submit point: %w", err)
	}

	_ = s.mutate(func(st *State) {
		st.Submission = ready(routes.Checkout)
	})

	s.log.Info().
		Str("uf", payload.UF).
		Str("city", payload.City).
		Int("items", len(payload.Items)).
		Msg("Collection point registered")

	s.Close()
	return routes.Checkout, nil
}

// mutate applies fn under the lock and publishes the new snapshot.
func (s *Screen) mutate(fn func(st *State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	fn(&s.state)
	s.publishLocked()
	return nil
}

func (s *Screen) publishLocked() {
	s.state.Version++
	for _, ch := range s.subs {
		// keep only the latest snapshot for slow readers
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

func (s *Screen) loadRegions() {
	spawn(s, s.ctx, SourceRegions, s.sources.Localities.Regions,
		func(st *State, r Result[[]string]) bool {
			st.Regions = r
			return true
		})
}

func (s *Screen) loadItems() {
	spawn(s, s.ctx, SourceItems,
		func(ctx context.Context) ([]backend.Item, error) {
			items, err := s.sources.Backend.Items(ctx)
			if err == nil && items == nil {
				items = []backend.Item{}
			}
			return items, err
		},
		func(st *State, r Result[[]backend.Item]) bool {
			st.Items = r
			return true
		})
}

// loadCitiesLocked must be called with s.mu held, after bumping citySeq.
func (s *Screen) loadCitiesLocked(uf string) {
	if s.cityCancel != nil {
		s.cityCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cityCancel = cancel
	seq := s.citySeq

	spawn(s, ctx, SourceCities,
		func(ctx context.Context) ([]string, error) {
			return s.sources.Localities.Cities(ctx, uf)
		},
		func(st *State, r Result[[]string]) bool {
			if seq != s.citySeq {
				return false
			}
			st.Cities = r
			return true
		})
}

// spawn runs load in its own goroutine and applies the result under the
// screen lock. apply returns false to drop a superseded result.
func spawn[T any](
	s *Screen,
	ctx context.Context,
	source Source,
	load func(context.Context) (T, error),
	apply func(st *State, r Result[T]) bool,
) {
	go func() {
		v, err := load(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			s.log.Warn().Err(err).Str("source", string(source)).Msg("Source fetch failed")
		} else {
			s.log.Trace().Str("source", string(source)).Msg("Source resolved")
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed || !apply(&s.state, resultOf(v, err)) {
			return
		}
		s.publishLocked()
	}()
}
