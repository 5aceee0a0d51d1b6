package registration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrVisitNotFound is returned for unknown, expired or finished visits.
var ErrVisitNotFound = errors.New("registration: visit not found")

type visit struct {
	screen   *Screen
	lastSeen time.Time
}

// Store keeps the open registration screens keyed by visit id.
type Store struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sources Sources
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	visits map[string]*visit
}

// NewStore returns a store whose screens live at most ttl without activity.
func NewStore(parent context.Context, sources Sources, ttl time.Duration) *Store {
	ctx, cancel := context.WithCancel(parent)

	return &Store{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		ttl:     ttl,
		now:     time.Now,
		visits:  make(map[string]*visit),
	}
}

// Create opens a new screen under a fresh visit id.
func (st *Store) Create() *Screen {
	id := uuid.NewString()
	screen := Open(st.ctx, id, st.sources)

	st.mu.Lock()
	st.visits[id] = &visit{screen: screen, lastSeen: st.now()}
	st.mu.Unlock()

	return screen
}

// Get returns the open screen of id and marks the visit as active.
func (st *Store) Get(id string) (*Screen, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	v, ok := st.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	if v.screen.Closed() {
		delete(st.visits, id)
		return nil, ErrVisitNotFound
	}

	v.lastSeen = st.now()
	return v.screen, nil
}

// Remove closes and forgets the screen of id.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	v, ok := st.visits[id]
	delete(st.visits, id)
	st.mu.Unlock()

	if ok {
		v.screen.Close()
	}
}

// Len returns the number of tracked visits.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.visits)
}

// Sweep closes visits idle for longer than the ttl and drops finished ones.
// It returns the number of visits removed.
func (st *Store) Sweep() int {
	now := st.now()
	var expired []*Screen

	st.mu.Lock()
	for id, v := range st.visits {
		if v.screen.Closed() || (st.ttl > 0 && now.Sub(v.lastSeen) > st.ttl) {
			delete(st.visits, id)
			expired = append(expired, v.screen)
		}
	}
	st.mu.Unlock()

	for _, screen := range expired {
		screen.Close()
	}

	if len(expired) > 0 {
		log.Debug().Int("removed", len(expired)).Msg("Visits swept")
	}
	return len(expired)
}

// Run sweeps every interval until ctx or the store is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-st.ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close tears down every screen.
func (st *Store) Close() {
	st.mu.Lock()
	visits := st.visits
	st.visits = make(map[string]*visit)
	st.mu.Unlock()

	for _, v := range visits {
		v.screen.Close()
	}
	st.cancel()
}
