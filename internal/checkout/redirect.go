// Package checkout schedules the navigation away from the confirmation screen.
package checkout

import (
	"context"
	"time"

	"github.com/woozymasta/discardpile/internal/routes"
)

// DefaultDelay is how long the confirmation stays on screen.
const DefaultDelay = 2 * time.Second

// Redirect is a one-shot navigation to Route after Delay.
type Redirect struct {
	Delay time.Duration
	Route string
}

// New returns a redirect to the landing screen. A non-positive delay uses DefaultDelay.
func New(delay time.Duration) Redirect {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return Redirect{Delay: delay, Route: routes.Landing}
}

// Wait blocks for the delay and returns the route, or the context error if
// ctx ends first.
func (r Redirect) Wait(ctx context.Context) (string, error) {
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return r.Route, nil
	}
}

// Schedule calls navigate with the route once the delay elapses. The returned
// func cancels it; ending ctx does too.
func (r Redirect) Schedule(ctx context.Context, navigate func(route string)) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		route, err := r.Wait(ctx)
		if err != nil {
			return
		}
		navigate(route)
	}()

	return cancel
}
