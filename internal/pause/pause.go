// Package pause provides a cooperative pause point for long scan loops.
//
// A Gate is a flag plus a polling wait. Pause is a rare, user-driven event,
// so a bounded poll latency of one PollInterval is acceptable. Callers check
// the gate between files, never in the middle of hashing one.
package pause

import (
	"context"
	"sync/atomic"
	"time"
)

// PollInterval is how often WaitWhilePaused re-checks the flag.
const PollInterval = 100 * time.Millisecond

// Gate is a pause flag safe for concurrent use. The zero value is an
// unpaused gate.
type Gate struct {
	paused atomic.Bool
}

// Pause sets the flag.
func (g *Gate) Pause() {
	g.paused.Store(true)
}

// Resume clears the flag.
func (g *Gate) Resume() {
	g.paused.Store(false)
}

// Paused reports whether the flag is set.
func (g *Gate) Paused() bool {
	return g.paused.Load()
}

// WaitWhilePaused returns immediately if the gate is not paused. Otherwise it
// polls every PollInterval and returns once it observes the flag cleared, or
// with ctx.Err() if ctx ends first. A nil gate never pauses.
func (g *Gate) WaitWhilePaused(ctx context.Context) error {
	if g == nil || !g.Paused() {
		return nil
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !g.Paused() {
				return nil
			}
		}
	}
}
