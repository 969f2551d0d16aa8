// Package keylock provides exclusive sections keyed by sets of identifiers.
//
// The succession engine locks the set of person ids a transition touches
// (vacating person, replacement, their superiors and direct subordinates)
// before validating, and releases after the atomic commit. Two transitions
// with disjoint key sets run concurrently; overlapping ones serialize.
//
// Policy: all-or-nothing acquisition with a short bounded wait, then
// sentinel.ErrBusy. Callers treat ErrBusy as retryable after backoff.
package keylock

import (
	"context"
	"sort"
	"sync"
	"time"

	"sangha/pkg/platform/sentinel"
)

// defaultWait bounds how long an acquisition will poll for contended keys
// before failing fast.
const defaultWait = 50 * time.Millisecond

// pollInterval is the pause between acquisition attempts on contention.
const pollInterval = 2 * time.Millisecond

// Guard tracks which keys are currently held by in-flight transitions.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
	wait time.Duration
}

// New constructs a Guard. A non-positive wait uses the default bound.
func New(wait time.Duration) *Guard {
	if wait <= 0 {
		wait = defaultWait
	}
	return &Guard{
		held: make(map[string]struct{}),
		wait: wait,
	}
}

// Acquire takes exclusive ownership of every key, or none of them.
// Returns a release function on success, sentinel.ErrBusy when another
// holder keeps any key past the wait bound, or the context error when the
// caller's context ends first.
func (g *Guard) Acquire(ctx context.Context, keys []string) (func(), error) {
	uniq := dedupe(keys)
	deadline := time.Now().Add(g.wait)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g.mu.Lock()
		if !g.anyHeld(uniq) {
			for _, k := range uniq {
				g.held[k] = struct{}{}
			}
			g.mu.Unlock()

			var once sync.Once
			release := func() {
				once.Do(func() {
					g.mu.Lock()
					for _, k := range uniq {
						delete(g.held, k)
					}
					g.mu.Unlock()
				})
			}
			return release, nil
		}
		g.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, sentinel.ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (g *Guard) anyHeld(keys []string) bool {
	for _, k := range keys {
		if _, ok := g.held[k]; ok {
			return true
		}
	}
	return false
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
