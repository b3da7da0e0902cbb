package caching

import (
	"context"
	"sync"
)

// flight is one coalesced upstream fetch. done is closed exactly once,
// after val and err are final.
type flight struct {
	done chan struct{}
	val  any
	err  error
}

// FlightGroup deduplicates concurrent cold-miss fetches: when many callers
// miss the cache for the same key at once, one of them goes upstream and the
// rest wait for its result. Nothing is memoized; once a fetch completes the
// key is free again and the next miss fetches anew.
type FlightGroup struct {
	mu      sync.Mutex
	flights map[string]*flight
}

// NewFlightGroup creates a new instance of a FlightGroup.
func NewFlightGroup() *FlightGroup {
	return &FlightGroup{
		flights: make(map[string]*flight),
	}
}

// Do runs fn once for all callers that arrive under key while it is in
// flight. The first caller becomes the leader and runs fn; the others block
// until the leader finishes or their own context is done, then share the
// leader's result.
func (g *FlightGroup) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	g.mu.Lock()
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		select {
		case <-f.done:
			return f.val, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	g.flights[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()
	close(f.done)

	return f.val, f.err
}
