package caching

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestFlightGroupSharesOneRunPerKey(t *testing.T) {
	g := NewFlightGroup()
	gate := make(chan struct{})

	var mu sync.Mutex
	runs := 0

	const callers = 10
	results := make(chan any, callers)
	call := func() {
		v, err := g.Do(context.Background(), "k", func() (any, error) {
			mu.Lock()
			runs++
			mu.Unlock()
			<-gate
			return "shared", nil
		})
		if err != nil {
			t.Errorf("do: %v", err)
		}
		results <- v
	}

	go call()
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 1
	}, "leader never started")
	for i := 1; i < callers; i++ {
		go call()
	}
	// Give the waiters time to attach before the leader finishes.
	time.Sleep(50 * time.Millisecond)
	close(gate)

	for i := 0; i < callers; i++ {
		if v := <-results; v != "shared" {
			t.Fatalf("caller %d got %v, want the shared result", i, v)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Fatalf("fn ran %d times for %d concurrent callers, want 1", runs, callers)
	}
}

func TestFlightGroupKeyFreeAfterCompletion(t *testing.T) {
	g := NewFlightGroup()
	runs := 0
	for i := 0; i < 2; i++ {
		if _, err := g.Do(context.Background(), "k", func() (any, error) {
			runs++
			return nil, nil
		}); err != nil {
			t.Fatalf("do %d: %v", i, err)
		}
	}
	if runs != 2 {
		t.Fatalf("fn ran %d times across sequential calls, want a fresh run each", runs)
	}
}

func TestFlightGroupWaiterHonorsContext(t *testing.T) {
	g := NewFlightGroup()
	gate := make(chan struct{})
	defer close(gate)

	started := make(chan struct{})
	go func() {
		g.Do(context.Background(), "k", func() (any, error) {
			close(started)
			<-gate
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Do(ctx, "k", func() (any, error) { return nil, nil }); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
