package caching

import "sync"

// RefreshLock prevents a thundering herd of background refreshes: when many
// requests observe the same stale value, only the first one that acquires
// the key's lock runs the refresh-and-upsert.
type RefreshLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewRefreshLock creates a new instance of a RefreshLock.
func NewRefreshLock() *RefreshLock {
	return &RefreshLock{
		locks: make(map[string]struct{}),
	}
}

// TryLock attempts to acquire a lock for a given key.
// It returns true if the lock was acquired, and false if the lock is already held.
// This operation is non-blocking.
func (l *RefreshLock) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[key]; exists {
		return false
	}

	l.locks[key] = struct{}{}
	return true
}

// Unlock releases a lock for a given key.
// This should be called with `defer` in the goroutine that acquired the lock.
func (l *RefreshLock) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)
}
