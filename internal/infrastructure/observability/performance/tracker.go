// Package performance provides performance tracking for the HTTP surface
// with bounded retention and aggregate statistics.
package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers map[string]*Marker // Active and completed markers by unique ID
	order   []string           // Marker IDs in creation order, for bounded eviction
	mu      sync.RWMutex       // Protects concurrent access
	started time.Time          // When tracking started
	config  *TrackerConfig     // Tracker configuration
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers int           `json:"maxMarkers"` // Maximum number of markers to retain
	Retention  time.Duration `json:"retention"`  // How long completed markers are kept
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers: 10000,
		Retention:  time.Hour,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		markers: make(map[string]*Marker),
		started: time.Now(),
		config:  config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, requestID string) *Marker {
	marker := &Marker{
		Operation: operation,
		RequestID: requestID,
		StartTime: time.Now(),
		Success:   true,
		Metadata:  make(map[string]any),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := fmt.Sprintf("%s:%s:%d", operation, requestID, marker.StartTime.UnixNano())
	t.markers[id] = marker
	t.order = append(t.order, id)
	for len(t.order) > t.config.MaxMarkers {
		delete(t.markers, t.order[0])
		t.order = t.order[1:]
	}
	return marker
}

// CompleteOperation finalizes a marker's metrics
func (t *Tracker) CompleteOperation(marker *Marker) {
	marker.Complete()
}

// GetRecentMetrics returns completed markers within the given window
func (t *Tracker) GetRecentMetrics(within time.Duration) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := time.Now().Add(-within)
	var recent []Marker
	for _, id := range t.order {
		marker := t.markers[id]
		if marker.Completed && marker.EndTime.After(cutoff) {
			recent = append(recent, *marker)
		}
	}
	return recent
}

// GetOverallStats returns aggregate statistics across retained markers
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var completed, failed, hits, misses int
	var totalDuration time.Duration
	for _, marker := range t.markers {
		if !marker.Completed {
			continue
		}
		completed++
		totalDuration += marker.Duration
		hits += marker.CacheHits
		misses += marker.CacheMisses
		if !marker.Success {
			failed++
		}
	}

	stats := map[string]any{
		"uptime":              time.Since(t.started).String(),
		"trackedOperations":   len(t.markers),
		"completedOperations": completed,
		"failedOperations":    failed,
		"cacheHits":           hits,
		"cacheMisses":         misses,
	}
	if completed > 0 {
		stats["averageDuration"] = (totalDuration / time.Duration(completed)).String()
	}
	return stats
}

// Cleanup drops completed markers older than the retention window
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.config.Retention)
	kept := t.order[:0]
	for _, id := range t.order {
		marker := t.markers[id]
		if marker.Completed && marker.EndTime.Before(cutoff) {
			delete(t.markers, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}
