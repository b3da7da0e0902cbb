package performance

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStartOperationEvictsBeyondMaxMarkers(t *testing.T) {
	tracker := NewTracker(&TrackerConfig{MaxMarkers: 3, Retention: time.Hour})

	for i := 0; i < 5; i++ {
		marker := tracker.StartOperation("livefyre:init", fmt.Sprintf("req-%d", i))
		tracker.CompleteOperation(marker)
	}

	stats := tracker.GetOverallStats()
	if got := stats["trackedOperations"].(int); got != 3 {
		t.Errorf("trackedOperations = %d, want 3", got)
	}
}

func TestMarkerCacheCounters(t *testing.T) {
	tracker := NewTracker(nil)
	marker := tracker.StartOperation("user:getAuth", "req-1")

	marker.AddCacheHit()
	marker.AddCacheHit()
	marker.AddCacheMiss()
	tracker.CompleteOperation(marker)

	if ratio := marker.GetCacheHitRatio(); ratio < 0.66 || ratio > 0.67 {
		t.Errorf("cache hit ratio = %f, want 2/3", ratio)
	}

	stats := tracker.GetOverallStats()
	if stats["cacheHits"].(int) != 2 || stats["cacheMisses"].(int) != 1 {
		t.Errorf("stats counters = %v/%v, want 2/1", stats["cacheHits"], stats["cacheMisses"])
	}
}

func TestEmptyMarkerHasZeroHitRatio(t *testing.T) {
	marker := &Marker{}
	if ratio := marker.GetCacheHitRatio(); ratio != 0 {
		t.Errorf("ratio = %f, want 0", ratio)
	}
}

func TestSetErrorMarksFailure(t *testing.T) {
	tracker := NewTracker(nil)
	marker := tracker.StartOperation("user:setPseudonym", "req-1")
	marker.SetError(errors.New("boom"))
	tracker.CompleteOperation(marker)

	if marker.Success {
		t.Error("marker still reads as successful after SetError")
	}
	stats := tracker.GetOverallStats()
	if got := stats["failedOperations"].(int); got != 1 {
		t.Errorf("failedOperations = %d, want 1", got)
	}
}

func TestGetRecentMetricsFiltersByWindow(t *testing.T) {
	tracker := NewTracker(nil)

	old := tracker.StartOperation("livefyre:metadata", "req-old")
	tracker.CompleteOperation(old)
	old.EndTime = time.Now().Add(-2 * time.Hour)

	fresh := tracker.StartOperation("livefyre:metadata", "req-fresh")
	tracker.CompleteOperation(fresh)

	recent := tracker.GetRecentMetrics(time.Hour)
	if len(recent) != 1 {
		t.Fatalf("got %d recent markers, want 1", len(recent))
	}
	if recent[0].RequestID != "req-fresh" {
		t.Errorf("recent marker = %s, want req-fresh", recent[0].RequestID)
	}
}

func TestCleanupDropsExpiredCompletedMarkers(t *testing.T) {
	tracker := NewTracker(&TrackerConfig{MaxMarkers: 100, Retention: time.Hour})

	expired := tracker.StartOperation("user:getPseudonym", "req-expired")
	tracker.CompleteOperation(expired)
	expired.EndTime = time.Now().Add(-2 * time.Hour)

	active := tracker.StartOperation("user:getPseudonym", "req-active")

	tracker.Cleanup()

	stats := tracker.GetOverallStats()
	if got := stats["trackedOperations"].(int); got != 1 {
		t.Errorf("trackedOperations after cleanup = %d, want 1", got)
	}
	tracker.CompleteOperation(active)
}

func TestCompleteIsIdempotent(t *testing.T) {
	tracker := NewTracker(nil)
	marker := tracker.StartOperation("livefyre:init", "req-1")
	tracker.CompleteOperation(marker)
	end := marker.EndTime

	time.Sleep(time.Millisecond)
	tracker.CompleteOperation(marker)
	if !marker.EndTime.Equal(end) {
		t.Error("second Complete moved the end time")
	}
}
