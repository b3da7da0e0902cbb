package caching

import "time"

// DegradedTTL is the short lifetime given to values persisted while the
// upstream that owns them is failing. It keeps the upstream shielded from
// repeated calls without letting a bad value live long.
const DegradedTTL = 5 * time.Minute

// Timed wraps a cached value with its expiry. Degraded marks values stored
// as a best-effort fallback during an upstream outage.
type Timed[T any] struct {
	Data     T         `bson:"data" json:"data"`
	Expires  time.Time `bson:"expires" json:"expires"`
	Degraded bool      `bson:"degraded,omitempty" json:"degraded,omitempty"`
}

// NewTimed wraps data with a ttl counted from now.
func NewTimed[T any](data T, ttl time.Duration) Timed[T] {
	return Timed[T]{Data: data, Expires: time.Now().Add(ttl)}
}

// NewDegraded wraps a fallback value with the short degraded-mode lifetime.
func NewDegraded[T any](data T) Timed[T] {
	return Timed[T]{Data: data, Expires: time.Now().Add(DegradedTTL), Degraded: true}
}

// Expired reports whether the value's lifetime has passed at now.
func (t Timed[T]) Expired(now time.Time) bool {
	return now.After(t.Expires)
}
