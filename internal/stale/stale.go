// Package stale provides the timestamped value cell every published
// telemetry field is stored in. A cell that has not been refreshed within
// its time-to-live reads as absent, so a dead sender degrades its fields to
// "no data" instead of freezing the last value on screen.
package stale

import "time"

// DefaultTTL is the staleness deadline used when no TTL is configured.
const DefaultTTL = 5 * time.Second

// Value holds one telemetry reading and the time it was last refreshed.
// The zero Value (never updated) reads as absent, indistinguishable from a
// value that expired long ago. Staleness is a read-time projection: Get
// masks an expired value but Update never evicts anything.
//
// Value is not synchronized; the snapshot owning it is single-writer.
type Value[T any] struct {
	value   T
	updated time.Time
	ttl     time.Duration
}

// New returns an empty cell with the given TTL. Non-positive TTLs fall back
// to DefaultTTL.
func New[T any](ttl time.Duration) Value[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Value[T]{ttl: ttl}
}

// Update unconditionally replaces the value and refreshes the timestamp.
// There is no merge and no rejection of older data; arrival order is trusted.
func (v *Value[T]) Update(value T) {
	v.value = value
	v.updated = time.Now()
}

// Valid reports whether the cell was updated at least once and has not
// exceeded its TTL. time.Time carries a monotonic reading on this path, so
// wall-clock adjustments do not expire or resurrect values.
func (v *Value[T]) Valid() bool {
	if v.updated.IsZero() {
		return false
	}
	ttl := v.ttl
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return time.Since(v.updated) < ttl
}

// Get returns the stored value, or the zero value and false when the cell
// is stale or was never updated. It is the only sanctioned read for
// display and consumption code.
func (v *Value[T]) Get() (T, bool) {
	if !v.Valid() {
		var zero T
		return zero, false
	}
	return v.value, true
}
