package swrcache

import "time"

// State is the staleness of an entry at a point in time.
type State uint8

const (
	StateFresh State = iota
	StateStale
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Entry is a cached value with its freshness window.
// FreshUntil never lies after ExpiresAt.
type Entry[V any] struct {
	Value      V
	FreshUntil time.Time
	ExpiresAt  time.Time
}

// NewEntry builds an entry written at now. It is fresh for freshFor and may be
// served stale until staleFor has passed since now. staleFor shorter than
// freshFor is raised to freshFor.
func NewEntry[V any](v V, now time.Time, freshFor, staleFor time.Duration) Entry[V] {
	if freshFor < 0 {
		freshFor = 0
	}
	if staleFor < freshFor {
		staleFor = freshFor
	}
	return Entry[V]{Value: v, FreshUntil: now.Add(freshFor), ExpiresAt: now.Add(staleFor)}
}

// State reports the staleness of e at now.
func (e Entry[V]) State(now time.Time) State {
	switch {
	case now.Before(e.FreshUntil):
		return StateFresh
	case now.Before(e.ExpiresAt):
		return StateStale
	default:
		return StateExpired
	}
}

// TTL is the remaining store lifetime of e, at least one millisecond so an
// entry written at its expiry boundary is not stored without expiry.
func (e Entry[V]) TTL(now time.Time) time.Duration {
	d := e.ExpiresAt.Sub(now)
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}
