// Package store defines the typed key-value stores populated by swrcache.
//
// TTL enforcement and eviction belong entirely to the implementation. A
// non-positive ttl means "no expiry".
package store

import (
	"context"
	"time"
)

// Store is a typed key-value store with TTLs. Must be safe for concurrent use.
type Store[K comparable, V any] interface {
	// Get returns (value, true, nil) on hit; (zero, false, nil) on miss.
	// If an IO/remote error happens, return (zero, false, err).
	Get(ctx context.Context, key K) (V, bool, error)

	// Set stores value with the given TTL, replacing any previous value.
	Set(ctx context.Context, key K, value V, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key K) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Adder is a Store with an atomic create-if-absent primitive.
type Adder[K comparable, V any] interface {
	Store[K, V]

	// GetOrAdd returns the live value for key, or stores newValue() under
	// key with ttl and returns it with added=true. Only one of any number of
	// concurrent callers for an absent key observes added=true.
	// newValue may run while the store holds internal locks; keep it cheap.
	GetOrAdd(ctx context.Context, key K, ttl time.Duration, newValue func() V) (actual V, added bool, err error)

	// DeleteIf removes key only when match reports true for its current value.
	DeleteIf(ctx context.Context, key K, match func(V) bool) (bool, error)

	// SetIf replaces the current value of key with value and ttl only when
	// match reports true for it. An absent key is left absent.
	SetIf(ctx context.Context, key K, value V, ttl time.Duration, match func(V) bool) (bool, error)
}
