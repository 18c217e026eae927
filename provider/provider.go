// Package provider defines the byte store behind store/encoded.
//
// Implementations must be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for that key. The keyspace "swr:<ns>:" is
// owned by swrcache; foreign values written there fail frame validation and
// are deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<=0 means no expiry). cost may be
	// ignored. ok=false means the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key; missing keys are not an error.
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
