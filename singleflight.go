package swrcache

import (
	"context"
	"errors"
	"time"
)

var errNilFactory = errors.New("swrcache: nil factory")

// SingleFlight populates a store with at most one factory call per key in
// flight. Entries are live until their TTL runs out and are never served
// past it.
type SingleFlight[K comparable, V any] struct {
	c          *core[K, V]
	defaultTTL time.Duration
}

func NewSingleFlight[K comparable, V any](opts Options[K, V]) (*SingleFlight[K, V], error) {
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &SingleFlight[K, V]{c: c, defaultTTL: coalesce(opts.DefaultTTL, defaultTTL)}, nil
}

// GetOrCreate returns the live value for key or computes it with fn. Callers
// racing on the same missing key share one fn call and its result or error.
// ttl <= 0 uses Options.DefaultTTL.
func (s *SingleFlight[K, V]) GetOrCreate(ctx context.Context, key K, ttl time.Duration, fn Factory[V]) (V, error) {
	var zero V
	if fn == nil {
		return zero, errNilFactory
	}
	if !s.c.open() {
		return zero, ErrClosed
	}
	ks := s.c.keyString(key)
	if e, ok := s.c.read(ctx, key, ks); ok && e.State(s.c.clock.Now()) != StateExpired {
		s.c.hooks.Hit(ks)
		return e.Value, nil
	}
	s.c.hooks.Miss(ks)
	return s.c.load(ctx, key, ks, s.window(ttl), fn)
}

// Get returns the live value for key without computing anything.
func (s *SingleFlight[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if !s.c.open() {
		return zero, false, ErrClosed
	}
	e, ok, err := s.c.store.Get(ctx, key)
	if err != nil || !ok || e.State(s.c.clock.Now()) == StateExpired {
		return zero, false, err
	}
	return e.Value, true, nil
}

// Set stores v for key. A population already in flight for key will not
// overwrite it.
func (s *SingleFlight[K, V]) Set(ctx context.Context, key K, v V, ttl time.Duration) error {
	return s.c.set(ctx, key, v, s.window(ttl))
}

// Invalidate deletes key and keeps populations already in flight from
// writing their results.
func (s *SingleFlight[K, V]) Invalidate(ctx context.Context, key K) error {
	return s.c.invalidate(ctx, key)
}

func (s *SingleFlight[K, V]) Close(ctx context.Context) error { return s.c.close(ctx) }

func (s *SingleFlight[K, V]) window(ttl time.Duration) window {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return window{fresh: ttl, stale: ttl}
}
