package swrcache

import (
	"context"
	"time"
)

// SWR serves stale entries while refreshing them in the background.
//
//   - fresh: returned as is.
//   - stale: returned immediately; one background refresh is started per key.
//     Its failure is logged and reported to Hooks, never to callers.
//   - expired or missing: computed in the foreground, one factory call per key.
type SWR[K comparable, V any] struct {
	c        *core[K, V]
	freshFor time.Duration
	staleFor time.Duration
}

func NewSWR[K comparable, V any](opts Options[K, V]) (*SWR[K, V], error) {
	c, err := newCore(opts)
	if err != nil {
		return nil, err
	}
	return &SWR[K, V]{
		c:        c,
		freshFor: coalesce(opts.FreshFor, defaultFreshFor),
		staleFor: coalesce(opts.StaleFor, defaultStaleFor),
	}, nil
}

func (s *SWR[K, V]) GetOrCreate(ctx context.Context, key K, ttl TTL, fn Factory[V]) (V, error) {
	var zero V
	if fn == nil {
		return zero, errNilFactory
	}
	if !s.c.open() {
		return zero, ErrClosed
	}
	ks := s.c.keyString(key)
	w := s.window(ttl)

	if e, ok := s.c.read(ctx, key, ks); ok {
		switch e.State(s.c.clock.Now()) {
		case StateFresh:
			s.c.hooks.Hit(ks)
			return e.Value, nil
		case StateStale:
			s.c.hooks.StaleServed(ks)
			s.c.refreshAsync(key, ks, w, fn)
			return e.Value, nil
		}
	}
	s.c.hooks.Miss(ks)
	return s.c.load(ctx, key, ks, w, fn)
}

// Peek returns the stored entry and its state without computing or
// refreshing anything. Expired entries are reported as missing.
func (s *SWR[K, V]) Peek(ctx context.Context, key K) (Entry[V], State, bool, error) {
	if !s.c.open() {
		return Entry[V]{}, StateExpired, false, ErrClosed
	}
	e, ok, err := s.c.store.Get(ctx, key)
	if err != nil || !ok {
		return Entry[V]{}, StateExpired, false, err
	}
	st := e.State(s.c.clock.Now())
	if st == StateExpired {
		return Entry[V]{}, st, false, nil
	}
	return e, st, true, nil
}

// Set stores v for key with the given freshness. Populations and refreshes
// already in flight for key will not overwrite it.
func (s *SWR[K, V]) Set(ctx context.Context, key K, v V, ttl TTL) error {
	return s.c.set(ctx, key, v, s.window(ttl))
}

func (s *SWR[K, V]) Invalidate(ctx context.Context, key K) error {
	return s.c.invalidate(ctx, key)
}

// Close cancels running refreshes, waits for in-flight populations (bounded
// by ctx) and closes the generation store and the store.
func (s *SWR[K, V]) Close(ctx context.Context) error { return s.c.close(ctx) }

// non-positive fields take the defaults
func (s *SWR[K, V]) window(ttl TTL) window {
	w := window{fresh: ttl.FreshFor, stale: ttl.StaleFor}
	if w.fresh <= 0 {
		w.fresh = s.freshFor
	}
	if w.stale <= 0 {
		w.stale = s.staleFor
	}
	return w
}
