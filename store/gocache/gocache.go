// Package gocache adapts github.com/patrickmn/go-cache to store.Adder.
//
// go-cache keys are strings, so this store serves string-keyed caches only.
// GetOrAdd, DeleteIf and SetIf serialize on a store mutex; writes made to the
// underlying go-cache instance from outside this Store are not ordered with
// them.
package gocache

import (
	"context"
	"sync"
	"time"

	gc "github.com/patrickmn/go-cache"

	"github.com/unkn0wn-root/swrcache/store"
)

type Store[V any] struct {
	c  *gc.Cache
	mu sync.Mutex // check-then-act sequences
}

var _ store.Adder[string, int] = (*Store[int])(nil)

// New creates a store whose janitor runs every cleanupInterval (0 disables it).
func New[V any](cleanupInterval time.Duration) *Store[V] {
	return &Store[V]{c: gc.New(gc.NoExpiration, cleanupInterval)}
}

// NewWithCache wraps an existing go-cache instance. Values of other types found
// under a key are treated as misses and dropped.
func NewWithCache[V any](c *gc.Cache) *Store[V] { return &Store[V]{c: c} }

func (s *Store[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok := s.c.Get(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(V)
	if !ok {
		// self-heal: drop unexpected entry shape
		s.c.Delete(key)
		return zero, false, nil
	}
	return v, true, nil
}

func (s *Store[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	s.c.Set(key, value, expiration(ttl))
	return nil
}

func (s *Store[V]) Del(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// GetOrAdd relies on go-cache's Add, which fails when a live item exists, so
// exactly one racing caller installs its value.
func (s *Store[V]) GetOrAdd(ctx context.Context, key string, ttl time.Duration, newValue func() V) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if v, ok, _ := s.Get(ctx, key); ok {
			return v, false, nil
		}
		v := newValue()
		if err := s.c.Add(key, v, expiration(ttl)); err == nil {
			return v, true, nil
		}
		// an outside writer got there first
	}
}

func (s *Store[V]) DeleteIf(ctx context.Context, key string, match func(V) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok, _ := s.Get(ctx, key)
	if !ok || !match(v) {
		return false, nil
	}
	s.c.Delete(key)
	return true, nil
}

func (s *Store[V]) SetIf(ctx context.Context, key string, value V, ttl time.Duration, match func(V) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok, _ := s.Get(ctx, key)
	if !ok || !match(v) {
		return false, nil
	}
	s.c.Set(key, value, expiration(ttl))
	return true, nil
}

// Len reports go-cache's item count (may include expired items).
func (s *Store[V]) Len() int { return s.c.ItemCount() }

func (s *Store[V]) Close(_ context.Context) error {
	s.c.Flush()
	return nil
}

// ttl<=0 => "no expiry"
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gc.NoExpiration
	}
	return ttl
}
