// Package memory is an in-process store.Adder backed by a map.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/swrcache/store"
)

// Clock supplies the time used for expiry.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type Config struct {
	// CleanupInterval is the period of the expired-item sweep; 0 disables it.
	// Expired items read as misses either way.
	CleanupInterval time.Duration
	Clock           Clock // nil => wall clock
}

type item[V any] struct {
	v   V
	exp time.Time // zero => no TTL
}

func (it item[V]) live(now time.Time) bool {
	return it.exp.IsZero() || now.Before(it.exp)
}

// Store keeps values in a map guarded by a single RWMutex.
type Store[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]item[V]
	clock Clock

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ store.Adder[string, int] = (*Store[string, int])(nil)

func New[K comparable, V any](cfg Config) *Store[K, V] {
	s := &Store[K, V]{
		items: make(map[K]item[V]),
		clock: cfg.Clock,
	}
	if s.clock == nil {
		s.clock = wallClock{}
	}
	if cfg.CleanupInterval > 0 {
		s.ticker = time.NewTicker(cfg.CleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	now := s.clock.Now()
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || !it.live(now) {
		var zero V
		return zero, false, nil
	}
	return it.v, true, nil
}

func (s *Store[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) error {
	it := item[V]{v: value, exp: s.expiry(ttl)}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

func (s *Store[K, V]) Del(_ context.Context, key K) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// GetOrAdd is atomic: the lookup and the insert happen under one write lock.
func (s *Store[K, V]) GetOrAdd(_ context.Context, key K, ttl time.Duration, newValue func() V) (V, bool, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[key]; ok && it.live(now) {
		return it.v, false, nil
	}
	v := newValue()
	s.items[key] = item[V]{v: v, exp: s.expiry(ttl)}
	return v, true, nil
}

func (s *Store[K, V]) DeleteIf(_ context.Context, key K, match func(V) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || !match(it.v) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

func (s *Store[K, V]) SetIf(_ context.Context, key K, value V, ttl time.Duration, match func(V) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || !it.live(s.clock.Now()) || !match(it.v) {
		return false, nil
	}
	s.items[key] = item[V]{v: value, exp: s.expiry(ttl)}
	return true, nil
}

// Len counts stored items, including expired ones not yet swept.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep drops expired items.
func (s *Store[K, V]) Sweep() {
	now := s.clock.Now()
	s.mu.Lock()
	for k, it := range s.items {
		if !it.live(now) {
			delete(s.items, k)
		}
	}
	s.mu.Unlock()
}

func (s *Store[K, V]) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

func (s *Store[K, V]) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock.Now().Add(ttl)
}
