package genstore

import (
	"context"
	"sync"
	"time"
)

type localGenEntry struct {
	Gen       uint64
	UpdatedAt time.Time
}

// LocalConfig configures NewLocal. Zero values disable the cleanup loop.
type LocalConfig struct {
	CleanupInterval time.Duration
	Retention       time.Duration
	Now             func() time.Time // nil => time.Now
}

// LocalGenStore keeps generations in-process (default).
// Optional cleanup loop prunes entries not bumped within the retention window.
// Pruning resets a key to 0, which only matters to populations that have been
// running longer than the retention.
type LocalGenStore struct {
	mu     sync.RWMutex
	gens   map[string]localGenEntry
	now    func() time.Time
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	return NewLocal(LocalConfig{CleanupInterval: cleanupInterval, Retention: retention})
}

func NewLocal(cfg LocalConfig) *LocalGenStore {
	s := &LocalGenStore{
		gens: make(map[string]localGenEntry),
		now:  cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.CleanupInterval > 0 && cfg.Retention > 0 {
		s.ticker = time.NewTicker(cfg.CleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(cfg.Retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	e, ok := s.gens[k]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}
	return e.Gen, nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	e := s.gens[k]
	e.Gen++
	e.UpdatedAt = now
	s.gens[k] = e
	s.mu.Unlock()
	return e.Gen, nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if !e.UpdatedAt.IsZero() && e.UpdatedAt.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Len reports the number of tracked keys.
func (s *LocalGenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *LocalGenStore) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}
