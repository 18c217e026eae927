package swrcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/swrcache/store/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recHooks counts events by name, e.g. "hit", "fail:bg", "skip:in_flight".
type recHooks struct {
	mu     sync.Mutex
	counts map[string]int
}

var _ Hooks = (*recHooks)(nil)

func newRecHooks() *recHooks { return &recHooks{counts: make(map[string]int)} }

func (h *recHooks) inc(ev string) {
	h.mu.Lock()
	h.counts[ev]++
	h.mu.Unlock()
}

func (h *recHooks) count(ev string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[ev]
}

func bgTag(background bool) string {
	if background {
		return "bg"
	}
	return "fg"
}

func (h *recHooks) Hit(string)         { h.inc("hit") }
func (h *recHooks) Miss(string)        { h.inc("miss") }
func (h *recHooks) StaleServed(string) { h.inc("stale") }
func (h *recHooks) FactoryStarted(_ string, bg bool) {
	h.inc("start:" + bgTag(bg))
}
func (h *recHooks) FactorySucceeded(_ string, bg bool, _ time.Duration) {
	h.inc("ok:" + bgTag(bg))
}
func (h *recHooks) FactoryFailed(_ string, bg bool, _ error) { h.inc("fail:" + bgTag(bg)) }
func (h *recHooks) RefreshSkipped(_, reason string)         { h.inc("skip:" + reason) }
func (h *recHooks) Abandoned(string)                        { h.inc("abandoned") }
func (h *recHooks) StoreError(_, op string, _ error)        { h.inc("store:" + op) }
func (h *recHooks) SelfHeal(string, string)                 { h.inc("selfheal") }
func (h *recHooks) ProviderSetRejected(string)              { h.inc("rejected") }

// errStore fails selected operations of an otherwise working memory store.
type errStore[V any] struct {
	*memory.Store[string, Entry[V]]
	getErr, setErr, delErr error
}

func (s *errStore[V]) Get(ctx context.Context, k string) (Entry[V], bool, error) {
	if s.getErr != nil {
		return Entry[V]{}, false, s.getErr
	}
	return s.Store.Get(ctx, k)
}

func (s *errStore[V]) Set(ctx context.Context, k string, e Entry[V], ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, k, e, ttl)
}

func (s *errStore[V]) Del(ctx context.Context, k string) error {
	if s.delErr != nil {
		return s.delErr
	}
	return s.Store.Del(ctx, k)
}

// closeCountStore records Close calls on a working memory store.
type closeCountStore[V any] struct {
	*memory.Store[string, V]
	closed atomic.Int32
}

func newCloseCountStore[V any]() *closeCountStore[V] {
	return &closeCountStore[V]{Store: memory.New[string, V](memory.Config{})}
}

func (s *closeCountStore[V]) Close(ctx context.Context) error {
	s.closed.Add(1)
	return s.Store.Close(ctx)
}

type failingGenStore struct {
	snapErr, bumpErr error
	closed           atomic.Int32
}

func (s *failingGenStore) Snapshot(context.Context, string) (uint64, error) { return 0, s.snapErr }
func (s *failingGenStore) Bump(context.Context, string) (uint64, error)     { return 0, s.bumpErr }
func (s *failingGenStore) Cleanup(time.Duration)                            {}
func (s *failingGenStore) Close(context.Context) error {
	s.closed.Add(1)
	return nil
}

var errBoom = errors.New("boom")

// counter returns a factory yielding 1, 2, 3... and a call count reader.
func counter() (Factory[int], func() int) {
	var (
		mu sync.Mutex
		n  int
	)
	fn := func(context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return n, nil
	}
	return fn, func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (g *gate[K, V]) refs(key K) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.slots[key]; ok {
		return s.refs
	}
	return 0
}

func newTestSF(t *testing.T, clk Clock, mod func(*Options[string, int])) *SingleFlight[string, int] {
	t.Helper()
	opts := Options[string, int]{Clock: clk}
	if mod != nil {
		mod(&opts)
	}
	s, err := NewSingleFlight(opts)
	if err != nil {
		t.Fatalf("NewSingleFlight: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newTestSWR(t *testing.T, clk Clock, mod func(*Options[string, int])) *SWR[string, int] {
	t.Helper()
	opts := Options[string, int]{Clock: clk}
	if mod != nil {
		mod(&opts)
	}
	s, err := NewSWR(opts)
	if err != nil {
		t.Fatalf("NewSWR: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func keyN(i int) string { return fmt.Sprintf("k%d", i) }
