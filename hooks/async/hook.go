// Package asynchook moves hook calls off the hot path onto worker goroutines.
// Events are dropped when the queue is full.
//
//	hooks := asynchook.New(sloghooks.New(slog.Default(), sloghooks.Options{}), 1, 1000)
//	defer hooks.Close()
//
//	c, _ := swrcache.NewSWR(swrcache.Options[string, User]{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Hooks must not be called
// after Close.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(k string)         { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string)        { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) StaleServed(k string) { h.try(func() { h.inner.StaleServed(k) }) }
func (h *Hooks) FactoryStarted(k string, bg bool) {
	h.try(func() { h.inner.FactoryStarted(k, bg) })
}
func (h *Hooks) FactorySucceeded(k string, bg bool, took time.Duration) {
	h.try(func() { h.inner.FactorySucceeded(k, bg, took) })
}
func (h *Hooks) FactoryFailed(k string, bg bool, err error) {
	h.try(func() { h.inner.FactoryFailed(k, bg, err) })
}
func (h *Hooks) RefreshSkipped(k, r string) { h.try(func() { h.inner.RefreshSkipped(k, r) }) }
func (h *Hooks) Abandoned(k string)         { h.try(func() { h.inner.Abandoned(k) }) }
func (h *Hooks) StoreError(k, op string, err error) {
	h.try(func() { h.inner.StoreError(k, op, err) })
}
func (h *Hooks) SelfHeal(k, r string)          { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
