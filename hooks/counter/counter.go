// Package counterhook counts population events with striped counters.
package counterhook

import (
	"time"

	"github.com/puzpuzpuz/xsync/v2"

	"github.com/unkn0wn-root/swrcache"
)

// Hooks counts events across all keys. Safe for concurrent use.
type Hooks struct {
	hit, miss, stale                     *xsync.Counter
	started, succeeded, failed, bgFailed *xsync.Counter
	skipped, abandoned, storeErr         *xsync.Counter
	selfHeal, rejected                   *xsync.Counter
	factoryNanos                         *xsync.Counter
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New() *Hooks {
	return &Hooks{
		hit: xsync.NewCounter(), miss: xsync.NewCounter(), stale: xsync.NewCounter(),
		started: xsync.NewCounter(), succeeded: xsync.NewCounter(),
		failed: xsync.NewCounter(), bgFailed: xsync.NewCounter(),
		skipped: xsync.NewCounter(), abandoned: xsync.NewCounter(), storeErr: xsync.NewCounter(),
		selfHeal: xsync.NewCounter(), rejected: xsync.NewCounter(),
		factoryNanos: xsync.NewCounter(),
	}
}

// Snapshot is a point-in-time copy of the counters. Counters are read one by
// one, so a snapshot taken under load is not atomic.
type Snapshot struct {
	Hits, Misses, StaleServed              int64
	FactoryStarted, FactorySucceeded       int64
	FactoryFailed, BackgroundFailed        int64
	RefreshSkipped, Abandoned, StoreErrors int64
	SelfHeals, ProviderSetRejected         int64
	FactoryTime                            time.Duration
}

func (h *Hooks) Snapshot() Snapshot {
	return Snapshot{
		Hits:                h.hit.Value(),
		Misses:              h.miss.Value(),
		StaleServed:         h.stale.Value(),
		FactoryStarted:      h.started.Value(),
		FactorySucceeded:    h.succeeded.Value(),
		FactoryFailed:       h.failed.Value(),
		BackgroundFailed:    h.bgFailed.Value(),
		RefreshSkipped:      h.skipped.Value(),
		Abandoned:           h.abandoned.Value(),
		StoreErrors:         h.storeErr.Value(),
		SelfHeals:           h.selfHeal.Value(),
		ProviderSetRejected: h.rejected.Value(),
		FactoryTime:         time.Duration(h.factoryNanos.Value()),
	}
}

func (h *Hooks) Hit(string)                  { h.hit.Inc() }
func (h *Hooks) Miss(string)                 { h.miss.Inc() }
func (h *Hooks) StaleServed(string)          { h.stale.Inc() }
func (h *Hooks) FactoryStarted(string, bool) { h.started.Inc() }
func (h *Hooks) FactorySucceeded(_ string, _ bool, took time.Duration) {
	h.succeeded.Inc()
	h.factoryNanos.Add(int64(took))
}

// FactoryFailed counts every failure; background ones are also counted apart.
func (h *Hooks) FactoryFailed(_ string, background bool, _ error) {
	h.failed.Inc()
	if background {
		h.bgFailed.Inc()
	}
}
func (h *Hooks) RefreshSkipped(string, string)    { h.skipped.Inc() }
func (h *Hooks) Abandoned(string)                 { h.abandoned.Inc() }
func (h *Hooks) StoreError(string, string, error) { h.storeErr.Inc() }
func (h *Hooks) SelfHeal(string, string)          { h.selfHeal.Inc() }
func (h *Hooks) ProviderSetRejected(string)       { h.rejected.Inc() }
