// Package statshook reports population events to a github.com/bool64/stats tracker.
package statshook

import (
	"context"
	"time"

	"github.com/bool64/stats"

	"github.com/unkn0wn-root/swrcache"
)

const (
	MetricHit                 = "swr_hit"
	MetricMiss                = "swr_miss"
	MetricStaleServed         = "swr_stale_served"
	MetricFactoryStarted      = "swr_factory_started"
	MetricFactorySucceeded    = "swr_factory_succeeded"
	MetricFactorySeconds      = "swr_factory_seconds"
	MetricFactoryFailed       = "swr_factory_failed"
	MetricRefreshSkipped      = "swr_refresh_skipped"
	MetricAbandoned           = "swr_abandoned"
	MetricStoreError          = "swr_store_error"
	MetricSelfHeal            = "swr_self_heal"
	MetricProviderSetRejected = "swr_provider_set_rejected"
)

// Hooks labels every metric with "name" so several caches can share one
// tracker. Keys are never used as labels.
type Hooks struct {
	t    stats.Tracker
	name string
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(t stats.Tracker, name string) *Hooks {
	if t == nil {
		t = stats.NoOp{}
	}
	return &Hooks{t: t, name: name}
}

func (h *Hooks) add(metric string, labels ...string) {
	h.t.Add(context.Background(), metric, 1, append([]string{"name", h.name}, labels...)...)
}

func bg(background bool) string {
	if background {
		return "true"
	}
	return "false"
}

func (h *Hooks) Hit(string)         { h.add(MetricHit) }
func (h *Hooks) Miss(string)        { h.add(MetricMiss) }
func (h *Hooks) StaleServed(string) { h.add(MetricStaleServed) }

func (h *Hooks) FactoryStarted(_ string, background bool) {
	h.add(MetricFactoryStarted, "background", bg(background))
}

func (h *Hooks) FactorySucceeded(_ string, background bool, took time.Duration) {
	h.add(MetricFactorySucceeded, "background", bg(background))
	h.t.Add(context.Background(), MetricFactorySeconds, took.Seconds(), "name", h.name, "background", bg(background))
}

func (h *Hooks) FactoryFailed(_ string, background bool, _ error) {
	h.add(MetricFactoryFailed, "background", bg(background))
}

func (h *Hooks) RefreshSkipped(_, reason string)  { h.add(MetricRefreshSkipped, "reason", reason) }
func (h *Hooks) Abandoned(string)                 { h.add(MetricAbandoned) }
func (h *Hooks) StoreError(_, op string, _ error) { h.add(MetricStoreError, "op", op) }
func (h *Hooks) SelfHeal(_, reason string)        { h.add(MetricSelfHeal, "reason", reason) }
func (h *Hooks) ProviderSetRejected(string)       { h.add(MetricProviderSetRejected) }
