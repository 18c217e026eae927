// Package sloghooks logs population events with log/slog.
//
// Hot-path events (hits, misses, factory start/success) are logged at Debug.
// Failures log at Warn, abandonment and store errors included.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	SelfHealEvery uint64
	SkipEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	selfHealCtr atomic.Uint64
	skipCtr     atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("swrcache.hit", "key", h.redact(key))
}

func (h *Hooks) Miss(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.miss", "key", h.redact(key))
}

func (h *Hooks) StaleServed(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.stale_served", "key", h.redact(key))
}

func (h *Hooks) FactoryStarted(key string, background bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.factory_started",
		"key", h.redact(key),
		"background", background)
}

func (h *Hooks) FactorySucceeded(key string, background bool, took time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.factory_succeeded",
		"key", h.redact(key),
		"background", background,
		"took", took)
}

func (h *Hooks) FactoryFailed(key string, background bool, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.factory_failed",
		"key", h.redact(key),
		"background", background,
		"err", err)
}

func (h *Hooks) RefreshSkipped(key, reason string) {
	if h.l == nil || !sample(h.opts.SkipEvery, &h.skipCtr) {
		return
	}
	h.l.Debug("swrcache.refresh_skipped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) Abandoned(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.abandoned", "key", h.redact(key))
}

func (h *Hooks) StoreError(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.store_error",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swrcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.provider_set_rejected", "key", h.redact(storageKey))
}
