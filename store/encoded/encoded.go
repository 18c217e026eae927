// Package encoded stores swrcache entries in a byte provider.
//
// Each entry is framed with its freshness window (internal/wire) around the
// codec payload. Frames that fail validation or decoding are deleted on read
// and reported through Hooks.SelfHeal.
package encoded

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/store"
)

type Options[V any] struct {
	Namespace string // required
	Provider  pr.Provider
	Codec     codec.Codec[V]

	Hooks swrcache.Hooks
	Clock swrcache.Clock // expiry check on read; nil => wall clock
	// Cost computes provider cost; nil => encoded frame length.
	Cost func(v V, frame []byte) int64
}

type Store[V any] struct {
	ns    string
	p     pr.Provider
	codec codec.Codec[V]
	hooks swrcache.Hooks
	now   func() time.Time
	cost  func(V, []byte) int64
}

var _ store.Store[string, swrcache.Entry[int]] = (*Store[int])(nil)

func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Namespace == "" {
		return nil, errors.New("encoded: Namespace required")
	}
	if opts.Provider == nil {
		return nil, errors.New("encoded: Provider required")
	}
	if opts.Codec == nil {
		return nil, errors.New("encoded: Codec required")
	}
	s := &Store[V]{
		ns:    opts.Namespace,
		p:     opts.Provider,
		codec: opts.Codec,
		hooks: opts.Hooks,
		now:   time.Now,
		cost:  opts.Cost,
	}
	if s.hooks == nil {
		s.hooks = swrcache.NopHooks{}
	}
	if opts.Clock != nil {
		s.now = opts.Clock.Now
	}
	if s.cost == nil {
		s.cost = func(_ V, b []byte) int64 { return int64(len(b)) }
	}
	return s, nil
}

func (s *Store[V]) storageKey(k string) string { return "swr:" + s.ns + ":" + k }

func (s *Store[V]) Get(ctx context.Context, key string) (swrcache.Entry[V], bool, error) {
	var zero swrcache.Entry[V]
	sk := s.storageKey(key)

	raw, ok, err := s.p.Get(ctx, sk)
	if err != nil || !ok {
		return zero, false, err
	}

	f, err := wire.DecodeEntry(raw)
	if err != nil {
		s.heal(ctx, sk, "corrupt")
		return zero, false, nil
	}
	// providers without per-entry TTL (bigcache) can outlive the frame
	if !s.now().Before(f.ExpiresAt) {
		s.heal(ctx, sk, "expired")
		return zero, false, nil
	}
	v, err := s.codec.Decode(f.Payload)
	if err != nil {
		s.heal(ctx, sk, "value_decode")
		return zero, false, nil
	}
	return swrcache.Entry[V]{Value: v, FreshUntil: f.FreshUntil, ExpiresAt: f.ExpiresAt}, true, nil
}

// Set encodes and writes e. A write the provider rejects under pressure is
// reported via Hooks.ProviderSetRejected and is not an error.
func (s *Store[V]) Set(ctx context.Context, key string, e swrcache.Entry[V], ttl time.Duration) error {
	payload, err := s.codec.Encode(e.Value)
	if err != nil {
		return err
	}
	frame := wire.EncodeEntry(e.FreshUntil, e.ExpiresAt, payload)
	sk := s.storageKey(key)

	ok, err := s.p.Set(ctx, sk, frame, s.cost(e.Value, frame), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk)
	}
	return nil
}

func (s *Store[V]) Del(ctx context.Context, key string) error {
	return s.p.Del(ctx, s.storageKey(key))
}

func (s *Store[V]) Close(ctx context.Context) error { return s.p.Close(ctx) }

func (s *Store[V]) heal(ctx context.Context, sk, reason string) {
	_ = s.p.Del(ctx, sk)
	s.hooks.SelfHeal(sk, reason)
}
