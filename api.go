package swrcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gen "github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/store"
)

// Factory computes the value for a key. ctx carries the caller's values but
// not its cancellation; background refreshes get a ctx bounded by
// Options.RefreshTimeout and Close.
type Factory[V any] func(ctx context.Context) (V, error)

// TTL is the freshness window of an SWR entry. The entry is fresh for
// FreshFor after it is written and may be served stale until StaleFor has
// passed. Zero fields take the controller defaults.
type TTL struct {
	FreshFor time.Duration
	StaleFor time.Duration
}

const (
	defaultTTL            = 10 * time.Minute
	defaultFreshFor       = time.Minute
	defaultStaleFor       = 5 * time.Minute
	defaultRefreshTimeout = 30 * time.Second
	defaultGenRetention   = 30 * 24 * time.Hour
	defaultSweep          = time.Hour
)

// Options configure SingleFlight and SWR. The zero value is usable.
type Options[K comparable, V any] struct {
	Store    store.Store[K, Entry[V]] // nil => store/memory
	GenStore gen.GenStore             // nil => LocalGenStore (in-process)

	Logger    Logger         // if nil, NopLogger is used
	Hooks     Hooks          // if nil, NopHooks is used
	Clock     Clock          // nil => wall clock
	KeyString func(K) string // key rendering for logs, hooks and generations; nil => fmt.Sprint

	DefaultTTL             time.Duration // SingleFlight; 0 => 10m
	FreshFor               time.Duration // SWR; 0 => 1m
	StaleFor               time.Duration // SWR; 0 => 5m
	RefreshTimeout         time.Duration // SWR background factory bound; 0 => 30s
	MaxConcurrentRefreshes int64         // SWR; 0 => unbounded
	CleanupInterval        time.Duration // default store + gen sweep; 0 => 1h
	GenRetention           time.Duration // 0 => 30d

	// AllowNil lets factories return nil pointers, funcs, chans and
	// interfaces. Nil slices and maps are always accepted.
	AllowNil bool
	// AbortAbandoned cancels a foreground computation once every caller
	// waiting on it has given up. Off by default: computations always finish
	// and populate the store.
	AbortAbandoned bool
}

func (o Options[K, V]) validate() error {
	for name, d := range map[string]time.Duration{
		"DefaultTTL":      o.DefaultTTL,
		"FreshFor":        o.FreshFor,
		"StaleFor":        o.StaleFor,
		"RefreshTimeout":  o.RefreshTimeout,
		"CleanupInterval": o.CleanupInterval,
		"GenRetention":    o.GenRetention,
	} {
		if d < 0 {
			return fmt.Errorf("swrcache: %s must not be negative", name)
		}
	}
	if o.MaxConcurrentRefreshes < 0 {
		return errors.New("swrcache: MaxConcurrentRefreshes must not be negative")
	}
	return nil
}

// CoalescingOptions configure Coalescing.
type CoalescingOptions[K comparable, V any] struct {
	// Store holds unresolved and resolved computations; nil => store/memory.
	Store store.Adder[K, *Pending[V]]

	Logger    Logger
	Hooks     Hooks
	Clock     Clock // default store expiry; nil => wall clock
	KeyString func(K) string

	DefaultTTL      time.Duration // 0 => 10m
	CleanupInterval time.Duration // default store sweep; 0 => 1h

	AllowNil       bool
	AbortAbandoned bool
}

func keyStringOf[K comparable](f func(K) string) func(K) string {
	if f != nil {
		return f
	}
	return func(k K) string {
		if s, ok := any(k).(string); ok {
			return s
		}
		return fmt.Sprint(k)
	}
}
