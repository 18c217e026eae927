package swrcache

import "time"

// Hooks lightweight callbacks for population events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths, possibly from many goroutines.
type Hooks interface {
	// A live entry was returned without any work.
	Hit(key string)
	// No usable entry; the caller is about to await a population.
	Miss(key string)
	// A stale entry was returned and a background refresh was requested.
	StaleServed(key string)

	// A factory invocation started. background is true for SWR refreshes.
	FactoryStarted(key string, background bool)
	FactorySucceeded(key string, background bool, took time.Duration)
	// Background failures are reported here and nowhere else.
	FactoryFailed(key string, background bool, err error)

	// A background refresh was not started.
	// reason ∈ {"in_flight", "limit", "closed"}
	RefreshSkipped(key, reason string)

	// Every waiter of a foreground computation canceled and it was aborted.
	Abandoned(key string)

	// The backing store or generation store failed. op ∈ {"get", "set", "del", "gen"}
	StoreError(key, op string, err error)

	// A stored frame was deleted on read.
	// reason ∈ {"corrupt", "value_decode", "expired"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                                   {}
func (NopHooks) Miss(string)                                  {}
func (NopHooks) StaleServed(string)                           {}
func (NopHooks) FactoryStarted(string, bool)                  {}
func (NopHooks) FactorySucceeded(string, bool, time.Duration) {}
func (NopHooks) FactoryFailed(string, bool, error)            {}
func (NopHooks) RefreshSkipped(string, string)                {}
func (NopHooks) Abandoned(string)                             {}
func (NopHooks) StoreError(string, string, error)             {}
func (NopHooks) SelfHeal(string, string)                      {}
func (NopHooks) ProviderSetRejected(string)                   {}
