// Package swrcache populates caches without stampedes.
//
// Three controllers share one model: a per-key gate admits at most one
// factory call per key at a time, and every concurrent caller for that key
// receives the same result or error.
//
//   - SingleFlight: entries live for a TTL; a miss runs the factory once.
//   - Coalescing: the unresolved computation itself is the cache entry,
//     installed with the store's atomic GetOrAdd. Failures are removed before
//     waiters wake up.
//   - SWR: entries carry a fresh and a stale deadline. Stale entries are
//     served immediately while a single background refresh runs; its
//     failures are logged and never reach callers.
//
// Factories run on a context that keeps the caller's values but not its
// cancellation: a caller giving up only ends its own wait. Set
// Options.AbortAbandoned to cancel a computation once all of its waiters have
// given up.
//
// Stores are pluggable (store.Store, store.Adder). store/memory is the
// default; store/gocache wraps patrickmn/go-cache; store/encoded frames
// entries into a byte provider (ristretto, bigcache, redis) through a codec.
//
// Invalidate bumps a per-key generation before deleting. A population that
// snapshotted an older generation drops its result instead of resurrecting
// the entry:
//
//	obs := gens.Snapshot(k) // before the factory runs
//	v   := factory(ctx)
//	if gens.Snapshot(k) == obs { store.Set(k, v) }
//
// The check and the Set are separate store calls, so the population checks
// once more after writing and deletes its entry if the generation moved.
// Invalidate bumps before it deletes, so either side removes the entry. A Set
// racing the same population can be removed too and reads as a miss.
package swrcache
