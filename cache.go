package swrcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	gen "github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/store"
	"github.com/unkn0wn-root/swrcache/store/memory"
)

// window is the freshness a population writes with.
type window struct {
	fresh, stale time.Duration
}

// core is the population machinery shared by SingleFlight and SWR.
type core[K comparable, V any] struct {
	store     store.Store[K, Entry[V]]
	gens      gen.GenStore
	gate      *gate[K, V]
	in        invoker
	log       Logger
	hooks     Hooks
	clock     Clock
	keyString func(K) string

	abortAbandoned bool
	refreshTimeout time.Duration
	sem            *semaphore.Weighted // nil => unbounded refreshes

	mu       sync.RWMutex // guards closed against bg.Add
	closed   bool
	shutdown context.Context
	cancel   context.CancelFunc
	bg       sync.WaitGroup
}

func newCore[K comparable, V any](opts Options[K, V]) (*core[K, V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &core[K, V]{
		gate:           newGate[K, V](),
		keyString:      keyStringOf(opts.KeyString),
		abortAbandoned: opts.AbortAbandoned,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clock = coalesce[Clock](opts.Clock, realClock{})
	c.refreshTimeout = coalesce(opts.RefreshTimeout, defaultRefreshTimeout)
	sweep := coalesce(opts.CleanupInterval, defaultSweep)
	retention := coalesce(opts.GenRetention, defaultGenRetention)

	c.in = invoker{hooks: c.hooks, log: c.log, allowNil: opts.AllowNil}
	if opts.MaxConcurrentRefreshes > 0 {
		c.sem = semaphore.NewWeighted(opts.MaxConcurrentRefreshes)
	}

	if opts.Store != nil {
		c.store = opts.Store
	} else {
		c.store = memory.New[K, Entry[V]](memory.Config{CleanupInterval: sweep, Clock: c.clock})
	}
	if opts.GenStore != nil {
		c.gens = opts.GenStore
	} else {
		// default to in-process generations with periodic cleanup
		c.gens = gen.NewLocal(gen.LocalConfig{CleanupInterval: sweep, Retention: retention, Now: c.clock.Now})
	}

	c.shutdown, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// read degrades store errors to a miss.
func (c *core[K, V]) read(ctx context.Context, key K, ks string) (Entry[V], bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.hooks.StoreError(ks, "get", err)
		c.log.Warn("store get failed; treating as miss", Fields{"key": ks, "err": err})
		return Entry[V]{}, false
	}
	return e, ok
}

// load runs or joins the foreground population of key. Joiners of a
// background refresh, or of a computation abandoned by others, retry when it
// fails instead of seeing its error.
func (c *core[K, V]) load(ctx context.Context, key K, ks string, w window, fn Factory[V]) (V, error) {
	for {
		p, leader := c.gate.acquire(key)
		if leader {
			if c.track() {
				go c.lead(p.bind(ctx, c.abortAbandoned), key, ks, p, w, fn)
			} else {
				var zero V
				c.gate.release(key, p, true)
				p.resolve(zero, ErrClosed)
			}
		}

		v, err := p.Wait(ctx)
		c.gate.release(key, p, false)
		if err != nil && ctx.Err() == nil && (p.background || errors.Is(err, ErrAbandoned)) {
			c.log.Debug("joined computation failed; retrying", Fields{"key": ks, "err": err})
			continue
		}
		return v, err
	}
}

func (c *core[K, V]) lead(ctx context.Context, key K, ks string, p *Pending[V], w window, fn Factory[V]) {
	defer c.bg.Done()
	v, err := c.populate(ctx, key, ks, w, fn, false)
	if err != nil && errors.Is(context.Cause(ctx), ErrAbandoned) {
		c.hooks.Abandoned(ks)
		c.log.Debug("computation abandoned by all waiters", Fields{"key": ks})
		err = ErrAbandoned
	}
	// release before resolve: a caller arriving after this sees the store
	c.gate.release(key, p, true)
	p.resolve(v, err)
}

// populate re-checks the store, runs the factory and writes its result.
// A foreground leader accepts any unexpired entry written since its caller
// looked; a background refresh only a fresh one.
func (c *core[K, V]) populate(ctx context.Context, key K, ks string, w window, fn Factory[V], background bool) (V, error) {
	if e, ok := c.read(ctx, key, ks); ok {
		switch e.State(c.clock.Now()) {
		case StateFresh:
			return e.Value, nil
		case StateStale:
			if !background {
				return e.Value, nil
			}
		}
	}

	obs, genErr := c.gens.Snapshot(ctx, ks)
	v, err := invoke(ctx, c.in, ks, background, fn)
	if err != nil {
		return v, err
	}
	if genErr != nil {
		c.hooks.StoreError(ks, "gen", genErr)
		c.log.Warn("generation snapshot failed; result not stored", Fields{"key": ks, "err": genErr})
		return v, nil
	}
	c.write(ctx, key, ks, v, w, obs)
	return v, nil
}

// write stores v unless the key's generation moved past obs. A move that
// races the Set is caught by the second check, which takes the write back.
func (c *core[K, V]) write(ctx context.Context, key K, ks string, v V, w window, obs uint64) {
	cur, err := c.gens.Snapshot(ctx, ks)
	if err != nil || cur != obs {
		// generation moved; skip stale write
		c.log.Debug("write skipped (gen mismatch)", Fields{"key": ks, "obs": obs, "cur": cur})
		return
	}
	now := c.clock.Now()
	e := NewEntry(v, now, w.fresh, w.stale)
	if err := c.store.Set(ctx, key, e, e.TTL(now)); err != nil {
		c.hooks.StoreError(ks, "set", err)
		c.log.Warn("store set failed", Fields{"key": ks, "err": err})
		return
	}
	if cur, err := c.gens.Snapshot(ctx, ks); err == nil && cur != obs {
		// invalidated or set while writing; a miss is safe, a resurrected entry is not
		c.log.Debug("write raced gen bump; removing it", Fields{"key": ks, "obs": obs, "cur": cur})
		if err := c.store.Del(ctx, key); err != nil {
			c.hooks.StoreError(ks, "del", err)
			c.log.Warn("store del failed", Fields{"key": ks, "err": err})
		}
	}
}

// set writes v directly. The generation bump keeps populations already in
// flight from overwriting it.
func (c *core[K, V]) set(ctx context.Context, key K, v V, w window) error {
	if !c.open() {
		return ErrClosed
	}
	ks := c.keyString(key)
	if _, err := c.gens.Bump(ctx, ks); err != nil {
		c.hooks.StoreError(ks, "gen", err)
		c.log.Warn("generation bump failed on set", Fields{"key": ks, "err": err})
	}
	now := c.clock.Now()
	e := NewEntry(v, now, w.fresh, w.stale)
	return c.store.Set(ctx, key, e, e.TTL(now))
}

func (c *core[K, V]) invalidate(ctx context.Context, key K) error {
	if !c.open() {
		return ErrClosed
	}
	ks := c.keyString(key)
	newGen, bumpErr := c.gens.Bump(ctx, ks)
	delErr := c.store.Del(ctx, key)
	if delErr != nil {
		c.hooks.StoreError(ks, "del", delErr)
		return &InvalidateError{Key: ks, BumpErr: bumpErr, DelErr: delErr}
	}
	if bumpErr != nil {
		c.hooks.StoreError(ks, "gen", bumpErr)
		// entry is gone; only an in-flight population can bring it back
		c.log.Warn("invalidate: gen bump failed", Fields{"key": ks, "err": bumpErr})
		return nil
	}
	c.log.Debug("invalidated key (bumped gen + deleted entry)", Fields{"key": ks, "newGen": newGen})
	return nil
}

// refreshAsync starts a background refresh unless one is already running for
// key, the refresh limit is reached, or the controller is closed.
func (c *core[K, V]) refreshAsync(key K, ks string, w window, fn Factory[V]) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.hooks.RefreshSkipped(ks, "closed")
		return
	}
	if c.sem != nil && !c.sem.TryAcquire(1) {
		c.hooks.RefreshSkipped(ks, "limit")
		return
	}
	p, ok := c.gate.tryAcquire(key)
	if !ok {
		if c.sem != nil {
			c.sem.Release(1)
		}
		c.hooks.RefreshSkipped(ks, "in_flight")
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if c.sem != nil {
			defer c.sem.Release(1)
		}
		ctx, cancel := context.WithTimeout(c.shutdown, c.refreshTimeout)
		defer cancel()

		v, err := c.populate(ctx, key, ks, w, fn, true)
		c.gate.release(key, p, true)
		p.resolve(v, err)
		if err != nil {
			c.log.Warn("background refresh failed; keeping stale entry", Fields{"key": ks, "err": err})
		}
	}()
}

// track registers a population goroutine unless closed.
func (c *core[K, V]) track() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.bg.Add(1)
	return true
}

func (c *core[K, V]) open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// close stops new work, cancels background refreshes and waits (bounded by
// ctx) for running populations. The stores are closed either way; a
// population still running after a timed-out wait may find them closed.
func (c *core[K, V]) close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	waitErr := waitGroup(ctx, &c.bg)
	sctx := closeContext(ctx, waitErr)
	return errors.Join(waitErr, c.gens.Close(sctx), c.store.Close(sctx))
}

// closeContext keeps store shutdown from inheriting an expired wait deadline.
func closeContext(ctx context.Context, waitErr error) context.Context {
	if waitErr != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
