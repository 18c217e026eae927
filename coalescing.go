package swrcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unkn0wn-root/swrcache/store"
	"github.com/unkn0wn-root/swrcache/store/memory"
)

// Coalescing caches the computation itself: the first caller installs an
// unresolved Pending under key with the store's atomic GetOrAdd, everyone
// else awaits it. A failed computation is removed before its waiters are
// released, so failures are never cached.
//
// The computation is installed without expiry and gets its TTL when it
// succeeds, so a slow factory cannot expire into a second one.
type Coalescing[K comparable, V any] struct {
	store          store.Adder[K, *Pending[V]]
	in             invoker
	log            Logger
	hooks          Hooks
	keyString      func(K) string
	defaultTTL     time.Duration
	abortAbandoned bool

	mu     sync.RWMutex
	closed bool
	bg     sync.WaitGroup
}

func NewCoalescing[K comparable, V any](opts CoalescingOptions[K, V]) (*Coalescing[K, V], error) {
	if opts.DefaultTTL < 0 || opts.CleanupInterval < 0 {
		return nil, errors.New("swrcache: durations must not be negative")
	}
	c := &Coalescing[K, V]{
		keyString:      keyStringOf(opts.KeyString),
		abortAbandoned: opts.AbortAbandoned,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	c.in = invoker{hooks: c.hooks, log: c.log, allowNil: opts.AllowNil}

	if opts.Store != nil {
		c.store = opts.Store
	} else {
		c.store = memory.New[K, *Pending[V]](memory.Config{
			CleanupInterval: coalesce(opts.CleanupInterval, defaultSweep),
			Clock:           coalesce[Clock](opts.Clock, realClock{}),
		})
	}
	return c, nil
}

func (c *Coalescing[K, V]) GetOrCreate(ctx context.Context, key K, ttl time.Duration, fn Factory[V]) (V, error) {
	var zero V
	if fn == nil {
		return zero, errNilFactory
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ks := c.keyString(key)

	for {
		if !c.open() {
			return zero, ErrClosed
		}
		p, added, err := c.store.GetOrAdd(ctx, key, 0, func() *Pending[V] { return newPending[V](false) })
		if err != nil {
			// store unusable: compute uncached rather than fail the caller
			c.hooks.StoreError(ks, "get", err)
			c.log.Warn("store get-or-add failed; computing uncached", Fields{"key": ks, "err": err})
			return invoke(ctx, c.in, ks, false, fn)
		}

		switch {
		case added:
			c.hooks.Miss(ks)
			c.start(ctx, key, ks, p, ttl, fn)
		case p.resolved():
			c.hooks.Hit(ks)
		default:
			c.hooks.Miss(ks)
		}

		v, err := p.Wait(ctx)
		if err != nil && ctx.Err() == nil && errors.Is(err, ErrAbandoned) {
			continue
		}
		return v, err
	}
}

// Get returns the value of a successfully resolved computation for key.
func (c *Coalescing[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if !c.open() {
		return zero, false, ErrClosed
	}
	p, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok || !p.resolved() || p.err != nil {
		return zero, false, err
	}
	return p.val, true, nil
}

// Invalidate drops key. Callers already waiting on its computation still
// receive its result.
func (c *Coalescing[K, V]) Invalidate(ctx context.Context, key K) error {
	if !c.open() {
		return ErrClosed
	}
	if err := c.store.Del(ctx, key); err != nil {
		ks := c.keyString(key)
		c.hooks.StoreError(ks, "del", err)
		return &InvalidateError{Key: ks, DelErr: err}
	}
	return nil
}

// Close waits (bounded by ctx) for running computations, then closes the
// store. The store is closed even when the wait times out.
func (c *Coalescing[K, V]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	waitErr := waitGroup(ctx, &c.bg)
	return errors.Join(waitErr, c.store.Close(closeContext(ctx, waitErr)))
}

func (c *Coalescing[K, V]) start(ctx context.Context, key K, ks string, p *Pending[V], ttl time.Duration, fn Factory[V]) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		c.fail(key, p, ErrClosed)
		return
	}
	c.bg.Add(1)
	c.mu.RUnlock()

	fctx := p.bind(ctx, c.abortAbandoned)
	go func() {
		defer c.bg.Done()
		v, err := invoke(fctx, c.in, ks, false, fn)
		if err != nil {
			if errors.Is(context.Cause(fctx), ErrAbandoned) {
				c.hooks.Abandoned(ks)
				err = ErrAbandoned
			}
			c.fail(key, p, err)
			return
		}
		c.arm(key, ks, p, ttl)
		p.resolve(v, nil)
	}()
}

// arm starts the TTL of a successful computation. An entry invalidated in
// the meantime stays gone.
func (c *Coalescing[K, V]) arm(key K, ks string, p *Pending[V], ttl time.Duration) {
	_, err := c.store.SetIf(context.Background(), key, p, ttl, same(p))
	if err == nil {
		return
	}
	c.hooks.StoreError(ks, "set", err)
	c.log.Warn("could not set ttl; dropping computation", Fields{"key": ks, "err": err})
	if _, derr := c.store.DeleteIf(context.Background(), key, same(p)); derr != nil {
		c.hooks.StoreError(ks, "del", derr)
	}
}

// fail removes p from the store before releasing its waiters.
func (c *Coalescing[K, V]) fail(key K, p *Pending[V], err error) {
	// p's own context may be canceled by now
	if _, derr := c.store.DeleteIf(context.Background(), key, same(p)); derr != nil {
		ks := c.keyString(key)
		c.hooks.StoreError(ks, "del", derr)
		c.log.Warn("failed computation could not be removed", Fields{"key": ks, "err": derr})
	}
	var zero V
	p.resolve(zero, err)
}

func same[V any](p *Pending[V]) func(*Pending[V]) bool {
	return func(cur *Pending[V]) bool { return cur == p }
}

func (c *Coalescing[K, V]) open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}
