package swrcache

import (
	"context"
	"reflect"
	"runtime/debug"
	"sync"
	"time"
)

// Pending is a computation in flight for one key. It resolves exactly once
// and every waiter observes the same value and error.
type Pending[V any] struct {
	done       chan struct{}
	val        V
	err        error
	background bool

	mu      sync.Mutex
	waiters int
	cancel  context.CancelCauseFunc
}

func newPending[V any](background bool) *Pending[V] {
	return &Pending[V]{done: make(chan struct{}), background: background}
}

// Done is closed once the computation has resolved.
func (p *Pending[V]) Done() <-chan struct{} { return p.done }

// Wait blocks until the computation resolves or ctx is done. Giving up only
// ends this caller's wait.
func (p *Pending[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-p.done:
		return p.val, p.err
	default:
	}

	p.mu.Lock()
	p.waiters++
	p.mu.Unlock()

	select {
	case <-p.done:
		p.leave(false)
		return p.val, p.err
	case <-ctx.Done():
		p.leave(true)
		var zero V
		return zero, ctx.Err()
	}
}

func (p *Pending[V]) resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// bind returns the context the factory runs with: parent's values without its
// cancellation. With abortable set, the last waiter giving up cancels it with
// ErrAbandoned.
func (p *Pending[V]) bind(parent context.Context, abortable bool) context.Context {
	ctx := context.WithoutCancel(parent)
	if !abortable {
		return ctx
	}
	ctx, cancel := context.WithCancelCause(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return ctx
}

func (p *Pending[V]) leave(canceled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waiters--
	if canceled && p.waiters == 0 && p.cancel != nil && !p.resolved() {
		p.cancel(ErrAbandoned)
	}
}

func (p *Pending[V]) resolve(v V, err error) {
	p.val, p.err = v, err
	close(p.done)

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel(nil)
	}
}

// invoker runs factories with panic recovery, nil checks and hook reporting.
type invoker struct {
	hooks    Hooks
	log      Logger
	allowNil bool
}

func invoke[V any](ctx context.Context, in invoker, key string, background bool, fn Factory[V]) (v V, err error) {
	in.hooks.FactoryStarted(key, background)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v = zero
			err = &PanicError{Key: key, Value: r, Stack: debug.Stack()}
			in.log.Error("factory panicked", Fields{"key": key, "panic": r, "background": background})
		}
		if err != nil {
			in.hooks.FactoryFailed(key, background, err)
			return
		}
		in.hooks.FactorySucceeded(key, background, time.Since(start))
	}()

	v, err = fn(ctx)
	if err == nil && !in.allowNil && isNil(v) {
		err = &NilValueError{Key: key}
	}
	return v, err
}

// isNil reports absent values. Nil slices and maps are valid empty values
// and do not count.
func isNil(a any) bool {
	if a == nil {
		return true
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Pointer, reflect.UnsafePointer:
		return reflect.ValueOf(a).IsNil()
	}
	return false
}
