package swrcache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("swrcache: closed")

	// ErrNilValue marks a factory that produced nil for a value type that must
	// not be cached as nil.
	ErrNilValue = errors.New("swrcache: factory returned nil value")

	// ErrAbandoned is the cancellation cause of a computation whose waiters
	// all gave up (see Options.AbortAbandoned).
	ErrAbandoned = errors.New("swrcache: computation abandoned by all waiters")
)

// NilValueError reports a nil factory result for Key.
type NilValueError struct {
	Key string
}

func (e *NilValueError) Error() string {
	return fmt.Sprintf("swrcache: factory for %q returned nil value", e.Key)
}

func (e *NilValueError) Unwrap() error { return ErrNilValue }

// PanicError wraps a panic recovered from a factory.
type PanicError struct {
	Key   string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("swrcache: factory for %q panicked: %v", e.Key, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
