package future

import (
	"context"
	"sync/atomic"
)

// Future is a one-shot asynchronous result. It is completed exactly once
// through the CompleteFunc returned by New; completing it a second time
// panics. Once Done is closed the value and error are immutable.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// CompleteFunc resolves the future it was created with.
type CompleteFunc[T any] func(val T, err error)

// New creates an unresolved future and the function that completes it.
func New[T any]() (*Future[T], CompleteFunc[T]) {
	f := &Future[T]{done: make(chan struct{})}

	var completed atomic.Bool
	complete := func(val T, err error) {
		if !completed.CompareAndSwap(false, true) {
			panic("future: completed twice")
		}

		f.val = val
		f.err = err
		close(f.done)
	}

	return f, complete
}

// Resolved returns a future that is already completed with val.
func Resolved[T any](val T) *Future[T] {
	f, complete := New[T]()
	complete(val, nil)
	return f
}

// Errored returns a future that is already completed with err.
func Errored[T any](err error) *Future[T] {
	f, complete := New[T]()
	var zero T
	complete(zero, err)
	return f
}

// Done is closed when the future has been completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Poll reports whether the future has completed, and if so its outcome.
// It never blocks.
func (f *Future[T]) Poll() (val T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Wait blocks until the future completes or ctx is done, whichever
// happens first.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
