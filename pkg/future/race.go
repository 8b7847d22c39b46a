package future

import (
	"errors"
	"time"
)

// ErrElapsed is returned by a Race future when the deadline fires before
// the wrapped operation completes. It is distinct from any error the
// operation itself may produce.
var ErrElapsed = errors.New("future: deadline elapsed")

// Race wraps op with a deadline of d and returns a future that resolves
// with whichever finishes first. The operation always wins ties: if the
// timer fires, op is checked one more time before ErrElapsed is reported,
// so a timeout is only observed when the operation is strictly not done.
//
// When the deadline elapses the operation is abandoned, not cancelled;
// cancellation, if any, belongs to whoever started the operation.
func Race[T any](op *Future[T], d time.Duration) *Future[T] {
	out, complete := New[T]()
	timer := time.NewTimer(d)

	go func() {
		defer timer.Stop()

		select {
		case <-op.Done():
			complete(op.val, op.err)
		case <-timer.C:
			if val, err, ok := op.Poll(); ok {
				complete(val, err)
				return
			}
			var zero T
			complete(zero, ErrElapsed)
		}
	}()

	return out
}
