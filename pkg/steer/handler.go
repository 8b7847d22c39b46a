package steer

import "github.com/angeloszaimis/steer/pkg/future"

// Poll is the outcome of a non-blocking readiness probe.
type Poll int

const (
	// Pending means the handler cannot accept a request yet. The waker
	// passed to PollReady will be called when it is worth probing again.
	Pending Poll = iota
	// Ready means the handler can accept exactly one request.
	Ready
)

// Waker is called by a handler that previously reported Pending once its
// state may have changed. A handler retains only the most recently supplied
// waker and calls it at most once per retention; spurious wakes are allowed
// and callers must simply re-poll.
type Waker func()

// Handler is a unit of work that accepts one request and asynchronously
// produces a response or failure.
//
// PollReady never blocks. A non-nil error means the readiness probe itself
// failed; that is unrelated to Pending and is not retried here.
//
// Invoke must only be called immediately after PollReady reported Ready for
// this handler. It consumes the request and returns the in-flight result;
// the caller owns the returned future from then on.
type Handler[Req, Res any] interface {
	PollReady(wake Waker) (Poll, error)
	Invoke(req Req) *future.Future[Res]
}
