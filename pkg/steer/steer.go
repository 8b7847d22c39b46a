package steer

import (
	"context"
	"errors"
	"fmt"

	"github.com/angeloszaimis/steer/pkg/future"
)

// ErrNoHandlers is returned by New when the handler slice is empty.
var ErrNoHandlers = errors.New("steer: no handlers")

// Steer routes each request to exactly one of a fixed set of handlers,
// chosen by a Picker, while aggregating the handlers' readiness protocol
// into a single readiness gate.
//
// Because the picker may route a request to any handler, PollReady only
// reports Ready once every handler is ready. A slow handler therefore
// stalls dispatch to all of them (head-of-line blocking); that is the
// price of a race-free invoke contract.
//
// A Steer is owned by a single logical flow. It holds no locks: calling
// PollReady or Invoke concurrently requires external synchronization.
type Steer[Req, Res any] struct {
	picker   Picker[Req, Res]
	handlers []Handler[Req, Res]
	ready    []bool
}

// New creates a Steer over handlers, in order. The order is significant:
// it is the index space the picker selects from. An empty handler slice
// is rejected with ErrNoHandlers.
func New[Req, Res any](handlers []Handler[Req, Res], picker Picker[Req, Res]) (*Steer[Req, Res], error) {
	if len(handlers) == 0 {
		return nil, ErrNoHandlers
	}

	return &Steer[Req, Res]{
		picker:   picker,
		handlers: handlers,
		ready:    make([]bool, len(handlers)),
	}, nil
}

// PollReady probes handlers in index order until all of them are ready.
// Handlers that already reported Ready since their last invocation are
// skipped; their flags are trusted until consumed by Invoke.
//
// The first handler to report Pending suspends the whole check: wake is
// handed to that handler and PollReady returns Pending without touching
// the rest. The first handler whose probe fails aborts the check and the
// error is returned verbatim; handlers later in the order are not probed
// that round.
func (s *Steer[Req, Res]) PollReady(wake Waker) (Poll, error) {
	for i, h := range s.handlers {
		if s.ready[i] {
			continue
		}

		p, err := h.PollReady(wake)
		if err != nil {
			return Pending, err
		}
		if p == Pending {
			return Pending, nil
		}

		s.ready[i] = true
	}

	return Ready, nil
}

// Invoke routes req to the handler the picker selects and returns that
// handler's in-flight result. The chosen handler's readiness flag is
// consumed: it must be re-observed through PollReady before the handler
// may be invoked again.
//
// Invoke must only be called immediately after PollReady reported Ready,
// with no intervening invocation. Violating that, or a picker returning
// an out-of-range index, is a logic error and panics.
func (s *Steer[Req, Res]) Invoke(req Req) *future.Future[Res] {
	idx := s.picker.Pick(req, s.handlers)
	if idx < 0 || idx >= len(s.handlers) {
		panic(fmt.Sprintf("steer: picker returned index %d with %d handlers", idx, len(s.handlers)))
	}
	if !s.ready[idx] {
		panic(fmt.Sprintf("steer: invoked handler %d without a fresh ready observation", idx))
	}

	s.ready[idx] = false
	return s.handlers[idx].Invoke(req)
}

// Len returns the number of handlers.
func (s *Steer[Req, Res]) Len() int {
	return len(s.handlers)
}

// Ready drives PollReady until it reports Ready, parking between polls
// until a handler wakes it or ctx is done. It is the bridge between the
// non-blocking poll protocol and callers that are ordinary goroutines.
func (s *Steer[Req, Res]) Ready(ctx context.Context) error {
	wakeCh := make(chan struct{}, 1)
	wake := func() {
		select {
		case wakeCh <- struct{}{}:
		default:
		}
	}

	for {
		p, err := s.PollReady(wake)
		if err != nil {
			return err
		}
		if p == Ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wakeCh:
		}
	}
}
