package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/steer/internal/metrics"
	"github.com/angeloszaimis/steer/pkg/future"
	"github.com/angeloszaimis/steer/pkg/steer"
)

type submission struct {
	req     *Request
	replyCh chan reply
}

type reply struct {
	fut *future.Future[*Response]
	err error
}

// Dispatcher is the single logical flow that owns a Steer. All requests
// funnel through its channel; the run loop waits for the combinator to be
// ready, invokes it, and hands the resulting future back to the submitter.
// The combinator is never touched from any other goroutine.
type Dispatcher struct {
	logger    *slog.Logger
	steerer   *steer.Steer[*Request, *Response]
	collector *metrics.Collector
	submitCh  chan submission
}

func NewDispatcher(logger *slog.Logger, s *steer.Steer[*Request, *Response], collector *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		steerer:   s,
		collector: collector,
		submitCh:  make(chan submission),
	}
}

// Run processes submissions until ctx is done. It must be running for
// Dispatch to make progress.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started")
	defer d.logger.Info("Dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-d.submitCh:
			sub.replyCh <- d.serve(sub.req)
		}
	}
}

func (d *Dispatcher) serve(req *Request) reply {
	// Readiness is gated on every backend: the picker may route anywhere,
	// so a single slow backend stalls all dispatch here.
	if err := d.steerer.Ready(req.Context()); err != nil {
		d.logger.Warn("Steering readiness failed",
			slog.String("client", req.ClientIP),
			slog.Any("err", err))

		d.emit(metrics.MetricEvent{
			Type:      metrics.EventReadinessFailed,
			Timestamp: time.Now(),
		})

		return reply{err: err}
	}

	return reply{fut: d.steerer.Invoke(req)}
}

// Dispatch submits req and returns the in-flight result of the backend it
// was routed to. Ownership of the future transfers to the caller.
func (d *Dispatcher) Dispatch(req *Request) (*future.Future[*Response], error) {
	sub := submission{req: req, replyCh: make(chan reply, 1)}

	select {
	case d.submitCh <- sub:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}

	select {
	case rep := <-sub.replyCh:
		return rep.fut, rep.err
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

func (d *Dispatcher) emit(event metrics.MetricEvent) {
	if d.collector != nil {
		d.collector.Emit(event)
	}
}
