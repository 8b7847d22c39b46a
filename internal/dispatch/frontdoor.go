package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/steer/internal/metrics"
	"github.com/angeloszaimis/steer/pkg/future"
)

// FrontDoor is the HTTP entry point. It turns each inbound request into a
// dispatch.Request, submits it to the dispatcher, races the returned
// future against the invoke deadline, and writes the outcome back.
type FrontDoor struct {
	logger        *slog.Logger
	dispatcher    *Dispatcher
	invokeTimeout time.Duration
	collector     *metrics.Collector
}

func NewFrontDoor(logger *slog.Logger, d *Dispatcher, invokeTimeout time.Duration, collector *metrics.Collector) *FrontDoor {
	return &FrontDoor{
		logger:        logger,
		dispatcher:    d,
		invokeTimeout: invokeTimeout,
		collector:     collector,
	}
}

func (fd *FrontDoor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	fd.logger.Info("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	fd.emit(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
	})

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req := NewRequest(r.Context(), r.Method, r.URL.RequestURI(), r.Header.Clone(), body, clientIP)

	fut, err := fd.dispatcher.Dispatch(req)
	if err != nil {
		fd.logger.Warn("No backend available", slog.String("client", clientIP), slog.Any("err", err))
		http.Error(w, "No backend available", http.StatusServiceUnavailable)
		return
	}

	res, err := future.Race(fut, fd.invokeTimeout).Wait(r.Context())
	duration := time.Since(req.Received)

	switch {
	case errors.Is(err, future.ErrElapsed):
		fd.logger.Warn("Invoke deadline elapsed",
			slog.String("client", clientIP),
			slog.Duration("after", fd.invokeTimeout))

		fd.emit(metrics.MetricEvent{
			Type:      metrics.EventDeadlineElapsed,
			Timestamp: time.Now(),
			Duration:  duration,
		})

		http.Error(w, "Backend deadline elapsed", http.StatusGatewayTimeout)
		return

	case err != nil:
		fd.logger.Error("Backend invocation failed",
			slog.String("client", clientIP),
			slog.Any("err", err))
		http.Error(w, "Backend request failed", http.StatusBadGateway)
		return
	}

	fd.emit(metrics.MetricEvent{
		Type:       metrics.EventInvokeCompleted,
		Timestamp:  time.Now(),
		Backend:    res.ServedBy,
		Duration:   duration,
		StatusCode: res.StatusCode,
	})

	fd.logger.Info("Request served",
		slog.String("client", clientIP),
		slog.String("backend", res.ServedBy),
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", duration))

	for k, vals := range res.Header {
		w.Header()[k] = vals
	}
	w.Header().Set("X-Backend-Server", res.ServedBy)
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (fd *FrontDoor) emit(event metrics.MetricEvent) {
	if fd.collector != nil {
		fd.collector.Emit(event)
	}
}
