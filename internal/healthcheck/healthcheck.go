package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/steer/internal/backend"
	"github.com/angeloszaimis/steer/internal/metrics"
)

// HealthCheck periodically probes a backend's /health endpoint and updates
// its health status. A backend that comes back up wakes any poller parked
// on its readiness. Transitions are logged and reported to the collector.
func HealthCheck(
	ctx context.Context,
	backend *backend.Backend,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("backend", backend.URL().String()))
			return

		case <-ticker.C:
			healthURL := backend.URL().ResolveReference(&url.URL{Path: "/health"})

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, healthURL.String(), nil)
			if err != nil {
				continue
			}

			res, err := client.Do(req)
			if err != nil {
				reportChange(backend.SetHealthy(false), backend, false, logger, collector)
				continue
			}
			res.Body.Close()

			healthy := res.StatusCode == http.StatusOK
			reportChange(backend.SetHealthy(healthy), backend, healthy, logger, collector)
		}
	}
}

func reportChange(changed bool, b *backend.Backend, healthy bool, logger *slog.Logger, collector *metrics.Collector) {
	if !changed {
		return
	}

	if healthy {
		logger.Info("Backend is back up",
			slog.String("backend", b.URL().String()))
	} else {
		logger.Warn("Backend is down",
			slog.String("backend", b.URL().String()))
	}

	if collector != nil {
		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Backend:   b.URL().String(),
			Healthy:   healthy,
		})
	}
}
