// Package metrics provides real-time metrics collection for the steering
// daemon.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Total request and per-backend invocation counts
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Readiness failures and elapsed deadlines
//   - Health status tracking
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Events are emitted with non-blocking semantics
// and dropped under pressure rather than stalling dispatch.
package metrics
