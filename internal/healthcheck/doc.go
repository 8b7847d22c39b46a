// Package healthcheck implements periodic health monitoring of backends.
// Health transitions feed both the steering layer's readiness protocol and
// the metrics collector.
package healthcheck
