// Package backend implements the HTTP-backed request handler consumed by
// the steering layer. It tracks health, in-flight slots, and response time
// monitoring, and speaks the poll/wake readiness protocol.
package backend
