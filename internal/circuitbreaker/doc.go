// Package circuitbreaker implements a three-state circuit breaker that
// gates backend readiness. Invocation outcomes feed the breaker; an open
// breaker makes its backend report not-ready until the reset timeout
// passes, at which point a single half-open probe is allowed through.
package circuitbreaker
