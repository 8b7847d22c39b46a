// Package steer routes requests across a fixed, ordered set of handlers
// that all accept the same request type.
//
// A Steer gates invocation behind the readiness of every handler it owns:
// the caller polls the combinator until it reports Ready, then invokes it
// with a request, and the configured Picker decides which single handler
// serves that request. Per-handler readiness is tracked in a flag vector
// owned by the combinator; a handler's flag is set when its probe reports
// Ready and consumed when the handler is invoked, so a handler is never
// invoked without a fresh ready observation.
package steer
