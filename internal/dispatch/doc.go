// Package dispatch connects the HTTP front door to the steering layer.
//
// The Dispatcher is the single goroutine that owns the steering combinator,
// honoring its sequential-access contract: requests are funneled over a
// channel, the combinator is driven to readiness, invoked, and the
// resulting future is handed back to the submitting request handler. The
// FrontDoor races that future against the configured invoke deadline and
// writes the response, a timeout, or a failure back to the client.
package dispatch
