// Package picker implements common routing policies for steer:
//
//   - Round Robin: sequential distribution across handlers
//   - Random: uniformly random handler selection
//   - Hash: CRC32 of a request-derived key for session affinity
//
// Load-aware selection is deliberately absent: a picker sees the handler
// slice but the steering layer already guarantees every handler is ready
// before a pick happens.
package picker
