// Package future provides a minimal one-shot asynchronous result type and
// a deadline race combinator over it. Handlers hand futures back to their
// callers; ownership transfers with the future, and whoever holds it
// decides how long to wait.
package future
