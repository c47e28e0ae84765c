// Package notifications publishes import session milestones to ntfy.
//
// NewService returns a no-op when no topic is configured, so callers can
// publish unconditionally. Delivery failures are returned to the caller, which
// is expected to log them and carry on.
package notifications
