// Package notifications pushes session outcomes to ntfy.
//
// When [notifications] ntfy_topic is empty a no-op implementation is
// returned, so callers publish unconditionally. Completed sessions that
// uploaded fewer frames than requested are flagged in the message so the
// shortfall is visible without reading logs.
package notifications
