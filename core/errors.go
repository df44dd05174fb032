package core

import "errors"

// Normalized failure categories. Upstream provider detail never crosses the
// service boundary; callers branch on these with errors.Is and map them to
// transport-level responses.
var (
	// ErrServiceUnavailable is surfaced when the retry budget for transient
	// upstream faults is exhausted.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrGatewayTimeout is surfaced when the execution ceiling for a turn is
	// exceeded.
	ErrGatewayTimeout = errors.New("gateway timeout")

	// ErrInternal is surfaced for unclassified failures.
	ErrInternal = errors.New("internal error")

	// ErrConversationNotFound is returned by stores for unknown ids.
	ErrConversationNotFound = errors.New("conversation not found")
)
