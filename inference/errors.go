package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FaultKind classifies upstream failures for the retry policy. Only the
// kinds enumerated here are considered transient; everything else fails the
// turn immediately.
type FaultKind string

const (
	// FaultProvider marks generic provider-side faults (5xx and transport
	// errors).
	FaultProvider FaultKind = "provider"
	// FaultTimeout marks upstream timeouts.
	FaultTimeout FaultKind = "timeout"
	// FaultRateLimit marks upstream rate limiting (429).
	FaultRateLimit FaultKind = "rate_limit"
)

// UpstreamError wraps a provider error with its transient classification.
// The wrapped error never crosses the service boundary.
type UpstreamError struct {
	Kind FaultKind
	Err  error
}

// Error implements error.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s fault: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying provider error for logging.
func (e *UpstreamError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a classified upstream fault eligible
// for retry.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// classifyStatus wraps err as an UpstreamError when the HTTP status or the
// context state marks it transient; otherwise err is returned unchanged.
func classifyStatus(status int, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &UpstreamError{Kind: FaultTimeout, Err: err}
	case status == http.StatusTooManyRequests:
		return &UpstreamError{Kind: FaultRateLimit, Err: err}
	case status >= http.StatusInternalServerError, status == 0:
		// status 0 covers transport-level failures with no HTTP response.
		return &UpstreamError{Kind: FaultProvider, Err: err}
	default:
		return err
	}
}

// Classify is the exported form of classifyStatus for provider adapters.
func Classify(status int, err error) error { return classifyStatus(status, err) }
