// Package supervisor bounds specialist execution: one deadline over the
// whole attempt sequence, retries for transient upstream faults with capped
// exponential backoff, and normalized failure categories on the way out.
// Provider error detail stays in the logs; callers only ever see the
// sentinels from core.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/inference"
	"github.com/erni-gruppe/building-agents/logging"
)

// Options configures the execution supervisor.
type Options struct {
	// Timeout is the ceiling over the entire attempt sequence including
	// backoff waits. Exceeding it surfaces core.ErrGatewayTimeout.
	Timeout time.Duration

	// MaxAttempts bounds the total number of attempts, first try included.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the growing backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait between attempts.
	BackoffMultiplier float64

	// OnRetry is invoked before each retry wait, for metrics.
	OnRetry func(attempt int, err error)

	Logger logging.Logger
}

// DefaultOptions returns the production supervision parameters.
func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2,
		Logger:            logging.NoOpLogger{},
	}
}

// Execute runs fn under the supervision policy. Only transient-classified
// upstream faults are retried; anything else fails the sequence
// immediately. The returned error is always one of the core sentinels
// (wrapped), never raw provider detail.
func Execute[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	backoff := opts.InitialBackoff
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// Only the supervisor's own expired deadline is the ceiling
		// category. Provider-side timeouts arrive as transient upstream
		// faults and take the retry path like any other.
		if ctx.Err() != nil {
			opts.Logger.Error("supervisor.timeout", "attempt", attempt, "error", err.Error())
			return zero, fmt.Errorf("execution ceiling of %s exceeded: %w", opts.Timeout, core.ErrGatewayTimeout)
		}

		if !inference.IsTransient(err) {
			opts.Logger.Error("supervisor.unrecoverable", "attempt", attempt, "error", err.Error())
			return zero, fmt.Errorf("unrecoverable execution failure: %w", core.ErrInternal)
		}

		opts.Logger.Warn("supervisor.attempt.failed",
			"attempt", attempt, "max_attempts", opts.MaxAttempts, "error", err.Error())

		if attempt == opts.MaxAttempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("execution ceiling of %s exceeded: %w", opts.Timeout, core.ErrGatewayTimeout)
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * opts.BackoffMultiplier)
		if backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
	}

	return zero, fmt.Errorf("retries exhausted after %d attempts: %w", opts.MaxAttempts, core.ErrServiceUnavailable)
}
