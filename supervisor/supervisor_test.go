package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erni-gruppe/building-agents/core"
	"github.com/erni-gruppe/building-agents/inference"
)

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = 500 * time.Millisecond
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 4 * time.Millisecond
	return opts
}

func transientErr() error {
	return &inference.UpstreamError{Kind: inference.FaultProvider, Err: errors.New("overloaded")}
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	calls := 0

	result, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesTransientFaults(t *testing.T) {
	calls := 0

	result, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transientErr()
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	calls := 0
	retries := 0
	opts := fastOptions()
	opts.OnRetry = func(int, error) { retries++ }

	_, err := Execute(context.Background(), opts, func(context.Context) (string, error) {
		calls++
		return "", transientErr()
	})

	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestExecuteDoesNotRetryUnclassifiedErrors(t *testing.T) {
	calls := 0

	_, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("invalid request")
	})

	assert.ErrorIs(t, err, core.ErrInternal)
	assert.Equal(t, 1, calls)
}

func TestExecuteEnforcesCeiling(t *testing.T) {
	opts := fastOptions()
	opts.Timeout = 20 * time.Millisecond

	calls := 0
	_, err := Execute(context.Background(), opts, func(ctx context.Context) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, core.ErrGatewayTimeout)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesUpstreamTimeouts(t *testing.T) {
	calls := 0

	result, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &inference.UpstreamError{Kind: inference.FaultTimeout, Err: context.DeadlineExceeded}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestExecuteUpstreamTimeoutsCountAgainstBudget(t *testing.T) {
	calls := 0

	_, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		calls++
		return "", &inference.UpstreamError{Kind: inference.FaultTimeout, Err: context.DeadlineExceeded}
	})

	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Equal(t, 3, calls)
}

func TestExecuteNeverLeaksProviderDetail(t *testing.T) {
	_, err := Execute(context.Background(), fastOptions(), func(context.Context) (string, error) {
		return "", &inference.UpstreamError{Kind: inference.FaultRateLimit, Err: errors.New("org-1234 quota exceeded")}
	})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "org-1234")
}
