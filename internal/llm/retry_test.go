package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry avoids real backoff sleeps in tests.
var fastRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BackoffFactor:  2.0,
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastRetry, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RecoversAfterTransientError(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastRetry, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("still down")
	calls := 0
	_, err := withRetry(context.Background(), fastRetry, func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("bad request")
	cfg := fastRetry
	cfg.RetryableFunc = func(err error) bool { return false }

	calls := 0
	_, err := withRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, fastRetry, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("never seen")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	cfg := fastRetry
	cfg.InitialBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := withRetry(ctx, cfg, func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("withRetry did not return after cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestWithRetry_NoRetryConfig(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), NoRetry, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("fail once")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestJitter(t *testing.T) {
	base := 100 * time.Millisecond

	t.Run("zero factor returns input", func(t *testing.T) {
		assert.Equal(t, base, jitter(base, 0))
	})

	t.Run("stays within factor bounds", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d := jitter(base, 0.1)
			assert.GreaterOrEqual(t, d, 90*time.Millisecond)
			assert.LessOrEqual(t, d, 110*time.Millisecond)
		}
	})
}

func TestBackendError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := &BackendError{Endpoint: "http://localhost:11434/v1", Err: inner}

	assert.ErrorIs(t, err, ErrBackendUnreachable)
	assert.Contains(t, err.Error(), "localhost:11434")
}
