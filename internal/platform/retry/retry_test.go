package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpulse/finpulse/internal/platform/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func() (struct{}, error) {
		calls++
		return struct{}{}, errors.New("still broken")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	slowPolicy := retry.Policy{MaxAttempts: 5, InitialBackoff: time.Minute}
	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(ctx, slowPolicy, func() (struct{}, error) {
			return struct{}{}, errors.New("transient")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	p := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		OnRetry:        func(attempt int, _ error, _ time.Duration) { attempts = append(attempts, attempt) },
	}

	_, _ = retry.Do(context.Background(), p, func() (struct{}, error) {
		return struct{}{}, errors.New("transient")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}
