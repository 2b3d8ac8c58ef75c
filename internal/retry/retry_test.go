package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestPolicy_Do_SucceedsFirstAttempt(t *testing.T) {
	attempts, err := fastPolicy().Do(context.Background(), func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPolicy_Do_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return false, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Do_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("unavailable")
	attempts, err := fastPolicy().Do(context.Background(), func(ctx context.Context) (bool, error) {
		return true, transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, attempts)
}

func TestPolicy_Do_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Minute,
		MaxBackoff:     time.Minute,
		Multiplier:     2.0,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Do(ctx, func(ctx context.Context) (bool, error) {
		return true, errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Do_BackoffIsCapped(t *testing.T) {
	p := Policy{
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     10.0,
	}

	start := time.Now()
	attempts, err := p.Do(context.Background(), func(ctx context.Context) (bool, error) {
		return true, errors.New("transient")
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	// Without the cap the waits would be 1ms + 10ms + 100ms.
	assert.Less(t, elapsed, 100*time.Millisecond)
}
