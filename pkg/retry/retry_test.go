package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithResult_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	res, err := DoWithResult(context.Background(), Config{MaxAttempts: 5, Backoff: LinearBackoff(time.Millisecond)},
		func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := DoWithResult(context.Background(), Config{
		MaxAttempts: 5,
		Backoff:     LinearBackoff(time.Millisecond),
		ShouldRetry: func(err error) bool { return errors.Is(err, errTransient) },
	}, func() (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Backoff: LinearBackoff(time.Millisecond)}, func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Do(ctx, Config{MaxAttempts: 3, Backoff: LinearBackoff(time.Hour)}, func() error {
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errTransient)
}

func TestExponentialBackoff_Grows(t *testing.T) {
	b := ExponentialBackoff(10 * time.Millisecond)
	first := b(1)
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.Less(t, first, 30*time.Millisecond+time.Nanosecond)
	assert.GreaterOrEqual(t, b(3), 80*time.Millisecond)
}
