package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	sentinel := errors.New("element not found")
	calls := 0
	retries := 0

	err := Do(context.Background(), Policy{
		Attempts: 3,
		Delay:    time.Millisecond,
		OnRetry:  func(int, error) { retries++ },
	}, func(context.Context) error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestValueReturnsResult(t *testing.T) {
	attempts := 0
	got, err := Value(context.Background(), Policy{Attempts: 2, Delay: time.Millisecond}, func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("transient")
		}
		return "12.5%", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "12.5%", got)
}

func TestDoRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{Attempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("should not retry")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Policy{Attempts: 3, Delay: time.Minute}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail then cancel")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 2*time.Second, p.Delay)
}
