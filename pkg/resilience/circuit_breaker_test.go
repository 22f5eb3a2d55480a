package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	states map[string]int
	trips  int
}

func (o *recordingObserver) SetCircuitBreakerState(name string, state int) {
	if o.states == nil {
		o.states = map[string]int{}
	}
	o.states[name] = state
}

func (o *recordingObserver) RecordCircuitBreakerTrip(string) {
	o.trips++
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	observer := &recordingObserver{}
	config := DefaultCircuitBreakerConfig("kafka-producer")
	config.FailureThreshold = 2
	config.Timeout = time.Minute
	cb := NewCircuitBreaker(config, nil, observer)

	boom := errors.New("broker down")
	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.True(t, cb.IsOpen())
	assert.Equal(t, 2, observer.states["kafka-producer"])
	assert.Equal(t, 1, observer.trips)

	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerHonorsCanceledContext(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("x"), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResultSucceedsEventually(t *testing.T) {
	config := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}
	attempts := 0

	got, err := RetryWithResult(context.Background(), config, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("bad credentials")
	config := &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(err error) bool { return !errors.Is(err, permanent) },
	}
	attempts := 0

	err := Retry(context.Background(), config, func() error {
		attempts++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryReportsExhaustion(t *testing.T) {
	config := &RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	boom := errors.New("still down")

	err := Retry(context.Background(), config, func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
}
