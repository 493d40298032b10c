package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("connection reset")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), Policy{Attempts: 3, Delay: 5 * time.Millisecond}, func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errFlaky
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "5ms then 10ms backoff")
}

func TestDo_FailsWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(int) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDo_StopEndsImmediately(t *testing.T) {
	permanent := errors.New("already accepted")
	calls := 0
	err := Do(context.Background(), Default, func(int) error {
		calls++
		return Stop(permanent)
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Delay: time.Hour}, func(int) error {
		calls++
		cancel()
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestStop_Nil(t *testing.T) {
	assert.Nil(t, Stop(nil))
}
