package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retry loop
type Policy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// Default is three attempts with doubling backoff from 50ms
var Default = Policy{Attempts: 3, Delay: 50 * time.Millisecond, MaxDelay: time.Second}

type stopError struct{ err error }

func (s *stopError) Error() string { return s.err.Error() }
func (s *stopError) Unwrap() error { return s.err }

// Stop marks err as not worth retrying. Do returns the wrapped error unchanged.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Do calls fn until it succeeds, returns a Stop error, the attempts run out
// or ctx is done. attempt starts at 1. The delay doubles after each failure.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
