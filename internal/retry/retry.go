package retry

import (
	"context"
	"time"
)

// Policy holds configuration for retry logic.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultPolicy returns three attempts starting at 100ms and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2,
	}
}

// Delay returns the wait before the given attempt (1-based, attempt > 1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 2; i < attempt; i++ {
		d *= mult
	}
	return time.Duration(d)
}

// Do runs op until it succeeds, returns a non-retryable error, or attempts run out.
// onRetry, if set, is called before each wait with the attempt that just failed.
func Do(ctx context.Context, p Policy, retryable func(error) bool, onRetry func(attempt int, err error), op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil || !retryable(err) || attempt == attempts {
			return err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return err
		}
	}
	return err
}
