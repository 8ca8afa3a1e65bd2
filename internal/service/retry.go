package service

import (
	"context"
	"time"
)

// RetryPolicy is the explicit backoff policy used by the dispatcher and the
// summary orchestrator. Delays grow exponentially from BaseDelay and are
// capped at MaxDelay when set.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the pause after the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Wait sleeps for the post-attempt delay, returning early if ctx is canceled.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
