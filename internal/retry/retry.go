// Package retry implements the backoff policy for transient I/O failures.
// Validation failures are never retried; only errors flagged retryable in
// the errinfo taxonomy are.
package retry

import (
	"context"
	"time"

	"draftdesk/engine/internal/errinfo"
)

// Policy controls retry attempts and backoff growth.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   int
}

// Default matches the engine-wide persistence policy: three attempts,
// one second initial delay, doubling.
func Default() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2}
}

// BackoffDuration returns the wait before the given retry attempt
// (1-based). Attempt 1 waits InitialDelay.
func (p Policy) BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	wait := p.InitialDelay
	for i := 1; i < attempt; i++ {
		wait *= time.Duration(p.Multiplier)
	}
	return wait
}

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff
// between attempts. Non-retryable errors abort immediately.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !Retryable(err) || attempt == policy.MaxAttempts {
			return err
		}
		if err := sleep(ctx, policy.BackoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// Retryable reports whether the error is a transient failure per the
// errinfo taxonomy.
func Retryable(err error) bool {
	info := errinfo.From(err)
	return info != nil && info.Retryable
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
