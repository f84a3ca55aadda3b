// Package retryx wraps remote backing-store calls with bounded,
// linearly-delayed retries on transient failures.
package retryx

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/offerhub/userfed/internal/logging"
)

// Policy describes the retry schedule: up to MaxAttempts total attempts,
// waiting InitialDelay before the first retry and DelayIncrement more before
// each subsequent one (1s, 3s, 5s, ... with the defaults).
type Policy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	DelayIncrement time.Duration
}

// DefaultPolicy returns the standard schedule: 5 attempts, 1s initial delay,
// 2s increment.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialDelay:   1 * time.Second,
		DelayIncrement: 2 * time.Second,
	}
}

// linearBackoff yields InitialDelay, then adds DelayIncrement per step.
type linearBackoff struct {
	next      time.Duration
	increment time.Duration
}

func (b *linearBackoff) Next() (time.Duration, bool) {
	d := b.next
	b.next += b.increment
	return d, false
}

// Executor runs operations against the backing store, retrying transient
// failures according to its Policy. Non-transient errors propagate
// immediately; after the final attempt the original error propagates
// unchanged.
type Executor struct {
	policy   Policy
	classify func(error) bool
	logger   logging.Logger
}

// NewExecutor builds an Executor with the given policy, classifying errors
// with IsTransient.
func NewExecutor(policy Policy, logger logging.Logger) *Executor {
	return &Executor{policy: policy, classify: IsTransient, logger: logger}
}

// Do invokes fn, retrying per the policy while the returned error is
// classified transient. The op name is only used in retry log entries.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := &linearBackoff{next: e.policy.InitialDelay, increment: e.policy.DelayIncrement}
	maxRetries := e.policy.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	var lastErr error

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(maxRetries), b), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !e.classify(err) {
			return err
		}
		if attempt < e.policy.MaxAttempts {
			delay := e.policy.InitialDelay + time.Duration(attempt-1)*e.policy.DelayIncrement
			e.logger.Warn(ctx, "transient backing-store failure, will retry",
				"op", op, "attempt", attempt, "delay", delay.String(), "error", err.Error())
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}
