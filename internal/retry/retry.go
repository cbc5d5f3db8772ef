// Package retry provides the shared exponential-backoff-with-full-jitter
// executor used by both the Release Index Client's orchestrator-level
// retry and the Downloader's internal retry.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures an Execute call. The zero value is not usable; use
// Default().
type Policy struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
	MaxAttempts uint64
}

// Default returns the engine's standard curve: base 1s, factor 2,
// full-jitter cap at 10s, max 3 retries (4 total attempts).
func Default() Policy {
	return Policy{
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 3,
	}
}

// Permanent wraps an error to signal that Execute must not retry it,
// regardless of remaining attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Execute runs op, retrying per p's curve on any error that is not wrapped
// with Permanent, until it succeeds, a Permanent error is returned, the
// attempt budget is exhausted, or ctx is cancelled.
func Execute(ctx context.Context, p Policy, logger *slog.Logger, op func() error) error {
	if logger == nil {
		logger = slog.Default()
	}

	eb := backoff.NewExponentialBackOff()
	// backoff draws each delay from [interval*(1-f), interval*(1+f)]; with
	// f=1 and the interval halved, that is full jitter: delay drawn
	// uniformly from [0, computed interval], never above MaxDelay.
	eb.InitialInterval = p.BaseDelay / 2
	eb.Multiplier = p.Factor
	eb.MaxInterval = p.MaxDelay / 2
	eb.RandomizationFactor = 1.0

	var bo backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(eb, p.MaxAttempts)
	}
	bo = backoff.WithContext(bo, ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				logger.Warn("retry: permanent failure, not retrying", "attempt", attempt, "error", perm.Unwrap())
			} else {
				logger.Warn("retry: attempt failed, will retry", "attempt", attempt, "error", err)
			}
		}
		return err
	}, bo)
}
