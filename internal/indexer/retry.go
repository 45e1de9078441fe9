package indexer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

// permanentError stops a retry loop immediately.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// retryPolicy retries RPC calls with doubling delays capped at maxRetryDelay.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func newRetryPolicy(maxRetries int, baseDelay time.Duration, logger *zap.Logger) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// do runs fn until it succeeds, returns a permanent error, or runs out of
// attempts. Every failure is logged under op with the given fields.
func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	delay := p.baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		p.logger.Warn(op+" failed", append(fields, zap.Int("attempt", attempt), zap.Error(err))...)
		if attempt > p.maxRetries || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
