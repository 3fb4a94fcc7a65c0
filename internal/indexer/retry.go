package indexer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// retryPolicy retries transient RPC failures with doubling, capped delays.
// Oversized log queries are not retried; the caller narrows the range instead.
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
		baseDelay = defaultRetryDelay
	}
	return retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	delay := p.baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > p.maxRetries || isRangeTooLarge(err) || errors.Is(err, context.Canceled) {
			return err
		}

		p.logger.Warn(op+" failed",
			append(fields, zap.Error(err), zap.Int("attempt", attempt), zap.Duration("retry_in", delay))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(delay*2, maxRetryDelay)
	}
}
