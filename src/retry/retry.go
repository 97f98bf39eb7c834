// Package retry runs an operation under a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultAttempts = 60
	DefaultDelay    = time.Second
)

// Policy retries a failed operation up to Attempts times in total, waiting a
// fixed Delay between attempts. There is no jitter and no growth.
type Policy struct {
	Attempts int
	Delay    time.Duration

	// Retryable decides whether an error may be retried. Nil retries every
	// error. A rejected error is returned unchanged without waiting.
	Retryable func(error) bool

	// Timer drives the wait between attempts. Nil uses a real timer.
	Timer backoff.Timer

	Log *zap.Logger
}

// Default returns the policy used for registry pushes: 60 attempts, 1s apart.
func Default() *Policy {
	return &Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Run calls op until it succeeds or the attempt budget is spent. The last
// error is returned as-is, never wrapped.
func (p *Policy) Run(ctx context.Context, name string, op func() error) error {
	attempts := p.attempts()
	log := p.logger().With(zap.String("operation", name))

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.delay()), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotifyWithTimer(func() error {
		attempt++
		err := op()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, next time.Duration) {
		log.Info("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("remaining", attempts-attempt),
			zap.Duration("delay", next),
			zap.Error(err))
	}, p.Timer)

	if err != nil {
		log.Warn("giving up", zap.Int("attempts", attempt), zap.Error(err))
	}
	return err
}

func (p *Policy) attempts() int {
	if p.Attempts <= 0 {
		return DefaultAttempts
	}
	return p.Attempts
}

func (p *Policy) delay() time.Duration {
	if p.Delay <= 0 {
		return DefaultDelay
	}
	return p.Delay
}

func (p *Policy) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
