// Package ratelimit gates outgoing requests with a lazily refilled token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchrisk/pkg/logger"
	"github.com/okian/matchrisk/pkg/metrics"
	"golang.org/x/time/rate"
)

// Default limiter configuration constants.
const (
	DefaultCapacity     = 5.0
	DefaultRefillRate   = 5.0
	DefaultPollInterval = time.Second
)

// Limiter hands out request tokens.
type Limiter interface {
	// Acquire blocks until a token is taken or ctx is done.
	Acquire(ctx context.Context) error
}

// TokenBucket is a Limiter without a background goroutine: a rate.Limiter
// refills lazily on every attempt in proportion to the time since the last
// one, and a caller that finds less than one token sleeps for the poll
// interval before trying again. Waiting callers are not served in any
// particular order.
type TokenBucket struct {
	capacity float64
	rate     float64
	poll     time.Duration
	clock    Clock
	logger   logger.Logger

	bucket *rate.Limiter
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(opts ...Option) *TokenBucket {
	b := &TokenBucket{
		capacity: DefaultCapacity,
		rate:     DefaultRefillRate,
		poll:     DefaultPollInterval,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("ratelimit")
	}
	// a fresh rate.Limiter is full at its first use
	b.bucket = rate.NewLimiter(rate.Limit(b.rate), int(b.capacity))
	return b
}

// Acquire takes one token, waiting as long as needed. The only error is ctx
// being done, in which case no token was taken.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	start := b.clock.Now()
	waits := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("acquire token: %w", err)
		}
		if now := b.clock.Now(); b.bucket.AllowN(now, 1) {
			waited := now.Sub(start)
			metrics.RecordLimiterAcquire(float64(waited.Microseconds())/1000, b.bucket.TokensAt(now))
			if waits > 0 {
				b.logger.Debug(ctx, "token acquired after wait",
					logger.Int("polls", waits),
					logger.Duration("waited", waited),
				)
			}
			return nil
		}

		waits++
		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire token: %w", ctx.Err())
		case <-b.clock.After(b.poll):
		}
	}
}

// Available reports the token count after refilling.
func (b *TokenBucket) Available() float64 {
	return b.bucket.TokensAt(b.clock.Now())
}
