package ratelimit

import (
	"time"

	"github.com/okian/matchrisk/pkg/logger"
)

// Option applies a configuration option to the TokenBucket.
type Option func(*TokenBucket)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	// After fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WithCapacity sets the bucket capacity. Fractional capacities are
// truncated to whole tokens.
func WithCapacity(capacity float64) Option {
	return func(b *TokenBucket) {
		if capacity >= 1 {
			b.capacity = capacity
		}
	}
}

// WithRefillRate sets the refill rate in tokens per second.
func WithRefillRate(perSecond float64) Option {
	return func(b *TokenBucket) {
		if perSecond > 0 {
			b.rate = perSecond
		}
	}
}

// WithPollInterval sets how long a waiting caller sleeps between attempts.
func WithPollInterval(d time.Duration) Option {
	return func(b *TokenBucket) {
		if d > 0 {
			b.poll = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(b *TokenBucket) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithLogger sets a custom logger for the limiter.
func WithLogger(l logger.Logger) Option {
	return func(b *TokenBucket) {
		if l != nil {
			b.logger = l
		}
	}
}
