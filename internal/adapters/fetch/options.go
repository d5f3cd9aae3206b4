package fetch

import (
	"github.com/okian/matchrisk/internal/adapters/ratelimit"
	"github.com/okian/matchrisk/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithLimiter sets the limiter every fetch waits on.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.limiter = l
		}
	}
}

// WithFailFast controls whether the first failure cancels the other fetches.
func WithFailFast(enabled bool) Option {
	return func(o *Orchestrator) {
		o.failFast = enabled
	}
}

// WithMaxInFlight caps concurrent fetches; 0 means unlimited.
func WithMaxInFlight(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxInFlight = n
		}
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
