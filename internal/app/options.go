package service

import (
	"github.com/okian/matchrisk/internal/adapters/ratelimit"
	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRoles restricts the roles collected and analyzed.
func WithRoles(roles []model.Role) Option {
	return func(s *Service) {
		if len(roles) > 0 {
			s.roles = append([]model.Role(nil), roles...)
		}
	}
}

// WithLimiter sets the limiter shared by every upstream request.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithFailFast toggles cancellation of in-flight fetches on first failure.
func WithFailFast(enabled bool) Option {
	return func(s *Service) {
		s.failFast = enabled
	}
}

// WithMaxInFlight caps concurrent upstream fetches; 0 means unbounded.
func WithMaxInFlight(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxInFlight = n
		}
	}
}

// WithCohortWorkers sets the number of profile build workers.
func WithCohortWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cohortWorkers = n
		}
	}
}

// WithAggregateOptions sets the numerical options for role statistics.
func WithAggregateOptions(o aggregate.Options) Option {
	return func(s *Service) {
		s.aggOpts = o
	}
}

// WithRetainSurvival keeps survival functions on built profiles.
func WithRetainSurvival(retain bool) Option {
	return func(s *Service) {
		s.retainSurvival = retain
	}
}
