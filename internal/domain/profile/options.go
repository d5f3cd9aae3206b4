package profile

import (
	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
)

// Option applies a configuration option to a Profile.
type Option func(*Profile)

// WithRoles sets the role set. Empty sets are ignored.
func WithRoles(roles []model.Role) Option {
	return func(p *Profile) {
		if len(roles) > 0 {
			p.roles = append([]model.Role(nil), roles...)
		}
	}
}

// WithAggregateOptions sets the numerical options for ComputeStats.
func WithAggregateOptions(o aggregate.Options) Option {
	return func(p *Profile) {
		p.numerics = o
	}
}

// WithRetainSurvival keeps survival functions after stats are computed.
func WithRetainSurvival(retain bool) Option {
	return func(p *Profile) {
		p.retainSurvival = retain
	}
}
