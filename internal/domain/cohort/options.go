package cohort

import (
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
	"github.com/okian/matchrisk/pkg/logger"
)

// Option applies a configuration option to a cohort build.
type Option func(*buildConfig)

type buildConfig struct {
	workers     int
	withStats   bool
	roles       []model.Role
	profileOpts []profile.Option
	logger      logger.Logger
}

// WithWorkers sets the number of build workers; 1 builds sequentially.
func WithWorkers(n int) Option {
	return func(c *buildConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithStats controls whether role statistics are computed. Default true.
func WithStats(enabled bool) Option {
	return func(c *buildConfig) {
		c.withStats = enabled
	}
}

// WithRoles sets the role set of every profile.
func WithRoles(roles []model.Role) Option {
	return func(c *buildConfig) {
		if len(roles) > 0 {
			c.roles = append([]model.Role(nil), roles...)
		}
	}
}

// WithProfileOptions passes options through to every profile.
func WithProfileOptions(opts ...profile.Option) Option {
	return func(c *buildConfig) {
		c.profileOpts = append(c.profileOpts, opts...)
	}
}

// WithLogger sets a custom logger for the build.
func WithLogger(l logger.Logger) Option {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
