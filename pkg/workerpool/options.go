package workerpool

import (
	"github.com/okian/matchrisk/pkg/logger"
)

// Option applies a configuration option to a parallel map.
type Option func(*config)

type config struct {
	workers int
	name    string
	logger  logger.Logger
}

// WithWorkers sets the number of workers. Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithName sets the pool name used in logs.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
