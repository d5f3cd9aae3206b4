package aggregate

import "github.com/okian/matchrisk/internal/domain/numeric"

// Options tunes the numerical work behind the role statistics.
type Options struct {
	// Tolerance is the absolute tolerance for integrals and roots.
	Tolerance float64
	// BracketLow and BracketHigh bound the 50/50 root search.
	BracketLow  float64
	BracketHigh float64
	// MaxDepth caps the bisection depth of the adaptive integrator.
	MaxDepth int
}

// Option applies a configuration option to Options.
type Option func(*Options)

// WithTolerance sets the absolute tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.Tolerance = tol
		}
	}
}

// WithBracket sets the root-finding bracket. Invalid brackets are ignored.
func WithBracket(lo, hi float64) Option {
	return func(o *Options) {
		if lo < hi {
			o.BracketLow = lo
			o.BracketHigh = hi
		}
	}
}

// WithMaxDepth sets the integrator's bisection limit.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		if depth > 0 {
			o.MaxDepth = depth
		}
	}
}

// NewOptions returns defaults (tolerance 1e-8, bracket [0,1]) with opts applied.
func NewOptions(opts ...Option) Options {
	o := Options{
		Tolerance:   numeric.DefaultTolerance,
		BracketLow:  0,
		BracketHigh: 1,
		MaxDepth:    numeric.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
