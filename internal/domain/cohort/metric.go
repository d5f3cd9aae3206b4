package cohort

import (
	"fmt"
	"math"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
)

// Metric names a per-role scalar that can be pulled from every profile.
type Metric string

// Pullable metrics.
const (
	MetricExpectedMin  Metric = "expected_min"
	MetricVariance     Metric = "variance"
	MetricStd          Metric = "std"
	MetricCrossing5050 Metric = "crossing_5050"
	MetricPlayRate     Metric = "play_rate"
)

// Metrics lists every pullable metric.
func Metrics() []Metric {
	return []Metric{MetricExpectedMin, MetricVariance, MetricStd, MetricCrossing5050, MetricPlayRate}
}

// ParseMetric resolves a metric name.
func ParseMetric(name string) (Metric, error) {
	for _, m := range Metrics() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// NeedsStats reports whether the metric is read from role statistics.
func (m Metric) NeedsStats() bool { return m != MetricPlayRate }

// Value reads the metric from stats; an undefined crossing is NaN.
func (m Metric) Value(stats aggregate.RoleStats) float64 {
	switch m {
	case MetricExpectedMin:
		return stats.ExpectedMin
	case MetricVariance:
		return stats.Variance
	case MetricStd:
		return stats.Std
	case MetricCrossing5050:
		if x, ok := stats.Crossing(); ok {
			return x
		}
		return math.NaN()
	}
	return math.NaN()
}

// MetricFunc evaluates a scalar for one profile in one role.
type MetricFunc func(p *profile.Profile, role model.Role) (float64, error)

func (m Metric) eval(p *profile.Profile, role model.Role) (float64, error) {
	if m == MetricPlayRate {
		return p.PlayRate(role), nil
	}
	stats, err := p.Stats(role)
	if err != nil {
		return 0, err
	}
	return m.Value(stats), nil
}
