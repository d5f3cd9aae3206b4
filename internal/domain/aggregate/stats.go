package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/matchrisk/internal/domain/matchup"
	"github.com/okian/matchrisk/internal/domain/numeric"
)

// crossingLevel is the survival value whose threshold is reported.
const crossingLevel = 0.5

// RoleStats summarizes the worst-matchup distribution of one role.
type RoleStats struct {
	ExpectedMin float64 `json:"expected_min"`
	Variance    float64 `json:"variance"`
	Std         float64 `json:"std"`
	// Crossing5050 is only meaningful when CrossingDefined is true.
	Crossing5050    float64 `json:"crossing_5050"`
	CrossingDefined bool    `json:"crossing_defined"`
}

// Crossing returns the 50/50 threshold and whether it exists.
func (r RoleStats) Crossing() (float64, bool) {
	return r.Crossing5050, r.CrossingDefined
}

// ExpectedMin is the integral of s over [0,1], which equals E[min] for a
// random variable bounded in [0,1].
func ExpectedMin(s Survival, o Options) (float64, error) {
	v, err := numeric.Integrate(s.At, 0, 1, o.Tolerance, o.MaxDepth)
	if err != nil {
		return 0, fmt.Errorf("expected min: %w", err)
	}
	return v, nil
}

// VarianceOfMin is E[min^2] - E[min]^2 with E[min^2] = integral of 2x s(x).
func VarianceOfMin(s Survival, expectedMin float64, o Options) (float64, error) {
	second, err := numeric.Integrate(func(x float64) float64 {
		return 2 * x * s.At(x)
	}, 0, 1, o.Tolerance, o.MaxDepth)
	if err != nil {
		return 0, fmt.Errorf("variance of min: %w", err)
	}
	v := second - expectedMin*expectedMin
	if v < 0 {
		// round-off on near-degenerate distributions
		v = 0
	}
	return v, nil
}

// Crossing5050 finds x* with s(x*) = 0.5 inside the configured bracket. When
// s is already below 0.5 at the low end, or still above it at the high end,
// there is no crossing and ErrNoRootInBracket is returned without running the
// root finder.
func Crossing5050(s Survival, o Options) (float64, error) {
	lo, hi := o.BracketLow, o.BracketHigh
	sLo, sHi := s.At(lo), s.At(hi)
	if sLo < crossingLevel || sHi > crossingLevel {
		return 0, fmt.Errorf("%w: s(%g)=%g, s(%g)=%g", ErrNoRootInBracket, lo, sLo, hi, sHi)
	}
	x, err := numeric.Brent(func(x float64) float64 {
		return s.At(x) - crossingLevel
	}, lo, hi, o.Tolerance)
	if err != nil {
		return 0, fmt.Errorf("crossing 50/50: %w", err)
	}
	return x, nil
}

// ComputeStats derives every RoleStats field from s. A missing crossing is
// recorded as undefined; integration failures are returned.
func ComputeStats(s Survival, o Options) (RoleStats, error) {
	mean, err := ExpectedMin(s, o)
	if err != nil {
		return RoleStats{}, err
	}
	variance, err := VarianceOfMin(s, mean, o)
	if err != nil {
		return RoleStats{}, err
	}
	stats := RoleStats{
		ExpectedMin: mean,
		Variance:    variance,
		Std:         math.Sqrt(variance),
	}

	x, err := Crossing5050(s, o)
	switch {
	case err == nil:
		stats.Crossing5050 = x
		stats.CrossingDefined = true
	case errors.Is(err, ErrNoRootInBracket):
	default:
		return RoleStats{}, err
	}
	return stats, nil
}

// CompareDistributions returns P(X_a < X_b) for independent posteriors a and
// b, computed as the integral of F_a(x) f_b(x) over [0,1].
func CompareDistributions(a, b matchup.WinDistribution, o Options) (float64, error) {
	v, err := numeric.Integrate(func(x float64) float64 {
		return a.CDF(x) * b.Prob(x)
	}, 0, 1, o.Tolerance, o.MaxDepth)
	if err != nil {
		return 0, fmt.Errorf("compare distributions: %w", err)
	}
	return v, nil
}
