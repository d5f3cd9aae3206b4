// Package aggregate composes matchup posteriors into the survival function of
// an entity's worst matchup in a role and derives statistics from it.
//
// All matchups are treated as independent: the probability that every true
// win rate exceeds x is the product of the individual survival functions.
package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/okian/matchrisk/internal/domain/matchup"
)

// Kind tags the Survival variant.
type Kind int

// Survival variants.
const (
	// KindEmpty is the constant function 1 (no data, unconstrained).
	KindEmpty Kind = iota
	// KindComposed is the product over a non-empty list of posteriors.
	KindComposed
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindComposed:
		return "composed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Survival maps a threshold x to P(min_i p_i > x). It holds the posteriors
// themselves rather than a chain of closures and evaluates on demand.
type Survival struct {
	dists []matchup.WinDistribution
}

// Empty returns the survival function of a role with no matchups.
func Empty() Survival { return Survival{} }

// Compose builds the joint survival function of dists. The input slice is
// copied, so later changes to it do not leak in.
func Compose(dists []matchup.WinDistribution) Survival {
	if len(dists) == 0 {
		return Empty()
	}
	cp := make([]matchup.WinDistribution, len(dists))
	copy(cp, dists)
	return Survival{dists: cp}
}

// Kind reports which variant s is.
func (s Survival) Kind() Kind {
	if len(s.dists) == 0 {
		return KindEmpty
	}
	return KindComposed
}

// Len is the number of composed matchups.
func (s Survival) Len() int { return len(s.dists) }

// Distributions returns a copy of the composed posteriors.
func (s Survival) Distributions() []matchup.WinDistribution {
	cp := make([]matchup.WinDistribution, len(s.dists))
	copy(cp, s.dists)
	return cp
}

// At evaluates the survival function at x.
func (s Survival) At(x float64) float64 {
	p := 1.0
	for _, d := range s.dists {
		p *= d.Survival(x)
		if p == 0 {
			return 0
		}
	}
	return p
}

// CDF is the distribution function of the worst matchup's win rate.
func (s Survival) CDF(x float64) float64 { return 1 - s.At(x) }

type wireSurvival struct {
	Kind     string                    `json:"kind"`
	Matchups []matchup.WinDistribution `json:"matchups,omitempty"`
}

// MarshalJSON encodes the variant and its posteriors.
func (s Survival) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSurvival{Kind: s.Kind().String(), Matchups: s.dists})
}

// UnmarshalJSON decodes a value written by MarshalJSON.
func (s *Survival) UnmarshalJSON(b []byte) error {
	var w wireSurvival
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindEmpty.String():
		*s = Empty()
	case KindComposed.String():
		if len(w.Matchups) == 0 {
			return fmt.Errorf("composed survival without matchups")
		}
		*s = Compose(w.Matchups)
	default:
		return fmt.Errorf("unknown survival kind %q", w.Kind)
	}
	return nil
}
