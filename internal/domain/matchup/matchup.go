// Package matchup turns a single win/loss tally into a posterior belief over
// the true win probability of that matchup.
package matchup

import (
	"encoding/json"

	"github.com/okian/matchrisk/internal/domain/model"
	"gonum.org/v1/gonum/stat/distuv"
)

// losingThreshold is the win rate below which a matchup counts as losing.
const losingThreshold = 0.5

// WinDistribution is Beta(wins+1, games-wins+1): a uniform prior updated by
// the observed wins and losses. It is a value type and never changes after
// construction.
type WinDistribution struct {
	games int
	wins  int
	beta  distuv.Beta
}

// FromRecord builds the posterior for games played and wins.
func FromRecord(games, wins int) (WinDistribution, error) {
	if err := model.ValidateCounts(games, wins); err != nil {
		return WinDistribution{}, err
	}
	return WinDistribution{
		games: games,
		wins:  wins,
		beta: distuv.Beta{
			Alpha: float64(wins + 1),
			Beta:  float64(games - wins + 1),
		},
	}, nil
}

// FromMatchupRecord is FromRecord applied to a record.
func FromMatchupRecord(r model.MatchupRecord) (WinDistribution, error) {
	return FromRecord(r.GamesPlayed, r.Wins)
}

// Games returns the number of games the posterior was built from.
func (d WinDistribution) Games() int { return d.games }

// Wins returns the number of wins the posterior was built from.
func (d WinDistribution) Wins() int { return d.wins }

// Alpha is the first Beta shape parameter.
func (d WinDistribution) Alpha() float64 { return d.beta.Alpha }

// Beta is the second Beta shape parameter.
func (d WinDistribution) Beta() float64 { return d.beta.Beta }

// CDF returns P(p <= x).
func (d WinDistribution) CDF(x float64) float64 {
	if d.beta.Alpha == 0 {
		// zero value: treat as the uniform prior
		return clamp01(x)
	}
	return d.beta.CDF(x)
}

// Survival returns P(p > x) = 1 - CDF(x).
func (d WinDistribution) Survival(x float64) float64 {
	return 1 - d.CDF(x)
}

// Prob returns the density at x.
func (d WinDistribution) Prob(x float64) float64 {
	if d.beta.Alpha == 0 {
		if x < 0 || x > 1 {
			return 0
		}
		return 1
	}
	return d.beta.Prob(x)
}

// Mean is alpha / (alpha + beta).
func (d WinDistribution) Mean() float64 {
	a, b := d.shape()
	return a / (a + b)
}

// Variance is alpha*beta / ((alpha+beta)^2 (alpha+beta+1)).
func (d WinDistribution) Variance() float64 {
	a, b := d.shape()
	s := a + b
	return a * b / (s * s * (s + 1))
}

// ProbLosing is the probability that the true win rate is below 50%.
func (d WinDistribution) ProbLosing() float64 {
	return d.CDF(losingThreshold)
}

func (d WinDistribution) shape() (float64, float64) {
	if d.beta.Alpha == 0 {
		return 1, 1
	}
	return d.beta.Alpha, d.beta.Beta
}

type wireDistribution struct {
	Games int `json:"games"`
	Wins  int `json:"wins"`
}

// MarshalJSON encodes the tally the posterior was built from.
func (d WinDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDistribution{Games: d.games, Wins: d.wins})
}

// UnmarshalJSON rebuilds the posterior from an encoded tally.
func (d *WinDistribution) UnmarshalJSON(b []byte) error {
	var w wireDistribution
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	dist, err := FromRecord(w.Games, w.Wins)
	if err != nil {
		return err
	}
	*d = dist
	return nil
}

func clamp01(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return x
}
