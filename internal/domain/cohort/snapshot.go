package cohort

import (
	"fmt"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
)

// EntitySnapshot is the persisted view of one profile.
type EntitySnapshot struct {
	// Games counts observed games per role.
	Games     map[model.Role]int                 `json:"games"`
	PlayRates map[model.Role]float64             `json:"play_rates"`
	Stats     map[model.Role]aggregate.RoleStats `json:"stats,omitempty"`
}

// Snapshot is the persisted view of a cohort: play rates and role statistics
// without records or survival functions.
type Snapshot struct {
	Tier     string                    `json:"tier"`
	Patch    string                    `json:"patch"`
	Roles    []model.Role              `json:"roles"`
	HasStats bool                      `json:"has_stats"`
	Entities map[string]EntitySnapshot `json:"entities"`
}

// Snapshot captures the cohort's derived values.
func (c *Cohort) Snapshot() Snapshot {
	s := Snapshot{
		Tier:     c.tier,
		Patch:    c.patch,
		Roles:    c.Roles(),
		HasStats: c.withStats,
		Entities: make(map[string]EntitySnapshot, len(c.ids)),
	}
	for _, id := range c.ids {
		p := c.profiles[id]
		e := EntitySnapshot{
			Games:     make(map[model.Role]int, len(c.roles)),
			PlayRates: p.PlayRates(),
		}
		for _, role := range c.roles {
			e.Games[role] = model.GamesPlayed(p.Records(role))
		}
		if c.withStats {
			// stats exist for every profile of a cohort built with stats
			e.Stats, _ = p.AllStats()
		}
		s.Entities[id] = e
	}
	return s
}

// PullMetric reads a named metric for role from the snapshot.
func (s Snapshot) PullMetric(role model.Role, field string) (map[string]float64, error) {
	m, err := ParseMetric(field)
	if err != nil {
		return nil, err
	}
	if m.NeedsStats() && !s.HasStats {
		return nil, fmt.Errorf("%w: %s needs role statistics", ErrStatsNotComputed, m)
	}
	known := false
	for _, r := range s.Roles {
		known = known || r == role
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", profile.ErrUnknownRole, role)
	}

	out := make(map[string]float64, len(s.Entities))
	for id, e := range s.Entities {
		if m == MetricPlayRate {
			out[id] = e.PlayRates[role]
			continue
		}
		out[id] = m.Value(e.Stats[role])
	}
	return out, nil
}
