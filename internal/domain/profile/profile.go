// Package profile holds everything derived for one entity across its roles.
//
// A Profile moves through Uninitialized -> DataLoaded -> MatchupsComposed ->
// StatsComputed. Survival functions are dropped on entering StatsComputed
// unless the profile was built WithRetainSurvival(true); they can always be
// rebuilt from the records by loading again.
package profile

import (
	"fmt"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/matchup"
	"github.com/okian/matchrisk/internal/domain/model"
)

// State is a profile lifecycle stage.
type State int

// Lifecycle stages.
const (
	Uninitialized State = iota
	DataLoaded
	MatchupsComposed
	StatsComputed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case DataLoaded:
		return "data_loaded"
	case MatchupsComposed:
		return "matchups_composed"
	case StatsComputed:
		return "stats_computed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Profile is one entity's per-role aggregates. It is not safe for concurrent
// mutation; once built it may be read from many goroutines.
type Profile struct {
	id             string
	roles          []model.Role
	numerics       aggregate.Options
	retainSurvival bool

	state     State
	records   map[model.Role][]model.MatchupRecord
	playRates map[model.Role]float64
	matchups  map[model.Role]map[string]matchup.WinDistribution
	survival  map[model.Role]aggregate.Survival
	stats     map[model.Role]aggregate.RoleStats
}

// New returns an Uninitialized profile for id.
func New(id string, opts ...Option) *Profile {
	p := &Profile{
		id:       id,
		roles:    model.DefaultRoles(),
		numerics: aggregate.NewOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build runs Load, Compose and (optionally) ComputeStats.
func Build(id string, records map[model.Role][]model.MatchupRecord, withStats bool, opts ...Option) (*Profile, error) {
	p := New(id, opts...)
	if err := p.Load(records); err != nil {
		return nil, err
	}
	if err := p.Compose(); err != nil {
		return nil, err
	}
	if withStats {
		if err := p.ComputeStats(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ID returns the entity id.
func (p *Profile) ID() string { return p.id }

// State returns the current lifecycle stage.
func (p *Profile) State() State { return p.state }

// Roles returns the profile's role set.
func (p *Profile) Roles() []model.Role {
	return append([]model.Role(nil), p.roles...)
}

// Load validates and stores the entity's records for every role, computes
// play rates and moves to DataLoaded. Roles missing from records are treated
// as empty; roles outside the profile's role set are rejected. Loading again
// discards everything derived from the previous records.
func (p *Profile) Load(records map[model.Role][]model.MatchupRecord) error {
	known := make(map[model.Role]bool, len(p.roles))
	for _, role := range p.roles {
		known[role] = true
	}
	for role := range records {
		if !known[role] {
			return fmt.Errorf("%w: %s for %s", ErrUnknownRole, role, p.id)
		}
	}

	loaded := make(map[model.Role][]model.MatchupRecord, len(p.roles))
	for _, role := range p.roles {
		recs := records[role]
		for i, r := range recs {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("entity %s role %s record %d: %w", p.id, role, i, err)
			}
		}
		loaded[role] = append([]model.MatchupRecord{}, recs...)
	}

	p.records = loaded
	p.playRates = playRates(p.roles, loaded)
	p.matchups = nil
	p.survival = nil
	p.stats = nil
	p.state = DataLoaded
	return nil
}

// Compose builds one posterior per record and one survival function per role.
func (p *Profile) Compose() error {
	if p.state != DataLoaded {
		return fmt.Errorf("%w: compose from %s", ErrInvalidState, p.state)
	}

	matchups := make(map[model.Role]map[string]matchup.WinDistribution, len(p.roles))
	survival := make(map[model.Role]aggregate.Survival, len(p.roles))
	for _, role := range p.roles {
		recs := p.records[role]
		byOpponent := make(map[string]matchup.WinDistribution, len(recs))
		index := make(map[string]int, len(recs))
		dists := make([]matchup.WinDistribution, 0, len(recs))
		for _, r := range recs {
			d, err := matchup.FromMatchupRecord(r)
			if err != nil {
				return fmt.Errorf("entity %s role %s: %w", p.id, role, err)
			}
			byOpponent[r.OpponentID] = d
			// a repeated opponent replaces its earlier tally
			if i, seen := index[r.OpponentID]; seen {
				dists[i] = d
				continue
			}
			index[r.OpponentID] = len(dists)
			dists = append(dists, d)
		}
		matchups[role] = byOpponent
		survival[role] = aggregate.Compose(dists)
	}

	p.matchups = matchups
	p.survival = survival
	p.state = MatchupsComposed
	return nil
}

// ComputeStats derives RoleStats for every role and moves to StatsComputed.
func (p *Profile) ComputeStats() error {
	if p.state != MatchupsComposed {
		return fmt.Errorf("%w: compute stats from %s", ErrInvalidState, p.state)
	}

	stats := make(map[model.Role]aggregate.RoleStats, len(p.roles))
	for _, role := range p.roles {
		s, err := aggregate.ComputeStats(p.survival[role], p.numerics)
		if err != nil {
			return fmt.Errorf("entity %s role %s: %w", p.id, role, err)
		}
		stats[role] = s
	}

	p.stats = stats
	if !p.retainSurvival {
		p.survival = nil
		p.matchups = nil
	}
	p.state = StatsComputed
	return nil
}

// Survival returns the role's survival function.
func (p *Profile) Survival(role model.Role) (aggregate.Survival, error) {
	if err := p.checkRole(role); err != nil {
		return aggregate.Survival{}, err
	}
	switch {
	case p.state < MatchupsComposed:
		return aggregate.Survival{}, fmt.Errorf("%w: survival in %s", ErrInvalidState, p.state)
	case p.survival == nil:
		return aggregate.Survival{}, fmt.Errorf("%w: %s %s", ErrSurvivalDiscarded, p.id, role)
	}
	return p.survival[role], nil
}

// Matchup returns the posterior against one opponent in a role.
func (p *Profile) Matchup(role model.Role, opponentID string) (matchup.WinDistribution, bool) {
	d, ok := p.matchups[role][opponentID]
	return d, ok
}

// Stats returns the role's statistics.
func (p *Profile) Stats(role model.Role) (aggregate.RoleStats, error) {
	if err := p.checkRole(role); err != nil {
		return aggregate.RoleStats{}, err
	}
	if p.state != StatsComputed {
		return aggregate.RoleStats{}, fmt.Errorf("%w: stats in %s", ErrInvalidState, p.state)
	}
	return p.stats[role], nil
}

// AllStats returns a copy of every role's statistics.
func (p *Profile) AllStats() (map[model.Role]aggregate.RoleStats, error) {
	if p.state != StatsComputed {
		return nil, fmt.Errorf("%w: stats in %s", ErrInvalidState, p.state)
	}
	out := make(map[model.Role]aggregate.RoleStats, len(p.stats))
	for role, s := range p.stats {
		out[role] = s
	}
	return out, nil
}

// PlayRate is the share of the entity's observed games played in role.
// Zero before Load.
func (p *Profile) PlayRate(role model.Role) float64 {
	return p.playRates[role]
}

// PlayRates returns a copy of all play rates.
func (p *Profile) PlayRates() map[model.Role]float64 {
	out := make(map[model.Role]float64, len(p.playRates))
	for role, v := range p.playRates {
		out[role] = v
	}
	return out
}

// Records returns the loaded records of a role.
func (p *Profile) Records(role model.Role) []model.MatchupRecord {
	return append([]model.MatchupRecord(nil), p.records[role]...)
}

func (p *Profile) checkRole(role model.Role) error {
	for _, r := range p.roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRole, role)
}

// playRates splits observed games across roles; with no games at all every
// role gets 1/len(roles).
func playRates(roles []model.Role, records map[model.Role][]model.MatchupRecord) map[model.Role]float64 {
	games := make(map[model.Role]int, len(roles))
	total := 0
	for _, role := range roles {
		g := model.GamesPlayed(records[role])
		games[role] = g
		total += g
	}

	rates := make(map[model.Role]float64, len(roles))
	for _, role := range roles {
		if total == 0 {
			rates[role] = 1 / float64(len(roles))
			continue
		}
		rates[role] = float64(games[role]) / float64(total)
	}
	return rates
}
