// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Role is a positional category an entity can be played in.
type Role string

// Known roles.
const (
	RoleMiddle  Role = "MIDDLE"
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleSupport Role = "DUO_SUPPORT"
	RoleCarry   Role = "DUO_CARRY"
)

// DefaultRoles returns the role set used when none is configured.
func DefaultRoles() []Role {
	return []Role{RoleMiddle, RoleTop, RoleJungle, RoleSupport, RoleCarry}
}

// HighTier is the label of the unnamed tier covering the highest ranks.
const HighTier = "HIGH"

// TierLabel returns the display and storage label of a tier.
func TierLabel(tier string) string {
	if tier == "" {
		return HighTier
	}
	return tier
}

// ParseTier maps a tier label back to a tier; HIGH and the empty label are
// the unnamed tier.
func ParseTier(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == HighTier {
		return ""
	}
	return label
}

// MatchupRecord is the win/loss tally of one entity against one opponent in one role.
type MatchupRecord struct {
	EntityID    string `json:"entity_id"`
	OpponentID  string `json:"opponent_id"`
	Role        Role   `json:"role"`
	GamesPlayed int    `json:"games_played"`
	Wins        int    `json:"wins"`
}

// Validate reports whether the tally is consistent.
func (r MatchupRecord) Validate() error {
	return ValidateCounts(r.GamesPlayed, r.Wins)
}

// ValidateCounts checks 0 <= wins <= games.
func ValidateCounts(games, wins int) error {
	switch {
	case games < 0:
		return fmt.Errorf("%w: negative games %d", ErrInvalidRecord, games)
	case wins < 0:
		return fmt.Errorf("%w: negative wins %d", ErrInvalidRecord, wins)
	case wins > games:
		return fmt.Errorf("%w: wins %d exceed games %d", ErrInvalidRecord, wins, games)
	}
	return nil
}

// RawMatchup is one element of a fetched matchup payload, oriented so that
// "first" is the entity the payload was fetched for.
type RawMatchup struct {
	GamesPlayed  int    `json:"games_played"`
	WinsForFirst int    `json:"wins_for_first"`
	OpponentID   string `json:"opponent_id"`
	Role         Role   `json:"role"`
}

// RoleData maps role -> entity id -> that entity's records in the role.
type RoleData map[Role]map[string][]MatchupRecord

// ForEntity collects one entity's records for every role in roles. Roles with
// no data for the entity get an empty (non-nil) list.
func (d RoleData) ForEntity(id string, roles []Role) map[Role][]MatchupRecord {
	out := make(map[Role][]MatchupRecord, len(roles))
	for _, role := range roles {
		recs := d[role][id]
		if recs == nil {
			recs = []MatchupRecord{}
		}
		out[role] = recs
	}
	return out
}
