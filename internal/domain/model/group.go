package model

import "sort"

// GroupByRole regroups fetched payloads (entity id -> oriented matchups) by
// role. Records keep the payload order within an entity.
func GroupByRole(payloads map[string][]RawMatchup) RoleData {
	out := make(RoleData)
	ids := make([]string, 0, len(payloads))
	for id := range payloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, m := range payloads[id] {
			byEntity, ok := out[m.Role]
			if !ok {
				byEntity = make(map[string][]MatchupRecord)
				out[m.Role] = byEntity
			}
			byEntity[id] = append(byEntity[id], MatchupRecord{
				EntityID:    id,
				OpponentID:  m.OpponentID,
				Role:        m.Role,
				GamesPlayed: m.GamesPlayed,
				Wins:        m.WinsForFirst,
			})
		}
	}
	return out
}

// GamesPlayed sums the games of a record list.
func GamesPlayed(recs []MatchupRecord) int {
	total := 0
	for _, r := range recs {
		total += r.GamesPlayed
	}
	return total
}
