// Package repository holds ranked views of cohort metrics.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/matchrisk/internal/domain/model"
)

// Entry represents one ranked entity.
type Entry struct {
	Rank     int     `json:"rank"`
	EntityID string  `json:"entity_id"`
	Value    float64 `json:"value"`
}

// Order is the ranking direction of a board.
type Order int

// Ranking directions.
const (
	// Descending ranks the largest value first.
	Descending Order = iota
	// Ascending ranks the smallest value first.
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// Board is one ranked metric.
type Board interface {
	// Upsert sets the value of an entity, replacing any previous value.
	Upsert(ctx context.Context, entityID string, value float64) error
	// Rank returns the current rank and value of an entity.
	// Returns ErrNotFound if the entity is unknown.
	Rank(ctx context.Context, entityID string) (Entry, error)
	// TopN returns the first n entries in board order.
	TopN(ctx context.Context, n int) ([]Entry, error)
	// Count returns the number of ranked entities.
	Count(ctx context.Context) int
}

// BoardKey identifies a board: one metric of one role in one tier.
type BoardKey struct {
	Tier   string
	Role   model.Role
	Metric string
}

func (k BoardKey) String() string {
	return fmt.Sprintf("%s/%s/%s", model.TierLabel(k.Tier), k.Role, k.Metric)
}
