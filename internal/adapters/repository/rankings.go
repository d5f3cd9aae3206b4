package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/matchrisk/pkg/metrics"
)

// Rankings is a registry of boards. Boards are built off to the side and a
// tier's boards are swapped in together, so readers never see a half-filled
// board or a mix of old and new boards of one tier.
type Rankings struct {
	mu     sync.RWMutex
	boards map[BoardKey]*TreapStore
}

// NewRankings returns an empty registry.
func NewRankings() *Rankings {
	return &Rankings{boards: make(map[BoardKey]*TreapStore)}
}

// BuildBoard fills a new board from values. NaN values are left out; the
// number left out is returned.
func BuildBoard(ctx context.Context, values map[string]float64, opts ...Option) (*TreapStore, int, error) {
	board := NewTreapStore(opts...)
	skipped := 0
	for id, v := range values {
		err := board.Upsert(ctx, id, v)
		if errors.Is(err, ErrInvalidValue) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return board, skipped, nil
}

// ReplaceTier swaps in every board of tier at once. Boards of tier missing
// from boards are dropped; keys of other tiers are rejected.
func (r *Rankings) ReplaceTier(tier string, boards map[BoardKey]*TreapStore) error {
	for key := range boards {
		if key.Tier != tier {
			return fmt.Errorf("%w: %s is not in tier %s", ErrTierMismatch, key, tier)
		}
	}

	r.mu.Lock()
	for key := range r.boards {
		if key.Tier == tier {
			delete(r.boards, key)
		}
	}
	for key, b := range boards {
		r.boards[key] = b
	}
	total := r.totalLocked()
	r.mu.Unlock()

	metrics.UpdateRankingEntries(total)
	return nil
}

// Board returns the board for key.
func (r *Rankings) Board(key BoardKey) (Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBoard, key)
	}
	return b, nil
}

// Keys returns every board key in a stable order.
func (r *Rankings) Keys() []BoardKey {
	r.mu.RLock()
	keys := make([]BoardKey, 0, len(r.boards))
	for k := range r.boards {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Entries returns the number of entries across all boards.
func (r *Rankings) Entries() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalLocked()
}

func (r *Rankings) totalLocked() int {
	total := 0
	for _, b := range r.boards {
		total += b.Count(context.Background())
	}
	return total
}
