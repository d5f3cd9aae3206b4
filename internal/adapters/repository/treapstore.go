package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/matchrisk/pkg/metrics"
)

// Treap-based, in-memory Board implementation.
//
// Ordering: key ASC, then entityID ASC (deterministic), where the key is the
// fixed-point value negated for descending boards. In-order traversal yields
// the board from first to last.

// valueScale controls fixed-point scaling from float64.
const valueScale = 1_000_000_000_000 // 12 decimal places

type valueFP int64

func toFixedPoint(x float64) valueFP {
	scaled := x * valueScale
	switch {
	case scaled >= math.MaxInt64:
		return valueFP(math.MaxInt64)
	case scaled <= math.MinInt64+1:
		return valueFP(math.MinInt64 + 1)
	}
	return valueFP(math.Round(scaled))
}

// treap node
type node struct {
	id    string
	key   valueFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aKey, aID) should appear before (bKey, bID).
func less(aKey valueFP, aID string, bKey valueFP, bID string) bool {
	if aKey != bKey {
		return aKey < bKey
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, key valueFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, key: key, prio: prio, size: 1}
	}
	if less(key, id, n.key, n.id) {
		n.left = insert(n.left, id, key, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, key, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, key valueFP) *node {
	if n == nil {
		return nil
	}
	if key == n.key && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, key)
		}
	} else if less(key, id, n.key, n.id) {
		n.left = deleteNode(n.left, id, key)
	} else {
		n.right = deleteNode(n.right, id, key)
	}
	fix(n)
	return n
}

// record stores the key and the exact value of an entity.
type record struct {
	key   valueFP
	value float64
}

// collect appends up to limit entries in board order.
func collect(n *node, limit int, byID map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, byID, out)
	if len(*out) < limit {
		if rec, ok := byID[n.id]; ok {
			*out = append(*out, Entry{EntityID: n.id, Value: rec.value})
		}
	}
	if len(*out) < limit {
		collect(n.right, limit, byID, out)
	}
}

// TreapStore is a Board safe for concurrent use.
type TreapStore struct {
	order Order

	mu   sync.RWMutex
	root *node
	byID map[string]record
}

// NewTreapStore constructs an empty board, descending unless configured.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		order: Descending,
		byID:  make(map[string]record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Order returns the ranking direction.
func (s *TreapStore) Order() Order { return s.order }

func (s *TreapStore) keyOf(value float64) valueFP {
	k := toFixedPoint(value)
	if s.order == Descending {
		return -k
	}
	return k
}

// Upsert implements Board.Upsert with O(log n) expected time. NaN values are
// rejected with ErrInvalidValue.
func (s *TreapStore) Upsert(_ context.Context, entityID string, value float64) error {
	if math.IsNaN(value) {
		return fmt.Errorf("%w: NaN for %s", ErrInvalidValue, entityID)
	}
	key := s.keyOf(value)

	s.mu.Lock()
	if old, ok := s.byID[entityID]; ok {
		s.root = deleteNode(s.root, entityID, old.key)
	}
	s.byID[entityID] = record{key: key, value: value}
	s.root = insert(s.root, entityID, key, rand.Uint64())
	s.mu.Unlock()

	metrics.RecordRankingUpdate()
	return nil
}

// Rank returns the current rank and value of an entity.
func (s *TreapStore) Rank(_ context.Context, entityID string) (Entry, error) {
	start := time.Now()
	defer recordQuery(start)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[entityID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}

	all := make([]Entry, 0, len(s.byID))
	collect(s.root, len(s.byID), s.byID, &all)
	assignRanksWithTies(all)
	for _, e := range all {
		if e.EntityID == entityID {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, entityID)
}

// TopN returns the first n entries.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer recordQuery(start)

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collect(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of ranked entities.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func recordQuery(start time.Time) {
	metrics.RecordRankingQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// assignRanksWithTies assigns dense ranks: entries with the same value share
// a rank and the next distinct value takes the following rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || toFixedPoint(entries[i].Value) != toFixedPoint(entries[i-1].Value) {
			rank++
		}
		entries[i].Rank = rank
	}
}
