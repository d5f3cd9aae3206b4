// Package service ties the collection pipeline, cohort analysis and ranking
// boards together and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchrisk/internal/adapters/fetch"
	"github.com/okian/matchrisk/internal/adapters/http/api"
	"github.com/okian/matchrisk/internal/adapters/ratelimit"
	"github.com/okian/matchrisk/internal/adapters/repository"
	"github.com/okian/matchrisk/internal/adapters/storage"
	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
	"github.com/okian/matchrisk/pkg/logger"
)

// Source is the upstream matchup provider.
type Source interface {
	fetch.Fetcher
	// Patch returns the patch the provider currently serves.
	Patch(ctx context.Context) (string, error)
	// Roster returns entity id -> display name for a patch.
	Roster(ctx context.Context, patch string) (map[string]string, error)
}

// Store persists rosters, per-role records and cohort snapshots.
type Store interface {
	SaveRoster(ctx context.Context, r storage.Roster) error
	LoadRoster(ctx context.Context) (storage.Roster, error)
	SaveRoleData(ctx context.Context, tier, patch string, data model.RoleData) error
	LoadRoleData(ctx context.Context, tier, patch string, roles []model.Role) (model.RoleData, error)
	SaveSnapshot(ctx context.Context, snap cohort.Snapshot) error
	LoadSnapshot(ctx context.Context, tier, patch string) (cohort.Snapshot, error)
}

// CollectResult summarizes one collection run.
type CollectResult struct {
	RunID    string
	Tier     string
	Patch    string
	Entities int
	Records  int
}

// Service implements the API dependencies for the analyzer.
type Service struct {
	mu sync.RWMutex

	source   Source
	store    Store
	limiter  ratelimit.Limiter
	rankings *repository.Rankings

	roles          []model.Role
	failFast       bool
	maxInFlight    int
	cohortWorkers  int
	aggOpts        aggregate.Options
	retainSurvival bool

	// loaded cohorts by tier
	snapshots map[string]cohort.Snapshot
	names     map[string]string

	logger logger.Logger
}

// New constructs a Service. source may be nil for a read-only service.
func New(source Source, store Store, opts ...Option) *Service {
	s := &Service{
		source:        source,
		store:         store,
		rankings:      repository.NewRankings(),
		roles:         model.DefaultRoles(),
		failFast:      true,
		cohortWorkers: 1,
		aggOpts:       aggregate.NewOptions(),
		snapshots:     make(map[string]cohort.Snapshot),
		names:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewTokenBucket(ratelimit.WithLogger(s.logger))
	}
	return s
}

// Collect pulls every roster entity's matchups for tier and persists them
// grouped by role. Nothing is written unless every fetch succeeds.
func (s *Service) Collect(ctx context.Context, tier string) (CollectResult, error) {
	if s.source == nil {
		return CollectResult{}, fmt.Errorf("collect: %w", ErrNoSource)
	}
	res := CollectResult{RunID: uuid.NewString(), Tier: tier}
	log := s.logger
	start := time.Now()

	patch, err := s.source.Patch(ctx)
	if err != nil {
		return res, fmt.Errorf("collect: patch: %w", err)
	}
	res.Patch = patch

	entities, err := s.source.Roster(ctx, patch)
	if err != nil {
		return res, fmt.Errorf("collect: roster: %w", err)
	}
	roster := storage.Roster{Patch: patch, Entities: entities}

	log.Info(ctx, "collection started",
		logger.String("run_id", res.RunID),
		logger.String("tier", model.TierLabel(tier)),
		logger.String("patch", patch),
		logger.Int("entities", len(entities)),
	)

	orch := fetch.NewOrchestrator(s.source,
		fetch.WithLimiter(s.limiter),
		fetch.WithFailFast(s.failFast),
		fetch.WithMaxInFlight(s.maxInFlight),
		fetch.WithLogger(s.logger),
	)
	payloads, err := orch.FetchAll(ctx, tier, roster.IDs())
	if err != nil {
		return res, fmt.Errorf("collect: %w", err)
	}

	data := model.GroupByRole(payloads)
	for _, role := range s.roles {
		for _, recs := range data[role] {
			res.Records += len(recs)
		}
	}
	res.Entities = len(payloads)

	if err := s.store.SaveRoster(ctx, roster); err != nil {
		return res, fmt.Errorf("collect: %w", err)
	}
	if err := s.store.SaveRoleData(ctx, tier, patch, data); err != nil {
		return res, fmt.Errorf("collect: %w", err)
	}

	log.Info(ctx, "collection finished",
		logger.String("run_id", res.RunID),
		logger.Int("records", res.Records),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// Build analyzes the stored records of tier and patch, persists the
// resulting snapshot and installs it for queries. An empty patch means the
// stored roster's patch.
func (s *Service) Build(ctx context.Context, tier, patch string) (cohort.Snapshot, error) {
	roster, err := s.store.LoadRoster(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cohort.Snapshot{}, fmt.Errorf("build: %w", err)
	}
	if patch == "" {
		if roster.Patch == "" {
			return cohort.Snapshot{}, fmt.Errorf("build: no patch given and no stored roster: %w", storage.ErrNotFound)
		}
		patch = roster.Patch
	}

	data, err := s.store.LoadRoleData(ctx, tier, patch, s.roles)
	if err != nil {
		return cohort.Snapshot{}, fmt.Errorf("build: %w", err)
	}

	population := roster.IDs()
	if roster.Patch != patch || len(population) == 0 {
		population = entitiesIn(data)
	}

	c, err := cohort.Build(ctx, tier, patch, population, data,
		cohort.WithWorkers(s.cohortWorkers),
		cohort.WithStats(true),
		cohort.WithRoles(s.roles),
		cohort.WithLogger(s.logger),
		cohort.WithProfileOptions(
			profile.WithAggregateOptions(s.aggOpts),
			profile.WithRetainSurvival(s.retainSurvival),
		),
	)
	if err != nil {
		return cohort.Snapshot{}, fmt.Errorf("build: %w", err)
	}

	snap := c.Snapshot()
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return cohort.Snapshot{}, fmt.Errorf("build: %w", err)
	}
	if err := s.install(ctx, snap, roster); err != nil {
		return cohort.Snapshot{}, err
	}
	return snap, nil
}

// Load installs a previously persisted snapshot. An empty patch means the
// stored roster's patch.
func (s *Service) Load(ctx context.Context, tier, patch string) error {
	roster, err := s.store.LoadRoster(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load: %w", err)
	}
	if patch == "" {
		patch = roster.Patch
	}
	snap, err := s.store.LoadSnapshot(ctx, tier, patch)
	if err != nil {
		return fmt.Errorf("load %s: %w", model.TierLabel(tier), err)
	}
	return s.install(ctx, snap, roster)
}

// install builds every board of the snapshot's tier, then swaps the boards
// and the snapshot in together.
func (s *Service) install(ctx context.Context, snap cohort.Snapshot, roster storage.Roster) error {
	boards := make(map[repository.BoardKey]*repository.TreapStore)
	for _, role := range snap.Roles {
		for _, m := range cohort.Metrics() {
			if m.NeedsStats() && !snap.HasStats {
				continue
			}
			values, err := snap.PullMetric(role, string(m))
			if err != nil {
				return fmt.Errorf("install %s/%s: %w", role, m, err)
			}
			// entities without observed games in the role stay off its boards
			for id := range values {
				if snap.Entities[id].Games[role] == 0 {
					delete(values, id)
				}
			}
			key := repository.BoardKey{Tier: snap.Tier, Role: role, Metric: string(m)}
			board, skipped, err := repository.BuildBoard(ctx, values, repository.WithOrder(boardOrder(m)))
			if err != nil {
				return fmt.Errorf("install %s: %w", key, err)
			}
			if skipped > 0 {
				s.logger.Debug(ctx, "undefined values left off board",
					logger.String("board", key.String()),
					logger.Int("skipped", skipped),
				)
			}
			boards[key] = board
		}
	}

	s.mu.Lock()
	if err := s.rankings.ReplaceTier(snap.Tier, boards); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("install: %w", err)
	}
	s.snapshots[snap.Tier] = snap
	if roster.Patch == snap.Patch {
		for id, name := range roster.Entities {
			s.names[id] = name
		}
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "cohort installed",
		logger.String("tier", model.TierLabel(snap.Tier)),
		logger.String("patch", snap.Patch),
		logger.Int("entities", len(snap.Entities)),
		logger.Int("boards", len(boards)),
	)
	return nil
}

// boardOrder ranks spread metrics lowest first and everything else highest
// first.
func boardOrder(m cohort.Metric) repository.Order {
	switch m {
	case cohort.MetricVariance, cohort.MetricStd:
		return repository.Ascending
	default:
		return repository.Descending
	}
}

// Rankings returns the head of a ranked metric.
func (s *Service) Rankings(ctx context.Context, q api.RankingQuery) ([]repository.Entry, error) {
	m, err := cohort.ParseMetric(q.Metric)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, err := s.snapshotLocked(q.Tier)
	if err != nil {
		return nil, err
	}
	if m.NeedsStats() && !snap.HasStats {
		return nil, fmt.Errorf("%w: %s", cohort.ErrStatsNotComputed, m)
	}
	if !hasRole(snap.Roles, q.Role) {
		return nil, fmt.Errorf("%w: %s", profile.ErrUnknownRole, q.Role)
	}

	board, err := s.rankings.Board(repository.BoardKey{Tier: q.Tier, Role: q.Role, Metric: string(m)})
	if err != nil {
		return nil, err
	}
	return board.TopN(ctx, q.Limit)
}

// Profile returns the persisted view of one entity, its display name and its
// rank on every board of the tier that lists it.
func (s *Service) Profile(ctx context.Context, tier, entityID string) (api.ProfileView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, err := s.snapshotLocked(tier)
	if err != nil {
		return api.ProfileView{}, err
	}
	e, ok := snap.Entities[entityID]
	if !ok {
		return api.ProfileView{}, fmt.Errorf("%w: %s", cohort.ErrUnknownEntity, entityID)
	}

	view := api.ProfileView{
		Name:   s.names[entityID],
		Entity: e,
		Ranks:  make(map[model.Role]map[string]int),
	}
	for _, key := range s.rankings.Keys() {
		if key.Tier != tier {
			continue
		}
		board, err := s.rankings.Board(key)
		if err != nil {
			return api.ProfileView{}, err
		}
		entry, err := board.Rank(ctx, entityID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return api.ProfileView{}, err
		}
		if view.Ranks[key.Role] == nil {
			view.Ranks[key.Role] = make(map[string]int)
		}
		view.Ranks[key.Role][key.Metric] = entry.Rank
	}
	return view, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	tiers := make(map[string]any, len(s.snapshots))
	for tier, snap := range s.snapshots {
		tiers[model.TierLabel(tier)] = map[string]any{
			"patch":     snap.Patch,
			"entities":  len(snap.Entities),
			"has_stats": snap.HasStats,
		}
	}
	s.mu.RUnlock()

	return map[string]any{
		"tiers":          tiers,
		"roles":          s.roles,
		"boards":         len(s.rankings.Keys()),
		"rankingEntries": s.rankings.Entries(),
	}
}

// snapshotLocked must be called with mu held.
func (s *Service) snapshotLocked(tier string) (cohort.Snapshot, error) {
	snap, ok := s.snapshots[tier]
	if !ok {
		return cohort.Snapshot{}, fmt.Errorf("%w: %s", api.ErrNoCohort, model.TierLabel(tier))
	}
	return snap, nil
}

func hasRole(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func entitiesIn(data model.RoleData) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, byEntity := range data {
		for id := range byEntity {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}
