// Package cohort indexes the profiles of every entity in one tier and patch.
package cohort

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
	"github.com/okian/matchrisk/pkg/logger"
	"github.com/okian/matchrisk/pkg/metrics"
	"github.com/okian/matchrisk/pkg/workerpool"
)

// Cohort maps entity id to profile for one (tier, patch). It is read-only
// after Build and safe for concurrent reads.
type Cohort struct {
	tier      string
	patch     string
	roles     []model.Role
	withStats bool
	ids       []string
	profiles  map[string]*profile.Profile
}

// Build creates one profile per population id from data. Entities missing
// from a role get an empty record list. Any profile error aborts the build.
func Build(ctx context.Context, tier, patch string, population []string, data model.RoleData, opts ...Option) (*Cohort, error) {
	cfg := &buildConfig{
		workers:   workerpool.DefaultWorkers(),
		withStats: true,
		roles:     model.DefaultRoles(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("cohort")
	}

	ids := uniqueIDs(population)
	profileOpts := append([]profile.Option{profile.WithRoles(cfg.roles)}, cfg.profileOpts...)
	start := time.Now()

	built, err := workerpool.Map(ctx, ids, func(_ context.Context, id string) (*profile.Profile, error) {
		p, err := profile.Build(id, data.ForEntity(id, cfg.roles), cfg.withStats, profileOpts...)
		if err != nil {
			metrics.RecordProfileError()
			if errors.Is(err, aggregate.ErrIntegrationFailure) {
				metrics.RecordIntegrationFailure()
			}
			return nil, err
		}
		return p, nil
	}, workerpool.WithWorkers(cfg.workers), workerpool.WithName("cohort-build"), workerpool.WithLogger(cfg.logger))
	if err != nil {
		cfg.logger.Error(ctx, "cohort build failed",
			logger.String("tier", tier),
			logger.String("patch", patch),
			logger.Error(err),
		)
		return nil, fmt.Errorf("build cohort %s/%s: %w", model.TierLabel(tier), patch, err)
	}

	c := &Cohort{
		tier:      tier,
		patch:     patch,
		roles:     cfg.roles,
		withStats: cfg.withStats,
		ids:       ids,
		profiles:  make(map[string]*profile.Profile, len(built)),
	}
	for _, p := range built {
		c.profiles[p.ID()] = p
	}
	if cfg.withStats {
		c.recordUndefinedCrossings()
	}

	took := time.Since(start)
	metrics.RecordCohortBuild(model.TierLabel(tier), len(ids), float64(took.Milliseconds()))
	cfg.logger.Info(ctx, "cohort built",
		logger.String("tier", model.TierLabel(tier)),
		logger.String("patch", patch),
		logger.Int("profiles", len(ids)),
		logger.Bool("stats", cfg.withStats),
		logger.Duration("took", took),
	)
	return c, nil
}

// Tier returns the cohort's tier label; empty means the highest tiers.
func (c *Cohort) Tier() string { return c.tier }

// Patch returns the cohort's patch.
func (c *Cohort) Patch() string { return c.patch }

// Len returns the number of profiles.
func (c *Cohort) Len() int { return len(c.ids) }

// Roles returns the role set the cohort was built with.
func (c *Cohort) Roles() []model.Role { return append([]model.Role(nil), c.roles...) }

// HasStats reports whether role statistics were computed.
func (c *Cohort) HasStats() bool { return c.withStats }

// IDs returns the entity ids in sorted order.
func (c *Cohort) IDs() []string { return append([]string(nil), c.ids...) }

// Profile returns the profile of one entity.
func (c *Cohort) Profile(id string) (*profile.Profile, error) {
	p, ok := c.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	return p, nil
}

// EvalMetric applies fn to every profile for role.
func (c *Cohort) EvalMetric(role model.Role, fn MetricFunc) (map[string]float64, error) {
	if !c.knownRole(role) {
		return nil, fmt.Errorf("%w: %s", profile.ErrUnknownRole, role)
	}
	out := make(map[string]float64, len(c.ids))
	for _, id := range c.ids {
		v, err := fn(c.profiles[id], role)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", id, err)
		}
		out[id] = v
	}
	return out, nil
}

// PullMetric reads a named metric from every profile for role.
func (c *Cohort) PullMetric(role model.Role, field string) (map[string]float64, error) {
	m, err := ParseMetric(field)
	if err != nil {
		return nil, err
	}
	if m.NeedsStats() && !c.withStats {
		return nil, fmt.Errorf("%w: %s needs role statistics", ErrStatsNotComputed, m)
	}
	return c.EvalMetric(role, m.eval)
}

func (c *Cohort) knownRole(role model.Role) bool {
	for _, r := range c.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c *Cohort) recordUndefinedCrossings() {
	for _, id := range c.ids {
		all, err := c.profiles[id].AllStats()
		if err != nil {
			continue
		}
		for role, s := range all {
			if !s.CrossingDefined {
				metrics.RecordCrossingUndefined(string(role))
			}
		}
	}
}

func uniqueIDs(population []string) []string {
	seen := make(map[string]struct{}, len(population))
	ids := make([]string, 0, len(population))
	for _, id := range population {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
