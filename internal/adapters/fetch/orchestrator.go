// Package fetch pulls matchup payloads for many keys concurrently under a
// shared rate limit.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/matchrisk/internal/adapters/ratelimit"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
	"github.com/okian/matchrisk/pkg/metrics"
)

// Fetch outcome labels.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)

// Fetcher retrieves the oriented matchups of one key in one tier.
type Fetcher interface {
	Fetch(ctx context.Context, tier, key string) ([]model.RawMatchup, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, tier, key string) ([]model.RawMatchup, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, tier, key string) ([]model.RawMatchup, error) {
	return f(ctx, tier, key)
}

// Orchestrator fans a batch of keys out to a Fetcher.
type Orchestrator struct {
	fetcher     Fetcher
	limiter     ratelimit.Limiter
	failFast    bool
	maxInFlight int
	logger      logger.Logger
}

// NewOrchestrator creates an orchestrator with a default token bucket.
func NewOrchestrator(fetcher Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:  fetcher,
		failFast: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("fetch")
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewTokenBucket(ratelimit.WithLogger(o.logger))
	}
	return o
}

// FetchAll fetches every distinct key and returns the keyed payloads only if
// all of them succeed; otherwise the error is a *FetchFailure.
func (o *Orchestrator) FetchAll(ctx context.Context, tier string, keys []string) (map[string][]model.RawMatchup, error) {
	runID := uuid.NewString()
	log := o.logger
	keys = dedupe(keys)
	metrics.UpdateFetchBatchSize(len(keys))

	log.Info(ctx, "fetch batch started",
		logger.String("run_id", runID),
		logger.String("tier", model.TierLabel(tier)),
		logger.Int("keys", len(keys)),
		logger.Bool("fail_fast", o.failFast),
	)
	start := time.Now()

	var (
		g    *errgroup.Group
		gctx = ctx
	)
	if o.failFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}
	if o.maxInFlight > 0 {
		g.SetLimit(o.maxInFlight)
	}

	var (
		mu      sync.Mutex
		results = make(map[string][]model.RawMatchup, len(keys))
		failed  = make(map[string]error)
	)
	for _, key := range keys {
		g.Go(func() error {
			payload, err := o.fetchOne(gctx, tier, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// siblings canceled by an earlier failure are not failures of their own
				if gctx.Err() != nil && ctx.Err() == nil && errors.Is(err, context.Canceled) && len(failed) > 0 {
					return nil
				}
				failed[key] = err
				return err
			}
			results[key] = payload
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		ff := &FetchFailure{RunID: runID, Tier: tier, Errs: failed}
		for k := range failed {
			ff.Keys = append(ff.Keys, k)
		}
		sort.Strings(ff.Keys)
		metrics.RecordFetchBatchFailure()
		metrics.RecordErrorByComponent("fetch", "batch_failure")
		log.Error(ctx, "fetch batch failed",
			logger.String("run_id", runID),
			logger.Strings("failed_keys", ff.Keys),
			logger.Duration("took", time.Since(start)),
		)
		return nil, ff
	}

	log.Info(ctx, "fetch batch finished",
		logger.String("run_id", runID),
		logger.Int("keys", len(results)),
		logger.Duration("took", time.Since(start)),
	)
	return results, nil
}

// fetchOne waits for a token and performs a single fetch.
func (o *Orchestrator) fetchOne(ctx context.Context, tier, key string) ([]model.RawMatchup, error) {
	if err := o.limiter.Acquire(ctx); err != nil {
		metrics.RecordFetchAttempt(outcomeCanceled, 0)
		return nil, fmt.Errorf("key %s: %w", key, err)
	}

	start := time.Now()
	payload, err := o.fetcher.Fetch(ctx, tier, key)
	latency := float64(time.Since(start).Microseconds()) / 1000
	switch {
	case err == nil:
		metrics.RecordFetchAttempt(outcomeOK, latency)
		return payload, nil
	case ctx.Err() != nil:
		metrics.RecordFetchAttempt(outcomeCanceled, latency)
	default:
		metrics.RecordFetchAttempt(outcomeError, latency)
		o.logger.Warn(ctx, "fetch failed", logger.String("key", key), logger.Error(err))
	}
	return nil, fmt.Errorf("key %s: %w", key, err)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
