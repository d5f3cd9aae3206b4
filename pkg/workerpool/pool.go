// Package workerpool runs independent tasks on a bounded set of workers.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchrisk/pkg/logger"
	"github.com/okian/matchrisk/pkg/metrics"
)

// Func is the task applied to every item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// active counts workers across all running maps.
var active atomic.Int64 //nolint:gochecknoglobals // shared worker gauge

// DefaultWorkers is half the CPUs, at least one.
func DefaultWorkers() int {
	if n := runtime.NumCPU() >> 1; n > 0 {
		return n
	}
	return 1
}

// Map applies fn to every item and returns the results in input order.
// The first error cancels the remaining tasks and is returned with no
// results. One worker runs the items in order on the calling goroutine.
func Map[T, R any](ctx context.Context, items []T, fn Func[T, R], opts ...Option) ([]R, error) {
	cfg := &config{
		workers: DefaultWorkers(),
		name:    "workerpool",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named(cfg.name)
	}

	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	workers := min(cfg.workers, len(items))

	metrics.UpdateWorkerActiveCount(int(active.Add(int64(workers))))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(active.Add(-int64(workers))))
	}()

	start := time.Now()
	cfg.logger.Debug(ctx, "parallel map started",
		logger.Int("items", len(items)),
		logger.Int("workers", workers),
	)

	var err error
	if workers == 1 {
		err = runSequential(ctx, items, results, fn)
	} else {
		err = runParallel(ctx, items, results, fn, workers)
	}
	if err != nil {
		cfg.logger.Warn(ctx, "parallel map aborted", logger.Error(err))
		return nil, err
	}

	cfg.logger.Debug(ctx, "parallel map finished",
		logger.Int("items", len(items)),
		logger.Duration("took", time.Since(start)),
	)
	return results, nil
}

func runSequential[T, R any](ctx context.Context, items []T, results []R, fn Func[T, R]) error {
	for i := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("workerpool: %w", err)
		}
		r, err := runTask(ctx, fn, items[i])
		if err != nil {
			return err
		}
		results[i] = r
	}
	return nil
}

func runParallel[T, R any](ctx context.Context, items []T, results []R, fn Func[T, R], workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range items {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return fmt.Errorf("workerpool: %w", gctx.Err())
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("workerpool: %w", err)
				}
				r, err := runTask(gctx, fn, items[i])
				if err != nil {
					return err
				}
				// each index is written by exactly one worker
				results[i] = r
			}
			return nil
		})
	}

	return g.Wait()
}

func runTask[T, R any](ctx context.Context, fn Func[T, R], item T) (R, error) {
	start := time.Now()
	r, err := fn(ctx, item)
	metrics.RecordWorkerTask(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordWorkerError()
	}
	return r, err
}
