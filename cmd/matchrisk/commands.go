package main

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/matchrisk/internal/adapters/champion"
	"github.com/okian/matchrisk/internal/adapters/ratelimit"
	"github.com/okian/matchrisk/internal/adapters/storage"
	app "github.com/okian/matchrisk/internal/app"
	"github.com/okian/matchrisk/internal/config"
	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
	"github.com/spf13/cobra"
)

// cli holds state shared by the subcommands.
type cli struct {
	cfg   *config.Config
	tiers []string
	patch string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "matchrisk",
		Short:         "Worst-matchup risk analysis per role",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringSliceVar(&c.tiers, "tier", nil, "tiers to process (HIGH for the unfiltered tier); defaults to the configured tiers")
	root.PersistentFlags().StringVar(&c.patch, "patch", "", "patch to analyze; defaults to the stored roster's patch")

	root.AddCommand(
		&cobra.Command{
			Use:   "collect",
			Short: "Fetch matchups for every roster entity and store them by role",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.collect(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "build",
			Short: "Build cohort snapshots from stored matchups",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.build(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve rankings and profiles over HTTP",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.serve(cmd.Context())
			},
		},
	)
	return root
}

// setup loads configuration and sets up logging.
func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// selectedTiers returns the tiers named by flags or configuration.
func (c *cli) selectedTiers() []string {
	if len(c.tiers) == 0 {
		return c.cfg.TierList()
	}
	out := make([]string, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, model.ParseTier(t))
	}
	return out
}

// newService wires the service from configuration.
func (c *cli) newService(withSource bool) *app.Service {
	cfg := c.cfg
	log := logger.Get()

	var source app.Source
	if withSource {
		source = champion.NewClient(
			champion.WithBaseURL(cfg.APIBaseURL),
			champion.WithDDragonURL(cfg.DDragonBaseURL),
			champion.WithAPIKey(cfg.APIKey),
			champion.WithMatchupLimit(cfg.MatchupLimit),
			champion.WithTimeout(cfg.HTTPTimeout()),
			champion.WithLogger(log.Named("champion")),
		)
	}
	limiter := ratelimit.NewTokenBucket(
		ratelimit.WithCapacity(cfg.LimiterCapacity),
		ratelimit.WithRefillRate(cfg.LimiterRefillRate),
		ratelimit.WithPollInterval(cfg.LimiterPollInterval()),
		ratelimit.WithLogger(log.Named("ratelimit")),
	)
	store := storage.NewFileStore(cfg.DataDir, storage.WithLogger(log.Named("storage")))

	return app.New(source, store,
		app.WithLogger(log.Named("service")),
		app.WithRoles(cfg.RoleList()),
		app.WithLimiter(limiter),
		app.WithFailFast(cfg.FetchFailFast),
		app.WithMaxInFlight(cfg.FetchMaxInFlight),
		app.WithCohortWorkers(cfg.CohortWorkers),
		app.WithRetainSurvival(cfg.RetainSurvival),
		app.WithAggregateOptions(aggregate.NewOptions(
			aggregate.WithTolerance(cfg.IntegrationTolerance),
			aggregate.WithMaxDepth(cfg.IntegrationMaxDepth),
			aggregate.WithBracket(cfg.BracketLow, cfg.BracketHigh),
		)),
	)
}

func (c *cli) collect(ctx context.Context) error {
	svc := c.newService(true)
	for _, tier := range c.selectedTiers() {
		res, err := svc.Collect(ctx, tier)
		if err != nil {
			return fmt.Errorf("tier %s: %w", model.TierLabel(tier), err)
		}
		logger.Get().Info(ctx, "tier collected",
			logger.String("tier", model.TierLabel(tier)),
			logger.String("patch", res.Patch),
			logger.Int("entities", res.Entities),
			logger.Int("records", res.Records),
		)
	}
	return nil
}

func (c *cli) build(ctx context.Context) error {
	svc := c.newService(false)
	for _, tier := range c.selectedTiers() {
		snap, err := svc.Build(ctx, tier, c.patch)
		if err != nil {
			return fmt.Errorf("tier %s: %w", model.TierLabel(tier), err)
		}
		logger.Get().Info(ctx, "tier built",
			logger.String("tier", model.TierLabel(tier)),
			logger.String("patch", snap.Patch),
			logger.Int("entities", len(snap.Entities)),
		)
	}
	return nil
}
