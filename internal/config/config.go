// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/matchrisk/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// DataDir is the root of the file store.
	DataDir string `koanf:"data_dir"`

	// Tiers is a comma separated tier list; HIGH names the unfiltered tier.
	Tiers string `koanf:"tiers"`
	// Roles is a comma separated role list.
	Roles string `koanf:"roles"`

	APIBaseURL     string `koanf:"api_base_url"`
	APIKey         string `koanf:"api_key"`
	DDragonBaseURL string `koanf:"ddragon_base_url"`
	MatchupLimit   int    `koanf:"matchup_limit"`
	HTTPTimeoutMS  int    `koanf:"http_timeout_ms"`

	// Token bucket shared by every upstream request.
	LimiterCapacity       float64 `koanf:"limiter_capacity"`
	LimiterRefillRate     float64 `koanf:"limiter_refill_rate"`
	LimiterPollIntervalMS int     `koanf:"limiter_poll_interval_ms"`

	FetchFailFast    bool `koanf:"fetch_fail_fast"`
	FetchMaxInFlight int  `koanf:"fetch_max_in_flight"`

	// CohortWorkers bounds parallel profile construction; 1 runs sequentially.
	CohortWorkers int `koanf:"cohort_workers"`

	IntegrationTolerance float64 `koanf:"integration_tolerance"`
	IntegrationMaxDepth  int     `koanf:"integration_max_depth"`
	BracketLow           float64 `koanf:"bracket_low"`
	BracketHigh          float64 `koanf:"bracket_high"`
	RetainSurvival       bool    `koanf:"retain_survival"`

	// MaxRankingLimit caps GET /rankings?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`
}

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DataDir:               "data",
		Tiers:                 "BRONZE,SILVER,GOLD,PLATINUM,HIGH",
		Roles:                 "MIDDLE,TOP,JUNGLE,DUO_SUPPORT,DUO_CARRY",
		APIBaseURL:            "http://api.champion.gg",
		DDragonBaseURL:        "http://ddragon.leagueoflegends.com",
		MatchupLimit:          1000,
		HTTPTimeoutMS:         30_000,
		LimiterCapacity:       5,
		LimiterRefillRate:     5,
		LimiterPollIntervalMS: 1000,
		FetchFailFast:         true,
		FetchMaxInFlight:      0,
		CohortWorkers:         1,
		IntegrationTolerance:  1e-8,
		IntegrationMaxDepth:   50,
		BracketLow:            0,
		BracketHigh:           1,
		MaxRankingLimit:       200,
	}
}

// TierList returns the configured tiers in store form ("" for HIGH).
func (c *Config) TierList() []string {
	var out []string
	for _, t := range splitList(c.Tiers) {
		out = append(out, model.ParseTier(t))
	}
	return out
}

// RoleList returns the configured roles.
func (c *Config) RoleList() []model.Role {
	var out []model.Role
	for _, r := range splitList(c.Roles) {
		out = append(out, model.Role(strings.ToUpper(r)))
	}
	return out
}

// HTTPTimeout returns the upstream request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// LimiterPollInterval returns the limiter's wait between token checks.
func (c *Config) LimiterPollInterval() time.Duration {
	return time.Duration(c.LimiterPollIntervalMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case len(c.TierList()) == 0:
		return fmt.Errorf("%w: tiers must not be empty", ErrInvalidConfig)
	case len(c.RoleList()) == 0:
		return fmt.Errorf("%w: roles must not be empty", ErrInvalidConfig)
	case c.MatchupLimit < 1:
		return fmt.Errorf("%w: matchup_limit must be positive", ErrInvalidConfig)
	case c.HTTPTimeoutMS < 1:
		return fmt.Errorf("%w: http_timeout_ms must be positive", ErrInvalidConfig)
	case c.LimiterCapacity < 1:
		return fmt.Errorf("%w: limiter_capacity must be at least 1", ErrInvalidConfig)
	case c.LimiterRefillRate <= 0:
		return fmt.Errorf("%w: limiter_refill_rate must be positive", ErrInvalidConfig)
	case c.LimiterPollIntervalMS < 1:
		return fmt.Errorf("%w: limiter_poll_interval_ms must be positive", ErrInvalidConfig)
	case c.FetchMaxInFlight < 0:
		return fmt.Errorf("%w: fetch_max_in_flight must not be negative", ErrInvalidConfig)
	case c.CohortWorkers < 1:
		return fmt.Errorf("%w: cohort_workers must be at least 1", ErrInvalidConfig)
	case c.IntegrationTolerance <= 0:
		return fmt.Errorf("%w: integration_tolerance must be positive", ErrInvalidConfig)
	case c.IntegrationMaxDepth < 1:
		return fmt.Errorf("%w: integration_max_depth must be positive", ErrInvalidConfig)
	case c.BracketLow < 0 || c.BracketHigh > 1 || c.BracketLow >= c.BracketHigh:
		return fmt.Errorf("%w: bracket must satisfy 0 <= low < high <= 1", ErrInvalidConfig)
	case c.MaxRankingLimit < 1:
		return fmt.Errorf("%w: max_ranking_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
