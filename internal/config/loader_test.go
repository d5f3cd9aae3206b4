package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/matchrisk/internal/config"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DataDir, convey.ShouldEqual, "data")
				convey.So(cfg.MatchupLimit, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MATCHRISK_ADDR", ":8080")
			_ = os.Setenv("MATCHRISK_DATA_DIR", "/var/lib/matchrisk")
			_ = os.Setenv("MATCHRISK_TIERS", "gold,HIGH")
			_ = os.Setenv("MATCHRISK_LIMITER_REFILL_RATE", "2.5")
			_ = os.Setenv("MATCHRISK_FETCH_FAIL_FAST", "false")
			_ = os.Setenv("MATCHRISK_COHORT_WORKERS", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DataDir, convey.ShouldEqual, "/var/lib/matchrisk")
				convey.So(cfg.TierList(), convey.ShouldResemble, []string{"GOLD", ""})
				convey.So(cfg.LimiterRefillRate, convey.ShouldEqual, 2.5)
				convey.So(cfg.FetchFailFast, convey.ShouldBeFalse)
				convey.So(cfg.CohortWorkers, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
# layered under env
addr: ":9090"
roles: "TOP, JUNGLE"
retain_survival: true
max_ranking_limit: 50
`)
			_ = os.Setenv("MATCHRISK_CONFIG", tmpFile)
			_ = os.Setenv("MATCHRISK_MAX_RANKING_LIMIT", "75")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RoleList(), convey.ShouldResemble, []model.Role{model.RoleTop, model.RoleJungle})
				convey.So(cfg.RetainSurvival, convey.ShouldBeTrue)
				convey.So(cfg.MaxRankingLimit, convey.ShouldEqual, 75)
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given config loader edge cases", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("MATCHRISK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an override fails validation", func() {
			_ = os.Setenv("MATCHRISK_LIMITER_CAPACITY", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric override is malformed", func() {
			_ = os.Setenv("MATCHRISK_MATCHUP_LIMIT", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
