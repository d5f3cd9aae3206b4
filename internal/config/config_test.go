package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/matchrisk/internal/config"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LimiterCapacity, convey.ShouldEqual, 5)
			convey.So(cfg.LimiterRefillRate, convey.ShouldEqual, 5)
			convey.So(cfg.LimiterPollInterval(), convey.ShouldEqual, time.Second)
			convey.So(cfg.HTTPTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.FetchFailFast, convey.ShouldBeTrue)
			convey.So(cfg.CohortWorkers, convey.ShouldEqual, 1)
			convey.So(cfg.BracketLow, convey.ShouldEqual, 0)
			convey.So(cfg.BracketHigh, convey.ShouldEqual, 1)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then HIGH maps to the unfiltered tier", func() {
			convey.So(cfg.TierList(), convey.ShouldResemble, []string{"BRONZE", "SILVER", "GOLD", "PLATINUM", ""})
			convey.So(cfg.RoleList(), convey.ShouldResemble, model.DefaultRoles())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configs", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = "" },
			"empty tiers":      func(c *config.Config) { c.Tiers = " , " },
			"empty roles":      func(c *config.Config) { c.Roles = "" },
			"zero capacity":    func(c *config.Config) { c.LimiterCapacity = 0.5 },
			"zero refill":      func(c *config.Config) { c.LimiterRefillRate = 0 },
			"zero workers":     func(c *config.Config) { c.CohortWorkers = 0 },
			"negative flight":  func(c *config.Config) { c.FetchMaxInFlight = -1 },
			"inverted bracket": func(c *config.Config) { c.BracketLow, c.BracketHigh = 0.9, 0.2 },
			"bracket above 1":  func(c *config.Config) { c.BracketHigh = 1.5 },
			"zero tolerance":   func(c *config.Config) { c.IntegrationTolerance = 0 },
			"zero limit":       func(c *config.Config) { c.MaxRankingLimit = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
