package cohort_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
	"github.com/okian/matchrisk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleData() model.RoleData {
	return model.GroupByRole(map[string][]model.RawMatchup{
		"1": {
			{OpponentID: "2", Role: model.RoleTop, GamesPlayed: 10, WinsForFirst: 5},
			{OpponentID: "3", Role: model.RoleTop, GamesPlayed: 40, WinsForFirst: 30},
			{OpponentID: "4", Role: model.RoleMiddle, GamesPlayed: 20, WinsForFirst: 8},
		},
		"2": {
			{OpponentID: "1", Role: model.RoleTop, GamesPlayed: 10, WinsForFirst: 5},
		},
		"3": {
			{OpponentID: "1", Role: model.RoleTop, GamesPlayed: 40, WinsForFirst: 10},
			{OpponentID: "5", Role: model.RoleJungle, GamesPlayed: 60, WinsForFirst: 45},
		},
		"4": {
			{OpponentID: "1", Role: model.RoleMiddle, GamesPlayed: 20, WinsForFirst: 12},
		},
	})
}

func TestBuild(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a small population", t, func() {
		population := []string{"3", "1", "2", "4", "5", "1"}

		Convey("When building sequentially and in parallel", func() {
			seq, err := cohort.Build(ctx, "PLATINUM", "7.1", population, sampleData(), cohort.WithWorkers(1))
			So(err, ShouldBeNil)
			par, err := cohort.Build(ctx, "PLATINUM", "7.1", population, sampleData(), cohort.WithWorkers(4))
			So(err, ShouldBeNil)

			Convey("Then the results should be identical", func() {
				So(par.IDs(), ShouldResemble, seq.IDs())
				for _, role := range model.DefaultRoles() {
					a, err := seq.PullMetric(role, "expected_min")
					So(err, ShouldBeNil)
					b, err := par.PullMetric(role, "expected_min")
					So(err, ShouldBeNil)
					So(b, ShouldResemble, a)
				}
			})

			Convey("And ids should be unique and sorted", func() {
				So(seq.IDs(), ShouldResemble, []string{"1", "2", "3", "4", "5"})
				So(seq.Len(), ShouldEqual, 5)
				So(seq.Tier(), ShouldEqual, "PLATINUM")
				So(seq.Patch(), ShouldEqual, "7.1")
			})

			Convey("And an entity with no data should be fully unconstrained", func() {
				p, err := seq.Profile("5")
				So(err, ShouldBeNil)
				So(p.PlayRate(model.RoleTop), ShouldAlmostEqual, 0.2, 1e-12)
				s, err := p.Stats(model.RoleTop)
				So(err, ShouldBeNil)
				So(s.ExpectedMin, ShouldAlmostEqual, 1, 1e-12)
			})
		})

		Convey("When an entity carries an invalid record", func() {
			data := sampleData()
			data[model.RoleTop]["2"] = []model.MatchupRecord{{OpponentID: "1", GamesPlayed: 2, Wins: 3}}
			c, err := cohort.Build(ctx, "", "7.1", population, data, cohort.WithWorkers(2))

			Convey("Then the whole build should abort", func() {
				So(c, ShouldBeNil)
				So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
			})
		})

		Convey("When the context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := cohort.Build(cctx, "", "7.1", population, sampleData())
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestPullMetric(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a cohort with stats", t, func() {
		c, err := cohort.Build(ctx, "GOLD", "7.2", []string{"1", "2", "3", "4"}, sampleData(),
			cohort.WithWorkers(2),
			cohort.WithProfileOptions(profile.WithAggregateOptions(aggregate.NewOptions(aggregate.WithTolerance(1e-9)))),
		)
		So(err, ShouldBeNil)

		Convey("When pulling expected_min for TOP", func() {
			v, err := c.PullMetric(model.RoleTop, "expected_min")
			So(err, ShouldBeNil)

			Convey("Then a single even matchup should give one half", func() {
				So(v["2"], ShouldAlmostEqual, 0.5, 1e-8)
			})

			Convey("And a second matchup should only lower the minimum", func() {
				So(v["1"], ShouldBeLessThan, v["2"])
			})
		})

		Convey("When pulling play_rate", func() {
			v, err := c.PullMetric(model.RoleTop, "play_rate")
			So(err, ShouldBeNil)
			So(v["2"], ShouldEqual, 1.0)
			So(v["1"], ShouldAlmostEqual, 50.0/70.0, 1e-12)
		})

		Convey("When pulling the crossing of an empty role", func() {
			v, err := c.PullMetric(model.RoleSupport, "crossing_5050")
			So(err, ShouldBeNil)
			So(math.IsNaN(v["1"]), ShouldBeTrue)
		})

		Convey("When pulling an unknown field", func() {
			_, err := c.PullMetric(model.RoleTop, "median")
			So(errors.Is(err, cohort.ErrUnknownMetric), ShouldBeTrue)
		})

		Convey("When pulling an unknown role", func() {
			_, err := c.PullMetric("SYNERGY", "std")
			So(errors.Is(err, profile.ErrUnknownRole), ShouldBeTrue)
		})

		Convey("When evaluating a custom metric", func() {
			v, err := c.EvalMetric(model.RoleTop, func(p *profile.Profile, role model.Role) (float64, error) {
				return float64(len(p.Records(role))), nil
			})
			So(err, ShouldBeNil)
			So(v["1"], ShouldEqual, 2)
			So(v["4"], ShouldEqual, 0)
		})

		Convey("When looking up an unknown entity", func() {
			_, err := c.Profile("99")
			So(errors.Is(err, cohort.ErrUnknownEntity), ShouldBeTrue)
		})

		Convey("When taking a snapshot", func() {
			snap := c.Snapshot()

			Convey("Then it should answer the same metric queries", func() {
				want, _ := c.PullMetric(model.RoleTop, "std")
				got, err := snap.PullMetric(model.RoleTop, "std")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
				So(snap.Tier, ShouldEqual, "GOLD")
				So(len(snap.Entities), ShouldEqual, 4)
			})

			Convey("Then it should carry observed games per role", func() {
				So(snap.Entities["1"].Games[model.RoleTop], ShouldEqual, 50)
				So(snap.Entities["1"].Games[model.RoleMiddle], ShouldEqual, 20)
				So(snap.Entities["4"].Games[model.RoleTop], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a cohort built without stats", t, func() {
		c, err := cohort.Build(ctx, "", "7.2", []string{"1", "2"}, sampleData(), cohort.WithStats(false))
		So(err, ShouldBeNil)

		Convey("Then stats metrics should be refused", func() {
			_, err := c.PullMetric(model.RoleTop, "variance")
			So(errors.Is(err, cohort.ErrStatsNotComputed), ShouldBeTrue)
			_, err = c.Snapshot().PullMetric(model.RoleTop, "variance")
			So(errors.Is(err, cohort.ErrStatsNotComputed), ShouldBeTrue)
		})

		Convey("And play rates should still be available", func() {
			v, err := c.PullMetric(model.RoleTop, "play_rate")
			So(err, ShouldBeNil)
			So(v["2"], ShouldEqual, 1.0)
		})
	})
}
