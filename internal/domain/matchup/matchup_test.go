package matchup_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/matchrisk/internal/domain/matchup"
	"github.com/okian/matchrisk/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromRecord(t *testing.T) {
	Convey("Given valid tallies", t, func() {
		tallies := [][2]int{{0, 0}, {1, 0}, {1, 1}, {10, 5}, {37, 2}, {250, 180}}

		for _, tc := range tallies {
			d, err := matchup.FromRecord(tc[0], tc[1])
			So(err, ShouldBeNil)

			Convey("Then survival spans [0,1] for games="+itoa(tc[0])+" wins="+itoa(tc[1]), func() {
				So(d.Survival(0), ShouldEqual, 1)
				So(d.Survival(1), ShouldEqual, 0)
				So(d.Survival(0.5), ShouldBeBetweenOrEqual, 0, 1)
			})
		}
	})

	Convey("Given 10 games and 5 wins", t, func() {
		d, err := matchup.FromRecord(10, 5)
		So(err, ShouldBeNil)

		Convey("Then the posterior is Beta(6,6)", func() {
			So(d.Alpha(), ShouldEqual, 6)
			So(d.Beta(), ShouldEqual, 6)
			So(d.Mean(), ShouldAlmostEqual, 0.5, 1e-12)
			So(d.Variance(), ShouldAlmostEqual, 36.0/(144.0*13.0), 1e-12)
			So(d.ProbLosing(), ShouldAlmostEqual, 0.5, 1e-9)
		})
	})

	Convey("Given no games", t, func() {
		d, err := matchup.FromRecord(0, 0)
		So(err, ShouldBeNil)

		Convey("Then the posterior is the uniform prior", func() {
			So(d.CDF(0.25), ShouldAlmostEqual, 0.25, 1e-12)
			So(d.Mean(), ShouldEqual, 0.5)
		})
	})

	Convey("Given inconsistent tallies", t, func() {
		_, err := matchup.FromRecord(3, 4)
		So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)

		_, err = matchup.FromRecord(-2, 0)
		So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)

		_, err = matchup.FromMatchupRecord(model.MatchupRecord{GamesPlayed: 1, Wins: -1})
		So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
	})
}

func TestWinDistribution_JSON(t *testing.T) {
	Convey("Given an encoded distribution", t, func() {
		d, _ := matchup.FromRecord(12, 9)
		b, err := json.Marshal(d)
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `{"games":12,"wins":9}`)

		Convey("When decoding an invalid tally", func() {
			var out matchup.WinDistribution
			err := json.Unmarshal([]byte(`{"games":1,"wins":2}`), &out)
			So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
