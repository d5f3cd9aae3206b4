package champion_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/matchrisk/internal/adapters/champion"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const matchupsBody = `[
  {"_id": {"role": "TOP"}, "count": 10, "champ1_id": 1, "champ2_id": 2, "champ1": {"wins": 6}, "champ2": {"wins": 4}},
  {"_id": {"role": "MIDDLE"}, "count": 20, "champ1_id": 7, "champ2_id": 1, "champ1": {"wins": 15}, "champ2": {"wins": 5}},
  {"_id": {"role": "JUNGLE"}, "count": 3, "champ1_id": 8, "champ2_id": 9, "champ1": {"wins": 1}, "champ2": {"wins": 2}}
]`

const rosterBody = `{"type": "champion", "data": {
  "Annie": {"id": "Annie", "key": "1", "name": "Annie"},
  "Olaf": {"id": "Olaf", "key": "2", "name": "Olaf"}
}}`

func newServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		switch r.URL.Path {
		case "/v2/champions/1/matchups":
			_, _ = w.Write([]byte(matchupsBody))
		case "/v2/champions/13/matchups":
			_, _ = w.Write([]byte(`{not json`))
		case "/v2/champions":
			_, _ = w.Write([]byte(`[{"patch": "7.14", "id": 1}]`))
		case "/cdn/7.14.1/data/en_US/champion.json":
			_, _ = w.Write([]byte(rosterBody))
		default:
			http.Error(w, "no such resource", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestClient(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a client against a fake upstream", t, func() {
		srv, last := newServer(t)
		c := champion.NewClient(
			champion.WithBaseURL(srv.URL+"/"),
			champion.WithDDragonURL(srv.URL),
			champion.WithAPIKey("secret"),
			champion.WithMatchupLimit(500),
		)

		Convey("When fetching matchups", func() {
			got, err := c.Fetch(ctx, "GOLD", "1")
			So(err, ShouldBeNil)

			Convey("Then the request should carry tier, limit and key", func() {
				q := last.URL.Query()
				So(q.Get("elo"), ShouldEqual, "GOLD")
				So(q.Get("limit"), ShouldEqual, "500")
				So(q.Get("api_key"), ShouldEqual, "secret")
			})

			Convey("Then every record should be oriented toward the key", func() {
				So(got, ShouldResemble, []model.RawMatchup{
					{GamesPlayed: 10, WinsForFirst: 6, OpponentID: "2", Role: model.RoleTop},
					{GamesPlayed: 20, WinsForFirst: 5, OpponentID: "7", Role: model.RoleMiddle},
				})
			})
		})

		Convey("When reading the patch and roster", func() {
			patch, err := c.Patch(ctx)
			So(err, ShouldBeNil)
			So(patch, ShouldEqual, "7.14")

			roster, err := c.Roster(ctx, patch)
			So(err, ShouldBeNil)
			So(roster, ShouldResemble, map[string]string{"1": "Annie", "2": "Olaf"})
		})

		Convey("When the upstream answers with an error status", func() {
			_, err := c.Fetch(ctx, "", "404")

			Convey("Then the error should be ErrUpstream without the key", func() {
				So(errors.Is(err, champion.ErrUpstream), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "404")
				So(err.Error(), ShouldNotContainSubstring, "secret")
			})
		})

		Convey("When the upstream sends malformed JSON", func() {
			_, err := c.Fetch(ctx, "", "13")
			So(errors.Is(err, champion.ErrUpstream), ShouldBeTrue)
		})

		Convey("When the context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Fetch(cctx, "", "1")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
