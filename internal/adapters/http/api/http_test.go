package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/matchrisk/internal/adapters/http/api"
	"github.com/okian/matchrisk/internal/adapters/repository"
	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/internal/domain/profile"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	entries    []repository.Entry
	rankingErr error
	lastQuery  api.RankingQuery

	view       api.ProfileView
	profileErr error
	lastTier   string
}

func (m *mockDependencies) Rankings(_ context.Context, q api.RankingQuery) ([]repository.Entry, error) {
	m.lastQuery = q
	if m.rankingErr != nil {
		return nil, m.rankingErr
	}
	if q.Limit < len(m.entries) {
		return m.entries[:q.Limit], nil
	}
	return m.entries, nil
}

func (m *mockDependencies) Profile(_ context.Context, tier, _ string) (api.ProfileView, error) {
	m.lastTier = tier
	if m.profileErr != nil {
		return api.ProfileView{}, m.profileErr
	}
	return m.view, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"cohorts": 1}}, 50)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then the health endpoint serves metrics", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint returns provider stats", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["cohorts"], ShouldEqual, float64(1))
		})

		Convey("Then non-GET methods are rejected", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rankings?role=TOP", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingsHandler(t *testing.T) {
	Convey("Given rankings dependencies", t, func() {
		deps := &mockDependencies{entries: []repository.Entry{
			{Rank: 1, EntityID: "a", Value: 0.61},
			{Rank: 2, EntityID: "b", Value: 0.55},
			{Rank: 3, EntityID: "c", Value: 0.40},
		}}
		mux := newMux(deps)

		Convey("When querying with explicit parameters", func() {
			w := get(mux, "/rankings?tier=platinum&role=MIDDLE&metric=std&limit=2")

			Convey("Then the query is forwarded and trimmed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldResemble, api.RankingQuery{
					Tier: "PLATINUM", Role: model.Role("MIDDLE"), Metric: "std", Limit: 2,
				})
				var body struct {
					Tier    string             `json:"tier"`
					Entries []repository.Entry `json:"entries"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Tier, ShouldEqual, "PLATINUM")
				So(len(body.Entries), ShouldEqual, 2)
				So(body.Entries[0].EntityID, ShouldEqual, "a")
			})
		})

		Convey("When tier and metric are omitted", func() {
			w := get(mux, "/rankings?role=TOP")

			Convey("Then the high tier and expected_min are used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Tier, ShouldEqual, "")
				So(deps.lastQuery.Metric, ShouldEqual, "expected_min")
				So(deps.lastQuery.Limit, ShouldEqual, 20)
				So(w.Body.String(), ShouldContainSubstring, `"tier":"HIGH"`)
			})
		})

		Convey("When parameters are invalid", func() {
			So(get(mux, "/rankings").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/rankings?role=TOP&limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/rankings?role=TOP&limit=abc").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/rankings?role=TOP&limit=51").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the dependency fails", func() {
			cases := []struct {
				err  error
				want int
			}{
				{fmt.Errorf("wrap: %w", repository.ErrNoBoard), http.StatusNotFound},
				{cohort.ErrUnknownMetric, http.StatusBadRequest},
				{profile.ErrUnknownRole, http.StatusBadRequest},
				{cohort.ErrStatsNotComputed, http.StatusConflict},
				{api.ErrNoCohort, http.StatusNotFound},
				{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
			}
			for _, tc := range cases {
				deps.rankingErr = tc.err
				w := get(mux, "/rankings?role=TOP")
				So(w.Code, ShouldEqual, tc.want)
				So(w.Body.String(), ShouldContainSubstring, `"code"`)
			}
		})
	})
}

func TestProfileHandler(t *testing.T) {
	Convey("Given profile dependencies", t, func() {
		deps := &mockDependencies{view: api.ProfileView{
			Name: "Annie",
			Entity: cohort.EntitySnapshot{
				Games:     map[model.Role]int{"MIDDLE": 80, "SUPPORT": 20},
				PlayRates: map[model.Role]float64{"MIDDLE": 0.8, "SUPPORT": 0.2},
				Stats: map[model.Role]aggregate.RoleStats{
					"MIDDLE": {ExpectedMin: 0.42, Variance: 0.01, Std: 0.1},
				},
			},
			Ranks: map[model.Role]map[string]int{"MIDDLE": {"expected_min": 3, "std": 1}},
		}}
		mux := newMux(deps)

		Convey("When requesting a known entity", func() {
			w := get(mux, "/profiles/1?tier=gold")

			Convey("Then its play rates and stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastTier, ShouldEqual, "GOLD")
				var body struct {
					EntityID  string                             `json:"entity_id"`
					Name      string                             `json:"name"`
					Games     map[model.Role]int                 `json:"games"`
					PlayRates map[model.Role]float64             `json:"play_rates"`
					Stats     map[model.Role]aggregate.RoleStats `json:"stats"`
					Ranks     map[model.Role]map[string]int      `json:"ranks"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.EntityID, ShouldEqual, "1")
				So(body.Name, ShouldEqual, "Annie")
				So(body.PlayRates["MIDDLE"], ShouldEqual, 0.8)
				So(body.Stats["MIDDLE"].ExpectedMin, ShouldEqual, 0.42)
				So(body.Games["SUPPORT"], ShouldEqual, 20)
				So(body.Ranks["MIDDLE"]["expected_min"], ShouldEqual, 3)
			})
		})

		Convey("When the id is missing or nested", func() {
			So(get(mux, "/profiles/").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/profiles/1/extra").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the entity is unknown", func() {
			deps.profileErr = fmt.Errorf("lookup: %w", cohort.ErrUnknownEntity)
			So(get(mux, "/profiles/999").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
