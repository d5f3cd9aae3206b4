package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/matchrisk/internal/adapters/storage"
	"github.com/smartystreets/goconvey/convey"
)

const rosterBody = `{"type": "champion", "data": {
  "Annie": {"id": "Annie", "key": "1", "name": "Annie"},
  "Olaf": {"id": "Olaf", "key": "2", "name": "Olaf"}
}}`

const matchupBody = `[
  {"_id": {"role": "TOP"}, "count": 10, "champ1_id": 1, "champ2_id": 2, "champ1": {"wins": 6}, "champ2": {"wins": 4}}
]`

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/champions":
			_, _ = w.Write([]byte(`[{"patch": "7.14"}]`))
		case "/cdn/7.14.1/data/en_US/champion.json":
			_, _ = w.Write([]byte(rosterBody))
		case "/v2/champions/1/matchups", "/v2/champions/2/matchups":
			_, _ = w.Write([]byte(matchupBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	})
}

func run(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestCollectAndBuild(t *testing.T) {
	convey.Convey("Given a fake upstream and an empty data dir", t, func() {
		srv := fakeUpstream(t)
		dir := t.TempDir()
		setEnv(t, map[string]string{
			"MATCHRISK_DATA_DIR":                 dir,
			"MATCHRISK_API_BASE_URL":             srv.URL,
			"MATCHRISK_DDRAGON_BASE_URL":         srv.URL,
			"MATCHRISK_ROLES":                    "TOP",
			"MATCHRISK_LIMITER_POLL_INTERVAL_MS": "10",
			"MATCHRISK_LOG_LEVEL":                "error",
		})

		convey.Convey("When collecting and building the high tier", func() {
			convey.So(run("collect", "--tier", "HIGH"), convey.ShouldBeNil)
			convey.So(run("build", "--tier", "high"), convey.ShouldBeNil)

			convey.Convey("Then role records and the snapshot are on disk", func() {
				store := storage.NewFileStore(dir)
				_, err := os.Stat(store.RolePath("", "TOP", "7.14"))
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(dir, "HIGH", "7.14stats.json"))
				convey.So(err, convey.ShouldBeNil)

				snap, err := store.LoadSnapshot(context.Background(), "", "7.14")
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(snap.Entities), convey.ShouldEqual, 2)
				convey.So(snap.Entities["1"].Stats["TOP"].ExpectedMin, convey.ShouldAlmostEqual, 7.0/12.0, 1e-6)
			})
		})

		convey.Convey("When building before collecting", func() {
			err := run("build", "--tier", "GOLD")

			convey.Convey("Then the missing data is reported", func() {
				convey.So(errors.Is(err, storage.ErrNotFound), convey.ShouldBeTrue)
				convey.So(strings.Contains(err.Error(), "GOLD"), convey.ShouldBeTrue)
			})
		})
	})
}

func TestInvalidConfig(t *testing.T) {
	convey.Convey("Given an invalid limiter capacity", t, func() {
		setEnv(t, map[string]string{"MATCHRISK_LIMITER_CAPACITY": "0"})

		convey.Convey("Then every subcommand refuses to start", func() {
			convey.So(run("build"), convey.ShouldNotBeNil)
		})
	})
}
