package loadtest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/squad/internal/adapters/dataset"
	"github.com/okian/squad/internal/adapters/http/api"
	app "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/config"
	"github.com/okian/squad/internal/loadtest"
	"github.com/okian/squad/internal/poolgen"
	"github.com/okian/squad/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func startService(t *testing.T) *httptest.Server {
	t.Helper()
	gen := poolgen.DefaultConfig("fifa")
	gen.Goalkeepers, gen.Defenders, gen.Attackers = 3, 40, 60
	gen.Clubs, gen.Nations = 3, 2
	pool, err := poolgen.Generate(context.Background(), gen)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	raw := dataset.Raw{
		Goalkeepers:     pool.Goalkeepers,
		Defense:         pool.Defense,
		Attack:          pool.Attack,
		DefenseCriteria: poolgen.DefenseCriteria(),
		AttackCriteria:  poolgen.AttackCriteria(),
	}
	if err := dataset.Write(dir, raw, poolgen.FieldAbilities, poolgen.GoalkeeperAbilities); err != nil {
		t.Fatal(err)
	}

	cfg := config.New()
	cfg.Dataset = "fifa"
	cfg.DataDir = dir
	c, _, err := app.LoadContext(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	params, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	svc := app.New(app.NewComposer(c, logger.Nop()), params,
		app.WithLogger(logger.Nop()),
		app.WithWorkerCount(2),
		app.WithQueueSize(1000),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc, svc, cfg.MaxResultsLimit).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given a load test config", t, func() {
		cfg := loadtest.Config{Requests: 50, DuplicateRate: 0.5, Seed: 3, MinBudget: 10, MaxBudget: 20}

		Convey("When generating twice with the same seed", func() {
			a := loadtest.Generate(cfg)
			b := loadtest.Generate(cfg)

			Convey("Then the output is identical", func() {
				So(a, ShouldResemble, b)
			})

			Convey("Then every distinct request is present and overrides are valid", func() {
				seen := map[string]bool{}
				for _, r := range a {
					seen[r.ID] = true
					So(r.Budget, ShouldNotBeNil)
					So(*r.Budget, ShouldBeBetweenOrEqual, 10.0, 20.0)
					if r.Alpha != nil {
						So(*r.Alpha+*r.Beta, ShouldBeLessThanOrEqualTo, 1.0)
					}
				}
				So(len(seen), ShouldEqual, 50)
				So(len(a), ShouldBeGreaterThan, 50)
			})
		})

		Convey("When the seed changes", func() {
			other := cfg
			other.Seed = 4

			Convey("Then the ids change", func() {
				So(loadtest.Generate(other)[0].ID, ShouldNotEqual, loadtest.Generate(cfg)[0].ID)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running squad service", t, func() {
		srv := startService(t)
		cfg := loadtest.Config{
			BaseURL:       srv.URL,
			Requests:      30,
			DuplicateRate: 0.2,
			TopN:          10,
			Workers:       4,
			Seed:          11,
			MinBudget:     500,
			MaxBudget:     1000,
			WaitTimeout:   30 * time.Second,
			PollInterval:  5 * time.Millisecond,
		}

		Convey("When the load test runs", func() {
			stats, err := loadtest.Run(context.Background(), cfg)

			Convey("Then every accepted request finishes and the ranking verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Accepted, ShouldEqual, 30)
				So(stats.Submitted, ShouldEqual, stats.Accepted+stats.Duplicate+stats.Rejected+stats.Failed)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Done, ShouldEqual, 30)
				So(stats.Ranked, ShouldEqual, 10)
				So(stats.Duration > 0, ShouldBeTrue)
			})
		})
	})

	Convey("Given an invalid config", t, func() {
		_, err := loadtest.Run(context.Background(), loadtest.Config{})

		Convey("Then it is rejected", func() {
			So(errors.Is(err, loadtest.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := loadtest.Run(context.Background(), loadtest.Config{BaseURL: srv.URL, Requests: 1, TopN: 1, Workers: 1})

		Convey("Then the run stops before submitting", func() {
			So(errors.Is(err, loadtest.ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given a service with a broken ranking", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.URL.Path == "/healthz":
				w.WriteHeader(http.StatusOK)
			case r.Method == http.MethodPost:
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"id":"a","status":"pending"}`))
			case strings.HasPrefix(r.URL.Path, "/compositions/"):
				_, _ = w.Write([]byte(`{"id":"a","status":"done","rank":2,"result":{"cost":1,"budget":2,"within_budget":true,"mean_ability":50}}`))
			default:
				_ = json.NewEncoder(w).Encode([]map[string]any{
					{"id": "b", "status": "done", "rank": 1, "result": map[string]any{"within_budget": true, "mean_ability": 40}},
					{"id": "a", "status": "done", "rank": 2, "result": map[string]any{"within_budget": true, "mean_ability": 50}},
				})
			}
		}))
		defer srv.Close()

		_, err := loadtest.Run(context.Background(), loadtest.Config{
			BaseURL: srv.URL, Requests: 1, TopN: 2, Workers: 1, PollInterval: time.Millisecond,
		})

		Convey("Then verification fails", func() {
			So(errors.Is(err, loadtest.ErrVerification), ShouldBeTrue)
		})
	})
}
