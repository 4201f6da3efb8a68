package loadgen_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/containertiming/internal/adapters/http/api"
	service "github.com/okian/containertiming/internal/app"
	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/loadgen"
	"github.com/okian/containertiming/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(ctx context.Context, kind aggregate.Kind) (*httptest.Server, func()) {
	svc := service.New(service.WithStrategy(kind), service.WithQueueSize(1000))
	So(svc.Start(ctx), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(ctx, mux)
	ts := httptest.NewServer(mux)
	return ts, func() {
		ts.Close()
		_ = svc.Stop(ctx)
	}
}

func TestRun(t *testing.T) {
	for _, kind := range []aggregate.Kind{aggregate.Union, aggregate.Incremental} {
		Convey("Given a running service using "+kind.String(), t, func() {
			ctx := context.Background()
			ts, stop := startService(ctx, kind)
			defer stop()

			Convey("When a load run is executed", func() {
				out := filepath.Join(t.TempDir(), "run.json")
				stats, err := loadgen.Run(ctx, &loadgen.Config{
					BaseURL:    ts.URL,
					Containers: 3,
					Children:   4,
					Batches:    25,
					Workers:    1,
					Timeout:    5 * time.Second,
					Settle:     300 * time.Millisecond,
					Seed:       11,
					Strategy:   kind.String(),
					OutputFile: out,
				})

				Convey("Then every painted container verifies", func() {
					So(err, ShouldBeNil)
					So(stats.ElementsInserted, ShouldEqual, 18)
					So(stats.BatchesAccepted, ShouldEqual, 25)
					So(stats.ContainersReported, ShouldEqual, stats.ContainersPainted)
					So(stats.Violations, ShouldEqual, 0)
					So(out, ShouldNotBeEmpty)
				})
			})
		})
	}
}

func TestRunUnreachable(t *testing.T) {
	Convey("Given no service", t, func() {
		_, err := loadgen.Run(context.Background(), &loadgen.Config{
			BaseURL: "http://127.0.0.1:1",
			Timeout: 200 * time.Millisecond,
		})
		So(err, ShouldNotBeNil)
	})
}
