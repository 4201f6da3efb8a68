package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/containertiming/internal/app"
	"github.com/okian/containertiming/internal/adapters/repository"
	"github.com/okian/containertiming/internal/domain/aggregate"
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func heroLayout() []dom.Mutation {
	return []dom.Mutation{
		{Op: dom.OpInsert, Target: "hero", Parent: dom.RootID, Tag: "section",
			Attrs: map[string]string{dom.ContainerAttr: "hero"}},
		{Op: dom.OpInsert, Target: "title", Parent: "hero", Tag: "h1"},
		{Op: dom.OpInsert, Target: "banner", Parent: "hero", Tag: "img"},
		{Op: dom.OpInsert, Target: "outside", Parent: dom.RootID, Tag: "p"},
	}
}

func paint(id string, r geometry.Rect, renderTime float64) model.RawEntry {
	return model.RawEntry{
		EntryType:        model.EntryTypeElement,
		Name:             "text-paint",
		ElementID:        id,
		IntersectionRect: r,
		RenderTime:       renderTime,
		StartTime:        renderTime,
	}
}

func waitForReport(ctx context.Context, svc *service.Service, identifier string, seq int) (repository.Report, error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		hist, err := svc.History(ctx, identifier, 100)
		if err == nil && len(hist) >= seq {
			return hist[0], nil
		}
		if time.Now().After(deadline) {
			if err == nil {
				err = errors.New("timed out waiting for report")
			}
			return repository.Report{}, err
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithShardCount(2),
			service.WithHistoryLimit(4),
			service.WithStrategy(aggregate.Incremental),
		)

		Convey("Then stats reflect the configuration before start", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["strategy"], ShouldEqual, "emitNewAreaPainted")
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 50)
		})

		Convey("Then operations before start fail cleanly", func() {
			ctx := context.Background()
			_, err := svc.ApplyMutations(ctx, heroLayout())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Enqueue(ctx, model.Batch{BatchID: "x"}), service.ErrNotStarted), ShouldBeTrue)
			So(svc.SeenAndRecord(ctx, "x"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, int64(0))
			So(svc.Overlays(), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_UnionPipeline(t *testing.T) {
	Convey("Given a started service using the union strategy", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		res, err := svc.ApplyMutations(ctx, heroLayout())
		So(err, ShouldBeNil)
		So(res.Applied, ShouldEqual, 4)
		So(res.Tagged.Internal, ShouldEqual, 3)

		Convey("When a batch paints two children of the container", func() {
			So(svc.SeenAndRecord(ctx, "b-1"), ShouldBeFalse)
			err := svc.Enqueue(ctx, model.Batch{
				BatchID: "b-1",
				Entries: []model.RawEntry{
					paint("title", geometry.Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}, 5),
					paint("banner", geometry.Rect{Left: 10, Top: 10, Right: 20, Bottom: 30}, 9),
					paint("outside", geometry.Rect{Left: 50, Top: 50, Right: 60, Bottom: 60}, 3),
					{EntryType: "mark", Name: "ready"},
				},
			})
			So(err, ShouldBeNil)

			report, err := waitForReport(ctx, svc, "hero", 1)
			So(err, ShouldBeNil)

			Convey("Then one container entry covering both paints is stored", func() {
				So(report.Strategy, ShouldEqual, "aggregatedPaints")
				So(report.Entry.IntersectionRect, ShouldNotBeNil)
				So(*report.Entry.IntersectionRect, ShouldResemble, geometry.Rect{Left: 0, Top: 0, Right: 20, Bottom: 30})
				So(report.Entry.Size, ShouldEqual, 600)
				So(*report.Entry.RenderTime, ShouldEqual, 9)
				So(report.Entry.LastPaintedSubElement.ID(), ShouldEqual, "banner")
			})

			Convey("Then stats and dedupe state are updated", func() {
				So(svc.SeenAndRecord(ctx, "b-1"), ShouldBeTrue)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["containersTracked"], ShouldEqual, 1)
				So(stats["containersReported"], ShouldEqual, 1)
				So(stats["paintsAccepted"], ShouldEqual, int64(2))
			})

			Convey("Then listing returns the container", func() {
				list, err := svc.List(ctx, 10)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].Identifier, ShouldEqual, "hero")
			})
		})

		Convey("When unknown containers are queried", func() {
			_, err := svc.Latest(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a mutation references an unknown parent", func() {
			res, err := svc.ApplyMutations(ctx, []dom.Mutation{
				{Op: dom.OpInsert, Target: "orphan", Parent: "missing", Tag: "div"},
			})
			So(err, ShouldNotBeNil)
			So(res.Applied, ShouldEqual, 0)
		})
	})
}

func TestService_IncrementalPipelineWithOverlay(t *testing.T) {
	Convey("Given a started service using the incremental strategy and overlays", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStrategy(aggregate.Incremental),
			service.WithDebugOverlay(time.Second, 2*time.Second),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.ApplyMutations(ctx, heroLayout())
		So(err, ShouldBeNil)

		Convey("When two batches paint new and overlapping areas", func() {
			So(svc.Enqueue(ctx, model.Batch{BatchID: "b-1", Entries: []model.RawEntry{
				paint("title", geometry.Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}, 5),
			}}), ShouldBeNil)
			_, err := waitForReport(ctx, svc, "hero", 1)
			So(err, ShouldBeNil)

			So(svc.Enqueue(ctx, model.Batch{BatchID: "b-2", Entries: []model.RawEntry{
				paint("banner", geometry.Rect{Left: 5, Top: 5, Right: 15, Bottom: 15}, 8),
				paint("banner", geometry.Rect{Left: 20, Top: 0, Right: 30, Bottom: 10}, 12),
			}}), ShouldBeNil)
			report, err := waitForReport(ctx, svc, "hero", 2)
			So(err, ShouldBeNil)

			Convey("Then only disjoint new area accumulates", func() {
				So(report.Strategy, ShouldEqual, "emitNewAreaPainted")
				So(report.Entry.Size, ShouldEqual, 200)
				So(report.Entry.PaintedRects, ShouldHaveLength, 2)
				So(report.Entry.VisuallyCompletePaint.RenderTime, ShouldEqual, 12)
				So(report.Entry.RenderTime, ShouldBeNil)
			})

			Convey("Then overlays are painted for the container", func() {
				deadline := time.Now().Add(time.Second)
				for len(svc.Overlays()) == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(len(svc.Overlays()), ShouldBeGreaterThan, 0)
				So(svc.Overlays()[0].Identifier, ShouldEqual, "hero")
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When it is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then new work is refused", func() {
				So(errors.Is(svc.Enqueue(ctx, model.Batch{BatchID: "late"}), service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldBeFalse)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}
