package model_test

import (
	"testing"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestBatchResolve(t *testing.T) {
	convey.Convey("Given a batch mixing entry kinds", t, func() {
		img := dom.NewElement("img-1", "img")
		lookup := func(id string) (*dom.Element, bool) {
			if id == img.ID() {
				return img, true
			}
			return nil, false
		}
		batch := model.Batch{
			BatchID: "b-1",
			Entries: []model.RawEntry{
				{EntryType: "mark", Name: "app-ready", StartTime: 5},
				{
					EntryType:        model.EntryTypeElement,
					Name:             "image-paint",
					ElementID:        "img-1",
					IntersectionRect: geometry.FromXYWH(0, 0, 20, 10),
					RenderTime:       42,
				},
				{EntryType: model.EntryTypeElement, Name: "text-paint", ElementID: "gone"},
			},
		}

		convey.Convey("When it is resolved", func() {
			entries := batch.Resolve(lookup)

			convey.Convey("Then order and kinds are kept", func() {
				convey.So(entries, convey.ShouldHaveLength, 3)

				mark, ok := entries[0].(*model.GenericEntry)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(mark.EntryType(), convey.ShouldEqual, "mark")
				convey.So(mark.StartTime, convey.ShouldEqual, 5)

				paint, ok := entries[1].(*model.PaintEntry)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(paint.Element, convey.ShouldPointTo, img)
				convey.So(paint.IntersectionRect.Area(), convey.ShouldEqual, 200)
				convey.So(paint.RenderTime, convey.ShouldEqual, 42)
			})

			convey.Convey("Then unknown elements resolve to a detached entry", func() {
				paint, ok := entries[2].(*model.PaintEntry)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(paint.Element, convey.ShouldBeNil)
			})
		})

		convey.Convey("When it is resolved without a lookup", func() {
			entries := batch.Resolve(nil)

			convey.Convey("Then every element is detached", func() {
				convey.So(entries[1].(*model.PaintEntry).Element, convey.ShouldBeNil)
			})
		})
	})
}
