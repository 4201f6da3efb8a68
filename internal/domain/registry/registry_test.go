package registry_test

import (
	"testing"

	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		reg := registry.New()
		a := dom.NewElement("a", "div")
		b := dom.NewElement("b", "div")

		Convey("When a root is looked up before any paint", func() {
			_, ok := reg.Lookup(a)

			Convey("Then nothing is created", func() {
				So(ok, ShouldBeFalse)
				So(reg.Len(), ShouldEqual, 0)
			})
		})

		Convey("When roots are resolved", func() {
			da := reg.Resolve(b)
			db := reg.Resolve(a)
			again := reg.Resolve(b)

			Convey("Then state is created lazily and keyed by identity", func() {
				So(reg.Len(), ShouldEqual, 2)
				So(again, ShouldPointTo, da)
				So(db, ShouldNotPointTo, da)
				So(reg.Roots(), ShouldResemble, []*dom.Element{b, a})
			})

			Convey("And a different element with the same ID is a different root", func() {
				twin := dom.NewElement("a", "div")
				So(reg.Resolve(twin), ShouldNotPointTo, db)
				So(reg.Len(), ShouldEqual, 3)
			})

			Convey("And coords are reset", func() {
				da.Coords = geometry.NewBounds()
				db.Coords = geometry.NewBounds()
				reg.ResetCoords()

				So(da.Coords, ShouldBeNil)
				So(db.Coords, ShouldBeNil)
			})
		})
	})
}

func TestSetStartTime(t *testing.T) {
	Convey("Given resolved state", t, func() {
		d := &registry.ResolvedRootData{}

		Convey("Then the first non-zero start time sticks", func() {
			d.SetStartTime(0)
			So(d.StartTime, ShouldEqual, 0)
			d.SetStartTime(42)
			d.SetStartTime(7)
			So(d.StartTime, ShouldEqual, 42)
		})
	})
}

func TestInsert(t *testing.T) {
	Convey("Given a registry with one root", t, func() {
		reg := registry.New()
		root := dom.NewElement("root", "div")
		first := reg.Insert(root, &registry.ResolvedRootData{Name: "first"})

		Convey("When the same root is inserted again", func() {
			got := reg.Insert(root, &registry.ResolvedRootData{Name: "second"})

			Convey("Then the original state is kept", func() {
				So(got, ShouldPointTo, first)
				So(got.Name, ShouldEqual, "first")
				So(reg.Len(), ShouldEqual, 1)
			})
		})
	})
}
