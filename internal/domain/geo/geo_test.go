package geo_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
)

func TestDistance(t *testing.T) {
	Convey("Given two locations on the coordinate plane", t, func() {
		a := model.Location{Latitude: 10, Longitude: 20}

		Convey("When they coincide", func() {
			So(geo.Distance(a, a), ShouldEqual, 0)
		})

		Convey("When they differ on one axis", func() {
			b := model.Location{Latitude: 10, Longitude: 23}
			So(geo.Distance(a, b), ShouldAlmostEqual, 3, 1e-9)
		})

		Convey("When they differ on both axes", func() {
			b := model.Location{Latitude: 13, Longitude: 24}
			So(geo.Distance(a, b), ShouldAlmostEqual, 5, 1e-9)
		})
	})
}

func TestDepthGap(t *testing.T) {
	Convey("Given two depths", t, func() {
		a := model.Location{DepthTop: 100}
		b := model.Location{DepthTop: 112.5}

		Convey("Then the gap should be symmetric and absolute", func() {
			So(geo.DepthGap(a, b), ShouldEqual, 12.5)
			So(geo.DepthGap(b, a), ShouldEqual, 12.5)
		})
	})
}

func TestCellKey(t *testing.T) {
	Convey("Given the spatial bucketing grid", t, func() {
		Convey("When bucketing at unit cell size", func() {
			So(geo.CellKey(model.Location{Latitude: 1.5, Longitude: 2.5}, 1.0), ShouldEqual, "2:1")
			So(geo.CellKey(model.Location{Latitude: -0.5, Longitude: -0.5}, 1.0), ShouldEqual, "-1:-1")
		})

		Convey("When two locations fall in the same cell", func() {
			a := geo.CellKey(model.Location{Latitude: 1.1, Longitude: 2.1}, 1.0)
			b := geo.CellKey(model.Location{Latitude: 1.9, Longitude: 2.9}, 1.0)
			So(a, ShouldEqual, b)
		})

		Convey("When the cell size is invalid", func() {
			// Falls back to the unit grid rather than dividing by zero.
			So(geo.CellKey(model.Location{Latitude: 3.5, Longitude: 4.5}, 0), ShouldEqual, "4:3")
		})
	})
}

func TestCellKeysWithin(t *testing.T) {
	Convey("Given a search circle", t, func() {
		loc := model.Location{Latitude: 0.5, Longitude: 0.5}

		Convey("When the radius stays inside one cell", func() {
			keys := geo.CellKeysWithin(loc, 0.1, 1.0)
			So(keys, ShouldHaveLength, 1)
			So(keys[0], ShouldEqual, "0:0")
		})

		Convey("When the radius spans neighboring cells", func() {
			keys := geo.CellKeysWithin(loc, 1.0, 1.0)
			So(keys, ShouldHaveLength, 9)
			So(keys, ShouldContain, "0:0")
			So(keys, ShouldContain, "-1:-1")
			So(keys, ShouldContain, "1:1")
		})

		Convey("Then the covered cells should include the home cell", func() {
			keys := geo.CellKeysWithin(loc, 2.5, 1.0)
			So(keys, ShouldContain, geo.CellKey(loc, 1.0))
		})
	})
}
