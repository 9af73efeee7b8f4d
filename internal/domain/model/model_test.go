package model_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/strata/internal/domain/model"
)

func TestMeasurementType(t *testing.T) {
	Convey("Given the measurement type enumeration", t, func() {
		Convey("When checking membership", func() {
			Convey("Then all supported types should be valid", func() {
				for _, mt := range []model.MeasurementType{
					model.TypeAssayGrade,
					model.TypeSonicVelocity,
					model.TypeSeismicVelocity,
					model.TypeDensityLog,
					model.TypePorosity,
					model.TypeGravity,
					model.TypeMagnetic,
					model.TypeSpectralReflectance,
					model.TypeStructuralGeometry,
					model.TypeLithology,
					model.TypeSurfaceGeochem,
				} {
					So(mt.Valid(), ShouldBeTrue)
				}
			})

			Convey("And unknown types should be rejected", func() {
				So(model.MeasurementType("resistivity").Valid(), ShouldBeFalse)
				So(model.MeasurementType("").Valid(), ShouldBeFalse)
			})
		})

		Convey("When checking categorical kinds", func() {
			Convey("Then structural geometry and lithology should be categorical", func() {
				So(model.TypeStructuralGeometry.Categorical(), ShouldBeTrue)
				So(model.TypeLithology.Categorical(), ShouldBeTrue)
				So(model.TypeAssayGrade.Categorical(), ShouldBeFalse)
				So(model.TypeDensityLog.Categorical(), ShouldBeFalse)
			})
		})

		Convey("When checking comparability", func() {
			Convey("Then only identical numeric kinds should compare", func() {
				So(model.TypeAssayGrade.ComparableWith(model.TypeAssayGrade), ShouldBeTrue)
				So(model.TypeAssayGrade.ComparableWith(model.TypeDensityLog), ShouldBeFalse)
				So(model.TypeLithology.ComparableWith(model.TypeLithology), ShouldBeFalse)
			})
		})
	})
}

func TestValidationStatus(t *testing.T) {
	Convey("Given validation statuses", t, func() {
		Convey("When promoting forward", func() {
			Convey("Then raw should promote to qc-passed and peer-reviewed", func() {
				So(model.StatusRaw.CanPromoteTo(model.StatusQCPassed), ShouldBeTrue)
				So(model.StatusRaw.CanPromoteTo(model.StatusPeerReviewed), ShouldBeTrue)
				So(model.StatusQCPassed.CanPromoteTo(model.StatusPeerReviewed), ShouldBeTrue)
			})
		})

		Convey("When moving backward or sideways", func() {
			Convey("Then the transition should be refused", func() {
				So(model.StatusPeerReviewed.CanPromoteTo(model.StatusQCPassed), ShouldBeFalse)
				So(model.StatusQCPassed.CanPromoteTo(model.StatusRaw), ShouldBeFalse)
				So(model.StatusRaw.CanPromoteTo(model.StatusRaw), ShouldBeFalse)
			})
		})

		Convey("When the target is unknown", func() {
			So(model.StatusRaw.CanPromoteTo(model.ValidationStatus("verified")), ShouldBeFalse)
		})
	})
}

func TestSourceTier(t *testing.T) {
	Convey("Given the source tier ranking", t, func() {
		Convey("When looking up weights", func() {
			Convey("Then weights should be fixed per tier", func() {
				So(model.TierPublicAuthoritative.Weight(), ShouldEqual, 1.0)
				So(model.TierCommercialLicensed.Weight(), ShouldEqual, 0.9)
				So(model.TierClientProprietary.Weight(), ShouldEqual, 0.8)
				So(model.TierRealtimeOperational.Weight(), ShouldEqual, 0.7)
				So(model.TierAccessRestricted.Weight(), ShouldEqual, 0.6)
			})

			Convey("And unknown tiers should weigh zero", func() {
				So(model.SourceTier("partner").Weight(), ShouldEqual, 0.0)
				So(model.SourceTier("partner").Valid(), ShouldBeFalse)
			})
		})
	})
}

func TestSeverity(t *testing.T) {
	Convey("Given severity thresholds", t, func() {
		Convey("When mapping value deltas", func() {
			So(model.SeverityForDelta(0.05), ShouldEqual, model.SeverityLow)
			So(model.SeverityForDelta(0.10), ShouldEqual, model.SeverityMedium)
			So(model.SeverityForDelta(0.29), ShouldEqual, model.SeverityMedium)
			So(model.SeverityForDelta(0.30), ShouldEqual, model.SeverityHigh)
			So(model.SeverityForDelta(0.50), ShouldEqual, model.SeverityCritical)
			So(model.SeverityForDelta(1.50), ShouldEqual, model.SeverityCritical)
		})

		Convey("When lifting to a floor", func() {
			So(model.SeverityLow.AtLeast(model.SeverityMedium), ShouldEqual, model.SeverityMedium)
			So(model.SeverityHigh.AtLeast(model.SeverityMedium), ShouldEqual, model.SeverityHigh)
		})
	})
}

func TestMeasurementRecord(t *testing.T) {
	Convey("Given a measurement record", t, func() {
		ingested := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rec := model.MeasurementRecord{
			ID:         "rec-1",
			Provenance: model.Provenance{IngestedAt: ingested},
		}

		Convey("When no score has been computed", func() {
			So(rec.Scored(), ShouldBeFalse)
		})

		Convey("When a score is attached", func() {
			score := 0.75
			rec.GTCScore = &score
			So(rec.Scored(), ShouldBeTrue)
		})

		Convey("When computing age", func() {
			now := ingested.Add(48 * time.Hour)
			So(rec.AgeAt(now), ShouldEqual, 48*time.Hour)
		})
	})
}

func TestConflictRecord(t *testing.T) {
	Convey("Given a resolved conflict", t, func() {
		c := model.ConflictRecord{
			ID:         "conflict-1",
			RecordID:   "rec-a",
			NeighborID: "rec-b",
			WinnerID:   "rec-a",
		}

		Convey("When the incoming record wins", func() {
			So(c.LoserID(), ShouldEqual, "rec-b")
		})

		Convey("When the neighbor wins", func() {
			c.WinnerID = "rec-b"
			So(c.LoserID(), ShouldEqual, "rec-a")
		})
	})
}
