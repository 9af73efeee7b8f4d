package risk_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/internal/domain/risk"
)

func floatPtr(v float64) *float64 { return &v }

// stubSource returns a fixed neighbor set.
type stubSource struct {
	records []model.MeasurementRecord
	err     error
}

func (s *stubSource) QueryNear(_ context.Context, _ model.Location, _ float64, _ []model.MeasurementType) ([]model.MeasurementRecord, error) {
	return s.records, s.err
}

func scoredAssay(id string, grade, gtc float64) model.MeasurementRecord {
	return model.MeasurementRecord{
		ID:       id,
		Location: model.Location{Latitude: 34.0, Longitude: -106.0, DepthTop: 100},
		Measurement: model.Measurement{
			Type:  model.TypeAssayGrade,
			Value: floatPtr(grade),
			Unit:  "g/t",
		},
		Status:   model.StatusQCPassed,
		Tier:     model.TierClientProprietary,
		GTCScore: floatPtr(gtc),
	}
}

func scoredStructural(id, category string, gtc float64) model.MeasurementRecord {
	return model.MeasurementRecord{
		ID:       id,
		Location: model.Location{Latitude: 34.0, Longitude: -106.0},
		Measurement: model.Measurement{
			Type:          model.TypeStructuralGeometry,
			CategoryValue: category,
		},
		Status:   model.StatusQCPassed,
		Tier:     model.TierClientProprietary,
		GTCScore: floatPtr(gtc),
	}
}

func newAssessor(src risk.NeighborSource) *risk.Assessor {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return risk.New(src, risk.NewRegistry(),
		risk.WithNow(func() time.Time { return now }),
		risk.WithIDGenerator(func() string { return "assessment-1" }),
	)
}

func TestAssess(t *testing.T) {
	Convey("Given a risk assessor", t, func() {
		ctx := context.Background()
		query := risk.Query{Latitude: 34.0, Longitude: -106.0, Commodity: "gold"}

		Convey("When the commodity is unknown", func() {
			a := newAssessor(&stubSource{})
			_, err := a.Assess(ctx, risk.Query{Latitude: 34, Longitude: -106, Commodity: "unobtainium"})

			So(errors.Is(err, risk.ErrUnknownCommodity), ShouldBeTrue)
		})

		Convey("When the neighbor query fails", func() {
			a := newAssessor(&stubSource{err: errors.New("store down")})
			_, err := a.Assess(ctx, query)

			So(errors.Is(err, risk.ErrNeighborQuery), ShouldBeTrue)
		})

		Convey("When no data exists near the target", func() {
			a := newAssessor(&stubSource{})
			out, err := a.Assess(ctx, query)

			Convey("Then the assessment should be high risk on structure", func() {
				So(err, ShouldBeNil)
				// structural 0, grade 0.5 uninformed, density 0.8:
				// 0.4 + 0.2 + 0.16 = 0.76
				So(out.RiskPercent, ShouldAlmostEqual, 76.0, 0.01)
				So(out.RiskCategory, ShouldEqual, "high")
				So(out.FailureMode, ShouldEqual, model.FailureStructure)
				So(out.Recommendation, ShouldContainSubstring, "structural survey")
				So(out.AnchorRecords, ShouldBeEmpty)
			})
		})

		Convey("When the area is densely sampled, structurally favorable and high grade", func() {
			var records []model.MeasurementRecord
			for i := 0; i < 12; i++ {
				// grades well above the 0.5 g/t gold cutoff, with spread
				records = append(records, scoredAssay(fmt.Sprintf("assay-%d", i), 2.0+float64(i)*0.3, 0.8))
			}
			for i := 0; i < 4; i++ {
				records = append(records, scoredStructural(fmt.Sprintf("struct-%d", i), "shear-zone", 0.8))
			}
			a := newAssessor(&stubSource{records: records})

			out, err := a.Assess(ctx, query)

			Convey("Then the recommendation should be to proceed", func() {
				So(err, ShouldBeNil)
				So(out.RiskPercent, ShouldBeLessThan, 40.0)
				So(out.RiskCategory, ShouldEqual, "low")
				So(out.Recommendation, ShouldEqual, "proceed")
				So(out.FailureMode, ShouldEqual, model.FailureNone)
				So(out.AnchorRecords, ShouldHaveLength, 16)
			})

			Convey("And the confidence interval should bracket the estimate", func() {
				So(out.Interval90.Low, ShouldBeLessThanOrEqualTo, out.RiskPercent)
				So(out.Interval90.High, ShouldBeGreaterThanOrEqualTo, out.RiskPercent)
				So(out.Interval90.Low, ShouldBeGreaterThanOrEqualTo, 0)
				So(out.Interval90.High, ShouldBeLessThanOrEqualTo, 100)
			})
		})

		Convey("When structure is unfavorable and no assays exist", func() {
			records := []model.MeasurementRecord{
				scoredStructural("struct-1", "flat-bedding", 0.8),
				scoredStructural("struct-2", "flat-bedding", 0.8),
			}
			a := newAssessor(&stubSource{records: records})

			out, err := a.Assess(ctx, query)

			Convey("Then structure failure should dominate", func() {
				So(err, ShouldBeNil)
				So(out.RiskPercent, ShouldBeGreaterThan, 60.0)
				So(out.FailureMode, ShouldEqual, model.FailureStructure)
				So(out.Recommendation, ShouldContainSubstring, "structural survey")
			})
		})

		Convey("When grades sit far below the cutoff", func() {
			var records []model.MeasurementRecord
			for i := 0; i < 16; i++ {
				records = append(records, scoredAssay(fmt.Sprintf("assay-%d", i), 0.05+float64(i)*0.005, 0.8))
			}
			a := newAssessor(&stubSource{records: records})

			out, err := a.Assess(ctx, query)

			Convey("Then grade failure should override structure", func() {
				So(err, ShouldBeNil)
				So(out.FailureMode, ShouldEqual, model.FailureGrade)
				So(out.RiskPercent, ShouldBeGreaterThan, 65.0)
				So(out.Recommendation, ShouldContainSubstring, "assay")
			})
		})

		Convey("When primary-indicator confidence is below the drilling threshold", func() {
			var records []model.MeasurementRecord
			for i := 0; i < 20; i++ {
				// healthy grades but weak confidence (< 0.55 for gold)
				records = append(records, scoredAssay(fmt.Sprintf("assay-%d", i), 2.0, 0.3))
			}
			a := newAssessor(&stubSource{records: records})

			out, err := a.Assess(ctx, query)

			Convey("Then the confidence override should short-circuit", func() {
				So(err, ShouldBeNil)
				So(out.RiskPercent, ShouldEqual, 85.0)
				So(out.RiskCategory, ShouldEqual, "very-high")
				So(out.FailureMode, ShouldEqual, model.FailureConfidence)
				So(out.Interval90.Low, ShouldEqual, 85.0)
				So(out.Interval90.High, ShouldEqual, 100.0)
			})
		})

		Convey("When every assay is a non-detect", func() {
			var records []model.MeasurementRecord
			for i := 0; i < 6; i++ {
				r := scoredAssay(fmt.Sprintf("nd-%d", i), 0, 0.8)
				r.Measurement.Value = nil
				r.Measurement.IsNonDetect = true
				r.Measurement.DetectionLimit = floatPtr(0.01)
				records = append(records, r)
			}
			a := newAssessor(&stubSource{records: records})

			out, err := a.Assess(ctx, query)

			Convey("Then exceedance should be remote and grade failure raised", func() {
				So(err, ShouldBeNil)
				So(out.FailureMode, ShouldEqual, model.FailureGrade)
				So(out.RiskPercent, ShouldBeGreaterThan, 65.0)
			})
		})

		Convey("When unscored records sit nearby", func() {
			unscored := scoredAssay("raw-1", 2.0, 0)
			unscored.GTCScore = nil
			a := newAssessor(&stubSource{records: []model.MeasurementRecord{unscored}})

			out, err := a.Assess(ctx, query)

			Convey("Then they should not anchor the assessment", func() {
				So(err, ShouldBeNil)
				So(out.AnchorRecords, ShouldBeEmpty)
			})
		})

		Convey("When the radius is omitted", func() {
			a := newAssessor(&stubSource{})
			out, err := a.Assess(ctx, query)

			So(err, ShouldBeNil)
			So(out.RadiusUnits, ShouldEqual, risk.DefaultRadius)
		})

		Convey("When assessing identical inputs twice", func() {
			var records []model.MeasurementRecord
			for i := 0; i < 8; i++ {
				records = append(records, scoredAssay(fmt.Sprintf("assay-%d", i), 1.0+float64(i)*0.1, 0.7))
			}
			a := newAssessor(&stubSource{records: records})

			first, err1 := a.Assess(ctx, query)
			second, err2 := a.Assess(ctx, query)

			Convey("Then the risk numbers should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.RiskPercent, ShouldEqual, second.RiskPercent)
				So(first.Interval90, ShouldResemble, second.Interval90)
				So(first.FailureMode, ShouldEqual, second.FailureMode)
			})
		})
	})
}

func TestComposite(t *testing.T) {
	Convey("Given the composite risk weighting", t, func() {
		Convey("When all sub-scores are perfect", func() {
			So(risk.Composite(1.0, 1.0, 0.1), ShouldAlmostEqual, 0.02, 1e-9)
		})

		Convey("When everything is adverse", func() {
			So(risk.Composite(0, 0, 0.8), ShouldAlmostEqual, 0.96, 1e-9)
		})

		Convey("When only structure fails", func() {
			So(risk.Composite(0, 1.0, 0.1), ShouldAlmostEqual, 0.42, 1e-9)
		})

		Convey("When a moderately surveyed favorable site is weighed", func() {
			// (1-0.83)*0.4 + (1-0.82)*0.4 + 0.3*0.2 = 0.20
			So(risk.Composite(0.83, 0.82, 0.3), ShouldAlmostEqual, 0.20, 1e-9)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the profile registry", t, func() {
		Convey("When looking up built-in commodities", func() {
			r := risk.NewRegistry()

			for _, c := range []string{"gold", "copper", "lithium", "iron"} {
				p, ok := r.Lookup(c)
				So(ok, ShouldBeTrue)
				So(p.Commodity, ShouldEqual, c)
				So(p.CutoffGrade, ShouldBeGreaterThan, 0)
			}
		})

		Convey("When lookup case differs", func() {
			r := risk.NewRegistry()
			p, ok := r.Lookup("  GOLD ")
			So(ok, ShouldBeTrue)
			So(p.Commodity, ShouldEqual, "gold")
		})

		Convey("When an override replaces a built-in", func() {
			r := risk.NewRegistry(model.MineralDomainProfile{
				Commodity:         "gold",
				CutoffGrade:       1.5,
				MinGTCForDrilling: 0.7,
			})
			p, ok := r.Lookup("gold")
			So(ok, ShouldBeTrue)
			So(p.CutoffGrade, ShouldEqual, 1.5)
		})

		Convey("When an override adds a new commodity", func() {
			r := risk.NewRegistry(model.MineralDomainProfile{
				Commodity:         "nickel",
				CutoffGrade:       0.8,
				MinGTCForDrilling: 0.5,
			})
			_, ok := r.Lookup("nickel")
			So(ok, ShouldBeTrue)
			So(r.Commodities(), ShouldContain, "nickel")
		})
	})
}
