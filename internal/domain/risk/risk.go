// Package risk derives a probabilistic dry-hole assessment for a target
// location and commodity from nearby scored measurement records.
package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/strata/internal/domain/model"
)

// Assessment constants.
const (
	// DefaultRadius is the neighbor search radius for risk queries, in
	// distance-units.
	DefaultRadius = 5.0

	sparseDataThreshold   = 5
	moderateDataThreshold = 15
	sparseDataRisk        = 0.8
	moderateDataRisk      = 0.3
	denseDataRisk         = 0.1

	structuralWeight  = 0.4
	gradeWeight       = 0.4
	dataDensityWeight = 0.2

	minFavorableFraction = 0.5
	minGradeProbability  = 0.4
	// Exceedance probability assumed when no assay data exists nearby.
	uninformedGradeProbability = 0.5

	z90 = 1.645

	proceedBelowPercent        = 40.0
	acquireDataBelowPercent    = 65.0
	confidenceShortCircuitRisk = 85.0
)

// NeighborSource provides read access to committed, scored records. Risk
// queries read a consistent snapshot but not a linearizable one: a record
// ingested in the same instant may be missed, which is acceptable.
type NeighborSource interface {
	QueryNear(ctx context.Context, loc model.Location, radius float64, typeFilter []model.MeasurementType) ([]model.MeasurementRecord, error)
}

// Query identifies a proposed drill target.
type Query struct {
	Latitude  float64
	Longitude float64
	Commodity string
	Radius    float64 // distance-units; DefaultRadius when zero
}

// Option applies a configuration option to the Assessor.
type Option func(*Assessor)

// WithNow overrides the assessment timestamp clock.
func WithNow(now func() time.Time) Option {
	return func(a *Assessor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides assessment id generation.
func WithIDGenerator(gen func() string) Option {
	return func(a *Assessor) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// Assessor answers dry-hole risk queries. Pure reader: it never writes
// records and is safe to cancel at any point.
type Assessor struct {
	source   NeighborSource
	registry *Registry
	now      func() time.Time
	newID    func() string
}

// New constructs an Assessor over a neighbor source and profile registry.
func New(source NeighborSource, registry *Registry, opts ...Option) *Assessor {
	a := &Assessor{
		source:   source,
		registry: registry,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess computes the dry-hole risk for q.
func (a *Assessor) Assess(ctx context.Context, q Query) (model.RiskAssessment, error) {
	profile, ok := a.registry.Lookup(q.Commodity)
	if !ok {
		return model.RiskAssessment{}, fmt.Errorf("%w: %q", ErrUnknownCommodity, q.Commodity)
	}

	radius := q.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	target := model.Location{Latitude: q.Latitude, Longitude: q.Longitude}

	nearby, err := a.source.QueryNear(ctx, target, radius, nil)
	if err != nil {
		return model.RiskAssessment{}, fmt.Errorf("%w: %v", ErrNeighborQuery, err)
	}

	// Only committed, scored records anchor an assessment.
	scored := make([]model.MeasurementRecord, 0, len(nearby))
	for _, r := range nearby {
		if r.Scored() {
			scored = append(scored, r)
		}
	}

	out := model.RiskAssessment{
		ID:          a.newID(),
		Latitude:    q.Latitude,
		Longitude:   q.Longitude,
		Commodity:   profile.Commodity,
		RadiusUnits: radius,
		FailureMode: model.FailureNone,
		AssessedAt:  a.now().UTC(),
	}
	for _, r := range scored {
		out.AnchorRecords = append(out.AnchorRecords, r.ID)
	}

	// Mineral-specific override: weak confidence on the primary indicators
	// short-circuits everything else.
	if avg, count := primaryIndicatorGTC(profile, scored); count > 0 && avg < profile.MinGTCForDrilling {
		out.RiskPercent = confidenceShortCircuitRisk
		out.Interval90 = model.ConfidenceInterval{Low: confidenceShortCircuitRisk, High: 100}
		out.RiskCategory = "very-high"
		out.FailureMode = model.FailureConfidence
		out.Recommendation = "acquire higher-confidence data before proceeding"
		out.Reasoning = append(out.Reasoning, fmt.Sprintf(
			"average GTC of %d primary-indicator records is %.2f, below the %s drilling threshold %.2f",
			count, avg, profile.Commodity, profile.MinGTCForDrilling))
		return out, nil
	}

	densityRisk := dataDensityRisk(len(scored))
	out.Reasoning = append(out.Reasoning, fmt.Sprintf("%d scored records within %.1f units (data-density risk %.1f)", len(scored), radius, densityRisk))

	structFrac, structCount := structuralFavorability(profile, scored)
	out.Reasoning = append(out.Reasoning, fmt.Sprintf("structural favorability %.2f from %d structural records", structFrac, structCount))
	if structFrac < minFavorableFraction {
		out.FailureMode = model.FailureStructure
	}

	grade := a.gradeProbability(profile, scored)
	out.Reasoning = append(out.Reasoning, fmt.Sprintf(
		"P(grade > %.2f cutoff) = %.2f from %d assays (%d detects)",
		profile.CutoffGrade, grade.prob, grade.samples, grade.detects))
	if grade.samples > 0 && grade.prob < minGradeProbability {
		// Grade failure is economically terminal and overrides structure.
		out.FailureMode = model.FailureGrade
	}

	riskFrac := Composite(structFrac, grade.prob, densityRisk)
	out.RiskPercent = round1(riskFrac * 100)
	if out.FailureMode == model.FailureNone && densityRisk >= sparseDataRisk && out.RiskPercent >= proceedBelowPercent {
		out.FailureMode = model.FailureDataDensity
	}

	half := intervalHalfWidth(grade)
	out.Interval90 = model.ConfidenceInterval{
		Low:  round1(clampPercent(out.RiskPercent - half)),
		High: round1(clampPercent(out.RiskPercent + half)),
	}

	out.RiskCategory, out.Recommendation = categorize(out.RiskPercent, out.FailureMode)
	return out, nil
}

// Composite combines the three sub-scores into a dry-hole risk fraction.
// Structural plausibility and grade probability are success likelihoods, so
// their complements contribute risk.
func Composite(structural, gradeProbability, densityRisk float64) float64 {
	return (1-structural)*structuralWeight + (1-gradeProbability)*gradeWeight + densityRisk*dataDensityWeight
}

// dataDensityRisk maps the nearby scored-record count to a risk contribution.
func dataDensityRisk(count int) float64 {
	switch {
	case count < sparseDataThreshold:
		return sparseDataRisk
	case count < moderateDataThreshold:
		return moderateDataRisk
	default:
		return denseDataRisk
	}
}

// structuralFavorability returns the fraction of structural-geometry records
// classified favorable for the commodity. With no structural data the target
// defaults to unfavorable.
func structuralFavorability(profile model.MineralDomainProfile, records []model.MeasurementRecord) (float64, int) {
	total, favorable := 0, 0
	for _, r := range records {
		if r.Measurement.Type != model.TypeStructuralGeometry {
			continue
		}
		total++
		if profile.FavorableStructure(r.Measurement.CategoryValue) {
			favorable++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(favorable) / float64(total), total
}

// gradeProbability fits nearby assay grades, treating non-detects as
// left-censored at their detection limits.
func (a *Assessor) gradeProbability(profile model.MineralDomainProfile, records []model.MeasurementRecord) gradeEstimate {
	var detects, censored []float64
	for _, r := range records {
		if r.Measurement.Type != model.TypeAssayGrade {
			continue
		}
		switch {
		case r.Measurement.IsNonDetect && r.Measurement.DetectionLimit != nil:
			censored = append(censored, *r.Measurement.DetectionLimit)
		case r.Measurement.Value != nil:
			detects = append(detects, *r.Measurement.Value)
		}
	}
	if len(detects)+len(censored) == 0 {
		return gradeEstimate{prob: uninformedGradeProbability}
	}
	return estimateExceedance(detects, censored, profile.CutoffGrade)
}

// intervalHalfWidth derives an approximate 90% half-width in percent from
// the grade-distribution sampling variance.
func intervalHalfWidth(g gradeEstimate) float64 {
	n := g.samples
	if n < 1 {
		n = 1
	}
	se := math.Sqrt(g.prob * (1 - g.prob) / float64(n))
	return z90 * gradeWeight * se * 100
}

// primaryIndicatorGTC averages the GTC of records whose type is a primary
// indicator for the commodity.
func primaryIndicatorGTC(profile model.MineralDomainProfile, records []model.MeasurementRecord) (float64, int) {
	sum, count := 0.0, 0
	for _, r := range records {
		if !profile.PrimaryIndicator(r.Measurement.Type) || !r.Scored() {
			continue
		}
		sum += *r.GTCScore
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// categorize maps the risk percent to a category and recommendation. Above
// the acquire-data band the recommendation names the dominating failure mode.
func categorize(percent float64, mode model.FailureMode) (string, string) {
	switch {
	case percent < proceedBelowPercent:
		return "low", "proceed"
	case percent <= acquireDataBelowPercent:
		return "moderate", "acquire additional data"
	default:
		switch mode {
		case model.FailureGrade:
			return "high", "acquire infill assay sampling before proceeding"
		case model.FailureDataDensity:
			return "high", "acquire additional data coverage before proceeding"
		default:
			return "high", "acquire structural survey before proceeding"
		}
	}
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
