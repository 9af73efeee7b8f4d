// Package scoring computes the ground-truth confidence (GTC) score for a
// measurement record from five independent factors. Identical inputs always
// yield the identical score; replay and audit depend on this.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
)

// Factor table constants.
const (
	defaultBaseConfidence = 0.5

	freshnessUnderOneYear   = 1.0
	freshnessOneToFiveYears = 0.9
	freshnessFiveToTenYears = 0.75
	freshnessOverTenYears   = 0.5

	consensusStrongAgreement = 1.1
	consensusPartial         = 1.0
	consensusContradictTier  = 0.9
	consensusContradictPeer  = 0.5
	consensusStrongContra    = 0.3

	yearHours = 24 * 365
)

// baseConfidence maps measurement types to their intrinsic reliability.
// Unmapped types fall back to defaultBaseConfidence.
var baseConfidence = map[model.MeasurementType]float64{
	model.TypeAssayGrade:          1.0,
	model.TypeSonicVelocity:       0.95,
	model.TypeDensityLog:          0.90,
	model.TypeSeismicVelocity:     0.75,
	model.TypeGravity:             0.65,
	model.TypeSpectralReflectance: 0.60,
	model.TypeSurfaceGeochem:      0.50,
}

// validationMultiplier rewards QC progression.
var validationMultiplier = map[model.ValidationStatus]float64{
	model.StatusRaw:          0.7,
	model.StatusQCPassed:     0.95,
	model.StatusPeerReviewed: 1.0,
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithNow overrides the clock used for age computation. Injecting a fixed
// clock makes scores exactly reproducible.
func WithNow(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNeighborRadius sets the radius within which neighbors contribute to
// the consensus factor.
func WithNeighborRadius(r float64) Option {
	return func(s *Scorer) {
		if r > 0 {
			s.neighborRadius = r
		}
	}
}

// Scorer computes GTC scores. It is stateless apart from configuration and
// safe for concurrent use.
type Scorer struct {
	now            func() time.Time
	neighborRadius float64
}

// New constructs a Scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		now:            time.Now,
		neighborRadius: 1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the composite GTC for rec given its current neighbor set,
// clamped to [0, 1]. A missing factor table entry with no defined default is
// a scoring inconsistency: the record is left unscored rather than guessed.
func (s *Scorer) Score(ctx context.Context, rec *model.MeasurementRecord, neighbors []model.MeasurementRecord) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("scoring canceled: %w", err)
	}

	base, ok := baseConfidence[rec.Measurement.Type]
	if !ok {
		if !rec.Measurement.Type.Valid() {
			return 0, fmt.Errorf("%w: no base confidence for type %q", ErrScoringInconsistency, rec.Measurement.Type)
		}
		base = defaultBaseConfidence
	}

	authority := rec.Tier.Weight()
	if authority == 0 {
		return 0, fmt.Errorf("%w: no authority weight for tier %q", ErrScoringInconsistency, rec.Tier)
	}

	validation, ok := validationMultiplier[rec.Status]
	if !ok {
		return 0, fmt.Errorf("%w: no validation multiplier for status %q", ErrScoringInconsistency, rec.Status)
	}

	freshness := freshnessFactor(rec.AgeAt(s.now()))
	consensus := s.consensusFactor(rec, neighbors)

	gtc := base * freshness * consensus * authority * validation
	return math.Max(0, math.Min(1, gtc)), nil
}

// freshnessFactor discounts old observations.
func freshnessFactor(age time.Duration) float64 {
	years := age.Hours() / yearHours
	switch {
	case years < 1:
		return freshnessUnderOneYear
	case years < 5:
		return freshnessOneToFiveYears
	case years < 10:
		return freshnessFiveToTenYears
	default:
		return freshnessOverTenYears
	}
}

// consensusFactor grades agreement with comparable in-radius neighbors. The
// worst observed delta drives the category; with no comparable neighbor the
// factor is neutral.
func (s *Scorer) consensusFactor(rec *model.MeasurementRecord, neighbors []model.MeasurementRecord) float64 {
	if rec.Measurement.Value == nil {
		return consensusPartial
	}

	worst := -1.0
	higherTierDisagrees := false
	for i := range neighbors {
		n := &neighbors[i]
		if n.ID == rec.ID || !rec.Measurement.Type.ComparableWith(n.Measurement.Type) {
			continue
		}
		if n.Measurement.Value == nil {
			continue
		}
		if geo.Distance(rec.Location, n.Location) > s.neighborRadius {
			continue
		}
		delta := valueDelta(*rec.Measurement.Value, *n.Measurement.Value)
		if delta > worst {
			worst = delta
		}
		if delta > 0.10 && n.Tier.Weight() > rec.Tier.Weight() {
			higherTierDisagrees = true
		}
	}

	switch {
	case worst < 0:
		return consensusPartial // no comparable neighbors
	case worst <= 0.10:
		return consensusStrongAgreement
	case worst <= 0.30:
		return consensusPartial
	case worst <= 0.50:
		if higherTierDisagrees {
			return consensusContradictTier
		}
		return consensusContradictPeer
	default:
		return consensusStrongContra
	}
}

func valueDelta(a, b float64) float64 {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), 1e-9)
	return math.Abs(a-b) / denom
}
