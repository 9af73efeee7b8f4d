// Package conflict detects statistically significant disagreements between
// overlapping measurement records and resolves them deterministically.
package conflict

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
)

// Detection defaults.
const (
	defaultRadius         = 1.0  // distance-units
	defaultDepthThreshold = 10.0 // distance-units
	deltaEpsilon          = 1e-9
	// Value deltas strictly below this fraction count as agreement; at the
	// boundary the severity ladder already reads medium, so it is flagged.
	agreementDelta = 0.10
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithRadius sets the neighbor search radius in distance-units.
func WithRadius(r float64) Option {
	return func(d *Detector) {
		if r > 0 {
			d.radius = r
		}
	}
}

// WithDepthThreshold sets the depth gap beyond which records conflict.
func WithDepthThreshold(t float64) Option {
	return func(d *Detector) {
		if t > 0 {
			d.depthThreshold = t
		}
	}
}

// WithNow overrides the clock used for conflict timestamps.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// Finding pairs a detected conflict with the state the losing record should
// take. The loser is annotated, never mutated in its raw fields.
type Finding struct {
	Conflict   model.ConflictRecord
	LoserState model.ConflictState
}

// Detector flags disagreements between a record and its spatial neighbors.
// Detection is pure: re-running with identical inputs yields identical
// findings (ids and timestamps aside), and nothing is written here.
type Detector struct {
	radius         float64
	depthThreshold float64
	now            func() time.Time
	newID          func() string
}

// New constructs a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		radius:         defaultRadius,
		depthThreshold: defaultDepthThreshold,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Radius returns the configured neighbor search radius.
func (d *Detector) Radius() float64 {
	return d.radius
}

// Detect compares rec against neighbors and returns zero or more findings.
// Neighbors outside the radius or of non-comparable types are skipped.
func (d *Detector) Detect(ctx context.Context, rec *model.MeasurementRecord, neighbors []model.MeasurementRecord) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conflict detection canceled: %w", err)
	}

	var findings []Finding
	for i := range neighbors {
		n := &neighbors[i]
		if n.ID == rec.ID {
			continue
		}
		if !rec.Measurement.Type.ComparableWith(n.Measurement.Type) {
			continue
		}
		if geo.Distance(rec.Location, n.Location) > d.radius {
			continue
		}

		severity, delta, reason, ok := d.classify(rec, n)
		if !ok {
			continue
		}

		winnerID, loserState, resolution := resolve(rec, n)
		findings = append(findings, Finding{
			Conflict: model.ConflictRecord{
				ID:           d.newID(),
				RecordID:     rec.ID,
				NeighborID:   n.ID,
				DeltaPercent: delta,
				Severity:     severity,
				WinnerID:     winnerID,
				Reason:       reason + "; " + resolution,
				DetectedAt:   d.now().UTC(),
			},
			LoserState: loserState,
		})
	}
	return findings, nil
}

// classify applies the disagreement rules and returns the severity, the
// fractional value delta, and a human-readable reason. ok is false when the
// pair agrees.
func (d *Detector) classify(rec, n *model.MeasurementRecord) (model.Severity, float64, string, bool) {
	depthGap := geo.DepthGap(rec.Location, n.Location)
	depthMismatch := depthGap > d.depthThreshold

	// Detect-vs-non-detect is a statistical inconsistency, not a magnitude
	// disagreement: flagged medium regardless of numeric delta.
	if inconsistent, reason := nonDetectInconsistency(rec, n); inconsistent {
		sev := model.SeverityMedium
		if depthMismatch {
			sev = sev.AtLeast(model.SeverityMedium)
		}
		return sev, 0, reason, true
	}

	if rec.Measurement.Value != nil && n.Measurement.Value != nil {
		delta := valueDelta(*rec.Measurement.Value, *n.Measurement.Value)
		if delta >= agreementDelta {
			sev := model.SeverityForDelta(delta)
			if depthMismatch {
				sev = sev.AtLeast(model.SeverityLow)
			}
			return sev, delta, fmt.Sprintf("value mismatch: delta %.1f%%", delta*100), true
		}
		if depthMismatch {
			return model.SeverityLow, delta, fmt.Sprintf("depth mismatch: gap %.1f units", depthGap), true
		}
		return "", 0, "", false
	}

	if depthMismatch {
		return model.SeverityLow, 0, fmt.Sprintf("depth mismatch: gap %.1f units", depthGap), true
	}
	return "", 0, "", false
}

// valueDelta is |a-b| / max(|a|, |b|, epsilon). Raw values only: GTC never
// influences detection, only resolution tie-breaking.
func valueDelta(a, b float64) float64 {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), deltaEpsilon)
	return math.Abs(a-b) / denom
}

// nonDetectInconsistency reports whether one side detected a value above the
// other side's detection limit while the other side saw nothing.
func nonDetectInconsistency(rec, n *model.MeasurementRecord) (bool, string) {
	if n.Measurement.IsNonDetect && rec.Measurement.Value != nil && n.Measurement.DetectionLimit != nil &&
		*rec.Measurement.Value > *n.Measurement.DetectionLimit {
		return true, "detect above neighbor detection limit vs neighbor non-detect"
	}
	if rec.Measurement.IsNonDetect && n.Measurement.Value != nil && rec.Measurement.DetectionLimit != nil &&
		*n.Measurement.Value > *rec.Measurement.DetectionLimit {
		return true, "non-detect vs neighbor detect above detection limit"
	}
	return false, ""
}

// resolve applies the deterministic total order: higher tier weight wins; on
// tie, higher GTC wins when both exist; on tie, the earlier-ingested record
// wins and the later one goes under review rather than being discarded.
func resolve(rec, n *model.MeasurementRecord) (winnerID string, loserState model.ConflictState, reason string) {
	rw, nw := rec.Tier.Weight(), n.Tier.Weight()
	switch {
	case rw > nw:
		return rec.ID, model.ConflictFlagged, fmt.Sprintf("resolved by tier: %s outranks %s", rec.Tier, n.Tier)
	case nw > rw:
		return n.ID, model.ConflictFlagged, fmt.Sprintf("resolved by tier: %s outranks %s", n.Tier, rec.Tier)
	}

	if rec.Scored() && n.Scored() {
		if *rec.GTCScore > *n.GTCScore {
			return rec.ID, model.ConflictFlagged, fmt.Sprintf("resolved by confidence: %.4f > %.4f", *rec.GTCScore, *n.GTCScore)
		}
		if *n.GTCScore > *rec.GTCScore {
			return n.ID, model.ConflictFlagged, fmt.Sprintf("resolved by confidence: %.4f > %.4f", *n.GTCScore, *rec.GTCScore)
		}
	}

	if rec.Provenance.IngestedAt.Before(n.Provenance.IngestedAt) {
		return rec.ID, model.ConflictUnderReview, "resolved by ingest order: earlier record wins, later under review"
	}
	return n.ID, model.ConflictUnderReview, "resolved by ingest order: earlier record wins, later under review"
}
