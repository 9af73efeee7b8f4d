package model

import "time"

// ValidationStatus tracks QC progression of a record. Transitions are
// monotonic: raw -> qc-passed -> peer-reviewed, never backward.
type ValidationStatus string

// Validation statuses in promotion order.
const (
	StatusRaw          ValidationStatus = "raw"
	StatusQCPassed     ValidationStatus = "qc-passed"
	StatusPeerReviewed ValidationStatus = "peer-reviewed"
)

var statusRank = map[ValidationStatus]int{
	StatusRaw:          0,
	StatusQCPassed:     1,
	StatusPeerReviewed: 2,
}

// Valid reports whether s is a known status.
func (s ValidationStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanPromoteTo reports whether the transition s -> next moves strictly
// forward in the promotion order.
func (s ValidationStatus) CanPromoteTo(next ValidationStatus) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[next]
	return okA && okB && b > a
}

// SourceTier is the fixed authority ranking of the originating source.
type SourceTier string

// Authority tiers, highest trust first.
const (
	TierPublicAuthoritative SourceTier = "public-authoritative"
	TierCommercialLicensed  SourceTier = "commercial-licensed"
	TierClientProprietary   SourceTier = "client-proprietary"
	TierRealtimeOperational SourceTier = "realtime-operational"
	TierAccessRestricted    SourceTier = "access-restricted"
)

// tierWeights is immutable; tier weight is derived solely from SourceTier
// and never recomputed elsewhere.
var tierWeights = map[SourceTier]float64{
	TierPublicAuthoritative: 1.0,
	TierCommercialLicensed:  0.9,
	TierClientProprietary:   0.8,
	TierRealtimeOperational: 0.7,
	TierAccessRestricted:    0.6,
}

// Valid reports whether t is a known tier.
func (t SourceTier) Valid() bool {
	_, ok := tierWeights[t]
	return ok
}

// Weight returns the immutable authority weight for t; zero for unknown tiers.
func (t SourceTier) Weight() float64 {
	return tierWeights[t]
}

// ConflictState marks whether a record participates in any open conflict.
type ConflictState string

// Conflict states.
const (
	ConflictClean       ConflictState = "clean"
	ConflictFlagged     ConflictState = "flagged"
	ConflictUnderReview ConflictState = "under-review"
)

// Location places an observation in space. Coordinates are WGS84-equivalent;
// depths and radii are in abstract distance-units.
type Location struct {
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	DepthTop          float64  `json:"depth_top"`
	DepthBottom       *float64 `json:"depth_bottom,omitempty"`
	UncertaintyRadius float64  `json:"uncertainty_radius"`
}

// GeologicContext carries constrained descriptive tags for an observation.
type GeologicContext struct {
	Lithology           string `json:"lithology,omitempty"`
	Alteration          string `json:"alteration,omitempty"`
	StructuralControl   string `json:"structural_control,omitempty"`
	MineralizationStyle string `json:"mineralization_style,omitempty"`
}

// Provenance records where a measurement came from and how it got here.
// IntegrityHash is computed once over the canonical payload and never changes.
type Provenance struct {
	SourceID       string    `json:"source_id"`
	IngestedAt     time.Time `json:"ingested_at"`
	IngestedBy     string    `json:"ingested_by"`
	IntegrityHash  string    `json:"integrity_hash"`
	ChainOfCustody []string  `json:"chain_of_custody,omitempty"`
}

// MeasurementRecord is one physical observation after validation. Raw fields
// are immutable after ingest; only ConflictState, ConflictIDs, GTCScore and
// Status may change, and Status only moves forward.
type MeasurementRecord struct {
	ID          string           `json:"id"`
	Location    Location         `json:"location"`
	Measurement Measurement      `json:"measurement"`
	Context     GeologicContext  `json:"geologic_context"`
	Status      ValidationStatus `json:"validation_status"`
	Tier        SourceTier       `json:"source_tier"`
	GTCScore    *float64         `json:"gtc_score,omitempty"`
	Conflict    ConflictState    `json:"conflict_state"`
	ConflictIDs []string         `json:"conflict_ids,omitempty"`
	Provenance  Provenance       `json:"provenance"`
}

// Scored reports whether the record carries a computed GTC.
func (r *MeasurementRecord) Scored() bool {
	return r.GTCScore != nil
}

// AgeAt returns the record age relative to now, based on ingestion time.
func (r *MeasurementRecord) AgeAt(now time.Time) time.Duration {
	return now.Sub(r.Provenance.IngestedAt)
}
