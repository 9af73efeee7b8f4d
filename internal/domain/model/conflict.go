package model

import "time"

// Severity classifies disagreement magnitude between two overlapping records.
type Severity string

// Severity tiers, ordered low to critical.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severity delta-percent thresholds.
const (
	deltaMedium   = 0.10
	deltaHigh     = 0.30
	deltaCritical = 0.50
)

// SeverityForDelta maps a fractional value delta to a severity tier.
func SeverityForDelta(delta float64) Severity {
	switch {
	case delta >= deltaCritical:
		return SeverityCritical
	case delta >= deltaHigh:
		return SeverityHigh
	case delta >= deltaMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast returns the more severe of s and floor.
func (s Severity) AtLeast(floor Severity) Severity {
	if severityRank[s] < severityRank[floor] {
		return floor
	}
	return s
}

// ConflictRecord is an append-only annotation of a detected disagreement.
// Creating one never mutates either underlying record's raw fields.
type ConflictRecord struct {
	ID           string    `json:"id"`
	RecordID     string    `json:"record_id"`
	NeighborID   string    `json:"neighbor_id"`
	DeltaPercent float64   `json:"delta_percent"`
	Severity     Severity  `json:"severity"`
	WinnerID     string    `json:"winner_id"`
	Reason       string    `json:"reason"`
	ReviewerNote string    `json:"reviewer_note,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

// LoserID returns the record on the losing side of the resolution.
func (c *ConflictRecord) LoserID() string {
	if c.WinnerID == c.RecordID {
		return c.NeighborID
	}
	return c.RecordID
}
