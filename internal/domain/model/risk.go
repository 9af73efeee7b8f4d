package model

import "time"

// FailureMode names the dominant reason a target looks risky.
type FailureMode string

// Failure modes. Grade failure overrides structure when both trigger since
// grade failure is economically terminal.
const (
	FailureNone        FailureMode = "none"
	FailureStructure   FailureMode = "structure"
	FailureGrade       FailureMode = "grade"
	FailureDataDensity FailureMode = "data-density"
	FailureConfidence  FailureMode = "confidence-threshold"
)

// ConfidenceInterval is an approximate two-sided interval on the risk percent.
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// RiskAssessment is the output of a single dry-hole risk query. It is
// created per request and never mutated afterwards.
type RiskAssessment struct {
	ID             string             `json:"id"`
	Latitude       float64            `json:"latitude"`
	Longitude      float64            `json:"longitude"`
	Commodity      string             `json:"commodity"`
	RadiusUnits    float64            `json:"radius_units"`
	RiskPercent    float64            `json:"risk_percent"`
	RiskCategory   string             `json:"risk_category"`
	Recommendation string             `json:"recommendation"`
	Interval90     ConfidenceInterval `json:"confidence_interval_90"`
	FailureMode    FailureMode        `json:"critical_failure_mode"`
	AnchorRecords  []string           `json:"anchor_records"`
	Reasoning      []string           `json:"reasoning"`
	AssessedAt     time.Time          `json:"assessed_at"`
}

// MineralDomainProfile is static per-commodity configuration: which
// measurement types indicate the commodity, which lithologies host it, and
// the minimum average GTC acceptable for a drilling decision. Profiles are
// loaded at process start and immutable at runtime.
type MineralDomainProfile struct {
	Commodity           string            `koanf:"commodity" json:"commodity"`
	PrimaryIndicators   []MeasurementType `koanf:"primary_indicators" json:"primary_indicators"`
	SecondaryIndicators []MeasurementType `koanf:"secondary_indicators" json:"secondary_indicators"`
	HostLithologies     []string          `koanf:"host_lithologies" json:"host_lithologies"`
	FavorableStructures []string          `koanf:"favorable_structures" json:"favorable_structures"`
	CutoffGrade         float64           `koanf:"cutoff_grade" json:"cutoff_grade"`
	MinGTCForDrilling   float64           `koanf:"min_gtc_for_drilling" json:"min_gtc_for_drilling"`
}

// FavorableStructure reports whether a structural classification tag is
// favorable for this commodity.
func (p *MineralDomainProfile) FavorableStructure(tag string) bool {
	for _, s := range p.FavorableStructures {
		if s == tag {
			return true
		}
	}
	return false
}

// PrimaryIndicator reports whether t is a primary indicator type for p.
func (p *MineralDomainProfile) PrimaryIndicator(t MeasurementType) bool {
	for _, i := range p.PrimaryIndicators {
		if i == t {
			return true
		}
	}
	return false
}
