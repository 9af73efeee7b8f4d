package seedtool

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the engine
	NumSites   int           // Number of synthetic drill sites
	PerSite    int           // Records generated per site
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Commodity  string        // Commodity used for risk probes
	OutputFile string        // Output file for generated payloads
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Payload mirrors the ingestion request body.
type Payload struct {
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	DepthTop        float64  `json:"depth_top"`
	MeasurementType string   `json:"measurement_type"`
	Value           *float64 `json:"value,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	DetectionLimit  *float64 `json:"detection_limit,omitempty"`
	IsNonDetect     bool     `json:"is_non_detect,omitempty"`
	CategoryValue   string   `json:"category_value,omitempty"`
	Lithology       string   `json:"lithology,omitempty"`
	SourceTier      string   `json:"source_tier"`
	SourceID        string   `json:"source_id"`
	IngestedBy      string   `json:"ingested_by,omitempty"`
}

// IngestAck is the engine's ingestion response.
type IngestAck struct {
	RecordID  string   `json:"record_id"`
	GTCScore  *float64 `json:"gtc_score"`
	Success   bool     `json:"success"`
	Duplicate bool     `json:"duplicate"`
}

// RiskProbe pairs a site with the assessment the engine returned for it.
type RiskProbe struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RiskScore      float64 `json:"risk_score"`
	Category       string  `json:"risk_category"`
	Recommendation string  `json:"recommendation"`
}

// Stats holds run statistics.
type Stats struct {
	RecordsGenerated int
	RecordsSubmitted int
	RecordsAccepted  int
	RecordsDuplicate int
	RecordsFailed    int
	ConflictsListed  int
	RiskProbes       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
