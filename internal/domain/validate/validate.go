// Package validate normalizes raw measurement payloads into canonical
// records and enforces the schema invariants before anything reaches
// storage-adjacent logic.
package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/strata/internal/domain/model"
)

// Default spatial uncertainty when the payload omits one, in distance-units.
const defaultUncertaintyRadius = 50.0

// RawPayload mirrors the ingestion API request body. Range checks are
// declared as validator tags; cross-field invariants are enforced in code.
type RawPayload struct {
	Latitude          float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude         float64  `json:"longitude" validate:"gte=-180,lte=180"`
	DepthTop          float64  `json:"depth_top" validate:"gte=0"`
	DepthBottom       *float64 `json:"depth_bottom,omitempty"`
	UncertaintyRadius float64  `json:"uncertainty_radius,omitempty" validate:"gte=0"`

	MeasurementType string   `json:"measurement_type" validate:"required"`
	Value           *float64 `json:"value,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	DetectionLimit  *float64 `json:"detection_limit,omitempty"`
	IsNonDetect     bool     `json:"is_non_detect,omitempty"`
	CategoryValue   string   `json:"category_value,omitempty"`

	Lithology           string `json:"lithology,omitempty"`
	Alteration          string `json:"alteration,omitempty"`
	StructuralControl   string `json:"structural_control,omitempty"`
	MineralizationStyle string `json:"mineralization_style,omitempty"`

	ValidationStatus string   `json:"validation_status,omitempty"`
	SourceTier       string   `json:"source_tier" validate:"required"`
	SourceID         string   `json:"source_id" validate:"required"`
	IngestedBy       string   `json:"ingested_by,omitempty"`
	ChainOfCustody   []string `json:"chain_of_custody,omitempty"`
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithNow overrides the clock used for ingestion timestamps.
func WithNow(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(v *Validator) {
		if gen != nil {
			v.newID = gen
		}
	}
}

// Validator turns raw payloads into canonical MeasurementRecords. It has no
// storage access and no side effects beyond the record it returns.
type Validator struct {
	checker *validator.Validate
	now     func() time.Time
	newID   func() string
}

// New constructs a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		checker: validator.New(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks p against the schema and returns a canonical record with
// its integrity hash attached. Failures name the offending field and are
// never retried.
func (v *Validator) Validate(_ context.Context, p RawPayload) (model.MeasurementRecord, error) {
	if err := v.checker.Struct(p); err != nil {
		return model.MeasurementRecord{}, translateTagError(err)
	}

	mt := model.MeasurementType(strings.TrimSpace(p.MeasurementType))
	if !mt.Valid() {
		return model.MeasurementRecord{}, fieldErr("measurement_type", fmt.Sprintf("unknown type %q", p.MeasurementType))
	}

	if err := checkMeasurementShape(mt, p); err != nil {
		return model.MeasurementRecord{}, err
	}

	if p.DepthBottom != nil && *p.DepthBottom < p.DepthTop {
		return model.MeasurementRecord{}, fieldErr("depth_bottom", "must be at or below depth_top")
	}

	tier := model.SourceTier(p.SourceTier)
	if !tier.Valid() {
		return model.MeasurementRecord{}, fieldErr("source_tier", fmt.Sprintf("unknown tier %q", p.SourceTier))
	}

	status := model.StatusRaw
	if p.ValidationStatus != "" {
		status = model.ValidationStatus(p.ValidationStatus)
		if !status.Valid() {
			return model.MeasurementRecord{}, fieldErr("validation_status", fmt.Sprintf("unknown status %q", p.ValidationStatus))
		}
	}

	uncertainty := p.UncertaintyRadius
	if uncertainty == 0 {
		uncertainty = defaultUncertaintyRadius
	}

	hash, err := IntegrityHash(p)
	if err != nil {
		return model.MeasurementRecord{}, fmt.Errorf("canonical hash: %w", err)
	}

	rec := model.MeasurementRecord{
		ID: v.newID(),
		Location: model.Location{
			Latitude:          p.Latitude,
			Longitude:         p.Longitude,
			DepthTop:          p.DepthTop,
			DepthBottom:       p.DepthBottom,
			UncertaintyRadius: uncertainty,
		},
		Measurement: model.Measurement{
			Type:           mt,
			Value:          p.Value,
			Unit:           p.Unit,
			DetectionLimit: p.DetectionLimit,
			IsNonDetect:    p.IsNonDetect,
			CategoryValue:  strings.TrimSpace(p.CategoryValue),
		},
		Context: model.GeologicContext{
			Lithology:           strings.TrimSpace(p.Lithology),
			Alteration:          strings.TrimSpace(p.Alteration),
			StructuralControl:   strings.TrimSpace(p.StructuralControl),
			MineralizationStyle: strings.TrimSpace(p.MineralizationStyle),
		},
		Status:   status,
		Tier:     tier,
		Conflict: model.ConflictClean,
		Provenance: model.Provenance{
			SourceID:       p.SourceID,
			IngestedAt:     v.now().UTC(),
			IngestedBy:     p.IngestedBy,
			IntegrityHash:  hash,
			ChainOfCustody: p.ChainOfCustody,
		},
	}
	return rec, nil
}

// checkMeasurementShape enforces the tagged-union shape: numeric kinds carry
// Value/DetectionLimit, categorical kinds carry CategoryValue, and the
// non-detect invariant holds structurally.
func checkMeasurementShape(mt model.MeasurementType, p RawPayload) error {
	if mt.Categorical() {
		switch {
		case strings.TrimSpace(p.CategoryValue) == "":
			return fieldErr("category_value", fmt.Sprintf("required for %s", mt))
		case p.Value != nil:
			return fieldErr("value", fmt.Sprintf("not allowed for categorical type %s", mt))
		case p.IsNonDetect:
			return fieldErr("is_non_detect", fmt.Sprintf("not allowed for categorical type %s", mt))
		case p.DetectionLimit != nil:
			return fieldErr("detection_limit", fmt.Sprintf("not allowed for categorical type %s", mt))
		}
		return nil
	}

	if p.CategoryValue != "" {
		return fieldErr("category_value", fmt.Sprintf("not allowed for numeric type %s", mt))
	}
	if p.IsNonDetect {
		// Non-detects are left-censored, never a zero: value must be absent
		// and the detection limit must be known.
		if p.Value != nil {
			return fieldErr("value", "must be null when is_non_detect is true")
		}
		if p.DetectionLimit == nil {
			return fieldErr("detection_limit", "required when is_non_detect is true")
		}
		if *p.DetectionLimit <= 0 {
			return fieldErr("detection_limit", "must be positive")
		}
		return nil
	}
	if p.Value == nil {
		return fieldErr("value", fmt.Sprintf("required for %s unless is_non_detect", mt))
	}
	return nil
}

// IntegrityHash computes the SHA-256 hash of the canonical payload JSON.
// Struct field order is fixed by the RawPayload declaration, so the encoding
// is stable for identical inputs and usable for tamper detection.
func IntegrityHash(p RawPayload) (string, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// translateTagError converts the first validator tag failure into a
// field-named rejection.
func translateTagError(err error) error {
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fieldErr(jsonFieldName(fe.Field()), fmt.Sprintf("failed %s constraint", fe.Tag()))
	}
	return fieldErr("payload", err.Error())
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

// jsonFieldName maps exported struct names to their wire names for error
// reporting.
func jsonFieldName(structField string) string {
	switch structField {
	case "Latitude":
		return "latitude"
	case "Longitude":
		return "longitude"
	case "DepthTop":
		return "depth_top"
	case "UncertaintyRadius":
		return "uncertainty_radius"
	case "MeasurementType":
		return "measurement_type"
	case "SourceTier":
		return "source_tier"
	case "SourceID":
		return "source_id"
	default:
		return strings.ToLower(structField)
	}
}
