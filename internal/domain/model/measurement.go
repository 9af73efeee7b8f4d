// Package model contains domain models passed between layers.
package model

// MeasurementType identifies the physical observation kind. The set is
// closed: the validator rejects anything outside this enumeration.
type MeasurementType string

// Supported measurement types.
const (
	TypeAssayGrade          MeasurementType = "assay-grade"
	TypeSonicVelocity       MeasurementType = "sonic-velocity"
	TypeSeismicVelocity     MeasurementType = "seismic-velocity"
	TypeDensityLog          MeasurementType = "density-log"
	TypePorosity            MeasurementType = "porosity"
	TypeGravity             MeasurementType = "gravity"
	TypeMagnetic            MeasurementType = "magnetic"
	TypeSpectralReflectance MeasurementType = "spectral-reflectance"
	TypeStructuralGeometry  MeasurementType = "structural-geometry"
	TypeLithology           MeasurementType = "lithology-categorical"
	TypeSurfaceGeochem      MeasurementType = "surface-geochem"
)

// measurementTypes is the closed enumeration keyed for O(1) membership checks.
var measurementTypes = map[MeasurementType]struct{}{
	TypeAssayGrade:          {},
	TypeSonicVelocity:       {},
	TypeSeismicVelocity:     {},
	TypeDensityLog:          {},
	TypePorosity:            {},
	TypeGravity:             {},
	TypeMagnetic:            {},
	TypeSpectralReflectance: {},
	TypeStructuralGeometry:  {},
	TypeLithology:           {},
	TypeSurfaceGeochem:      {},
}

// Valid reports whether t is a member of the closed enumeration.
func (t MeasurementType) Valid() bool {
	_, ok := measurementTypes[t]
	return ok
}

// Categorical reports whether t carries a category value instead of a
// numeric value. Categorical kinds never participate in numeric delta checks.
func (t MeasurementType) Categorical() bool {
	return t == TypeStructuralGeometry || t == TypeLithology
}

// ComparableWith reports whether two records of types t and o can be
// checked for value disagreement. Only identical numeric types compare.
func (t MeasurementType) ComparableWith(o MeasurementType) bool {
	return t == o && !t.Categorical()
}

// Measurement is one observed quantity. Numeric kinds carry Value (nullable
// for non-detects); categorical kinds carry CategoryValue only.
//
// Invariant: IsNonDetect implies Value == nil and DetectionLimit != nil.
// Non-detects are left-censored observations and are never coerced to zero.
type Measurement struct {
	Type           MeasurementType `json:"type"`
	Value          *float64        `json:"value,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	DetectionLimit *float64        `json:"detection_limit,omitempty"`
	IsNonDetect    bool            `json:"is_non_detect"`
	CategoryValue  string          `json:"category_value,omitempty"`
}
