package risk

import (
	"strings"

	"github.com/okian/strata/internal/domain/model"
)

// Registry holds the mineral domain profiles. Loaded once at process start
// and immutable at runtime.
type Registry struct {
	profiles map[string]model.MineralDomainProfile
}

// NewRegistry builds a registry from the built-in profiles plus overrides.
// An override with a commodity matching a built-in replaces it.
func NewRegistry(overrides ...model.MineralDomainProfile) *Registry {
	r := &Registry{profiles: make(map[string]model.MineralDomainProfile)}
	for _, p := range builtinProfiles {
		r.profiles[p.Commodity] = p
	}
	for _, p := range overrides {
		if p.Commodity != "" {
			r.profiles[strings.ToLower(p.Commodity)] = p
		}
	}
	return r
}

// Lookup returns the profile for a commodity, case-insensitively.
func (r *Registry) Lookup(commodity string) (model.MineralDomainProfile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(commodity))]
	return p, ok
}

// Commodities lists the known commodity names.
func (r *Registry) Commodities() []string {
	out := make([]string, 0, len(r.profiles))
	for c := range r.profiles {
		out = append(out, c)
	}
	return out
}

// builtinProfiles ship with the engine. Cutoff grades are in the unit
// conventional for each commodity (g/t for precious metals, percent for the
// rest).
var builtinProfiles = []model.MineralDomainProfile{
	{
		Commodity:           "gold",
		PrimaryIndicators:   []model.MeasurementType{model.TypeAssayGrade},
		SecondaryIndicators: []model.MeasurementType{model.TypeSurfaceGeochem, model.TypeSpectralReflectance},
		HostLithologies:     []string{"greenstone", "quartz-vein", "shear-hosted-schist"},
		FavorableStructures: []string{"shear-zone", "fault-intersection", "fold-hinge"},
		CutoffGrade:         0.5,
		MinGTCForDrilling:   0.55,
	},
	{
		Commodity:           "copper",
		PrimaryIndicators:   []model.MeasurementType{model.TypeAssayGrade, model.TypeMagnetic},
		SecondaryIndicators: []model.MeasurementType{model.TypeGravity, model.TypeSurfaceGeochem},
		HostLithologies:     []string{"porphyry", "andesite", "skarn"},
		FavorableStructures: []string{"stockwork", "breccia-pipe", "fault-intersection"},
		CutoffGrade:         0.3,
		MinGTCForDrilling:   0.5,
	},
	{
		Commodity:           "lithium",
		PrimaryIndicators:   []model.MeasurementType{model.TypeAssayGrade, model.TypeSpectralReflectance},
		SecondaryIndicators: []model.MeasurementType{model.TypeSurfaceGeochem},
		HostLithologies:     []string{"pegmatite", "evaporite", "claystone"},
		FavorableStructures: []string{"dike-swarm", "basin-margin"},
		CutoffGrade:         1.0,
		MinGTCForDrilling:   0.5,
	},
	{
		Commodity:           "iron",
		PrimaryIndicators:   []model.MeasurementType{model.TypeAssayGrade, model.TypeMagnetic, model.TypeDensityLog},
		SecondaryIndicators: []model.MeasurementType{model.TypeGravity},
		HostLithologies:     []string{"banded-iron-formation", "magnetite-skarn"},
		FavorableStructures: []string{"fold-hinge", "thrust-stack"},
		CutoffGrade:         25.0,
		MinGTCForDrilling:   0.45,
	},
}
