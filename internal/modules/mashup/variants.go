// Package mashup generates mashup runs: it evolves the walk with and without
// the bio perturbation, extracts and compares paths, builds the stitch plan
// handed to the audio collaborator and keeps the run history.
package mashup

import (
	"fmt"
	"sort"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// Variant is a named walk configuration. Zero numeric fields fall back to the
// service defaults.
type Variant struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Mode        operator.Mode             `json:"mode"`
	Negate      bool                      `json:"negate_adjacency"`
	BioSource   operator.BioSource        `json:"bio_source"`
	BioSeed     uint64                    `json:"bio_seed"`
	Integrator  quantum.IntegratorKind    `json:"integrator"`
	Environment quantum.EnvironmentPolicy `json:"environment"`
	Steps       int                       `json:"steps,omitempty"`
	Horizon     int                       `json:"horizon,omitempty"`
}

// Variant names
const (
	VariantApp         = "app"
	VariantDecoherence = "decoherence"
	VariantExact       = "exact"
)

var variants = map[string]Variant{
	VariantApp: {
		Name:        VariantApp,
		Description: "Laplacian operator, seeded normal bio diagonal, Euler steps, degree environment",
		Mode:        operator.ModeLaplacian,
		BioSource:   operator.BioNormal,
		BioSeed:     operator.DefaultBioSeed,
		Integrator:  quantum.IntegratorEuler,
		Environment: quantum.EnvOperatorDegree,
	},
	VariantDecoherence: {
		Name:        VariantDecoherence,
		Description: "Negated adjacency operator, degree environment switching to uniform at high noise",
		Mode:        operator.ModeAdjacency,
		Negate:      true,
		BioSource:   operator.BioNormal,
		BioSeed:     operator.DefaultBioSeed,
		Integrator:  quantum.IntegratorEuler,
		Environment: quantum.EnvDegreeThenUniform,
		Steps:       200,
	},
	VariantExact: {
		Name:        VariantExact,
		Description: "Laplacian operator, shuffled ramp bio diagonal, exact propagator, first 60 steps",
		Mode:        operator.ModeLaplacian,
		BioSource:   operator.BioShuffledRamp,
		BioSeed:     operator.DefaultBioSeed,
		Integrator:  quantum.IntegratorExact,
		Environment: quantum.EnvOperatorDegree,
		Steps:       200,
		Horizon:     60,
	},
}

// LookupVariant returns the named variant; an empty name selects VariantApp
func LookupVariant(name string) (Variant, error) {
	if name == "" {
		name = VariantApp
	}
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidParameter, name)
	}
	return v, nil
}

// Variants lists all variants sorted by name
func Variants() []Variant {
	list := make([]Variant, 0, len(variants))
	for _, v := range variants {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
