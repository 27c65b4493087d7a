package mashup

import (
	"fmt"
	"strings"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// Request asks for one mashup run. Unset fields take the variant's value,
// then the configured walk defaults.
type Request struct {
	GraphID      string                  `json:"graph_id"`
	Variant      string                  `json:"variant,omitempty"`
	Start        int                     `json:"start"`
	Steps        int                     `json:"steps,omitempty"`
	Dt           float64                 `json:"dt,omitempty"`
	Noise        *float64                `json:"noise,omitempty"` // λ_noise
	Bio          *float64                `json:"bio,omitempty"`   // λ_bio
	Length       int                     `json:"length,omitempty"`
	Selection    pathing.Selection       `json:"selection,omitempty"`
	Seed         uint64                  `json:"seed,omitempty"`
	MemoryWindow *int                    `json:"memory_window,omitempty"`
	ShortPath    pathing.ShortPathPolicy `json:"short_path,omitempty"`
	Export       bool                    `json:"export,omitempty"`
}

// Params is a request with every default applied
type Params struct {
	GraphID  string           `json:"graph_id" msgpack:"graph_id"`
	Variant  string           `json:"variant" msgpack:"variant"`
	Start    int              `json:"start" msgpack:"start"`
	Operator operator.Options `json:"operator" msgpack:"operator"`
	Walk     quantum.Config   `json:"walk" msgpack:"walk"`
	Path     pathing.Options  `json:"path" msgpack:"path"`
	Export   bool             `json:"export" msgpack:"export"`
}

// Resolve applies the variant and the walk defaults to req and validates the
// parameters that do not depend on the graph. λ values outside [0,1] and a
// path longer than the step count are rejected, never clamped.
func Resolve(req Request, defaults config.WalkConfig) (Params, error) {
	if strings.TrimSpace(req.GraphID) == "" {
		return Params{}, fmt.Errorf("%w: graph_id is required", domain.ErrInvalidParameter)
	}
	v, err := LookupVariant(req.Variant)
	if err != nil {
		return Params{}, err
	}

	noise := defaults.Noise
	if req.Noise != nil {
		noise = *req.Noise
	}
	bio := defaults.Bio
	if req.Bio != nil {
		bio = *req.Bio
	}
	memory := defaults.MemoryWindow
	if req.MemoryWindow != nil {
		memory = *req.MemoryWindow
	}

	p := Params{
		GraphID: req.GraphID,
		Variant: v.Name,
		Start:   req.Start,
		Operator: operator.Options{
			Mode:            v.Mode,
			NegateAdjacency: v.Negate,
			Bio: operator.BioParams{
				Strength: bio,
				Seed:     v.BioSeed,
				Source:   v.BioSource,
			},
		},
		Walk: quantum.Config{
			Steps:       firstPositive(req.Steps, v.Steps, defaults.Steps),
			Dt:          defaults.Dt,
			Noise:       noise,
			Integrator:  v.Integrator,
			Environment: v.Environment,
		},
		Path: pathing.Options{
			Length:       firstPositive(req.Length, defaults.PathLength),
			Selection:    req.Selection,
			MemoryWindow: memory,
			Seed:         req.Seed,
			Horizon:      v.Horizon,
			ShortPath:    req.ShortPath,
		},
		Export: req.Export,
	}
	if req.Dt != 0 {
		p.Walk.Dt = req.Dt
	}
	if p.Path.Selection == "" {
		p.Path.Selection = pathing.SelectArgmax
	}
	if p.Path.ShortPath == "" {
		p.Path.ShortPath = pathing.ShortPathTruncate
	}

	if !(noise >= 0 && noise <= 1) {
		return Params{}, fmt.Errorf("%w: noise strength %g outside [0,1]", domain.ErrInvalidParameter, noise)
	}
	if !(bio >= 0 && bio <= 1) {
		return Params{}, fmt.Errorf("%w: bio strength %g outside [0,1]", domain.ErrInvalidParameter, bio)
	}
	if err := p.Operator.Validate(); err != nil {
		return Params{}, err
	}
	if p.Path.Length > p.Walk.Steps {
		return Params{}, fmt.Errorf("%w: path length %d exceeds %d steps", domain.ErrInvalidParameter, p.Path.Length, p.Walk.Steps)
	}
	if p.Start < 0 {
		return Params{}, fmt.Errorf("%w: start index %d is negative", domain.ErrInvalidParameter, p.Start)
	}

	return p, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
