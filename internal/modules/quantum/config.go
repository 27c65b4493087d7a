package quantum

import (
	"fmt"
	"math"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// IntegratorKind selects the coherent step
type IntegratorKind string

const (
	// IntegratorEuler is the canonical explicit Euler step ψ - iHψ·dt
	IntegratorEuler IntegratorKind = "euler"
	// IntegratorExact applies the spectral propagator e^{-iH·dt}
	IntegratorExact IntegratorKind = "exact"
)

// Defaults mirrored by the walk configuration in internal/config
const (
	DefaultSteps     = 150
	DefaultDt        = 0.05
	DefaultNoise     = 0.15
	DefaultThreshold = 0.5
)

// Config parameterises one evolution
type Config struct {
	Steps      int            `json:"steps"`      // T >= 1
	Dt         float64        `json:"dt"`         // > 0
	Noise      float64        `json:"noise"`      // λ_noise in [0,1]
	Integrator IntegratorKind `json:"integrator"` // Defaults to euler

	Environment EnvironmentPolicy `json:"environment"` // Defaults to operator_degree
	// Threshold is the λ_noise value at which degree_then_uniform switches to
	// the uniform target. Zero means DefaultThreshold.
	Threshold float64 `json:"threshold,omitempty"`
	// Eta overrides the environment policy with an explicit target
	// distribution (non-negative, sums to 1).
	Eta []float64 `json:"eta,omitempty"`
}

// Validate checks the configuration against an operator of size n
func (c Config) Validate(n int) error {
	if c.Steps < 1 {
		return fmt.Errorf("%w: steps must be >= 1, got %d", domain.ErrInvalidParameter, c.Steps)
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be > 0, got %g", domain.ErrInvalidParameter, c.Dt)
	}
	if !(c.Noise >= 0 && c.Noise <= 1) {
		return fmt.Errorf("%w: noise strength %g outside [0,1]", domain.ErrInvalidParameter, c.Noise)
	}
	switch c.Integrator {
	case "", IntegratorEuler, IntegratorExact:
	default:
		return fmt.Errorf("%w: unknown integrator %q", domain.ErrInvalidParameter, c.Integrator)
	}
	switch c.Environment {
	case "", EnvOperatorDegree, EnvUniform, EnvDegreeThenUniform:
	default:
		return fmt.Errorf("%w: unknown environment policy %q", domain.ErrInvalidParameter, c.Environment)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %g outside [0,1]", domain.ErrInvalidParameter, c.Threshold)
	}
	if c.Eta != nil {
		if err := validateEta(c.Eta, n); err != nil {
			return err
		}
	}
	return nil
}

// integrator returns the configured integrator kind with the default applied
func (c Config) integrator() IntegratorKind {
	if c.Integrator == "" {
		return IntegratorEuler
	}
	return c.Integrator
}
