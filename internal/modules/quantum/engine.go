package quantum

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

// NormEpsilon guards the renormalisation against a collapsed amplitude
const NormEpsilon = 1e-12

// Engine runs walk evolutions. It holds no per-run state, so one Engine may
// serve concurrent Evolve calls.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a walk engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "quantum_walk").Logger(),
	}
}

// Evolve runs an evolution with a disabled logger
func Evolve(h mat.Symmetric, start int, cfg Config) (*Trajectory, error) {
	return NewEngine(zerolog.Nop()).Evolve(h, start, cfg)
}

// Evolve simulates cfg.Steps steps of the walk starting localised at start
// and returns the probability trajectory.
//
// Invalid input (non-square or asymmetric H, start out of range, λ_noise
// outside [0,1], ...) fails before any step runs. A collapsed norm inside the
// loop is absorbed by NormEpsilon and logged, not raised. An amplitude that
// overflows (e.g. a dt too large for the spectrum of H) aborts the walk with
// ErrNonFinite.
func (e *Engine) Evolve(h mat.Symmetric, start int, cfg Config) (*Trajectory, error) {
	n, err := operator.CheckSquare(h)
	if err != nil {
		return nil, err
	}
	if err := operator.CheckFinite(h); err != nil {
		return nil, err
	}
	if err := operator.CheckSymmetric(h, operator.SymmetryTolerance); err != nil {
		return nil, err
	}
	if start < 0 || start >= n {
		return nil, fmt.Errorf("%w: start index %d outside [0,%d)", domain.ErrInvalidParameter, start, n)
	}
	if err := cfg.Validate(n); err != nil {
		return nil, err
	}

	kind := cfg.integrator()
	began := time.Now()

	stepper, err := newStepper(kind, h, cfg.Dt)
	if err != nil {
		evolutionsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	eta := EnvironmentVector(h, cfg)

	re := make([]float64, n)
	im := make([]float64, n)
	re[start] = 1

	traj := newTrajectory(cfg.Steps, n)
	keep := 1 - cfg.Noise

	for t := 0; t < cfg.Steps; t++ {
		row := traj.probs.RawRowView(t)
		for i := 0; i < n; i++ {
			row[i] = re[i]*re[i] + im[i]*im[i]
		}

		stepper.step(re, im)

		if cfg.Noise > 0 {
			for i := 0; i < n; i++ {
				re[i] = keep*re[i] + cfg.Noise*eta[i]
				im[i] = keep * im[i]
			}
		}

		norm := math.Hypot(floats.Norm(re, 2), floats.Norm(im, 2))
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			evolutionsTotal.WithLabelValues(string(kind), "error").Inc()
			return nil, fmt.Errorf("%w: amplitude overflow at step %d (dt=%g)", domain.ErrNonFinite, t, cfg.Dt)
		}
		if norm < NormEpsilon {
			traj.degenerate++
			degenerateSteps.Inc()
			e.log.Warn().
				Int("step", t).
				Float64("norm", norm).
				Msg("Amplitude norm collapsed, applying epsilon guard")
			norm = NormEpsilon
		}
		floats.Scale(1/norm, re)
		floats.Scale(1/norm, im)
	}

	evolutionsTotal.WithLabelValues(string(kind), "ok").Inc()
	evolveDuration.WithLabelValues(string(kind)).Observe(time.Since(began).Seconds())

	e.log.Debug().
		Int("nodes", n).
		Int("steps", cfg.Steps).
		Int("start", start).
		Float64("dt", cfg.Dt).
		Float64("noise", cfg.Noise).
		Str("integrator", string(kind)).
		Int("degenerate_steps", traj.degenerate).
		Dur("duration", time.Since(began)).
		Msg("Walk evolved")

	return traj, nil
}
