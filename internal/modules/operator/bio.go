package operator

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// BioSource selects how the diagonal perturbation values are generated
type BioSource string

const (
	// BioNormal draws N(0,1) values and L2-normalises them
	BioNormal BioSource = "normal"
	// BioRamp is a fixed linear ramp from 0.1 to 2.0 (seed unused)
	BioRamp BioSource = "ramp"
	// BioShuffledRamp concatenates a slow (0.1-0.5) and a fast (1.0-2.0)
	// half-ramp and shuffles the result with the seed
	BioShuffledRamp BioSource = "shuffled_ramp"
)

// DefaultBioSeed is the seed used when none is configured
const DefaultBioSeed uint64 = 42

// BioParams configures the diagonal perturbation
type BioParams struct {
	Strength float64   `json:"strength"` // λ_bio; 0 disables the perturbation
	Seed     uint64    `json:"seed"`
	Source   BioSource `json:"source"`
}

// Validate checks the perturbation parameters
func (p BioParams) Validate() error {
	if p.Strength < 0 || p.Strength > 1 {
		return fmt.Errorf("%w: bio strength %g outside [0,1]", domain.ErrInvalidParameter, p.Strength)
	}
	switch p.Source {
	case "", BioNormal, BioRamp, BioShuffledRamp:
	default:
		return fmt.Errorf("%w: unknown bio source %q", domain.ErrInvalidParameter, p.Source)
	}
	return nil
}

// BioDiagonal returns the n perturbation values for the given source and seed.
// Identical (n, source, seed) inputs always produce bit-identical output.
func BioDiagonal(n int, source BioSource, seed uint64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: bio operator size %d", domain.ErrShape, n)
	}

	switch source {
	case "", BioNormal:
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}
		v := make([]float64, n)
		for i := range v {
			v[i] = normal.Rand()
		}
		floats.Scale(1/(floats.Norm(v, 2)+1e-12), v)
		return v, nil

	case BioRamp:
		return span(n, 0.1, 2.0), nil

	case BioShuffledRamp:
		low := span(n/2, 0.1, 0.5)
		high := span(n-n/2, 1.0, 2.0)
		v := append(low, high...)
		rng := rand.New(rand.NewPCG(seed, seed))
		rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
		return v, nil
	}

	return nil, fmt.Errorf("%w: unknown bio source %q", domain.ErrInvalidParameter, source)
}

// span returns n evenly spaced values over [lo, hi]
func span(n int, lo, hi float64) []float64 {
	switch n {
	case 0:
		return []float64{}
	case 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
