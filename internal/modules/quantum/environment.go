package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// EnvironmentPolicy selects the target distribution η of the decoherence term
type EnvironmentPolicy string

const (
	// EnvOperatorDegree uses row sums of |H|, normalised
	EnvOperatorDegree EnvironmentPolicy = "operator_degree"
	// EnvUniform uses 1/N everywhere
	EnvUniform EnvironmentPolicy = "uniform"
	// EnvDegreeThenUniform uses operator degree below the threshold and the
	// uniform vector at or above it
	EnvDegreeThenUniform EnvironmentPolicy = "degree_then_uniform"
)

const etaTolerance = 1e-6

// Uniform returns the uniform distribution over n nodes
func Uniform(n int) []float64 {
	eta := make([]float64, n)
	for i := range eta {
		eta[i] = 1 / float64(n)
	}
	return eta
}

// OperatorDegree returns Σ_j |H_ij| normalised to sum to one. An all-zero
// operator falls back to the uniform distribution.
func OperatorDegree(h mat.Matrix) []float64 {
	n, _ := h.Dims()
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			deg[i] += math.Abs(h.At(i, j))
		}
	}
	return normalizeOrUniform(deg)
}

// GraphDegree returns deg_i / Σdeg computed from an adjacency matrix
func GraphDegree(a mat.Matrix) []float64 {
	n, _ := a.Dims()
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			deg[i] += a.At(i, j)
		}
	}
	return normalizeOrUniform(deg)
}

// EnvironmentVector resolves η for an operator under cfg
func EnvironmentVector(h mat.Matrix, cfg Config) []float64 {
	n, _ := h.Dims()
	if cfg.Eta != nil {
		eta := make([]float64, n)
		copy(eta, cfg.Eta)
		return eta
	}

	switch cfg.Environment {
	case EnvUniform:
		return Uniform(n)
	case EnvDegreeThenUniform:
		threshold := cfg.Threshold
		if threshold == 0 {
			threshold = DefaultThreshold
		}
		if cfg.Noise >= threshold {
			return Uniform(n)
		}
		return OperatorDegree(h)
	default:
		return OperatorDegree(h)
	}
}

func normalizeOrUniform(v []float64) []float64 {
	total := floats.Sum(v)
	if total <= 0 {
		return Uniform(len(v))
	}
	floats.Scale(1/total, v)
	return v
}

func validateEta(eta []float64, n int) error {
	if len(eta) != n {
		return fmt.Errorf("%w: environment vector has %d entries, want %d", domain.ErrShape, len(eta), n)
	}
	for i, v := range eta {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: environment entry %d = %g", domain.ErrInvalidParameter, i, v)
		}
	}
	if sum := floats.Sum(eta); math.Abs(sum-1) > etaTolerance {
		return fmt.Errorf("%w: environment vector sums to %g, want 1", domain.ErrInvalidParameter, sum)
	}
	return nil
}
