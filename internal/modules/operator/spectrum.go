package operator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// DegeneracyTolerance groups eigenvalues closer than this into one level
const DegeneracyTolerance = 1e-6

// Spectrum summarises the eigenvalues of an operator
type Spectrum struct {
	Eigenvalues  []float64 `json:"eigenvalues"` // Ascending
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Spread       float64   `json:"spread"`
	Degeneracies int       `json:"degeneracies"` // Eigenvalues that repeat an earlier level
}

// ComputeSpectrum factorises h and summarises its real spectrum
func ComputeSpectrum(h mat.Symmetric) (Spectrum, error) {
	if _, err := CheckSquare(h); err != nil {
		return Spectrum{}, err
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(h, false); !ok {
		return Spectrum{}, fmt.Errorf("%w: eigen decomposition did not converge", domain.ErrDegenerateInput)
	}
	values := eig.Values(nil)

	return Spectrum{
		Eigenvalues:  values,
		Min:          values[0],
		Max:          values[len(values)-1],
		Spread:       values[len(values)-1] - values[0],
		Degeneracies: countDegeneracies(values, DegeneracyTolerance),
	}, nil
}

// countDegeneracies counts values within tol of an earlier distinct level.
// values must be sorted ascending.
func countDegeneracies(values []float64, tol float64) int {
	if len(values) == 0 {
		return 0
	}
	distinct := 1
	last := values[0]
	for _, v := range values[1:] {
		if math.Abs(v-last) >= tol {
			distinct++
			last = v
		}
	}
	return len(values) - distinct
}
