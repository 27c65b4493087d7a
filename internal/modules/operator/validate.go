package operator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// SymmetryTolerance is the absolute tolerance used for every symmetric check
const SymmetryTolerance = 1e-8

// FromRows converts a row-major [][]float64 into a dense matrix, rejecting
// empty, ragged, non-square and non-finite input.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", domain.ErrShape)
	}

	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrShape, i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: entry (%d,%d)", domain.ErrNonFinite, i, j)
			}
		}
		data = append(data, row...)
	}

	return mat.NewDense(n, n, data), nil
}

// ToRows copies a matrix into row-major [][]float64
func ToRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// CheckSquare returns the dimension of a square, non-empty matrix
func CheckSquare(m mat.Matrix) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: matrix is nil", domain.ErrShape)
	}
	r, c := m.Dims()
	if r == 0 || r != c {
		return 0, fmt.Errorf("%w: got %dx%d, want square", domain.ErrShape, r, c)
	}
	return r, nil
}

// CheckFinite rejects NaN and ±Inf entries
func CheckFinite(m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: entry (%d,%d)", domain.ErrNonFinite, i, j)
			}
		}
	}
	return nil
}

// CheckSymmetric verifies |m(i,j) - m(j,i)| <= tol for every pair
func CheckSymmetric(m mat.Matrix, tol float64) error {
	n, err := CheckSquare(m)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return fmt.Errorf("%w: (%d,%d)=%g vs (%d,%d)=%g",
					domain.ErrAsymmetry, i, j, m.At(i, j), j, i, m.At(j, i))
			}
		}
	}
	return nil
}

// CheckAdjacency validates the graph invariants of a similarity matrix:
// square, finite, non-negative, symmetric and free of self-loops. When
// requireDegree is set, every row must also carry positive degree.
func CheckAdjacency(a mat.Matrix, requireDegree bool) error {
	n, err := CheckSquare(a)
	if err != nil {
		return err
	}
	if err := CheckFinite(a); err != nil {
		return err
	}
	if err := CheckSymmetric(a, SymmetryTolerance); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if math.Abs(a.At(i, i)) > SymmetryTolerance {
			return fmt.Errorf("%w: self-loop at node %d", domain.ErrDegenerateInput, i)
		}
		degree := 0.0
		for j := 0; j < n; j++ {
			v := a.At(i, j)
			if v < 0 {
				return fmt.Errorf("%w: negative weight at (%d,%d)", domain.ErrDegenerateInput, i, j)
			}
			degree += v
		}
		if requireDegree && degree <= 0 {
			return fmt.Errorf("%w: node %d is isolated", domain.ErrDegenerateInput, i)
		}
	}
	return nil
}

// NewHamiltonian validates an arbitrary operator supplied as rows and returns
// it as a symmetric matrix.
func NewHamiltonian(rows [][]float64) (*mat.SymDense, error) {
	dense, err := FromRows(rows)
	if err != nil {
		return nil, err
	}
	if err := CheckSymmetric(dense, SymmetryTolerance); err != nil {
		return nil, err
	}
	return toSym(dense), nil
}

// toSym copies the upper triangle of a square matrix into a SymDense
func toSym(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.At(i, j))
		}
	}
	return sym
}
