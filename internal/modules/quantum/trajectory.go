package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// RowSumTolerance is the tolerance for a trajectory row summing to one
const RowSumTolerance = 1e-6

// Trajectory is the T×N probability matrix produced by one evolution. Row t
// is |ψ_t|² captured before the step-t update. A Trajectory is immutable
// once returned.
type Trajectory struct {
	probs      *mat.Dense
	degenerate int
}

func newTrajectory(steps, nodes int) *Trajectory {
	return &Trajectory{probs: mat.NewDense(steps, nodes, nil)}
}

// NewTrajectory builds a trajectory from rows supplied by a collaborator or
// loaded from storage. Rows must be rectangular, finite and non-negative.
func NewTrajectory(rows [][]float64) (*Trajectory, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: trajectory is empty", domain.ErrShape)
	}
	nodes := len(rows[0])
	data := make([]float64, 0, len(rows)*nodes)
	for t, row := range rows {
		if len(row) != nodes {
			return nil, fmt.Errorf("%w: trajectory row %d has %d entries, want %d", domain.ErrShape, t, len(row), nodes)
		}
		data = append(data, row...)
	}
	return FromRaw(len(rows), nodes, data)
}

// FromRaw wraps row-major data of a steps×nodes trajectory
func FromRaw(steps, nodes int, data []float64) (*Trajectory, error) {
	if steps <= 0 || nodes <= 0 || len(data) != steps*nodes {
		return nil, fmt.Errorf("%w: %d values for a %dx%d trajectory", domain.ErrShape, len(data), steps, nodes)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: trajectory entry %d", domain.ErrNonFinite, i)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative probability at entry %d", domain.ErrInvalidParameter, i)
		}
	}
	cp := make([]float64, len(data))
	copy(cp, data)
	return &Trajectory{probs: mat.NewDense(steps, nodes, cp)}, nil
}

// Dims returns the number of recorded steps and nodes
func (t *Trajectory) Dims() (steps, nodes int) {
	return t.probs.Dims()
}

// At returns the probability of node at step
func (t *Trajectory) At(step, node int) float64 {
	return t.probs.At(step, node)
}

// Row returns a copy of the distribution at step
func (t *Trajectory) Row(step int) []float64 {
	src := t.probs.RawRowView(step)
	row := make([]float64, len(src))
	copy(row, src)
	return row
}

// Rows returns a copy of the whole trajectory as [][]float64
func (t *Trajectory) Rows() [][]float64 {
	steps, _ := t.Dims()
	rows := make([][]float64, steps)
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Column returns one node's probability over time
func (t *Trajectory) Column(node int) []float64 {
	return mat.Col(nil, node, t.probs)
}

// RawData returns a row-major copy suitable for serialisation
func (t *Trajectory) RawData() []float64 {
	raw := t.probs.RawMatrix().Data
	cp := make([]float64, len(raw))
	copy(cp, raw)
	return cp
}

// DegenerateSteps counts steps whose pre-normalisation norm fell below the
// epsilon guard. Those rows are not guaranteed to sum to one.
func (t *Trajectory) DegenerateSteps() int {
	return t.degenerate
}

// Validate checks every row is finite, non-negative and sums to one within tol
func (t *Trajectory) Validate(tol float64) error {
	steps, _ := t.Dims()
	for s := 0; s < steps; s++ {
		row := t.probs.RawRowView(s)
		if !finiteRow(row) {
			return fmt.Errorf("%w: probability at step %d", domain.ErrNonFinite, s)
		}
		if floats.Min(row) < 0 {
			return fmt.Errorf("%w: negative probability at step %d", domain.ErrInvalidParameter, s)
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > tol {
			return fmt.Errorf("%w: step %d sums to %g", domain.ErrInvalidParameter, s, sum)
		}
	}
	return nil
}

// CheckFinite rejects a trajectory holding NaN or ±Inf
func (t *Trajectory) CheckFinite() error {
	steps, _ := t.Dims()
	for s := 0; s < steps; s++ {
		if !finiteRow(t.probs.RawRowView(s)) {
			return fmt.Errorf("%w: probability at step %d", domain.ErrNonFinite, s)
		}
	}
	return nil
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
