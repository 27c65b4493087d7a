package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epoch-iith/qmashup/internal/domain"
)

func TestNewTrajectory(t *testing.T) {
	traj, err := NewTrajectory([][]float64{
		{1, 0, 0},
		{0.5, 0.25, 0.25},
	})
	require.NoError(t, err)

	steps, nodes := traj.Dims()
	assert.Equal(t, 2, steps)
	assert.Equal(t, 3, nodes)
	assert.Equal(t, []float64{1, 0.5}, traj.Column(0))
	assert.NoError(t, traj.Validate(RowSumTolerance))

	row := traj.Row(1)
	row[0] = 42
	assert.Equal(t, 0.5, traj.At(1, 0), "Row returns a copy")
}

func TestNewTrajectory_Errors(t *testing.T) {
	_, err := NewTrajectory(nil)
	assert.ErrorIs(t, err, domain.ErrShape)

	_, err = NewTrajectory([][]float64{{1, 0}, {1}})
	assert.ErrorIs(t, err, domain.ErrShape)

	_, err = NewTrajectory([][]float64{{1.5, -0.5}})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestTrajectory_ValidateRowSums(t *testing.T) {
	traj, err := NewTrajectory([][]float64{{0.5, 0.4}})
	require.NoError(t, err)
	assert.ErrorIs(t, traj.Validate(RowSumTolerance), domain.ErrInvalidParameter)
}

func TestTrajectory_ValidateRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		row  []float64
	}{
		{"nan", []float64{math.NaN(), 0, 0, 0}},
		{"all nan", []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}},
		{"inf", []float64{math.Inf(1), 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traj := newTrajectory(2, 4)
			traj.probs.SetRow(0, []float64{1, 0, 0, 0})
			traj.probs.SetRow(1, tt.row)

			assert.ErrorIs(t, traj.Validate(RowSumTolerance), domain.ErrNonFinite)
			assert.ErrorIs(t, traj.CheckFinite(), domain.ErrNonFinite)
		})
	}
}

func TestFromRaw_RoundTrip(t *testing.T) {
	traj, err := FromRaw(2, 2, []float64{1, 0, 0.3, 0.7})
	require.NoError(t, err)
	back, err := FromRaw(2, 2, traj.RawData())
	require.NoError(t, err)
	assert.Equal(t, traj.Rows(), back.Rows())

	_, err = FromRaw(2, 2, []float64{1})
	assert.ErrorIs(t, err, domain.ErrShape)
}
