package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSpectrum_RingLaplacian(t *testing.T) {
	h, err := Build(ring(4), Options{Mode: ModeLaplacian})
	require.NoError(t, err)

	spec, err := ComputeSpectrum(h)
	require.NoError(t, err)

	// C4 Laplacian eigenvalues: 0, 2, 2, 4
	require.Len(t, spec.Eigenvalues, 4)
	assert.InDelta(t, 0, spec.Min, 1e-9)
	assert.InDelta(t, 4, spec.Max, 1e-9)
	assert.InDelta(t, 4, spec.Spread, 1e-9)
	assert.Equal(t, 1, spec.Degeneracies)
}

func TestCountDegeneracies(t *testing.T) {
	assert.Equal(t, 0, countDegeneracies(nil, 1e-6))
	assert.Equal(t, 0, countDegeneracies([]float64{1, 2, 3}, 1e-6))
	assert.Equal(t, 2, countDegeneracies([]float64{1, 1, 1 + 1e-9, 3}, 1e-6))
}
