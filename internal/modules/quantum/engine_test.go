package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

func ringLaplacian(t *testing.T, n int) *mat.SymDense {
	t.Helper()
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a.Set(i, j, 1)
		a.Set(j, i, 1)
	}
	h, err := operator.Build(a, operator.Options{Mode: operator.ModeLaplacian})
	require.NoError(t, err)
	return h
}

func weightedOperator(t *testing.T, bio float64) *mat.SymDense {
	t.Helper()
	a := mat.NewDense(5, 5, []float64{
		0, 0.9, 0.2, 0, 0.4,
		0.9, 0, 0.5, 0.3, 0,
		0.2, 0.5, 0, 0.7, 0.1,
		0, 0.3, 0.7, 0, 0.6,
		0.4, 0, 0.1, 0.6, 0,
	})
	h, err := operator.Build(a, operator.Options{
		Mode: operator.ModeLaplacian,
		Bio:  operator.BioParams{Strength: bio, Seed: operator.DefaultBioSeed},
	})
	require.NoError(t, err)
	return h
}

func assertRowsNormalised(t *testing.T, traj *Trajectory, tol float64) {
	t.Helper()
	steps, _ := traj.Dims()
	for s := 0; s < steps; s++ {
		row := traj.Row(s)
		assert.InDelta(t, 1.0, floats.Sum(row), tol, "row %d", s)
		assert.GreaterOrEqual(t, floats.Min(row), 0.0, "row %d", s)
	}
	assert.NoError(t, traj.Validate(tol))
}

func TestEvolve_RowsAreDistributions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"coherent euler", Config{Steps: 200, Dt: 0.05}},
		{"enaqt euler", Config{Steps: 200, Dt: 0.05, Noise: 0.15}},
		{"noisy uniform", Config{Steps: 200, Dt: 0.05, Noise: 0.8, Environment: EnvDegreeThenUniform}},
		{"exact", Config{Steps: 200, Dt: 0.05, Noise: 0.15, Integrator: IntegratorExact}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for start := 0; start < 5; start++ {
				traj, err := Evolve(weightedOperator(t, 0.3), start, tt.cfg)
				require.NoError(t, err)
				steps, nodes := traj.Dims()
				assert.Equal(t, tt.cfg.Steps, steps)
				assert.Equal(t, 5, nodes)
				assertRowsNormalised(t, traj, RowSumTolerance)
			}
		})
	}
}

func TestEvolve_RecordsBeforeUpdate(t *testing.T) {
	traj, err := Evolve(ringLaplacian(t, 4), 0, Config{Steps: 5, Dt: 0.05})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0, 0, 0}, traj.Row(0))
	assert.Less(t, traj.At(1, 0), 1.0, "amplitude leaves the start node after one step")
	assert.Greater(t, traj.At(1, 1), 0.0)
	assert.InDelta(t, traj.At(1, 1), traj.At(1, 3), 1e-12, "ring is symmetric about the start")
}

func TestEvolve_NoNoiseKeepsUnitNorm(t *testing.T) {
	traj, err := Evolve(weightedOperator(t, 0), 2, Config{Steps: 300, Dt: 0.1})
	require.NoError(t, err)
	assertRowsNormalised(t, traj, 1e-12)
	assert.Equal(t, 0, traj.DegenerateSteps())
}

func TestEvolve_FullNoiseCollapsesToEnvironment(t *testing.T) {
	eta := []float64{0.1, 0.2, 0.3, 0.4}
	norm2 := 0.0
	for _, v := range eta {
		norm2 += v * v
	}

	cfg := Config{Steps: 3, Dt: 0.05, Noise: 1, Eta: eta}
	ring, err := Evolve(ringLaplacian(t, 4), 0, cfg)
	require.NoError(t, err)

	other := mat.NewSymDense(4, []float64{
		3, 1, 0, 2,
		1, 0, 4, 0,
		0, 4, 1, 1,
		2, 0, 1, 5,
	})
	dense, err := Evolve(other, 3, cfg)
	require.NoError(t, err)

	for i, v := range eta {
		assert.InDelta(t, v*v/norm2, ring.At(1, i), 1e-12)
		assert.InDelta(t, ring.At(1, i), dense.At(1, i), 1e-12, "independent of H")
	}
}

func TestEvolve_Deterministic(t *testing.T) {
	cfg := Config{Steps: 100, Dt: 0.05, Noise: 0.15}
	a, err := Evolve(weightedOperator(t, 0.3), 1, cfg)
	require.NoError(t, err)
	b, err := Evolve(weightedOperator(t, 0.3), 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.RawData(), b.RawData())
}

func TestEvolve_ExactTracksEulerForSmallSteps(t *testing.T) {
	h := weightedOperator(t, 0)
	euler, err := Evolve(h, 0, Config{Steps: 2, Dt: 0.001})
	require.NoError(t, err)
	exact, err := Evolve(h, 0, Config{Steps: 2, Dt: 0.001, Integrator: IntegratorExact})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.InDelta(t, euler.At(1, i), exact.At(1, i), 1e-5)
	}
}

func TestEvolve_ExactPreservesNormWithoutRenormalisationDrift(t *testing.T) {
	traj, err := Evolve(ringLaplacian(t, 6), 0, Config{Steps: 50, Dt: 0.5, Integrator: IntegratorExact})
	require.NoError(t, err)
	assertRowsNormalised(t, traj, 1e-9)
}

// asymmetric reports itself as symmetric but is not
type asymmetric struct{ *mat.Dense }

func (a asymmetric) SymmetricDim() int { r, _ := a.Dims(); return r }
func (a asymmetric) Symmetric() int    { return a.SymmetricDim() }

func TestEvolve_Validation(t *testing.T) {
	h := ringLaplacian(t, 4)

	tests := []struct {
		name  string
		h     mat.Symmetric
		start int
		cfg   Config
		want  error
	}{
		{"start below range", h, -1, Config{Steps: 5, Dt: 0.05}, domain.ErrInvalidParameter},
		{"start above range", h, 4, Config{Steps: 5, Dt: 0.05}, domain.ErrInvalidParameter},
		{"zero steps", h, 0, Config{Steps: 0, Dt: 0.05}, domain.ErrInvalidParameter},
		{"zero dt", h, 0, Config{Steps: 5, Dt: 0}, domain.ErrInvalidParameter},
		{"negative noise", h, 0, Config{Steps: 5, Dt: 0.05, Noise: -0.1}, domain.ErrInvalidParameter},
		{"noise above one", h, 0, Config{Steps: 5, Dt: 0.05, Noise: 1.1}, domain.ErrInvalidParameter},
		{"nan noise", h, 0, Config{Steps: 5, Dt: 0.05, Noise: math.NaN()}, domain.ErrInvalidParameter},
		{"unknown integrator", h, 0, Config{Steps: 5, Dt: 0.05, Integrator: "rk4"}, domain.ErrInvalidParameter},
		{"eta wrong length", h, 0, Config{Steps: 5, Dt: 0.05, Eta: []float64{1}}, domain.ErrShape},
		{"eta not normalised", h, 0, Config{Steps: 5, Dt: 0.05, Eta: []float64{1, 1, 1, 1}}, domain.ErrInvalidParameter},
		{
			"asymmetric operator",
			asymmetric{mat.NewDense(2, 2, []float64{0, 1, 2, 0})},
			0, Config{Steps: 5, Dt: 0.05}, domain.ErrAsymmetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evolve(tt.h, tt.start, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvolve_OverflowIsFatal(t *testing.T) {
	h := ringLaplacian(t, 4)

	traj, err := Evolve(h, 0, Config{Steps: 4, Dt: 1e308})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNonFinite)
	assert.Nil(t, traj)

	// Mixing toward eta must not mask the overflow
	_, err = Evolve(h, 0, Config{Steps: 4, Dt: 1e308, Noise: 0.5})
	assert.ErrorIs(t, err, domain.ErrNonFinite)
}
