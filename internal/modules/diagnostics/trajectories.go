package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// TrajectoryComparison holds per-step distance and entropy of two
// trajectories evolved over the same graph
type TrajectoryComparison struct {
	L1       []float64 `json:"l1"`
	EntropyA []float64 `json:"entropy_a"`
	EntropyB []float64 `json:"entropy_b"`

	MeanL1       float64 `json:"mean_l1"`
	MaxL1        float64 `json:"max_l1"`
	MeanEntropyA float64 `json:"mean_entropy_a"`
	MeanEntropyB float64 `json:"mean_entropy_b"`
	// EntropyShift is mean(EntropyB - EntropyA)
	EntropyShift float64 `json:"entropy_shift"`
}

// CompareTrajectories measures how far b drifts from a at every step.
// Entropy is in nats.
func CompareTrajectories(a, b *quantum.Trajectory) (*TrajectoryComparison, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: trajectory is nil", domain.ErrShape)
	}
	steps, nodes := a.Dims()
	if bs, bn := b.Dims(); bs != steps || bn != nodes {
		return nil, fmt.Errorf("%w: trajectories are %dx%d and %dx%d", domain.ErrShape, steps, nodes, bs, bn)
	}

	cmp := &TrajectoryComparison{
		L1:       make([]float64, steps),
		EntropyA: make([]float64, steps),
		EntropyB: make([]float64, steps),
	}
	for t := 0; t < steps; t++ {
		ra, rb := a.Row(t), b.Row(t)
		cmp.L1[t] = floats.Distance(ra, rb, 1)
		cmp.EntropyA[t] = stat.Entropy(ra)
		cmp.EntropyB[t] = stat.Entropy(rb)
	}

	cmp.MeanL1 = stat.Mean(cmp.L1, nil)
	cmp.MaxL1 = floats.Max(cmp.L1)
	cmp.MeanEntropyA = stat.Mean(cmp.EntropyA, nil)
	cmp.MeanEntropyB = stat.Mean(cmp.EntropyB, nil)
	cmp.EntropyShift = cmp.MeanEntropyB - cmp.MeanEntropyA

	return cmp, nil
}
