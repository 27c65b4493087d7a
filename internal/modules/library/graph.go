// Package library stores the segment-compatibility graphs the walk runs on,
// together with the segment metadata of every node.
//
// Graphs are symmetrised and validated on import so that every stored graph
// can drive a Laplacian-mode operator without further checks.
package library

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

// DenseThreshold is the density above which a graph is reported as too dense
// for the walk to be selective
const DenseThreshold = 0.2

// GraphStats summarises the degree structure of an adjacency matrix. Degree
// counts neighbours (non-zero entries), not edge weight.
type GraphStats struct {
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"` // Undirected
	AvgDegree float64 `json:"avg_degree"`
	MinDegree float64 `json:"min_degree"`
	MaxDegree float64 `json:"max_degree"`
	Density   float64 `json:"density"`
}

// Dense reports whether the graph is at or above DenseThreshold
func (s GraphStats) Dense() bool {
	return s.Density >= DenseThreshold
}

// Symmetrize returns max(A, Aᵀ) with the diagonal cleared
func Symmetrize(a mat.Matrix) *mat.Dense {
	n, _ := a.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := math.Max(a.At(i, j), a.At(j, i))
			out.Set(i, j, v)
			out.Set(j, i, v)
		}
	}
	return out
}

// ValidateAdjacency checks that a can be stored in the library: square,
// finite, symmetric, non-negative, no self-loops and no isolated nodes.
func ValidateAdjacency(a mat.Matrix) error {
	return operator.CheckAdjacency(a, true)
}

// ComputeStats returns degree statistics for a square adjacency matrix
func ComputeStats(a mat.Matrix) GraphStats {
	n, _ := a.Dims()
	stats := GraphStats{Nodes: n}
	if n == 0 {
		return stats
	}

	stats.MinDegree = math.Inf(1)
	nonZero := 0
	for i := 0; i < n; i++ {
		degree := 0
		for j := 0; j < n; j++ {
			if a.At(i, j) != 0 {
				degree++
			}
		}
		nonZero += degree
		d := float64(degree)
		stats.MinDegree = math.Min(stats.MinDegree, d)
		stats.MaxDegree = math.Max(stats.MaxDegree, d)
	}

	stats.Edges = nonZero / 2
	stats.AvgDegree = float64(nonZero) / float64(n)
	stats.Density = float64(nonZero) / float64(n*n)
	return stats
}
