// Package diagnostics inspects walk outputs: ranked candidates per step,
// divergence between two extracted paths, distance and entropy between two
// trajectories, single-node traces and parent-group switches along a path.
//
// Everything here is read-only over its inputs.
package diagnostics

import (
	"cmp"
	"slices"
)

// Candidate is one ranked node of a distribution row
type Candidate struct {
	Node        int     `json:"node"`
	Probability float64 `json:"probability"`
}

// TopK returns the k most probable nodes of row in descending order, skipping
// the nodes listed in exclude. Equal probabilities rank the lower index first.
func TopK(row []float64, k int, exclude []int) []Candidate {
	if k <= 0 || len(row) == 0 {
		return nil
	}

	skip := make(map[int]struct{}, len(exclude))
	for _, idx := range exclude {
		skip[idx] = struct{}{}
	}

	candidates := make([]Candidate, 0, len(row))
	for i, p := range row {
		if _, ok := skip[i]; ok {
			continue
		}
		candidates = append(candidates, Candidate{Node: i, Probability: p})
	}

	// Stable sort keeps index order among ties
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
