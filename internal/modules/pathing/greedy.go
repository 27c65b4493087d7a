package pathing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// DefaultKeyPenalty scales the weight of neighbours in a different key
const DefaultKeyPenalty = 0.85

// GreedyOptions configures the classical baseline walk
type GreedyOptions struct {
	Start  int `json:"start"`
	Length int `json:"length"`
	// Keys holds the musical key of every node; nil disables the penalty
	Keys       []string `json:"keys,omitempty"`
	KeyPenalty float64  `json:"key_penalty,omitempty"` // Zero means DefaultKeyPenalty
}

// Greedy walks the graph from opts.Start, always following the heaviest edge
// to a node not yet visited. It is the classical baseline the walk paths are
// compared against. The walk stops early when no unvisited neighbour is left.
func Greedy(a mat.Matrix, opts GreedyOptions) ([]int, error) {
	n, c := a.Dims()
	if n == 0 || n != c {
		return nil, fmt.Errorf("%w: adjacency is %dx%d", domain.ErrShape, n, c)
	}
	if opts.Start < 0 || opts.Start >= n {
		return nil, fmt.Errorf("%w: start node %d outside [0,%d)", domain.ErrInvalidParameter, opts.Start, n)
	}
	if opts.Length < 1 {
		return nil, fmt.Errorf("%w: path length must be >= 1, got %d", domain.ErrInvalidParameter, opts.Length)
	}
	if opts.Keys != nil && len(opts.Keys) != n {
		return nil, fmt.Errorf("%w: %d keys for %d nodes", domain.ErrShape, len(opts.Keys), n)
	}
	penalty := opts.KeyPenalty
	if penalty == 0 {
		penalty = DefaultKeyPenalty
	}

	path := []int{opts.Start}
	visited := make([]bool, n)
	visited[opts.Start] = true
	weights := make([]float64, n)

	for len(path) < opts.Length {
		current := path[len(path)-1]
		mat.Row(weights, current, a)
		for j := range weights {
			if visited[j] {
				weights[j] = 0
				continue
			}
			if opts.Keys != nil && opts.Keys[j] != opts.Keys[current] {
				weights[j] *= penalty
			}
		}

		next := floats.MaxIdx(weights)
		if weights[next] <= 0 {
			break
		}
		path = append(path, next)
		visited[next] = true
	}

	return path, nil
}
