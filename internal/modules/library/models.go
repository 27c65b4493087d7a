package library

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// Graph is a stored compatibility graph with its node metadata
type Graph struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Adjacency *mat.Dense         `json:"-"`
	Nodes     []domain.GraphNode `json:"nodes"`
	Stats     GraphStats         `json:"stats"`
	CreatedAt time.Time          `json:"created_at"`
}

// Size returns the node count
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Groups returns the parent group of every node in index order
func (g *Graph) Groups() []string {
	groups := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		groups[i] = n.ParentGroup
	}
	return groups
}

// Keys returns the musical key of every node, or nil when none is known
func (g *Graph) Keys() []string {
	keys := make([]string, len(g.Nodes))
	known := false
	for i, n := range g.Nodes {
		keys[i] = n.Key
		known = known || n.Key != ""
	}
	if !known {
		return nil
	}
	return keys
}

// GraphSummary is the listing view of a graph
type GraphSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Stats     GraphStats `json:"stats"`
	CreatedAt time.Time  `json:"created_at"`
}

// SegmentInput describes one node on import. Index in the request slice is
// the node's row in the adjacency matrix.
type SegmentInput struct {
	ID          string    `json:"id"`
	ParentGroup string    `json:"parent_group"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	AudioRef    string    `json:"audio_ref"`
	Key         string    `json:"key,omitempty"`
	Features    []float64 `json:"features,omitempty"`
}

// ImportRequest is the payload for adding a graph to the library
type ImportRequest struct {
	Name      string         `json:"name"`
	Adjacency [][]float64    `json:"adjacency"`
	Segments  []SegmentInput `json:"segments"`
	// Symmetrize applies max(A, Aᵀ) and clears the diagonal before validation
	Symmetrize bool `json:"symmetrize"`
}
