package mashup

import (
	"time"

	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
)

// Trajectory kinds stored per run
const (
	TrajectoryBio  = "bio"
	TrajectoryBase = "base"
)

// Report holds the comparisons computed for a run
type Report struct {
	Divergence   diagnostics.DivergenceReport     `json:"divergence"`
	Trajectories diagnostics.TrajectoryComparison `json:"trajectories"`
	Groups       diagnostics.GroupReport          `json:"groups"`
	// Greedy is the classical baseline from the same start node
	Greedy []int `json:"greedy"`
}

// Run is one generated mashup
type Run struct {
	ID        string    `json:"id"`
	Params    Params    `json:"params"`
	CreatedAt time.Time `json:"created_at"`

	// Path is extracted from the perturbed trajectory with the unperturbed
	// trajectory as bio-influence reference
	Path pathing.Path `json:"path"`
	// Baseline is the path extracted from the unperturbed trajectory
	Baseline []int `json:"baseline"`

	Report    Report     `json:"report"`
	Stitch    StitchPlan `json:"stitch"`
	ExportKey string     `json:"export_key,omitempty"`
}

// RunSummary is the listing view of a run
type RunSummary struct {
	ID                 string    `json:"id"`
	GraphID            string    `json:"graph_id"`
	Variant            string    `json:"variant"`
	Length             int       `json:"length"`
	Truncated          bool      `json:"truncated"`
	FirstDivergence    int       `json:"first_divergence"`
	DivergenceFraction float64   `json:"divergence_fraction"`
	MeanL1             float64   `json:"mean_l1"`
	EntropyShift       float64   `json:"entropy_shift"`
	ExportKey          string    `json:"export_key,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
