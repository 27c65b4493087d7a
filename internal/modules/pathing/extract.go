package pathing

import (
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// Step is the diagnostic record of one pick
type Step struct {
	Step int `json:"step"`
	Time int `json:"t"`
	Node int `json:"node"`
	// Probability is the chosen node's mass in the row used for selection
	// (renormalised in sample mode)
	Probability float64 `json:"probability"`
	// Similarity is the adjacency weight from the previous pick, nil for the
	// first step
	Similarity   *float64                `json:"similarity"`
	BioInfluence float64                 `json:"bio_influence"`
	Candidates   []diagnostics.Candidate `json:"candidates"`
	Degenerate   bool                    `json:"degenerate,omitempty"`
}

// Path is the output of Extract
type Path struct {
	Nodes     []int  `json:"nodes"`
	Steps     []Step `json:"steps"`
	Requested int    `json:"requested"`
	Truncated bool   `json:"truncated"`
}

// Extractor picks paths from trajectories
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates a path extractor
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{
		log: log.With().Str("component", "path_extractor").Logger(),
	}
}

// Extract runs an extraction with a disabled logger
func Extract(traj *quantum.Trajectory, a mat.Matrix, ref *quantum.Trajectory, opts Options) (*Path, error) {
	return NewExtractor(zerolog.Nop()).Extract(traj, a, ref, opts)
}

// Extract walks the trajectory rows in order and picks one node per row until
// opts.Length nodes are collected.
//
// a supplies the similarity between consecutive picks and must match the
// trajectory's node count. ref, when non-nil, must have the trajectory's shape;
// each step then reports P[t,i] - ref[t,i] for the chosen node.
func (x *Extractor) Extract(traj *quantum.Trajectory, a mat.Matrix, ref *quantum.Trajectory, opts Options) (*Path, error) {
	if traj == nil {
		return nil, fmt.Errorf("%w: trajectory is nil", domain.ErrShape)
	}
	steps, n := traj.Dims()
	if a != nil {
		if r, c := a.Dims(); r != n || c != n {
			return nil, fmt.Errorf("%w: adjacency is %dx%d, trajectory has %d nodes", domain.ErrShape, r, c, n)
		}
	}
	if ref != nil {
		if rs, rn := ref.Dims(); rs != steps || rn != n {
			return nil, fmt.Errorf("%w: reference is %dx%d, trajectory is %dx%d", domain.ErrShape, rs, rn, steps, n)
		}
	}
	if err := opts.Validate(n); err != nil {
		return nil, err
	}
	if err := traj.CheckFinite(); err != nil {
		return nil, err
	}

	rows := steps
	if opts.Horizon > 0 && opts.Horizon < rows {
		rows = opts.Horizon
	}

	var src rand.Source
	if opts.Selection == SelectSample {
		src = rand.NewPCG(opts.Seed, opts.Seed)
	}

	path := &Path{
		Nodes:     make([]int, 0, opts.Length),
		Steps:     make([]Step, 0, opts.Length),
		Requested: opts.Length,
	}
	mem := newMemory(opts.MemoryWindow)
	degenerate := 0

	for t := 0; t < rows && len(path.Nodes) < opts.Length; t++ {
		row := traj.Row(t)
		recent := mem.recent()
		for _, r := range recent {
			row[r] = 0
		}

		var (
			node       int
			prob       float64
			collapsed  bool
			candidates = diagnostics.TopK(row, TopCandidates, recent)
		)

		if opts.Selection == SelectSample {
			node, prob, collapsed = sample(row, recent, src)
		} else {
			node, prob, collapsed = argmax(row, recent)
		}
		if collapsed {
			degenerate++
			x.log.Warn().
				Int("t", t).
				Str("selection", string(opts.Selection)).
				Msg("No probability mass outside the memory window, falling back to lowest free index")
		}

		step := Step{
			Step:        len(path.Nodes),
			Time:        t,
			Node:        node,
			Probability: prob,
			Candidates:  candidates,
			Degenerate:  collapsed,
		}
		if len(path.Nodes) > 0 && a != nil {
			sim := a.At(path.Nodes[len(path.Nodes)-1], node)
			step.Similarity = &sim
		}
		if ref != nil {
			step.BioInfluence = traj.At(t, node) - ref.At(t, node)
		}

		path.Nodes = append(path.Nodes, node)
		path.Steps = append(path.Steps, step)
		mem.push(node)
	}

	if len(path.Nodes) < opts.Length {
		if opts.ShortPath == ShortPathError {
			return nil, fmt.Errorf("%w: collected %d of %d nodes from %d rows", domain.ErrExhaustedTrajectory, len(path.Nodes), opts.Length, rows)
		}
		path.Truncated = true
		x.log.Warn().
			Int("requested", opts.Length).
			Int("collected", len(path.Nodes)).
			Int("rows", rows).
			Msg("Trajectory exhausted before the requested path length")
	}

	x.log.Debug().
		Int("length", len(path.Nodes)).
		Str("selection", string(opts.Selection)).
		Int("memory_window", opts.MemoryWindow).
		Int("degenerate_steps", degenerate).
		Msg("Path extracted")

	return path, nil
}

// argmax returns the most probable node outside recent. Masked entries are
// pushed below zero so an all-zero row still yields the lowest free index.
func argmax(row []float64, recent []int) (node int, prob float64, collapsed bool) {
	masked := make([]float64, len(row))
	copy(masked, row)
	for _, r := range recent {
		masked[r] = -1
	}
	node = floats.MaxIdx(masked)
	return node, row[node], row[node] <= 0
}

// sample draws from the masked row renormalised to one. Zero remaining mass
// falls back to argmax, as does a draw landing on a zero-weight (masked) node.
func sample(row []float64, recent []int, src rand.Source) (node int, prob float64, collapsed bool) {
	total := floats.Sum(row)
	if total <= 0 {
		return argmax(row, recent)
	}
	weights := make([]float64, len(row))
	copy(weights, row)
	floats.Scale(1/total, weights)

	node = int(distuv.NewCategorical(weights, src).Rand())
	if weights[node] == 0 {
		return argmax(row, recent)
	}
	return node, weights[node], false
}
