// Package handlers provides stateless HTTP endpoints over the walk engine:
// operator construction, evolution, path extraction and comparison.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// Handler handles quantum HTTP requests
type Handler struct {
	engine    *quantum.Engine
	extractor *pathing.Extractor
	log       zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(
	engine *quantum.Engine,
	extractor *pathing.Extractor,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		engine:    engine,
		extractor: extractor,
		log:       log.With().Str("handler", "quantum").Logger(),
	}
}

// OperatorRequest builds H from an adjacency matrix
type OperatorRequest struct {
	Adjacency [][]float64      `json:"adjacency"`
	Operator  operator.Options `json:"operator"`
}

// EvolveRequest runs the walk on either an explicit operator or one built
// from an adjacency matrix
type EvolveRequest struct {
	Hamiltonian [][]float64      `json:"hamiltonian,omitempty"`
	Adjacency   [][]float64      `json:"adjacency,omitempty"`
	Operator    operator.Options `json:"operator"`
	Start       int              `json:"start"`
	Walk        quantum.Config   `json:"walk"`
}

// ExtractRequest picks a path from a trajectory
type ExtractRequest struct {
	Trajectory [][]float64     `json:"trajectory"`
	Reference  [][]float64     `json:"reference,omitempty"`
	Adjacency  [][]float64     `json:"adjacency,omitempty"`
	Options    pathing.Options `json:"options"`
}

// CompareRequest compares two paths and, when given, their trajectories
type CompareRequest struct {
	PathA       []int       `json:"path_a"`
	PathB       []int       `json:"path_b"`
	TrajectoryA [][]float64 `json:"trajectory_a,omitempty"`
	TrajectoryB [][]float64 `json:"trajectory_b,omitempty"`
	Groups      []string    `json:"groups,omitempty"`
}

type operatorResponse struct {
	Hamiltonian [][]float64       `json:"hamiltonian"`
	Spectrum    operator.Spectrum `json:"spectrum"`
}

type evolveResponse struct {
	Steps           int         `json:"steps"`
	Nodes           int         `json:"nodes"`
	DegenerateSteps int         `json:"degenerate_steps"`
	Rows            [][]float64 `json:"rows"`
}

type compareResponse struct {
	Paths        diagnostics.DivergenceReport      `json:"paths"`
	Trajectories *diagnostics.TrajectoryComparison `json:"trajectories,omitempty"`
	GroupsA      *diagnostics.GroupReport          `json:"groups_a,omitempty"`
	GroupsB      *diagnostics.GroupReport          `json:"groups_b,omitempty"`
}

// HandleOperator handles POST /api/quantum/operator
func (h *Handler) HandleOperator(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := operator.FromRows(req.Adjacency)
	if err != nil {
		h.writeError(w, err, "Failed to read adjacency")
		return
	}
	ham, err := operator.Build(a, withDefaults(req.Operator))
	if err != nil {
		h.writeError(w, err, "Failed to build operator")
		return
	}
	spectrum, err := operator.ComputeSpectrum(ham)
	if err != nil {
		h.writeError(w, err, "Failed to compute spectrum")
		return
	}

	h.writeJSON(w, http.StatusOK, operatorResponse{Hamiltonian: operator.ToRows(ham), Spectrum: spectrum})
}

// HandleEvolve handles POST /api/quantum/evolve
func (h *Handler) HandleEvolve(w http.ResponseWriter, r *http.Request) {
	var req EvolveRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		ham *mat.SymDense
		err error
	)
	switch {
	case req.Hamiltonian != nil:
		ham, err = operator.NewHamiltonian(req.Hamiltonian)
	case req.Adjacency != nil:
		var a *mat.Dense
		if a, err = operator.FromRows(req.Adjacency); err == nil {
			ham, err = operator.Build(a, withDefaults(req.Operator))
		}
	default:
		err = fmt.Errorf("%w: hamiltonian or adjacency is required", domain.ErrShape)
	}
	if err != nil {
		h.writeError(w, err, "Failed to build operator")
		return
	}

	traj, err := h.engine.Evolve(ham, req.Start, req.Walk)
	if err != nil {
		h.writeError(w, err, "Failed to evolve walk")
		return
	}

	steps, nodes := traj.Dims()
	h.writeJSON(w, http.StatusOK, evolveResponse{
		Steps:           steps,
		Nodes:           nodes,
		DegenerateSteps: traj.DegenerateSteps(),
		Rows:            traj.Rows(),
	})
}

// HandleExtract handles POST /api/quantum/extract
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}

	traj, err := quantum.NewTrajectory(req.Trajectory)
	if err != nil {
		h.writeError(w, err, "Failed to read trajectory")
		return
	}
	var ref *quantum.Trajectory
	if req.Reference != nil {
		if ref, err = quantum.NewTrajectory(req.Reference); err != nil {
			h.writeError(w, err, "Failed to read reference trajectory")
			return
		}
	}
	var a mat.Matrix
	if req.Adjacency != nil {
		dense, err := operator.FromRows(req.Adjacency)
		if err != nil {
			h.writeError(w, err, "Failed to read adjacency")
			return
		}
		a = dense
	}

	path, err := h.extractor.Extract(traj, a, ref, req.Options)
	if err != nil {
		h.writeError(w, err, "Failed to extract path")
		return
	}
	h.writeJSON(w, http.StatusOK, path)
}

// HandleCompare handles POST /api/quantum/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp := compareResponse{Paths: diagnostics.ComparePaths(req.PathA, req.PathB)}

	if req.TrajectoryA != nil || req.TrajectoryB != nil {
		a, err := quantum.NewTrajectory(req.TrajectoryA)
		if err != nil {
			h.writeError(w, err, "Failed to read trajectory_a")
			return
		}
		b, err := quantum.NewTrajectory(req.TrajectoryB)
		if err != nil {
			h.writeError(w, err, "Failed to read trajectory_b")
			return
		}
		if resp.Trajectories, err = diagnostics.CompareTrajectories(a, b); err != nil {
			h.writeError(w, err, "Failed to compare trajectories")
			return
		}
	}

	if req.Groups != nil {
		var err error
		if resp.GroupsA, err = diagnostics.GroupTransitions(req.PathA, req.Groups); err != nil {
			h.writeError(w, err, "Failed to group path_a")
			return
		}
		if resp.GroupsB, err = diagnostics.GroupTransitions(req.PathB, req.Groups); err != nil {
			h.writeError(w, err, "Failed to group path_b")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// withDefaults fills the operator mode and bio source when omitted
func withDefaults(opts operator.Options) operator.Options {
	if opts.Mode == "" {
		opts.Mode = operator.ModeLaplacian
	}
	if opts.Bio.Strength > 0 && opts.Bio.Source == "" {
		opts.Bio.Source = operator.BioNormal
		if opts.Bio.Seed == 0 {
			opts.Bio.Seed = operator.DefaultBioSeed
		}
	}
	return opts
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps domain errors onto status codes
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
