// Package handlers provides HTTP handlers for mashup runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// DefaultListLimit is the number of runs returned when no limit is given
const DefaultListLimit = 50

// RunService is the mashup behaviour the handlers depend on
type RunService interface {
	Generate(ctx context.Context, req mashup.Request) (*mashup.Run, error)
	Get(ctx context.Context, id string) (*mashup.Run, error)
	List(ctx context.Context, limit int) ([]mashup.RunSummary, error)
	Trajectory(ctx context.Context, id, kind string) (*quantum.Trajectory, error)
	Trace(ctx context.Context, id, kind string, node, period int) (*diagnostics.Trace, error)
}

// Handler handles mashup HTTP requests
type Handler struct {
	service RunService
	log     zerolog.Logger
}

// NewHandler creates a new mashup handler
func NewHandler(service RunService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "mashup").Logger(),
	}
}

// HandleGenerate handles POST /api/mashup/runs
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req mashup.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to generate mashup")
		return
	}
	h.writeJSON(w, http.StatusCreated, run)
}

// HandleList handles GET /api/mashup/runs
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, err, "Failed to list runs")
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// HandleGet handles GET /api/mashup/runs/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get run")
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

type trajectoryResponse struct {
	RunID string      `json:"run_id"`
	Kind  string      `json:"kind"`
	Steps int         `json:"steps"`
	Nodes int         `json:"nodes"`
	Rows  [][]float64 `json:"rows"`
}

// HandleTrajectory handles GET /api/mashup/runs/{id}/trajectory?kind=bio|base
func (h *Handler) HandleTrajectory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := trajectoryKind(r)

	traj, err := h.service.Trajectory(r.Context(), id, kind)
	if err != nil {
		h.writeError(w, err, "Failed to get trajectory")
		return
	}
	steps, nodes := traj.Dims()
	h.writeJSON(w, http.StatusOK, trajectoryResponse{
		RunID: id,
		Kind:  kind,
		Steps: steps,
		Nodes: nodes,
		Rows:  traj.Rows(),
	})
}

// HandleTrace handles GET /api/mashup/runs/{id}/trace/{node}?kind=bio|base&period=10
func (h *Handler) HandleTrace(w http.ResponseWriter, r *http.Request) {
	node, err := strconv.Atoi(chi.URLParam(r, "node"))
	if err != nil {
		http.Error(w, "node must be an integer", http.StatusBadRequest)
		return
	}
	period := 0
	if v := r.URL.Query().Get("period"); v != "" {
		if period, err = strconv.Atoi(v); err != nil {
			http.Error(w, "period must be an integer", http.StatusBadRequest)
			return
		}
	}

	trace, err := h.service.Trace(r.Context(), chi.URLParam(r, "id"), trajectoryKind(r), node, period)
	if err != nil {
		h.writeError(w, err, "Failed to trace node")
		return
	}
	h.writeJSON(w, http.StatusOK, trace)
}

// HandleVariants handles GET /api/mashup/variants
func (h *Handler) HandleVariants(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, mashup.Variants())
}

func trajectoryKind(r *http.Request) string {
	if kind := r.URL.Query().Get("kind"); kind != "" {
		return kind
	}
	return mashup.TrajectoryBio
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
