// Package handlers provides HTTP handlers for the graph library.
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
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

// GraphService is the library behaviour the handlers depend on
type GraphService interface {
	Import(ctx context.Context, req library.ImportRequest) (*library.Graph, error)
	Get(ctx context.Context, id string) (*library.Graph, error)
	List(ctx context.Context) ([]library.GraphSummary, error)
	Delete(ctx context.Context, id string) error
	Spectrum(ctx context.Context, id string, opts operator.Options) (operator.Spectrum, error)
}

// Handler handles library HTTP requests
type Handler struct {
	service GraphService
	log     zerolog.Logger
}

// NewHandler creates a new library handler
func NewHandler(service GraphService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "library").Logger(),
	}
}

// graphResponse adds the adjacency rows to the JSON view of a graph
type graphResponse struct {
	*library.Graph
	Adjacency [][]float64 `json:"adjacency"`
}

// HandleImport handles POST /api/library/graphs
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req library.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	g, err := h.service.Import(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to import graph")
		return
	}

	h.writeJSON(w, http.StatusCreated, graphResponse{Graph: g, Adjacency: operator.ToRows(g.Adjacency)})
}

// HandleList handles GET /api/library/graphs
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err, "Failed to list graphs")
		return
	}
	h.writeJSON(w, http.StatusOK, graphs)
}

// HandleGet handles GET /api/library/graphs/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get graph")
		return
	}
	h.writeJSON(w, http.StatusOK, graphResponse{Graph: g, Adjacency: operator.ToRows(g.Adjacency)})
}

// HandleDelete handles DELETE /api/library/graphs/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete graph")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSpectrum handles GET /api/library/graphs/{id}/spectrum
//
// Query parameters: mode (laplacian|adjacency), negate, bio, source, seed.
func (h *Handler) HandleSpectrum(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOperatorOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	spectrum, err := h.service.Spectrum(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.writeError(w, err, "Failed to compute spectrum")
		return
	}
	h.writeJSON(w, http.StatusOK, spectrum)
}

func parseOperatorOptions(r *http.Request) (operator.Options, error) {
	q := r.URL.Query()
	opts := operator.Options{
		Mode: operator.ModeLaplacian,
		Bio: operator.BioParams{
			Seed:   operator.DefaultBioSeed,
			Source: operator.BioSource(q.Get("source")),
		},
	}
	if mode := q.Get("mode"); mode != "" {
		opts.Mode = operator.Mode(mode)
	}
	if v := q.Get("negate"); v != "" {
		negate, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("negate must be a boolean")
		}
		opts.NegateAdjacency = negate
	}
	if v := q.Get("bio"); v != "" {
		bio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.New("bio must be a number")
		}
		opts.Bio.Strength = bio
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, errors.New("seed must be a non-negative integer")
		}
		opts.Bio.Seed = seed
	}
	return opts, nil
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
