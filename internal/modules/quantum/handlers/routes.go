package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all quantum routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quantum", func(r chi.Router) {
		r.Post("/operator", h.HandleOperator)
		r.Post("/evolve", h.HandleEvolve)
		r.Post("/extract", h.HandleExtract)
		r.Post("/compare", h.HandleCompare)
	})
}
