package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all library routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/library/graphs", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleImport)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/spectrum", h.HandleSpectrum)
	})
}
