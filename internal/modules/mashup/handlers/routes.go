package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all mashup routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/mashup", func(r chi.Router) {
		r.Get("/variants", h.HandleVariants)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleList)
			r.Post("/", h.HandleGenerate)
			r.Get("/{id}", h.HandleGet)
			r.Get("/{id}/trajectory", h.HandleTrajectory)
			r.Get("/{id}/trace/{node}", h.HandleTrace)
			r.Get("/{id}/stream", h.HandleStream)
		})
	})
}
