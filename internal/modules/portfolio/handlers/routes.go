package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the portfolio page
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleIndex)
}

// RegisterAPIRoutes registers the portfolio API, mounted under /api
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Get("/portfolio", h.HandleGetPortfolio)
}
