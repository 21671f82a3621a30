package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the quote pages
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quote", h.HandleQuoteForm)
	r.Post("/quote", h.HandleQuote)
}

// RegisterAPIRoutes registers the quote API, mounted under /api
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Get("/quotes/{symbol}", h.HandleGetQuote)
}
