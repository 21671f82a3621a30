package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the public account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.HandleLoginForm)
	r.Post("/login", h.HandleLogin)
	r.Get("/logout", h.HandleLogout)
	r.Get("/register", h.HandleRegisterForm)
	r.Post("/register", h.HandleRegister)
}
