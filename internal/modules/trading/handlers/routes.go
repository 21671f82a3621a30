package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the trading pages
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/buy", h.HandleBuyForm)
	r.Post("/buy", h.HandleBuy)
	r.Get("/sell", h.HandleSellForm)
	r.Post("/sell", h.HandleSell)
	r.Get("/history", h.HandleHistory)
}

// RegisterAPIRoutes registers the trading API, mounted under /api
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Post("/buy", h.HandleAPIBuy)
		r.Post("/sell", h.HandleAPISell)
	})
	r.Get("/history", h.HandleGetHistory)
}

// RegisterStreamRoutes registers the long-lived event feed, mounted under /api.
// It must not sit behind a request timeout.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/events/ws", h.HandleEventsWS)
}
