// Package handlers provides HTTP handlers for the portfolio view.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/modules/sessions"
	"github.com/aristath/papertrade/internal/web"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service  *portfolio.Service
	flasher  web.Flasher
	renderer *web.Renderer
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	service *portfolio.Service,
	flasher web.Flasher,
	renderer *web.Renderer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		flasher:  flasher,
		renderer: renderer,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleIndex handles GET /
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	view, err := h.service.GetView(r.Context(), accountID)
	if err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, web.PageIndex, web.NewPage(r, h.flasher, "Portfolio", view))
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	view, err := h.service.GetView(r.Context(), accountID)
	if err != nil {
		status, message := web.ErrorResponse(err)
		if !web.IsClientError(err) {
			h.log.Error().Err(err).Int64("account_id", accountID).Msg("Failed to build portfolio view")
		}
		h.writeJSON(w, status, map[string]string{"error": message})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": view,
		"display": map[string]string{
			"cash":  domain.FormatUSD(view.Cash),
			"total": domain.FormatUSD(view.Total),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
