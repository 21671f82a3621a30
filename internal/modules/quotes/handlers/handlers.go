// Package handlers provides HTTP handlers for quote lookups.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/web"
)

// Handler handles quote HTTP requests
type Handler struct {
	quotes   domain.QuoteProvider
	flasher  web.Flasher
	renderer *web.Renderer
	log      zerolog.Logger
}

// NewHandler creates a new quotes handler
func NewHandler(
	quotes domain.QuoteProvider,
	flasher web.Flasher,
	renderer *web.Renderer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		quotes:   quotes,
		flasher:  flasher,
		renderer: renderer,
		log:      log.With().Str("handler", "quotes").Logger(),
	}
}

// HandleQuoteForm handles GET /quote
func (h *Handler) HandleQuoteForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, web.PageQuote, web.NewPage(r, h.flasher, "Quote", nil))
}

// HandleQuote handles POST /quote
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.Lookup(r.Context(), r.PostFormValue("symbol"))
	if err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, web.PageQuoted, web.NewPage(r, h.flasher, "Quoted", quote))
}

// HandleGetQuote handles GET /api/quotes/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.Lookup(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message := web.ErrorResponse(err)
	if !web.IsClientError(err) {
		h.log.Error().Err(err).Msg("Quote lookup failed")
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
