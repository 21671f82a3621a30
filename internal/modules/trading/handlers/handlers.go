// Package handlers provides HTTP handlers for buying, selling and trade history.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/modules/sessions"
	"github.com/aristath/papertrade/internal/modules/trading"
	"github.com/aristath/papertrade/internal/web"
)

// SessionFlasher reads and queues one-time messages
type SessionFlasher interface {
	web.Flasher
	AddFlash(r *http.Request, message string)
}

// Handler handles trading HTTP requests
type Handler struct {
	trading   *trading.Service
	portfolio *portfolio.Service
	flasher   SessionFlasher
	renderer  *web.Renderer
	bus       *events.Bus
	log       zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(
	tradingService *trading.Service,
	portfolioService *portfolio.Service,
	flasher SessionFlasher,
	renderer *web.Renderer,
	bus *events.Bus,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		trading:   tradingService,
		portfolio: portfolioService,
		flasher:   flasher,
		renderer:  renderer,
		bus:       bus,
		log:       log.With().Str("handler", "trading").Logger(),
	}
}

// TradeRequest is the body of POST /api/trades/buy and /api/trades/sell
type TradeRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// TradeResponse describes an executed trade
type TradeResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	Holding     *domain.Holding    `json:"holding"` // null when the position was closed
	Cash        string             `json:"cash"`
}

// HandleBuyForm handles GET /buy. ?symbol= prefills the form.
func (h *Handler) HandleBuyForm(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.URL.Query().Get("symbol"))
	h.renderer.Render(w, http.StatusOK, web.PageBuy, web.NewPage(r, h.flasher, "Buy", symbol))
}

// HandleBuy handles POST /buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTradeForm(w, r, domain.TradeSideBuy)
}

// HandleSellForm handles GET /sell. The form offers the symbols the account owns.
func (h *Handler) HandleSellForm(w http.ResponseWriter, r *http.Request) {
	accountID, _ := sessions.AccountID(r.Context())

	symbols, err := h.portfolio.OwnedSymbols(r.Context(), accountID)
	if err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, web.PageSell, web.NewPage(r, h.flasher, "Sell", symbols))
}

// HandleSell handles POST /sell
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleTradeForm(w, r, domain.TradeSideSell)
}

func (h *Handler) handleTradeForm(w http.ResponseWriter, r *http.Request, side domain.TradeSide) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	symbol := strings.TrimSpace(r.PostFormValue("symbol"))
	if symbol == "" {
		h.renderer.RenderError(w, r, h.flasher, fmt.Errorf("%w: missing", domain.ErrInvalidSymbol))
		return
	}

	shares, err := domain.ParseShares(r.PostFormValue("shares"))
	if err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	if _, err := h.execute(r, side, accountID, symbol, shares); err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	if side == domain.TradeSideBuy {
		h.flasher.AddFlash(r, "Bought!")
	} else {
		h.flasher.AddFlash(r, "Sold!")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleHistory handles GET /history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, _ := sessions.AccountID(r.Context())

	history, err := h.trading.History(r.Context(), accountID, 0)
	if err != nil {
		h.renderer.RenderError(w, r, h.flasher, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, web.PageHistory, web.NewPage(r, h.flasher, "History", history))
}

// HandleAPIBuy handles POST /api/trades/buy
func (h *Handler) HandleAPIBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTradeAPI(w, r, domain.TradeSideBuy)
}

// HandleAPISell handles POST /api/trades/sell
func (h *Handler) HandleAPISell(w http.ResponseWriter, r *http.Request) {
	h.handleTradeAPI(w, r, domain.TradeSideSell)
}

func (h *Handler) handleTradeAPI(w http.ResponseWriter, r *http.Request, side domain.TradeSide) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		h.writeError(w, fmt.Errorf("%w: missing", domain.ErrInvalidSymbol))
		return
	}

	outcome, err := h.execute(r, side, accountID, req.Symbol, req.Shares)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, TradeResponse{
		Transaction: outcome.Transaction,
		Holding:     outcome.Holding,
		Cash:        outcome.Cash.String(),
	})
}

// HandleGetHistory handles GET /api/history?limit=N
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	history, err := h.trading.History(r.Context(), accountID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": history,
		"count":        len(history),
	})
}

func (h *Handler) execute(r *http.Request, side domain.TradeSide, accountID int64, symbol string, shares int64) (*trading.Outcome, error) {
	if side == domain.TradeSideBuy {
		return h.trading.Buy(r.Context(), accountID, symbol, shares)
	}
	return h.trading.Sell(r.Context(), accountID, symbol, shares)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message := web.ErrorResponse(err)
	if !web.IsClientError(err) {
		h.log.Error().Err(err).Msg("Request failed")
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
