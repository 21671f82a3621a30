package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/sessions"
)

const eventWriteTimeout = 5 * time.Second

// HandleEventsWS handles GET /api/events/ws.
// It streams the trade events of the logged-in account as JSON text messages until
// the client disconnects. Events the client is too slow to take are dropped.
func (h *Handler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	accountID, ok := sessions.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	feed, cancel := h.bus.Subscribe(func(e events.Event) bool {
		return e.AccountID == accountID && (e.Type == events.TradeExecuted || e.Type == events.TradeRejected)
	})
	defer cancel()

	h.log.Debug().Int64("account_id", accountID).Msg("Client connected to trade feed")

	// the feed never reads; CloseRead answers pings and cancels ctx when the client goes away
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Int64("account_id", accountID).Msg("Client disconnected from trade feed")
			return
		case e, ok := <-feed:
			if !ok {
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(writeCtx, conn, e)
			cancelWrite()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.Debug().Err(err).Msg("Trade feed write failed")
				}
				return
			}
		}
	}
}
