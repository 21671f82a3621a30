package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/papertrade/internal/events"
)

func TestHandleEventsWS_StreamsOwnTradeEvents(t *testing.T) {
	s := setup(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return s.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// another account's event must not reach this feed
	s.bus.Publish(events.Event{Type: events.TradeExecuted, AccountID: s.accountID + 1, Module: "trading"})

	require.Equal(t, http.StatusOK, s.postJSON("/api/trades/buy", TradeRequest{Symbol: "X", Shares: 2}).Code)

	var got struct {
		Type      string                 `json:"type"`
		AccountID int64                  `json:"account_id"`
		Data      map[string]interface{} `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &got))

	assert.Equal(t, string(events.TradeExecuted), got.Type)
	assert.Equal(t, s.accountID, got.AccountID)
	assert.Equal(t, "X", got.Data["symbol"])
	assert.Equal(t, "900", got.Data["cash"])
}

func TestHandleEventsWS_UnsubscribesOnDisconnect(t *testing.T) {
	s := setup(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	assert.Eventually(t, func() bool { return s.bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
