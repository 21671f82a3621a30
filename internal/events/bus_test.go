package events

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishToMatchingSubscribers(t *testing.T) {
	bus := NewBus()

	all, cancelAll := bus.Subscribe(nil)
	defer cancelAll()
	onlyTwo, cancelTwo := bus.Subscribe(func(e Event) bool { return e.AccountID == 2 })
	defer cancelTwo()

	bus.Publish(Event{Type: TradeExecuted, AccountID: 1})
	bus.Publish(Event{Type: TradeExecuted, AccountID: 2})

	assert.Equal(t, int64(1), (<-all).AccountID)
	assert.Equal(t, int64(2), (<-all).AccountID)
	assert.Equal(t, int64(2), (<-onlyTwo).AccountID)

	select {
	case e := <-onlyTwo:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(nil)
	assert.Equal(t, 1, bus.SubscriberCount())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Publish(Event{Type: TradeExecuted})
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe(nil)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(Event{Type: TradeExecuted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestManager_EmitPublishesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	m := NewManager(bus, zerolog.New(&buf))

	ch, cancel := bus.Subscribe(nil)
	defer cancel()

	m.Emit("trading", 7, &TradeExecutedData{Symbol: "AAPL", Side: "BUY", Shares: 10, AccountID: 7})

	e := <-ch
	assert.Equal(t, TradeExecuted, e.Type)
	assert.Equal(t, int64(7), e.AccountID)
	data, ok := e.Data.(*TradeExecutedData)
	require.True(t, ok)
	assert.Equal(t, "AAPL", data.Symbol)

	assert.Contains(t, buf.String(), "TRADE_EXECUTED")
	assert.Contains(t, buf.String(), `"module":"trading"`)
}

func TestManager_EmitErrorWithoutBus(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(nil, zerolog.New(&buf))

	m.EmitError("backup", errors.New("bucket missing"), map[string]interface{}{"attempt": 1})

	assert.Contains(t, buf.String(), "ERROR_OCCURRED")
	assert.Contains(t, buf.String(), "bucket missing")
}
