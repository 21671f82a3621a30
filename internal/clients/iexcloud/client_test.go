package iexcloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/domain"
)

func TestLookup_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/AAPL/quote", r.URL.Path)
		assert.Equal(t, "pk_test", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":187.44}`))
	}))
	defer server.Close()

	client := NewClient("pk_test", server.URL, zerolog.Nop())
	quote, err := client.Lookup(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "Apple Inc.", quote.Name)
	assert.Equal(t, "187.44", quote.Price.String())
	assert.False(t, quote.AsOf.IsZero())
}

func TestLookup_UnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unknown symbol", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("pk_test", server.URL, zerolog.Nop())
	_, err := client.Lookup(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
}

func TestLookup_ProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("pk_test", server.URL, zerolog.Nop())
	_, err := client.Lookup(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidSymbol), "outages must not look like unknown symbols")
	assert.Contains(t, err.Error(), "502")
}

func TestLookup_EmptySymbol(t *testing.T) {
	client := NewClient("pk_test", "http://127.0.0.1:0", zerolog.Nop())
	_, err := client.Lookup(context.Background(), "   ")
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
}

func TestParseQuote(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		price   string
		wantErr error
	}{
		{"number price", `{"symbol":"msft","companyName":"Microsoft","latestPrice":410.5}`, "410.5", nil},
		{"null price", `{"symbol":"X","latestPrice":null}`, "", domain.ErrInvalidSymbol},
		{"zero price", `{"symbol":"X","latestPrice":0}`, "", domain.ErrInvalidSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := parseQuote([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.price, quote.Price.String())
			assert.Equal(t, "MSFT", quote.Symbol)
		})
	}

	_, err := parseQuote([]byte(`not json`))
	assert.Error(t, err)
}
