package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/domain"
	testingutil "github.com/aristath/papertrade/internal/testing"
	"github.com/aristath/papertrade/internal/web"
)

func setupHandler(t *testing.T) (*chi.Mux, *testingutil.MockQuoteProvider) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	renderer, err := web.NewRenderer(logger)
	require.NoError(t, err)
	provider := testingutil.NewMockQuoteProvider(map[string]string{"AAPL": "187.445"})

	handler := NewHandler(provider, nil, renderer, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	router.Route("/api", handler.RegisterAPIRoutes)
	return router, provider
}

func TestHandleQuote(t *testing.T) {
	tests := []struct {
		name           string
		symbol         string
		providerErr    error
		expectedStatus int
		expectedBody   string
	}{
		{"known symbol", "AAPL", nil, http.StatusOK, "AAPL Inc. (AAPL) costs $187.45"},
		{"lower case symbol", "aapl", nil, http.StatusOK, "costs $187.45"},
		{"unknown symbol", "NOPE", nil, http.StatusBadRequest, "This is not a valid Symbol"},
		{"provider down", "AAPL", errors.New("connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, provider := setupHandler(t)
			if tt.providerErr != nil {
				provider.SetError(tt.providerErr)
			}

			form := url.Values{"symbol": {tt.symbol}}
			req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestHandleQuoteForm(t *testing.T) {
	router, _ := setupHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quote", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/quote"`)
}

func TestHandleGetQuote(t *testing.T) {
	router, _ := setupHandler(t)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quotes/AAPL", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var quote domain.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.Equal(t, "AAPL", quote.Symbol)
		assert.Equal(t, "187.445", quote.Price.String(), "API returns the unrounded price")
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quotes/NOPE", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "This is not a valid Symbol", body["error"])
	})
}

func TestHandleGetQuote_LogsOnlyServerErrors(t *testing.T) {
	var buf bytes.Buffer
	renderer, err := web.NewRenderer(zerolog.Nop())
	require.NoError(t, err)
	provider := testingutil.NewMockQuoteProvider(map[string]string{"AAPL": "1"})

	router := chi.NewRouter()
	router.Route("/api", NewHandler(provider, nil, renderer, zerolog.New(&buf)).RegisterAPIRoutes)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quotes/NOPE", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, buf.String(), "rejections are not logged as errors")

	provider.SetError(errors.New("connection refused"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quotes/AAPL", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "connection refused")
	assert.Contains(t, buf.String(), `"level":"error"`)
}
