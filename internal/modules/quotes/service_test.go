package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/domain"
	testingutil "github.com/aristath/papertrade/internal/testing"
)

func newTestService(t *testing.T, provider domain.QuoteProvider) (*Service, *clientdata.Repository) {
	t.Helper()
	db, cleanup := testingutil.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	repo := clientdata.NewRepository(db.Conn())
	return NewService(provider, repo, time.Minute, zerolog.Nop()), repo
}

func TestLookup_NormalizesAndCaches(t *testing.T) {
	provider := testingutil.NewMockQuoteProvider(map[string]string{"AAPL": "187.44"})
	svc, _ := newTestService(t, provider)

	quote, err := svc.Lookup(context.Background(), "  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "187.44", quote.Price.String())

	again, err := svc.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(again.Price))
	assert.Equal(t, 1, provider.Calls(), "fresh cache must satisfy the second lookup")
}

func TestLookup_InvalidSymbol(t *testing.T) {
	provider := testingutil.NewMockQuoteProvider(map[string]string{})
	svc, _ := newTestService(t, provider)

	for _, symbol := range []string{"", "   ", "TOOLONGSYMBOL", "A B", "<script>"} {
		_, err := svc.Lookup(context.Background(), symbol)
		assert.True(t, errors.Is(err, domain.ErrInvalidSymbol), "symbol %q", symbol)
	}
	assert.Equal(t, 0, provider.Calls())

	_, err := svc.Lookup(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
	assert.Equal(t, 1, provider.Calls())
}

func TestLookup_StaleFallbackOnProviderFailure(t *testing.T) {
	provider := testingutil.NewMockQuoteProvider(map[string]string{"MSFT": "410.00"})
	svc, repo := newTestService(t, provider)

	stale := domain.Quote{Symbol: "MSFT", Name: "Microsoft", Price: decimal.RequireFromString("410.00"), AsOf: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Store(clientdata.TableCurrentPrices, "MSFT", stale, -time.Minute))

	provider.SetError(errors.New("connection refused"))

	quote, err := svc.Lookup(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "410", quote.Price.String())
	assert.Equal(t, "Microsoft", quote.Name)
}

func TestLookup_ProviderFailureWithoutCache(t *testing.T) {
	provider := testingutil.NewMockQuoteProvider(map[string]string{})
	provider.SetError(errors.New("timeout"))
	svc := NewService(provider, nil, 0, zerolog.Nop())

	_, err := svc.Lookup(context.Background(), "NFLX")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidSymbol))
	assert.Contains(t, err.Error(), "timeout")
}

func TestLookup_ExpiredCacheRefetches(t *testing.T) {
	provider := testingutil.NewMockQuoteProvider(map[string]string{"TSLA": "250.10"})
	svc, repo := newTestService(t, provider)

	old := domain.Quote{Symbol: "TSLA", Price: decimal.NewFromInt(1), AsOf: time.Now()}
	require.NoError(t, repo.Store(clientdata.TableCurrentPrices, "TSLA", old, -time.Minute))

	quote, err := svc.Lookup(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, "250.1", quote.Price.String())
	assert.Equal(t, 1, provider.Calls())
}
