package testing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

// MockQuoteProvider is an in-memory domain.QuoteProvider for tests
type MockQuoteProvider struct {
	prices map[string]decimal.Decimal
	err    error
	calls  int
	mu     sync.Mutex
}

// NewMockQuoteProvider creates a provider that knows the given symbol prices
func NewMockQuoteProvider(prices map[string]string) *MockQuoteProvider {
	m := &MockQuoteProvider{prices: make(map[string]decimal.Decimal, len(prices))}
	for symbol, price := range prices {
		m.prices[domain.NormalizeSymbol(symbol)] = decimal.RequireFromString(price)
	}
	return m
}

// SetPrice sets or replaces the price of a symbol
func (m *MockQuoteProvider) SetPrice(symbol, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[domain.NormalizeSymbol(symbol)] = decimal.RequireFromString(price)
}

// SetError makes every subsequent Lookup fail with err (nil clears it)
func (m *MockQuoteProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Lookup was called
func (m *MockQuoteProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Lookup returns the configured price or domain.ErrInvalidSymbol
func (m *MockQuoteProvider) Lookup(_ context.Context, symbol string) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	symbol = domain.NormalizeSymbol(symbol)
	price, ok := m.prices[symbol]
	if !ok {
		return nil, domain.ErrInvalidSymbol
	}
	return &domain.Quote{
		Symbol: symbol,
		Name:   symbol + " Inc.",
		Price:  price,
		AsOf:   time.Now(),
	}, nil
}
