package domain

import "context"

// QuoteProvider resolves a ticker symbol to its current price.
// Implementations return an error wrapping ErrInvalidSymbol when the symbol is unknown.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// QuoteProviderFunc adapts a function to QuoteProvider
type QuoteProviderFunc func(ctx context.Context, symbol string) (*Quote, error)

// Lookup calls f(ctx, symbol)
func (f QuoteProviderFunc) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	return f(ctx, symbol)
}
