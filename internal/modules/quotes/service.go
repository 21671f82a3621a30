// Package quotes resolves ticker symbols to current prices.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/utils"
)

const maxSymbolLength = 10

// Service looks up quotes cache first and falls back to stale prices when the provider is down.
// A symbol the provider does not know is never served from cache.
type Service struct {
	provider domain.QuoteProvider
	cache    *clientdata.Repository
	log      zerolog.Logger
	ttl      time.Duration
}

// NewService creates a quote service. cache may be nil to disable caching.
func NewService(provider domain.QuoteProvider, cache *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = clientdata.TTLCurrentPrice
	}
	return &Service{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		log:      log.With().Str("service", "quotes").Logger(),
	}
}

// Lookup returns the current quote for symbol or domain.ErrInvalidSymbol
func (s *Service) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	if quote := s.fromCache(symbol, true); quote != nil {
		return quote, nil
	}

	stopTimer := utils.OperationTimer("quote_lookup", 2*time.Second, s.log)
	quote, err := s.provider.Lookup(ctx, symbol)
	stopTimer()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSymbol) {
			return nil, err
		}
		if stale := s.fromCache(symbol, false); stale != nil {
			s.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Time("as_of", stale.AsOf).
				Msg("Quote provider failed, using stale cached price")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to look up %s: %w", symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableCurrentPrices, symbol, quote, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	return quote, nil
}

func (s *Service) fromCache(symbol string, freshOnly bool) *domain.Quote {
	if s.cache == nil {
		return nil
	}

	var (
		data json.RawMessage
		err  error
	)
	if freshOnly {
		data, err = s.cache.GetIfFresh(clientdata.TableCurrentPrices, symbol)
	} else {
		data, err = s.cache.Get(clientdata.TableCurrentPrices, symbol)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
		return nil
	}
	if data == nil {
		return nil
	}

	var quote domain.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Discarding unreadable cached quote")
		return nil
	}
	return &quote
}

// ValidateSymbol rejects symbols that no exchange would list, before any provider call
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: missing symbol", domain.ErrInvalidSymbol)
	}
	if len(symbol) > maxSymbolLength {
		return fmt.Errorf("%w: %q is too long", domain.ErrInvalidSymbol, symbol)
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return fmt.Errorf("%w: %q", domain.ErrInvalidSymbol, symbol)
		}
	}
	return nil
}
