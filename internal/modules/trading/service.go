package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/utils"
)

// Service is the entry point for buying and selling.
// Trades on one account run one at a time; different accounts never wait on each other in Go.
type Service struct {
	quotes       domain.QuoteProvider
	ledger       *LedgerStore
	trades       *TradeRepository
	eventManager *events.Manager
	log          zerolog.Logger
	locks        sync.Map // account id -> *sync.Mutex
}

// NewService creates a new trading service. eventManager may be nil.
func NewService(quotes domain.QuoteProvider, ledger *LedgerStore, trades *TradeRepository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		quotes:       quotes,
		ledger:       ledger,
		trades:       trades,
		eventManager: eventManager,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// Buy buys shares of symbol for accountID at the current quote.
// Rejections: domain.ErrInvalidShares, ErrInvalidSymbol, ErrInsufficientFunds.
func (s *Service) Buy(ctx context.Context, accountID int64, symbol string, shares int64) (*Outcome, error) {
	return s.execute(ctx, domain.TradeSideBuy, accountID, symbol, shares)
}

// Sell sells shares of symbol for accountID at the current quote.
// Rejections: domain.ErrInvalidShares, ErrInvalidSymbol, ErrNoSuchHolding, ErrInsufficientShares.
func (s *Service) Sell(ctx context.Context, accountID int64, symbol string, shares int64) (*Outcome, error) {
	return s.execute(ctx, domain.TradeSideSell, accountID, symbol, shares)
}

// History returns an account's transactions newest first
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	return s.trades.GetHistory(ctx, accountID, limit)
}

func (s *Service) execute(ctx context.Context, side domain.TradeSide, accountID int64, symbol string, shares int64) (*Outcome, error) {
	defer utils.OperationTimer("trade", time.Second, s.log)()

	symbol = domain.NormalizeSymbol(symbol)

	if err := domain.ValidateShares(shares); err != nil {
		s.rejected(side, accountID, symbol, shares, err)
		return nil, err
	}

	quote, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if domain.IsTradeRejection(err) {
			s.rejected(side, accountID, symbol, shares, err)
		}
		return nil, err
	}

	unlock := s.lockAccount(accountID)
	outcome, err := s.ledger.ApplyTrade(ctx, side, accountID, *quote, shares)
	unlock()

	if err != nil {
		if domain.IsTradeRejection(err) {
			s.rejected(side, accountID, symbol, shares, err)
		} else {
			s.log.Error().Err(err).
				Int64("account_id", accountID).
				Str("symbol", symbol).
				Str("side", string(side)).
				Msg("Trade failed")

			if s.eventManager != nil {
				s.eventManager.EmitError("trading", err, map[string]interface{}{
					"account_id": accountID,
					"symbol":     symbol,
					"side":       string(side),
					"shares":     shares,
				})
			}
		}
		return nil, err
	}

	t := outcome.Transaction
	s.log.Info().
		Int64("account_id", accountID).
		Str("ref", t.Ref).
		Str("side", string(t.Side)).
		Str("symbol", t.Symbol).
		Int64("shares", t.Shares).
		Str("price", t.Price.String()).
		Str("cash", outcome.Cash.String()).
		Msg("Trade executed")

	if s.eventManager != nil {
		s.eventManager.Emit("trading", accountID, &events.TradeExecutedData{
			AccountID: accountID,
			Ref:       t.Ref,
			Side:      string(t.Side),
			Symbol:    t.Symbol,
			Shares:    t.Shares,
			Price:     t.Price.String(),
			Cash:      outcome.Cash.String(),
		})
	}

	return outcome, nil
}

func (s *Service) rejected(side domain.TradeSide, accountID int64, symbol string, shares int64, err error) {
	s.log.Info().
		Err(err).
		Int64("account_id", accountID).
		Str("side", string(side)).
		Str("symbol", symbol).
		Int64("shares", shares).
		Msg("Trade rejected")

	if s.eventManager != nil {
		s.eventManager.Emit("trading", accountID, &events.TradeRejectedData{
			AccountID: accountID,
			Side:      string(side),
			Symbol:    symbol,
			Shares:    shares,
			Reason:    err.Error(),
		})
	}
}

func (s *Service) lockAccount(accountID int64) func() {
	mu, _ := s.locks.LoadOrStore(accountID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
