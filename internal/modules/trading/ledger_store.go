package trading

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/portfolio"
)

// LedgerStore applies trades to ledger.db. Balance, holding and transaction
// are written in one database transaction or not at all.
type LedgerStore struct {
	ledgerDB *sql.DB
	holdings *portfolio.HoldingRepository
	trades   *TradeRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewLedgerStore creates a new ledger store
func NewLedgerStore(ledgerDB *sql.DB, holdings *portfolio.HoldingRepository, trades *TradeRepository, log zerolog.Logger) *LedgerStore {
	return &LedgerStore{
		ledgerDB: ledgerDB,
		holdings: holdings,
		trades:   trades,
		log:      log.With().Str("component", "ledger_store").Logger(),
		now:      time.Now,
	}
}

// ApplyTrade reads the account's balance and holding, plans the trade and writes the outcome.
// A rejected trade returns the domain error and leaves the ledger untouched.
func (s *LedgerStore) ApplyTrade(ctx context.Context, side domain.TradeSide, accountID int64, quote domain.Quote, shares int64) (*Outcome, error) {
	var outcome Outcome

	err := database.WithTransactionContext(ctx, s.ledgerDB, func(tx *sql.Tx) error {
		cash, err := accounts.LoadCash(ctx, tx, accountID)
		if err != nil {
			return err
		}
		holding, err := s.holdings.Get(ctx, tx, accountID, quote.Symbol)
		if err != nil {
			return err
		}

		outcome, err = Plan(side, State{AccountID: accountID, Cash: cash, Holding: holding}, quote, shares)
		if err != nil {
			return err
		}

		now := s.now()
		outcome.Transaction.ExecutedAt = now.UTC()
		outcome.Transaction.Ref = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

		if err := accounts.StoreCash(ctx, tx, accountID, outcome.Cash); err != nil {
			return err
		}
		if outcome.Holding == nil {
			if err := s.holdings.Delete(ctx, tx, accountID, quote.Symbol); err != nil {
				return err
			}
		} else {
			outcome.Holding.UpdatedAt = now.UTC()
			if err := s.holdings.Upsert(ctx, tx, outcome.Holding); err != nil {
				return err
			}
		}
		return s.trades.Insert(ctx, tx, &outcome.Transaction)
	})
	if err != nil {
		return nil, err
	}

	return &outcome, nil
}
