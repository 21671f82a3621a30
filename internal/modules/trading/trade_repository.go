package trading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

// transactionColumns must match scanTransaction
const transactionColumns = `id, ref, account_id, operation, symbol, price, shares, executed_at`

// TradeRepository handles the append-only transaction log in ledger.db
type TradeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// Insert appends a transaction and sets its ID. Ref and ExecutedAt must already be set.
func (r *TradeRepository) Insert(ctx context.Context, q database.Querier, t *domain.Transaction) error {
	if t.Ref == "" {
		return fmt.Errorf("transaction has no ref")
	}
	if !t.Side.IsValid() {
		return fmt.Errorf("invalid trade side: %q", t.Side)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (ref, account_id, operation, symbol, price, shares, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Ref, t.AccountID, string(t.Side), t.Symbol, t.Price.String(), t.Shares, t.ExecutedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	t.ID = id
	return nil
}

// GetHistory returns an account's transactions newest first. limit <= 0 returns all.
func (r *TradeRepository) GetHistory(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE account_id = ? ORDER BY executed_at DESC, id DESC"
	args := []interface{}{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		history = append(history, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return history, nil
}

// Count returns how many transactions an account has
func (r *TradeRepository) Count(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := r.ledgerDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var (
		t          domain.Transaction
		side       string
		executedAt int64
	)
	if err := rows.Scan(&t.ID, &t.Ref, &t.AccountID, &side, &t.Symbol, &t.Price, &t.Shares, &executedAt); err != nil {
		return nil, err
	}
	t.Side = domain.TradeSide(side)
	t.ExecutedAt = time.UnixMilli(executedAt).UTC()
	return &t, nil
}
