// Package portfolio holds an account's positions and values them at current prices.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

const holdingColumns = `account_id, symbol, shares, cost_basis, updated_at`

// HoldingRepository handles holdings in ledger.db.
// Write methods take a database.Querier so the trading module can run them inside its transaction.
type HoldingRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(ledgerDB *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "holding").Logger(),
	}
}

// Get returns the holding of accountID in symbol, or nil if the account owns none
func (r *HoldingRepository) Get(ctx context.Context, q database.Querier, accountID int64, symbol string) (*domain.Holding, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+holdingColumns+" FROM holdings WHERE account_id = ? AND symbol = ?",
		accountID, symbol,
	)
	holding, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}
	return holding, nil
}

// Upsert creates or replaces a holding. Shares must be positive.
func (r *HoldingRepository) Upsert(ctx context.Context, q database.Querier, h *domain.Holding) error {
	if h.Shares <= 0 {
		return fmt.Errorf("refusing to store holding %s with %d shares", h.Symbol, h.Shares)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO holdings (account_id, symbol, shares, cost_basis, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol) DO UPDATE SET
			shares = excluded.shares,
			cost_basis = excluded.cost_basis,
			updated_at = excluded.updated_at
	`, h.AccountID, h.Symbol, h.Shares, h.CostBasis.String(), h.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// Delete removes a holding
func (r *HoldingRepository) Delete(ctx context.Context, q database.Querier, accountID int64, symbol string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM holdings WHERE account_id = ? AND symbol = ?`, accountID, symbol,
	); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

// List returns all holdings of an account ordered by symbol
func (r *HoldingRepository) List(ctx context.Context, accountID int64) ([]domain.Holding, error) {
	rows, err := r.ledgerDB.QueryContext(ctx,
		"SELECT "+holdingColumns+" FROM holdings WHERE account_id = ? ORDER BY symbol", accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// Symbols returns the symbols an account owns, for the sell form
func (r *HoldingRepository) Symbols(ctx context.Context, accountID int64) ([]string, error) {
	holdings, err := r.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	return symbols, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(s scanner) (*domain.Holding, error) {
	var (
		h         domain.Holding
		updatedAt int64
	)
	if err := s.Scan(&h.AccountID, &h.Symbol, &h.Shares, &h.CostBasis, &updatedAt); err != nil {
		return nil, err
	}
	h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &h, nil
}
