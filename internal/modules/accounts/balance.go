package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

// LoadCash reads an account's cash balance. Pass a *sql.Tx to read inside a trade.
func LoadCash(ctx context.Context, q database.Querier, accountID int64) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT cash FROM accounts WHERE id = ?`, accountID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read cash of account %d: %w", accountID, err)
	}
	return cash, nil
}

// StoreCash writes an account's cash balance
func StoreCash(ctx context.Context, q database.Querier, accountID int64, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("refusing negative balance %s for account %d", cash, accountID)
	}
	res, err := q.ExecContext(ctx, `UPDATE accounts SET cash = ? WHERE id = ?`, cash.String(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update cash of account %d: %w", accountID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
	}
	return nil
}
