// Package accounts manages registered users, their credentials and cash balances.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

const accountColumns = `id, username, cash, created_at`

// Repository handles account persistence in ledger.db
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account and returns it.
// Returns domain.ErrUsernameTaken if the username exists.
func (r *Repository) Create(ctx context.Context, username, hash string, cash decimal.Decimal, now time.Time) (*domain.Account, error) {
	res, err := r.ledgerDB.ExecContext(ctx,
		`INSERT INTO accounts (username, hash, cash, created_at) VALUES (?, ?, ?, ?)`,
		username, hash, cash.String(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUsernameTaken, username)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account id: %w", err)
	}

	r.log.Info().Int64("account_id", id).Str("username", username).Msg("Account created")

	return &domain.Account{
		ID:        id,
		Username:  username,
		Cash:      cash,
		CreatedAt: time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// GetByID returns an account or domain.ErrAccountNotFound
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.ledgerDB.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetCredentials returns the account and its password hash for a username
func (r *Repository) GetCredentials(ctx context.Context, username string) (*domain.Account, string, error) {
	row := r.ledgerDB.QueryRowContext(ctx,
		"SELECT "+accountColumns+", hash FROM accounts WHERE username = ?", username)

	var (
		account   domain.Account
		createdAt int64
		hash      string
	)
	err := row.Scan(&account.ID, &account.Username, &account.Cash, &createdAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get credentials for %s: %w", username, err)
	}
	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &account, hash, nil
}

// List returns all accounts ordered by id
func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(s scanner) (*domain.Account, error) {
	var (
		account   domain.Account
		createdAt int64
	)
	if err := s.Scan(&account.ID, &account.Username, &account.Cash, &createdAt); err != nil {
		return nil, err
	}
	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &account, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
