package portfolio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/domain"
)

const holdingsSchema = `
CREATE TABLE holdings (
    account_id INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    shares INTEGER NOT NULL CHECK (shares > 0),
    cost_basis TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (account_id, symbol)
);
`

func setupHoldingDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(holdingsSchema)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHoldingRepository_UpsertGetDelete(t *testing.T) {
	db := setupHoldingDB(t)
	repo := NewHoldingRepository(db, zerolog.Nop())
	ctx := context.Background()

	h, err := repo.Get(ctx, db, 1, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h, "absent holding is nil, not an error")

	now := time.Unix(1700000000, 0)
	require.NoError(t, repo.Upsert(ctx, db, &domain.Holding{
		AccountID: 1, Symbol: "AAPL", Shares: 10, CostBasis: decimal.RequireFromString("500.00"), UpdatedAt: now,
	}))
	require.NoError(t, repo.Upsert(ctx, db, &domain.Holding{
		AccountID: 1, Symbol: "AAPL", Shares: 15, CostBasis: decimal.RequireFromString("800.25"), UpdatedAt: now,
	}))

	h, err = repo.Get(ctx, db, 1, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(15), h.Shares)
	assert.Equal(t, "800.25", h.CostBasis.StringFixed(2))

	require.NoError(t, repo.Delete(ctx, db, 1, "AAPL"))
	h, err = repo.Get(ctx, db, 1, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestHoldingRepository_RefusesEmptyHolding(t *testing.T) {
	db := setupHoldingDB(t)
	repo := NewHoldingRepository(db, zerolog.Nop())

	err := repo.Upsert(context.Background(), db, &domain.Holding{AccountID: 1, Symbol: "X", Shares: 0})
	assert.Error(t, err)
}

func TestHoldingRepository_ListAndSymbols(t *testing.T) {
	db := setupHoldingDB(t)
	repo := NewHoldingRepository(db, zerolog.Nop())
	ctx := context.Background()

	for _, symbol := range []string{"MSFT", "AAPL"} {
		require.NoError(t, repo.Upsert(ctx, db, &domain.Holding{
			AccountID: 1, Symbol: symbol, Shares: 1, CostBasis: decimal.NewFromInt(1), UpdatedAt: time.Now(),
		}))
	}
	require.NoError(t, repo.Upsert(ctx, db, &domain.Holding{
		AccountID: 2, Symbol: "TSLA", Shares: 1, CostBasis: decimal.NewFromInt(1), UpdatedAt: time.Now(),
	}))

	symbols, err := repo.Symbols(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	holdings, err := repo.List(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, holdings)
	assert.Empty(t, holdings)
}

func TestHoldingRepository_WorksInsideTransaction(t *testing.T) {
	db := setupHoldingDB(t)
	repo := NewHoldingRepository(db, zerolog.Nop())
	ctx := context.Background()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, tx, &domain.Holding{
		AccountID: 1, Symbol: "AAPL", Shares: 1, CostBasis: decimal.NewFromInt(1), UpdatedAt: time.Now(),
	}))
	require.NoError(t, tx.Rollback())

	h, err := repo.Get(ctx, db, 1, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h)
}
