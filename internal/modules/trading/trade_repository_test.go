package trading

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

const transactionsSchema = `
CREATE TABLE transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ref TEXT NOT NULL UNIQUE,
    account_id INTEGER NOT NULL,
    operation TEXT NOT NULL CHECK (operation IN ('BUY', 'SELL')),
    symbol TEXT NOT NULL,
    price TEXT NOT NULL,
    shares INTEGER NOT NULL CHECK (shares > 0),
    executed_at INTEGER NOT NULL
);
`

func setupTradeDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(transactionsSchema)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTradeRepository_InsertAndHistory(t *testing.T) {
	db := setupTradeDB(t)
	repo := NewTradeRepository(db, zerolog.Nop())
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, side := range []domain.TradeSide{domain.TradeSideBuy, domain.TradeSideBuy, domain.TradeSideSell} {
		tx := &domain.Transaction{
			Ref:        "ref-" + string(rune('a'+i)),
			AccountID:  1,
			Side:       side,
			Symbol:     "AAPL",
			Price:      decimal.RequireFromString("187.4421"),
			Shares:     int64(i + 1),
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Insert(ctx, db, tx))
		assert.Greater(t, tx.ID, int64(0))
	}

	history, err := repo.GetHistory(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "ref-c", history[0].Ref)
	assert.Equal(t, domain.TradeSideSell, history[0].Side)
	assert.Equal(t, "187.4421", history[0].Price.String(), "prices keep full precision")
	assert.True(t, history[2].ExecutedAt.Equal(base))

	limited, err := repo.GetHistory(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := repo.GetHistory(ctx, 2, 0)
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)

	n, err := repo.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTradeRepository_RejectsIncompleteTransactions(t *testing.T) {
	db := setupTradeDB(t)
	repo := NewTradeRepository(db, zerolog.Nop())

	err := repo.Insert(context.Background(), db, &domain.Transaction{Side: domain.TradeSideBuy, Shares: 1})
	assert.Error(t, err)

	err = repo.Insert(context.Background(), db, &domain.Transaction{Ref: "r", Side: "HOLD", Shares: 1})
	assert.Error(t, err)
}
