package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE sessions (token TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE current_prices (symbol TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE INDEX idx_prices_expires ON current_prices(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	data := map[string]interface{}{"symbol": "AAPL", "price": "187.12"}
	err := repo.Store(TableCurrentPrices, "AAPL", data, time.Minute)
	require.NoError(t, err)

	var storedData string
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM current_prices WHERE symbol = ?", "AAPL").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(storedData), &parsed))
	assert.Equal(t, "187.12", parsed["price"])

	assert.InDelta(t, time.Now().Add(time.Minute).Unix(), expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableCurrentPrices, "MSFT", map[string]string{"version": "1"}, time.Hour))
	require.NoError(t, repo.Store(TableCurrentPrices, "MSFT", map[string]string{"version": "2"}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM current_prices").Scan(&count))
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh(TableCurrentPrices, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(result, &parsed))
	assert.Equal(t, "2", parsed["version"])
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	_, err := db.Exec(
		"INSERT INTO current_prices (symbol, data, expires_at) VALUES (?, ?, ?)",
		"NFLX", `{"price":"400"}`, time.Now().Add(-time.Hour).Unix(),
	)
	require.NoError(t, err)

	result, err := repo.GetIfFresh(TableCurrentPrices, "NFLX")
	require.NoError(t, err)
	assert.Nil(t, result, "Expected nil for expired data")

	// Stale data is still available as a fallback
	result, err = repo.Get(TableCurrentPrices, "NFLX")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.JSONEq(t, `{"price":"400"}`, string(result))
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	result, err := repo.Get(TableCurrentPrices, "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = repo.GetIfFresh(TableCurrentPrices, "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableCurrentPrices, "TSLA", map[string]string{"a": "b"}, time.Hour))
	require.NoError(t, repo.Delete(TableCurrentPrices, "TSLA"))

	result, err := repo.Get(TableCurrentPrices, "TSLA")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	assert.Error(t, repo.Store("accounts; DROP TABLE x", "k", "v", time.Hour))
	_, err := repo.Get("holdings", "k")
	assert.Error(t, err)
	_, err = repo.GetIfFresh("holdings", "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete("holdings", "k"))
	_, err = repo.DeleteExpired("holdings")
	assert.Error(t, err)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	insertExpiredAndFresh(t, db, now)

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableCurrentPrices])
	assert.Equal(t, int64(1), results[TableSessions])

	var prices, sessions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM current_prices").Scan(&prices))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&sessions))
	assert.Equal(t, 1, prices)
	assert.Equal(t, 1, sessions)
}

func insertExpiredAndFresh(t *testing.T, db *sql.DB, now time.Time) {
	t.Helper()

	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO current_prices (symbol, data, expires_at) VALUES ('OLD', '{}', ?), ('NEW', '{}', ?)", expiredAt, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO sessions (token, data, expires_at) VALUES ('old', x'00', ?), ('new', x'00', ?)", expiredAt, freshAt)
	require.NoError(t, err)
}
