// Package testing provides testing utilities and helpers for the papertrade project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/papertrade/internal/database"
)

// NewTestDB creates a temp-file SQLite database for testing with automatic schema migration.
// Returns the database instance and a cleanup function that closes the connection and
// removes the file. The cleanup function is idempotent.
//
// Supported schema names:
//   - "ledger" - applies ledger_schema.sql with the ledger profile
//   - "cache" - applies cache_schema.sql with the cache profile
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temp files rather than :memory: so every pooled connection sees the same data
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profileFor(name),
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}

func profileFor(name string) database.DatabaseProfile {
	switch name {
	case "ledger":
		return database.ProfileLedger
	case "cache":
		return database.ProfileCache
	default:
		return database.ProfileStandard
	}
}
