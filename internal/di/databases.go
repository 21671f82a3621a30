package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
)

// InitializeDatabases opens ledger.db and cache.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// ledger.db - accounts, holdings and the append-only transaction log
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// cache.db - sessions and cached quotes, safe to lose
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CachePath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	for _, db := range []*database.DB{ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("ledger", ledgerDB.Path()).
		Str("cache", cacheDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
