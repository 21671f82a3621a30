// Package di wires databases, repositories, services and jobs into one container.
package di

import (
	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/modules/quotes"
	"github.com/aristath/papertrade/internal/modules/sessions"
	"github.com/aristath/papertrade/internal/modules/trading"
	"github.com/aristath/papertrade/internal/reliability"
)

// Container holds all dependencies for the application.
// It is created by Wire and passed to the server and the CLI.
type Container struct {
	// Databases
	LedgerDB *database.DB // accounts, holdings, transactions
	CacheDB  *database.DB // sessions, quote cache

	// Repositories
	AccountRepo    *accounts.Repository
	HoldingRepo    *portfolio.HoldingRepository
	TradeRepo      *trading.TradeRepository
	ClientDataRepo *clientdata.Repository

	// Clients
	QuoteProvider domain.QuoteProvider // the remote provider, uncached

	// Services
	EventBus         *events.Bus
	EventManager     *events.Manager
	QuoteService     *quotes.Service
	AccountService   *accounts.Service
	SessionStore     *sessions.Store
	SessionManager   *sessions.Manager
	LedgerStore      *trading.LedgerStore
	TradingService   *trading.Service
	PortfolioService *portfolio.Service
	BackupService    *reliability.BackupService // nil when backups are not configured
}

// JobInstances holds the background jobs so they can be scheduled or run on demand
type JobInstances struct {
	ClientDataCleanup *clientdata.CleanupJob
	Maintenance       *reliability.MaintenanceJob
	Backup            *reliability.BackupJob // nil when backups are not configured
}

// Close closes every database in the container
func (c *Container) Close() {
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
	if c.CacheDB != nil {
		_ = c.CacheDB.Close()
	}
}
