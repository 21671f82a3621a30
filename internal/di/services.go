package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/clients/alphavantage"
	"github.com/aristath/papertrade/internal/clients/iexcloud"
	"github.com/aristath/papertrade/internal/config"
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

// InitializeRepositories creates the data access layer
func InitializeRepositories(container *Container, log zerolog.Logger) {
	ledger := container.LedgerDB.Conn()

	container.AccountRepo = accounts.NewRepository(ledger, log)
	container.HoldingRepo = portfolio.NewHoldingRepository(ledger, log)
	container.TradeRepo = trading.NewTradeRepository(ledger, log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
}

// InitializeServices creates the business logic layer.
// A nil provider selects the remote provider named in cfg.
func InitializeServices(container *Container, cfg *config.Config, provider domain.QuoteProvider, log zerolog.Logger) error {
	if provider == nil {
		var err error
		provider, err = NewQuoteProvider(cfg, log)
		if err != nil {
			return err
		}
	}
	container.QuoteProvider = provider

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.QuoteService = quotes.NewService(provider, container.ClientDataRepo, cfg.QuoteCacheTTL, log)
	container.AccountService = accounts.NewService(container.AccountRepo, cfg.StartingCash, container.EventManager, log)

	container.SessionStore = sessions.NewStore(container.CacheDB.Conn(), cfg.SessionTTL, log)
	container.SessionManager = sessions.NewManager(container.SessionStore, cfg.SessionCookieSecure, log)

	container.LedgerStore = trading.NewLedgerStore(container.LedgerDB.Conn(), container.HoldingRepo, container.TradeRepo, log)
	container.TradingService = trading.NewService(container.QuoteService, container.LedgerStore, container.TradeRepo, container.EventManager, log)
	container.PortfolioService = portfolio.NewService(container.HoldingRepo, container.AccountService, container.QuoteService, log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			[]*database.DB{container.LedgerDB},
			store,
			cfg.Backup.Prefix,
			cfg.Backup.Retain,
			filepath.Join(cfg.DataDir, "backup-staging"),
			container.EventManager,
			log,
		)
	}

	return nil
}

// NewQuoteProvider creates the remote quote client selected by QUOTE_PROVIDER
func NewQuoteProvider(cfg *config.Config, log zerolog.Logger) (domain.QuoteProvider, error) {
	switch cfg.QuoteProvider {
	case config.ProviderIEXCloud:
		return iexcloud.NewClient(cfg.QuoteAPIKey, cfg.QuoteBaseURL, log), nil
	case config.ProviderAlphaVantage:
		client := alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
		if cfg.QuoteBaseURL != "" {
			client.SetBaseURL(cfg.QuoteBaseURL)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.QuoteProvider)
	}
}
