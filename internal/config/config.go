// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/utils"
)

// Quote provider names accepted in QUOTE_PROVIDER
const (
	ProviderIEXCloud     = "iexcloud"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for ledger.db and cache.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	CORSAllowedOrigins []string

	QuoteProvider       string
	QuoteAPIKey         string // IEX Cloud token, read from API_KEY
	AlphaVantageAPIKey  string
	QuoteBaseURL        string // Optional override, used against sandboxes
	QuoteCacheTTL       time.Duration
	StartingCash        decimal.Decimal
	SessionTTL          time.Duration
	SessionCookieSecure bool

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // e.g. https://<account>.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	Schedule        string // cron spec
	Retain          int
}

// Enabled reports whether backups should be scheduled
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// LedgerPath returns the path of the ledger database
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// CachePath returns the path of the cache database (sessions, quotes)
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPERTRADE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startingCash, err := decimal.NewFromString(getEnv("STARTING_CASH", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnvAsInt("PORT", 8080),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		CORSAllowedOrigins:  utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		QuoteProvider:       strings.ToLower(getEnv("QUOTE_PROVIDER", ProviderIEXCloud)),
		QuoteAPIKey:         getEnv("API_KEY", ""),
		AlphaVantageAPIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
		QuoteBaseURL:        getEnv("QUOTE_BASE_URL", ""),
		QuoteCacheTTL:       getEnvAsDuration("QUOTE_CACHE_TTL", time.Minute),
		StartingCash:        startingCash,
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.QuoteProvider {
	case ProviderIEXCloud:
		if c.QuoteAPIKey == "" {
			return fmt.Errorf("API_KEY not set")
		}
	case ProviderAlphaVantage:
		if c.AlphaVantageAPIKey == "" {
			return fmt.Errorf("ALPHAVANTAGE_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown QUOTE_PROVIDER %q", c.QuoteProvider)
	}

	if c.StartingCash.IsNegative() {
		return fmt.Errorf("STARTING_CASH must not be negative")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Backup.Enabled() && c.Backup.Retain < 1 {
		return fmt.Errorf("BACKUP_RETAIN must be at least 1")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("BACKUP_PREFIX", "papertrade/"),
		Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
		Retain:          getEnvAsInt("BACKUP_RETAIN", 7),
	}
}
