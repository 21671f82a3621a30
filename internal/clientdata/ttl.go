package clientdata

import "time"

// TTL constants for cached data, added to time.Now() when storing to calculate expires_at.
const (
	// TTLCurrentPrice is the default freshness window of a quote. Prices move, so
	// keep it short; QUOTE_CACHE_TTL overrides it.
	TTLCurrentPrice = time.Minute
)

// Table names
const (
	TableCurrentPrices = "current_prices"
	TableSessions      = "sessions"
)
