package alphavantage

import "fmt"

// ErrRateLimitExceeded is returned when the daily request budget is spent
// or Alpha Vantage answers with its throttling note.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when Alpha Vantage rejects the key
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alpha vantage rejected the API key as invalid"
}

// ErrSymbolNotFound is returned when GLOBAL_QUOTE comes back empty
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}
