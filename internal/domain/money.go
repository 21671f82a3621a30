package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount as dollars, e.g. $1,234.56.
// Rounding to cents happens here only; stored amounts keep full precision.
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return money.New(cents, money.USD).Display()
}

// ParseShares parses a share count submitted as text.
// Only whole positive numbers written with ASCII digits are accepted.
func ParseShares(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing", ErrInvalidShares)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidShares, raw)
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidShares, raw)
	}
	if err := ValidateShares(n); err != nil {
		return 0, err
	}
	return n, nil
}

// MaxShares bounds a single trade so price x shares stays well inside SQLite INTEGER range
const MaxShares = math.MaxInt32

// ValidateShares checks a typed share count
func ValidateShares(n int64) error {
	if n <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidShares, n)
	}
	if n > MaxShares {
		return fmt.Errorf("%w: at most %d per trade", ErrInvalidShares, MaxShares)
	}
	return nil
}
