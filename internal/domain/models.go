// Package domain holds the core papertrade types shared by every module.
// It has no infrastructure dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the operation recorded on a transaction
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid reports whether the side is BUY or SELL
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// TradeSideFromString parses a side, case-insensitively
func TradeSideFromString(s string) (TradeSide, error) {
	side := TradeSide(strings.ToUpper(strings.TrimSpace(s)))
	if !side.IsValid() {
		return "", fmt.Errorf("invalid trade side: %q", s)
	}
	return side, nil
}

// Account is a registered user and their cash balance
type Account struct {
	CreatedAt time.Time       `json:"created_at"`
	Username  string          `json:"username"`
	Cash      decimal.Decimal `json:"cash"`
	ID        int64           `json:"id"`
}

// Holding is an account's current position in one symbol.
// A holding only exists while Shares > 0.
type Holding struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Symbol    string          `json:"symbol"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	AccountID int64           `json:"account_id"`
	Shares    int64           `json:"shares"`
}

// Transaction is one executed trade. Transactions are never mutated or deleted.
type Transaction struct {
	ExecutedAt time.Time       `json:"executed_at"`
	Ref        string          `json:"ref"`
	Side       TradeSide       `json:"operation"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ID         int64           `json:"id"`
	AccountID  int64           `json:"account_id"`
	Shares     int64           `json:"shares"`
}

// Value returns price x shares
func (t Transaction) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// Quote is a symbol's current unit price as reported by a quote provider
type Quote struct {
	AsOf   time.Time       `json:"as_of"`
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
