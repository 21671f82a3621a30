package domain

import "errors"

// Trade validation failures. None of them are retried; the request must be
// re-submitted with corrected input.
var (
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidShares      = errors.New("invalid share count")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoSuchHolding      = errors.New("no such holding")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Account and authentication failures
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrMissingField       = errors.New("missing field")
)

// IsTradeRejection reports whether err is one of the trade validation failures
func IsTradeRejection(err error) bool {
	return errors.Is(err, ErrInvalidSymbol) ||
		errors.Is(err, ErrInvalidShares) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNoSuchHolding) ||
		errors.Is(err, ErrInsufficientShares)
}
