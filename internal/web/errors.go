package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aristath/papertrade/internal/domain"
)

// ErrorResponse maps an error to the status code and the message shown to the user.
// Unexpected errors map to 500 with a generic message; their cause belongs in the log only.
func ErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		return http.StatusBadRequest, "This is not a valid Symbol"
	case errors.Is(err, domain.ErrInvalidShares):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusForbidden, "You don't have enough balance"
	case errors.Is(err, domain.ErrNoSuchHolding):
		return http.StatusBadRequest, "You don't own any shares of that symbol"
	case errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusBadRequest, "You don't have enough shares"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusForbidden, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, "username already exists"
	case errors.Is(err, domain.ErrMissingField):
		return http.StatusBadRequest, detail(err, domain.ErrMissingField)
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusBadRequest, detail(err, domain.ErrInvalidPassword)
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// IsClientError reports whether err maps to a 4xx response
func IsClientError(err error) bool {
	status, _ := ErrorResponse(err)
	return status < http.StatusInternalServerError
}

// detail strips the sentinel prefix from "sentinel: detail" messages
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return sentinel.Error()
}
