// Package trading executes buy and sell orders against an account's cash and holdings.
package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

// State is what a trade reads before deciding anything
type State struct {
	Holding   *domain.Holding // nil when the account owns none of the symbol
	Cash      decimal.Decimal
	AccountID int64
}

// Outcome is everything a trade writes, as one unit.
// A nil Holding means the holding is deleted.
type Outcome struct {
	Holding     *domain.Holding
	Cash        decimal.Decimal
	Transaction domain.Transaction
}

// PlanBuy computes the effect of buying shares of quote.Symbol at quote.Price.
// It performs no I/O; state is never modified.
func PlanBuy(state State, quote domain.Quote, shares int64) (Outcome, error) {
	if err := checkOrder(quote, shares); err != nil {
		return Outcome{}, err
	}

	value := quote.Price.Mul(decimal.NewFromInt(shares))
	if value.GreaterThan(state.Cash) {
		return Outcome{}, fmt.Errorf("%w: %s x %d costs %s, cash is %s",
			domain.ErrInsufficientFunds, quote.Symbol, shares, value, state.Cash)
	}

	holding := &domain.Holding{
		AccountID: state.AccountID,
		Symbol:    quote.Symbol,
		Shares:    shares,
		CostBasis: value,
	}
	if state.Holding != nil {
		holding.Shares = state.Holding.Shares + shares
		holding.CostBasis = state.Holding.CostBasis.Add(value)
	}

	return Outcome{
		Cash:        state.Cash.Sub(value),
		Holding:     holding,
		Transaction: newTransaction(state.AccountID, domain.TradeSideBuy, quote, shares),
	}, nil
}

// PlanSell computes the effect of selling shares of quote.Symbol at quote.Price.
// Selling every share deletes the holding; a partial sale reduces the cost basis by the sale value.
func PlanSell(state State, quote domain.Quote, shares int64) (Outcome, error) {
	if err := checkOrder(quote, shares); err != nil {
		return Outcome{}, err
	}

	if state.Holding == nil {
		return Outcome{}, fmt.Errorf("%w: %s", domain.ErrNoSuchHolding, quote.Symbol)
	}
	if shares > state.Holding.Shares {
		return Outcome{}, fmt.Errorf("%w: selling %d of %s, own %d",
			domain.ErrInsufficientShares, shares, quote.Symbol, state.Holding.Shares)
	}

	value := quote.Price.Mul(decimal.NewFromInt(shares))

	var holding *domain.Holding
	if shares < state.Holding.Shares {
		holding = &domain.Holding{
			AccountID: state.AccountID,
			Symbol:    quote.Symbol,
			Shares:    state.Holding.Shares - shares,
			CostBasis: state.Holding.CostBasis.Sub(value),
		}
	}

	return Outcome{
		Cash:        state.Cash.Add(value),
		Holding:     holding,
		Transaction: newTransaction(state.AccountID, domain.TradeSideSell, quote, shares),
	}, nil
}

// Plan dispatches on side
func Plan(side domain.TradeSide, state State, quote domain.Quote, shares int64) (Outcome, error) {
	switch side {
	case domain.TradeSideBuy:
		return PlanBuy(state, quote, shares)
	case domain.TradeSideSell:
		return PlanSell(state, quote, shares)
	default:
		return Outcome{}, fmt.Errorf("invalid trade side: %q", side)
	}
}

func checkOrder(quote domain.Quote, shares int64) error {
	if err := domain.ValidateShares(shares); err != nil {
		return err
	}
	if quote.Symbol == "" || !quote.Price.IsPositive() {
		return fmt.Errorf("%w: no usable price for %q", domain.ErrInvalidSymbol, quote.Symbol)
	}
	return nil
}

func newTransaction(accountID int64, side domain.TradeSide, quote domain.Quote, shares int64) domain.Transaction {
	return domain.Transaction{
		AccountID: accountID,
		Side:      side,
		Symbol:    quote.Symbol,
		Price:     quote.Price,
		Shares:    shares,
	}
}
