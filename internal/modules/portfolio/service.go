package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

// AccountReader is the part of the accounts service the portfolio view needs
type AccountReader interface {
	Get(ctx context.Context, id int64) (*domain.Account, error)
}

// HoldingView is one row of the portfolio page.
// Price and Value are nil when the holding could not be priced.
type HoldingView struct {
	Price     *decimal.Decimal `json:"price"`
	Value     *decimal.Decimal `json:"value"`
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	CostBasis decimal.Decimal  `json:"cost_basis"`
	Shares    int64            `json:"shares"`
}

// View is an account's portfolio valued at current prices
type View struct {
	Username    string          `json:"username"`
	Holdings    []HoldingView   `json:"holdings"`
	Cash        decimal.Decimal `json:"cash"`
	MarketValue decimal.Decimal `json:"market_value"`
	Total       decimal.Decimal `json:"total"`
	AccountID   int64           `json:"account_id"`
	Complete    bool            `json:"complete"` // false if any holding is unpriced
}

// Service builds portfolio views
type Service struct {
	holdings *HoldingRepository
	accounts AccountReader
	quotes   domain.QuoteProvider
	log      zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(holdings *HoldingRepository, accounts AccountReader, quotes domain.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		accounts: accounts,
		quotes:   quotes,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// GetView returns the holdings, cash and grand total of an account.
// A quote failure for one holding leaves that holding unpriced instead of failing the view.
func (s *Service) GetView(ctx context.Context, accountID int64) (*View, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.holdings.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	view := &View{
		AccountID:   account.ID,
		Username:    account.Username,
		Cash:        account.Cash,
		MarketValue: decimal.Zero,
		Holdings:    make([]HoldingView, 0, len(holdings)),
		Complete:    true,
	}

	for _, h := range holdings {
		row := HoldingView{
			Symbol:    h.Symbol,
			Name:      h.Symbol,
			Shares:    h.Shares,
			CostBasis: h.CostBasis,
		}

		quote, err := s.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Holding left unpriced")
			view.Complete = false
		} else {
			price := quote.Price
			value := price.Mul(decimal.NewFromInt(h.Shares))
			row.Price = &price
			row.Value = &value
			if quote.Name != "" {
				row.Name = quote.Name
			}
			view.MarketValue = view.MarketValue.Add(value)
		}

		view.Holdings = append(view.Holdings, row)
	}

	view.Total = view.Cash.Add(view.MarketValue)
	return view, nil
}

// OwnedSymbols lists the symbols an account can sell
func (s *Service) OwnedSymbols(ctx context.Context, accountID int64) ([]string, error) {
	return s.holdings.Symbols(ctx, accountID)
}
