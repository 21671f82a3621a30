// Package iexcloud provides a quote client for the IEX Cloud stable API.
package iexcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

const defaultBaseURL = "https://cloud.iexapis.com"

// Client looks up quotes on IEX Cloud
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a new IEX Cloud client. baseURL may be empty to use the production API.
func NewClient(token, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		log:     log.With().Str("client", "iexcloud").Logger(),
		now:     time.Now,
	}
}

// quoteResponse is the subset of /stable/stock/{symbol}/quote we use
type quoteResponse struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

// Lookup fetches the latest price of symbol.
// Unknown symbols return domain.ErrInvalidSymbol; anything else is a provider failure.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidSymbol)
	}

	endpoint := fmt.Sprintf("%s/stable/stock/%s/quote?token=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Msg("Fetching quote")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSymbol, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("IEX Cloud returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	quote, err := parseQuote(body)
	if err != nil {
		return nil, err
	}
	quote.AsOf = c.now()

	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}

func parseQuote(body []byte) (*domain.Quote, error) {
	var raw quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quote: %w", err)
	}
	if !raw.LatestPrice.IsPositive() {
		return nil, errors.Join(domain.ErrInvalidSymbol, fmt.Errorf("no price for %q", raw.Symbol))
	}
	return &domain.Quote{
		Symbol: domain.NormalizeSymbol(raw.Symbol),
		Name:   raw.CompanyName,
		Price:  raw.LatestPrice,
	}, nil
}
