// Package alphavantage provides a rate-limited Alpha Vantage GLOBAL_QUOTE client.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// Free tier allowance
	dailyRequestLimit = 25
	defaultQuoteTTL   = 15 * time.Minute
)

// ClientInterface is what the quotes module needs from this client
type ClientInterface interface {
	Lookup(ctx context.Context, symbol string) (*domain.Quote, error)
	GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error)
	GetRemainingRequests() int
}

// GlobalQuote is a parsed GLOBAL_QUOTE response
type GlobalQuote struct {
	LatestTradingDay time.Time
	Symbol           string
	Open             decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Price            decimal.Decimal
	PreviousClose    decimal.Decimal
	Change           decimal.Decimal
	ChangePercent    decimal.Decimal
	Volume           int64
}

type cacheEntry struct {
	expiresAt time.Time
	data      interface{}
}

// Client is an Alpha Vantage client with a daily request budget and an in-memory cache
type Client struct {
	client   *http.Client
	cache    map[string]cacheEntry
	resetAt  time.Time
	log      zerolog.Logger
	baseURL  string
	apiKey   string
	quoteTTL time.Duration
	used     int
	cacheMu  sync.RWMutex
	limitMu  sync.Mutex
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		client:   &http.Client{Timeout: 15 * time.Second},
		cache:    make(map[string]cacheEntry),
		resetAt:  nextMidnightUTC(),
		log:      log.With().Str("client", "alphavantage").Logger(),
		baseURL:  defaultBaseURL,
		apiKey:   apiKey,
		quoteTTL: defaultQuoteTTL,
	}
}

// SetBaseURL points the client at another endpoint (sandboxes, tests)
func (c *Client) SetBaseURL(baseURL string) {
	if baseURL != "" {
		c.baseURL = baseURL
	}
}

// SetQuoteTTL changes how long GLOBAL_QUOTE responses stay in the in-memory cache
func (c *Client) SetQuoteTTL(ttl time.Duration) {
	if ttl > 0 {
		c.quoteTTL = ttl
	}
}

// Lookup implements domain.QuoteProvider
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	gq, err := c.GetGlobalQuote(ctx, symbol)
	if err != nil {
		var notFound ErrSymbolNotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSymbol, notFound.Symbol)
		}
		return nil, err
	}

	asOf := gq.LatestTradingDay
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return &domain.Quote{
		Symbol: gq.Symbol,
		Name:   gq.Symbol, // GLOBAL_QUOTE carries no company name
		Price:  gq.Price,
		AsOf:   asOf,
	}, nil
}

// GetGlobalQuote fetches the latest quote for symbol, cache first
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	params := map[string]string{"symbol": symbol}
	cacheKey := buildCacheKey("GLOBAL_QUOTE", params)
	if cached, ok := c.getFromCache(cacheKey); ok {
		if quote, ok := cached.(*GlobalQuote); ok {
			return quote, nil
		}
	}

	body, err := c.doRequest(ctx, "GLOBAL_QUOTE", params)
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" || !quote.Price.IsPositive() {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(cacheKey, quote, c.quoteTTL)
	return quote, nil
}

func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("function", function)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("function", function).Msg("Calling Alpha Vantage")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}
	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects the error payloads Alpha Vantage sends with status 200
func (c *Client) checkAPIError(body []byte) error {
	text := string(body)
	if strings.Contains(text, "Thank you for using Alpha Vantage") {
		return ErrRateLimitExceeded{}
	}

	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	switch {
	case envelope.Note != "":
		return ErrRateLimitExceeded{}
	case strings.Contains(strings.ToLower(envelope.Information), "api key"):
		return ErrInvalidAPIKey{}
	case envelope.Information != "":
		return ErrRateLimitExceeded{}
	case envelope.ErrorMessage != "":
		return fmt.Errorf("alpha vantage error: %s", envelope.ErrorMessage)
	}
	return nil
}

// checkRateLimit consumes one request from the daily budget
func (c *Client) checkRateLimit() error {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	if time.Now().After(c.resetAt) {
		c.used = 0
		c.resetAt = nextMidnightUTC()
	}
	if c.used >= dailyRequestLimit {
		c.log.Warn().Time("reset_at", c.resetAt).Msg("Daily request budget exhausted")
		return ErrRateLimitExceeded{}
	}
	c.used++
	return nil
}

// GetRemainingRequests returns how many requests are left today
func (c *Client) GetRemainingRequests() int {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()
	return dailyRequestLimit - c.used
}

// ResetDailyCounter restores the full daily budget
func (c *Client) ResetDailyCounter() {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()
	c.used = 0
	c.resetAt = nextMidnightUTC()
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

// ClearCache drops every cached response
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey builds a stable key from function and params, never including the API key
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
