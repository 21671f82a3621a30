package alphavantage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	var raw struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse global quote: %w", err)
	}

	q := raw.GlobalQuote
	return &GlobalQuote{
		Symbol:           strings.ToUpper(q["01. symbol"]),
		Open:             parseDecimal(q["02. open"]),
		High:             parseDecimal(q["03. high"]),
		Low:              parseDecimal(q["04. low"]),
		Price:            parseDecimal(q["05. price"]),
		Volume:           parseInt64(q["06. volume"]),
		LatestTradingDay: parseDate(q["07. latest trading day"]),
		PreviousClose:    parseDecimal(q["08. previous close"]),
		Change:           parseDecimal(q["09. change"]),
		ChangePercent:    parseDecimal(strings.TrimSuffix(q["10. change percent"], "%")),
	}, nil
}

// parseDecimal returns zero for empty or malformed values
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
