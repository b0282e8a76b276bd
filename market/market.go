package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Quote is the canonical snapshot of a symbol, independent of the provider that
// produced it. Optional fields are nil when the provider did not supply them.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	DailyHigh     float64   `json:"dailyHigh"`
	DailyLow      float64   `json:"dailyLow"`
	Volume        int64     `json:"volume"`
	MarketCap     *float64  `json:"marketCap,omitempty"`
	PERatio       *float64  `json:"peRatio,omitempty"`
	DividendYield *float64  `json:"dividendYield,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	Source        string    `json:"source,omitempty"`
}

// SearchResult is a single symbol match.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// UnknownExchange is used when a provider does not report where a symbol trades.
const UnknownExchange = "Unknown"

// Provider is an upstream source of market data. Failures are always returned as
// *ProviderError.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate checks the invariants every canonical quote must hold.
func (q Quote) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("missing symbol")
	}
	for name, v := range map[string]float64{
		"price":         q.Price,
		"change":        q.Change,
		"changePercent": q.ChangePercent,
		"dailyHigh":     q.DailyHigh,
		"dailyLow":      q.DailyLow,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	for name, v := range map[string]*float64{
		"marketCap":     q.MarketCap,
		"peRatio":       q.PERatio,
		"dividendYield": q.DividendYield,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	if q.DailyHigh < 0 || q.DailyLow < 0 || q.Volume < 0 {
		return fmt.Errorf("negative range or volume")
	}
	return nil
}

// NewSearchResult builds a SearchResult, substituting UnknownExchange for a blank
// exchange.
func NewSearchResult(symbol, name, exchange string) SearchResult {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = UnknownExchange
	}
	return SearchResult{
		Symbol:   NormalizeSymbol(symbol),
		Name:     strings.TrimSpace(name),
		Exchange: exchange,
	}
}

// LegacyQuote is the fully populated record older consumers expect. Fields a provider
// did not supply are zero rather than absent.
type LegacyQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	DailyHigh     float64 `json:"dailyHigh"`
	DailyLow      float64 `json:"dailyLow"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	DividendYield float64 `json:"dividendYield"`
	LastUpdated   string  `json:"lastUpdated"`
}

// NewLegacyQuote zero-fills the optional fields of q. Only callers that explicitly
// need the legacy shape should use it.
func NewLegacyQuote(q Quote) LegacyQuote {
	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return LegacyQuote{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		DailyHigh:     q.DailyHigh,
		DailyLow:      q.DailyLow,
		Volume:        q.Volume,
		MarketCap:     deref(q.MarketCap),
		PERatio:       deref(q.PERatio),
		DividendYield: deref(q.DividendYield),
		LastUpdated:   q.LastUpdated.UTC().Format(time.RFC3339),
	}
}
