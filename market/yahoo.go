package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

const (
	DefaultYahooSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"
	defaultSearchCount    = 10
)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type YahooConfig struct {
	Name        string
	SearchURL   string
	SearchCount int
}

// YahooProvider serves quotes through finance-go and symbol search through Yahoo's
// public search endpoint.
type YahooProvider struct {
	name        string
	searchURL   string
	searchCount int
	httpClient  HTTPClient
	getEquity   func(symbol string) (*finance.Equity, error)
	now         func() time.Time
}

func NewYahooProvider(cfg YahooConfig, httpClient HTTPClient) *YahooProvider {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultYahooSearchURL
	}
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = defaultSearchCount
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YahooProvider{
		name:        cfg.Name,
		searchURL:   cfg.SearchURL,
		searchCount: cfg.SearchCount,
		httpClient:  httpClient,
		getEquity:   equity.Get,
		now:         time.Now,
	}
}

func (y *YahooProvider) Name() string {
	return y.name
}

func (y *YahooProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, WrapError(y.name, KindNetwork, err)
	}

	eq, err := y.getEquity(NormalizeSymbol(symbol))
	if err != nil {
		return Quote{}, Classify(y.name, fmt.Errorf("getting equity %s: %w", symbol, err))
	}
	if eq == nil {
		return Quote{}, NewError(y.name, KindNotFound, fmt.Sprintf("no quote for %s", NormalizeSymbol(symbol)))
	}

	quote := y.normalizeEquity(eq)
	if err := quote.Validate(); err != nil {
		return Quote{}, WrapError(y.name, KindParse, err)
	}
	return quote, nil
}

func (y *YahooProvider) normalizeEquity(eq *finance.Equity) Quote {
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	return Quote{
		Symbol:        NormalizeSymbol(eq.Symbol),
		Name:          name,
		Price:         eq.RegularMarketPrice,
		Change:        eq.RegularMarketChange,
		ChangePercent: eq.RegularMarketChangePercent,
		DailyHigh:     eq.RegularMarketDayHigh,
		DailyLow:      eq.RegularMarketDayLow,
		Volume:        int64(eq.RegularMarketVolume),
		MarketCap:     NonZero(float64(eq.MarketCap)),
		PERatio:       NonZero(eq.TrailingPE),
		DividendYield: NonZero(eq.TrailingAnnualDividendYield),
		LastUpdated:   EpochTime(int64(eq.RegularMarketTime), y.now().UTC()),
		Source:        y.name,
	}
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		ExchDisp  string `json:"exchDisp"`
	} `json:"quotes"`
}

func (y *YahooProvider) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", strconv.Itoa(y.searchCount))
	params.Set("newsCount", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.searchURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, WrapError(y.name, KindUnknown, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := y.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(y.name, KindNetwork, fmt.Errorf("performing request: %w", err))
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, NewError(y.name, KindRateLimited, "search rate limited")
	case http.StatusNotFound:
		return nil, NewError(y.name, KindNotFound, "search endpoint not found")
	default:
		return nil, NewError(y.name, KindUnknown, fmt.Sprintf("unexpected status code: %d", res.StatusCode))
	}

	var body yahooSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, WrapError(y.name, KindParse, fmt.Errorf("decoding search response: %w", err))
	}

	results := make([]SearchResult, 0, len(body.Quotes))
	for _, q := range body.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		exchange := q.ExchDisp
		if exchange == "" {
			exchange = q.Exchange
		}
		results = append(results, NewSearchResult(q.Symbol, name, exchange))
	}
	return results, nil
}
