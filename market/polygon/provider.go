package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/nanzhong/tickerbot/market"
)

const defaultSearchLimit = 10

type Config struct {
	Name string
	// Details enables the ticker details call for name and market cap.
	Details     bool
	SearchLimit int
}

// Provider serves snapshot quotes and ticker search from Polygon.
type Provider struct {
	name        string
	client      *polygon.Client
	details     bool
	searchLimit int
	now         func() time.Time
}

func New(apiKey string, hc *http.Client, cfg Config) *Provider {
	var client *polygon.Client
	if hc != nil {
		client = polygon.NewWithClient(apiKey, hc)
	} else {
		client = polygon.New(apiKey)
	}
	return NewWithClient(client, cfg)
}

func NewWithClient(client *polygon.Client, cfg Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "polygon"
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	return &Provider{
		name:        cfg.Name,
		client:      client,
		details:     cfg.Details,
		searchLimit: cfg.SearchLimit,
		now:         time.Now,
	}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)

	res, err := p.client.GetTickerSnapshot(ctx, &models.GetTickerSnapshotParams{
		Ticker:     symbol,
		Locale:     models.US,
		MarketType: models.Stocks,
	})
	if err != nil {
		return market.Quote{}, p.classify(fmt.Errorf("getting snapshot for %s: %w", symbol, err))
	}
	if res == nil || res.Snapshot.Ticker == "" {
		return market.Quote{}, market.NewError(p.name, market.KindParse, fmt.Sprintf("empty snapshot for %s", symbol))
	}

	quote, err := p.normalizeSnapshot(res.Snapshot)
	if err != nil {
		return market.Quote{}, market.WrapError(p.name, market.KindParse, err)
	}

	if p.details {
		if details, err := p.client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: symbol}); err == nil && details != nil {
			quote.Name = details.Results.Name
			quote.MarketCap = market.NonZero(details.Results.MarketCap)
		}
	}

	if err := quote.Validate(); err != nil {
		return market.Quote{}, market.WrapError(p.name, market.KindParse, err)
	}
	return quote, nil
}

func (p *Provider) normalizeSnapshot(s models.TickerSnapshot) (market.Quote, error) {
	bar := s.Day
	if bar.Close == 0 {
		// Before the open the day bar is empty; fall back to the previous session.
		bar = s.PrevDay
	}
	price := bar.Close
	if s.LastTrade.Price != 0 {
		price = s.LastTrade.Price
	}
	if price == 0 {
		return market.Quote{}, fmt.Errorf("snapshot for %s has no price", s.Ticker)
	}

	updated := time.Time(s.Updated)
	if updated.IsZero() {
		updated = p.now()
	}

	return market.Quote{
		Symbol:        market.NormalizeSymbol(s.Ticker),
		Price:         price,
		Change:        s.TodaysChange,
		ChangePercent: s.TodaysChangePerc,
		DailyHigh:     bar.High,
		DailyLow:      bar.Low,
		Volume:        int64(bar.Volume),
		LastUpdated:   updated.UTC(),
		Source:        p.name,
	}, nil
}

func (p *Provider) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	active := true
	limit := p.searchLimit
	iter := p.client.ListTickers(ctx, &models.ListTickersParams{
		Search: &query,
		Active: &active,
		Limit:  &limit,
	})

	var results []market.SearchResult
	for len(results) < p.searchLimit && iter.Next() {
		t := iter.Item()
		results = append(results, market.NewSearchResult(t.Ticker, t.Name, t.PrimaryExchange))
	}
	if err := iter.Err(); err != nil {
		return nil, p.classify(fmt.Errorf("listing tickers: %w", err))
	}
	return results, nil
}

func (p *Provider) classify(err error) error {
	var errRes *models.ErrorResponse
	if errors.As(err, &errRes) {
		switch errRes.StatusCode {
		case http.StatusTooManyRequests:
			return market.WrapError(p.name, market.KindRateLimited, err)
		case http.StatusNotFound:
			return market.WrapError(p.name, market.KindNotFound, err)
		}
	}
	return market.Classify(p.name, err)
}
