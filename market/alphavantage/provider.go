package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nanzhong/tickerbot/market"
)

type Config struct {
	Name string
	// Overview enables the OVERVIEW enrichment call for name, market cap, P/E and
	// dividend yield. It costs one extra request per quote.
	Overview bool
}

// Provider adapts Client to market.Provider.
type Provider struct {
	name     string
	client   *Client
	overview bool
	now      func() time.Time
}

func NewProvider(client *Client, cfg Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "alphavantage"
	}
	return &Provider{
		name:     cfg.Name,
		client:   client,
		overview: cfg.Overview,
		now:      time.Now,
	}
}

func (p *Provider) Name() string {
	return p.name
}

// QuoteCost is the number of upstream requests one Quote call makes.
func (p *Provider) QuoteCost() int {
	if p.overview {
		return 2
	}
	return 1
}

func (p *Provider) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)

	gq, err := p.client.GlobalQuote(ctx, symbol)
	if err != nil {
		return market.Quote{}, p.classify(err)
	}

	quote, err := p.normalizeQuote(gq)
	if err != nil {
		return market.Quote{}, market.WrapError(p.name, market.KindParse, err)
	}

	if p.overview {
		// Enrichment is best effort; the quote stands without it.
		if ov, err := p.client.Overview(ctx, symbol); err == nil {
			quote.Name = ov.Name
			quote.MarketCap = market.OptionalNumber(ov.MarketCapitalization)
			quote.PERatio = market.OptionalNumber(ov.PERatio)
			quote.DividendYield = market.OptionalNumber(ov.DividendYield)
		}
	}

	if err := quote.Validate(); err != nil {
		return market.Quote{}, market.WrapError(p.name, market.KindParse, err)
	}
	return quote, nil
}

func (p *Provider) normalizeQuote(gq GlobalQuote) (market.Quote, error) {
	required := func(field, s string) (float64, error) {
		v, ok, err := market.ParseNumber(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", field, err)
		}
		if !ok {
			return 0, fmt.Errorf("%s: missing", field)
		}
		return v, nil
	}

	price, err := required("price", gq.Price)
	if err != nil {
		return market.Quote{}, err
	}
	change, err := required("change", gq.Change)
	if err != nil {
		return market.Quote{}, err
	}
	changePercent, err := required("change percent", gq.ChangePercent)
	if err != nil {
		return market.Quote{}, err
	}
	high, err := required("high", gq.High)
	if err != nil {
		return market.Quote{}, err
	}
	low, err := required("low", gq.Low)
	if err != nil {
		return market.Quote{}, err
	}
	volume, err := required("volume", gq.Volume)
	if err != nil {
		return market.Quote{}, err
	}

	lastUpdated, err := market.ParseTimestamp(gq.LatestTradingDay)
	if err != nil {
		lastUpdated = p.now().UTC()
	}

	return market.Quote{
		Symbol:        market.NormalizeSymbol(gq.Symbol),
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		DailyHigh:     high,
		DailyLow:      low,
		Volume:        int64(volume),
		LastUpdated:   lastUpdated,
		Source:        p.name,
	}, nil
}

func (p *Provider) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	matches, err := p.client.SymbolSearch(ctx, query)
	if err != nil {
		return nil, p.classify(err)
	}

	results := make([]market.SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Symbol == "" {
			continue
		}
		results = append(results, market.NewSearchResult(m.Symbol, m.Name, m.Region))
	}
	return results, nil
}

func (p *Provider) classify(err error) error {
	var statusErr *StatusError
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrThrottled):
		return market.WrapError(p.name, market.KindRateLimited, err)
	case errors.Is(err, ErrNoData), errors.Is(err, ErrInvalidCall):
		return market.WrapError(p.name, market.KindNotFound, err)
	case errors.Is(err, ErrTransport):
		return market.WrapError(p.name, market.KindNetwork, err)
	case errors.Is(err, ErrMalformed):
		return market.WrapError(p.name, market.KindParse, err)
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
		return market.WrapError(p.name, market.KindNotFound, err)
	case errors.As(err, &apiErr):
		return market.WrapError(p.name, market.KindUnknown, err)
	default:
		return market.Classify(p.name, err)
	}
}
