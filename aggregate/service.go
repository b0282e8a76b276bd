package aggregate

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/nanzhong/tickerbot/cache"
	"github.com/nanzhong/tickerbot/market"
)

//go:generate mockgen -package=aggregate_test -destination=mock_provider_test.go github.com/nanzhong/tickerbot/market Provider

// Service fans a request out over providers in a fixed priority order and caches
// successful quotes.
type Service struct {
	providers []market.Provider
	quotes    cache.Store[market.Quote]
	ttls      cache.TTLs
	log       *log.Entry
}

type Option func(*Service)

func WithTTLs(ttls cache.TTLs) Option {
	return func(s *Service) {
		s.ttls = ttls
	}
}

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.log = logger
	}
}

func NewService(providers []market.Provider, quotes cache.Store[market.Quote], opts ...Option) *Service {
	s := &Service{
		providers: providers,
		quotes:    quotes,
		ttls:      cache.DefaultTTLs(),
		log:       log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "aggregate")
	return s
}

// Providers returns the provider names in priority order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// GetQuote returns a cached quote for symbol when one is live, otherwise the first
// successful provider's quote.
func (s *Service) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return market.Quote{}, ErrEmptySymbol
	}

	key := cache.Key{Category: cache.Stock, ID: symbol}
	if q, ok := s.quotes.Get(key); ok {
		s.log.WithField("symbol", symbol).Debug("quote cache hit")
		return q, nil
	}

	var errs []error
	for _, p := range s.providers {
		logger := s.log.WithFields(log.Fields{"provider": p.Name(), "symbol": symbol})

		q, err := p.Quote(ctx, symbol)
		if err != nil {
			pe := market.Classify(p.Name(), err)
			logger.WithField("kind", pe.Kind.String()).WithError(err).Warn("quote provider failed, falling back")
			errs = append(errs, pe)
			continue
		}
		if q.Symbol == "" {
			q.Symbol = symbol
		}
		if q.Source == "" {
			q.Source = p.Name()
		}

		s.quotes.Set(key, q, s.ttls.Stock)
		logger.Debug("quote served")
		return q, nil
	}

	return market.Quote{}, &AllProvidersFailedError{Op: "quote", Target: symbol, Errors: errs}
}

// SearchSymbols returns the first non-empty result list in provider order. Failures
// are logged and skipped; when nothing matches the result is empty with no error.
func (s *Service) SearchSymbols(ctx context.Context, query string) []market.SearchResult {
	for _, p := range s.providers {
		logger := s.log.WithFields(log.Fields{"provider": p.Name(), "query": query})

		results, err := p.Search(ctx, query)
		if err != nil {
			pe := market.Classify(p.Name(), err)
			logger.WithField("kind", pe.Kind.String()).WithError(err).Warn("search provider failed, falling back")
			continue
		}
		if len(results) == 0 {
			logger.Debug("search returned no results, falling back")
			continue
		}
		return results
	}
	return []market.SearchResult{}
}
