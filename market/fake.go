package market

import (
	"context"
	"strings"
	"sync"
)

// FakeProvider serves BaseQuote for every symbol and filters Results by query. When
// Err is set every call fails with it.
type FakeProvider struct {
	ProviderName string
	BaseQuote    Quote
	Results      []SearchResult
	Err          error

	mu          sync.Mutex
	quoteCalls  int
	searchCalls int
}

func (f *FakeProvider) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

func (f *FakeProvider) Quote(_ context.Context, symbol string) (Quote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()

	if f.Err != nil {
		return Quote{}, Classify(f.Name(), f.Err)
	}
	quote := f.BaseQuote
	quote.Symbol = NormalizeSymbol(symbol)
	quote.Source = f.Name()
	return quote, nil
}

func (f *FakeProvider) Search(_ context.Context, query string) ([]SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, Classify(f.Name(), f.Err)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []SearchResult
	for _, r := range f.Results {
		if strings.Contains(strings.ToLower(r.Symbol), q) || strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Calls returns how many quote and search calls were made.
func (f *FakeProvider) Calls() (quotes, searches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls, f.searchCalls
}
