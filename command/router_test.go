package command

import (
	"context"
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanzhong/tickerbot/aggregate"
	"github.com/nanzhong/tickerbot/market"
	"github.com/nanzhong/tickerbot/picks"
)

type fakeQuotes struct {
	quote   market.Quote
	err     error
	results []market.SearchResult
	panics  bool

	symbols []string
	queries []string
}

func (f *fakeQuotes) GetQuote(_ context.Context, symbol string) (market.Quote, error) {
	if f.panics {
		panic("boom")
	}
	f.symbols = append(f.symbols, symbol)
	if f.err != nil {
		return market.Quote{}, f.err
	}
	q := f.quote
	q.Symbol = symbol
	return q, nil
}

func (f *fakeQuotes) SearchSymbols(_ context.Context, query string) []market.SearchResult {
	f.queries = append(f.queries, query)
	return f.results
}

type failingPicks struct{}

func (failingPicks) DailyPicks(context.Context) ([]string, error) {
	return nil, errors.New("engine down")
}

func newTestRouter(quotes QuoteService, source picks.Source) *Router {
	logger := log.New()
	logger.SetOutput(io.Discard)
	if source == nil {
		source = picks.NewStatic(nil)
	}
	return NewRouter("!", quotes, source, log.NewEntry(logger))
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{text: "!stock AAPL", name: "stock", args: []string{"AAPL"}, ok: true},
		{text: "  !STOCK   aapl  extra ", name: "stock", args: []string{"aapl", "extra"}, ok: true},
		{text: "!picks", name: "picks", args: []string{}, ok: true},
		{text: "! stock AAPL"},
		{text: "!"},
		{text: "stock AAPL"},
		{text: "hello !stock AAPL"},
		{text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := Parse("!", tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.name, name)
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

func TestHandleStock(t *testing.T) {
	quotes := &fakeQuotes{quote: aapl}
	r := newTestRouter(quotes, nil)

	reply, ok := r.Handle(context.Background(), "!stock aapl")
	require.True(t, ok)
	assert.Equal(t, FormatQuote(aapl), reply)
	assert.Contains(t, reply, "AAPL Quote:")
	assert.Equal(t, []string{"AAPL"}, quotes.symbols)
}

func TestHandleMissingSymbol(t *testing.T) {
	quotes := &fakeQuotes{}
	r := newTestRouter(quotes, nil)

	reply, ok := r.Handle(context.Background(), "!stock")
	require.True(t, ok)
	assert.Equal(t, "Please provide a stock symbol. Usage: !stock SYMBOL", reply)

	reply, ok = r.Handle(context.Background(), "!analyze")
	require.True(t, ok)
	assert.Equal(t, "Please provide a stock symbol. Usage: !analyze SYMBOL", reply)

	reply, ok = r.Handle(context.Background(), "!search")
	require.True(t, ok)
	assert.Equal(t, "Please provide a search query. Usage: !search QUERY", reply)

	assert.Empty(t, quotes.symbols)
	assert.Empty(t, quotes.queries)
}

func TestHandleAllProvidersFailed(t *testing.T) {
	quotes := &fakeQuotes{err: &aggregate.AllProvidersFailedError{
		Op:     "quote",
		Target: "ZZZZ",
		Errors: []error{market.NewError("alphavantage", market.KindNotFound, "")},
	}}
	r := newTestRouter(quotes, nil)

	reply, ok := r.Handle(context.Background(), "!stock zzzz")
	require.True(t, ok)
	assert.Equal(t, "Error fetching stock data for ZZZZ", reply)

	reply, ok = r.Handle(context.Background(), "!analyze zzzz")
	require.True(t, ok)
	assert.Equal(t, "Error fetching stock data for ZZZZ", reply)
}

func TestHandleUnexpectedErrors(t *testing.T) {
	reply, ok := newTestRouter(&fakeQuotes{err: errors.New("boom")}, nil).Handle(context.Background(), "!stock AAPL")
	require.True(t, ok)
	assert.Equal(t, GenericError, reply)

	reply, ok = newTestRouter(&fakeQuotes{panics: true}, nil).Handle(context.Background(), "!stock AAPL")
	require.True(t, ok)
	assert.Equal(t, GenericError, reply)

	reply, ok = newTestRouter(&fakeQuotes{}, failingPicks{}).Handle(context.Background(), "!picks")
	require.True(t, ok)
	assert.Equal(t, GenericError, reply)
}

func TestHandleAnalyze(t *testing.T) {
	r := newTestRouter(&fakeQuotes{quote: aapl}, nil)

	reply, ok := r.Handle(context.Background(), "!analyze AAPL")
	require.True(t, ok)
	assert.Equal(t, FormatAnalysis(aapl), reply)
}

func TestHandlePicksAndStats(t *testing.T) {
	r := newTestRouter(&fakeQuotes{}, nil)

	reply, ok := r.Handle(context.Background(), "!picks")
	require.True(t, ok)
	assert.Equal(t, "Daily Stock Picks: AAPL, GOOGL, MSFT", reply)

	reply, ok = r.Handle(context.Background(), "!Stats")
	require.True(t, ok)
	assert.Equal(t, "Performance statistics will be implemented soon", reply)
}

func TestHandleSearch(t *testing.T) {
	quotes := &fakeQuotes{results: []market.SearchResult{{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}}}
	r := newTestRouter(quotes, nil)

	reply, ok := r.Handle(context.Background(), "!search apple inc")
	require.True(t, ok)
	assert.Equal(t, "Search results for \"apple inc\":\nAAPL - Apple Inc. (NASDAQ)", reply)
	assert.Equal(t, []string{"apple inc"}, quotes.queries)
}

func TestHandleHelp(t *testing.T) {
	r := NewRouter("$", &fakeQuotes{}, picks.NewStatic(nil), nil)

	reply, ok := r.Handle(context.Background(), "$help")
	require.True(t, ok)
	assert.Contains(t, reply, "Available commands:")
	assert.Contains(t, reply, "$stock SYMBOL - current quote")
	assert.Contains(t, reply, "$search QUERY - find symbols by name")
}

func TestHandleIgnored(t *testing.T) {
	quotes := &fakeQuotes{}
	r := newTestRouter(quotes, nil)

	for _, text := range []string{"hello there", "!unknown AAPL", "stock AAPL", ""} {
		reply, ok := r.Handle(context.Background(), text)
		assert.False(t, ok, text)
		assert.Empty(t, reply, text)
	}
	assert.Empty(t, quotes.symbols)
}
