package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nanzhong/tickerbot/market"
)

func ptr(v float64) *float64 { return &v }

var aapl = market.Quote{
	Symbol:        "AAPL",
	Price:         172.35,
	Change:        -1.2,
	ChangePercent: -0.69,
	DailyHigh:     174.3,
	DailyLow:      171.96,
	Volume:        58405000,
	LastUpdated:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
}

func TestFormatQuote(t *testing.T) {
	want := "AAPL Quote:\n" +
		"Price: $172.35\n" +
		"Change: -1.2 (-0.69%)\n" +
		"High: $174.3\n" +
		"Low: $171.96\n" +
		"Volume: 58405000\n" +
		"Market Cap: N/A\n" +
		"PE Ratio: N/A\n" +
		"Last Updated: 2024-01-02T00:00:00Z"
	assert.Equal(t, want, FormatQuote(aapl))
}

func TestFormatQuoteOptionalAndPositive(t *testing.T) {
	q := aapl
	q.Change = 2.5
	q.ChangePercent = 1.45
	q.MarketCap = ptr(2680000000000)
	q.PERatio = ptr(28.5)

	got := FormatQuote(q)
	assert.Contains(t, got, "Change: +2.5 (+1.45%)\n")
	assert.Contains(t, got, "Market Cap: $2680000000000\n")
	assert.Contains(t, got, "PE Ratio: 28.5\n")
}

func TestFormatAnalysis(t *testing.T) {
	q := aapl
	q.PERatio = ptr(28.5)
	q.DividendYield = ptr(0.0055)

	want := "AAPL Analysis:\n" +
		"Day Range: $171.96 - $174.3\n" +
		"Position in Range: 16.7%\n" +
		"Trend: Bearish (-0.69%)\n" +
		"Valuation: P/E 28.5 (premium)\n" +
		"Dividend Yield: 0.55%\n" +
		"Volume: 58,405,000"
	assert.Equal(t, want, FormatAnalysis(q))
}

func TestFormatAnalysisFlatRange(t *testing.T) {
	q := aapl
	q.DailyHigh = 10
	q.DailyLow = 10
	q.ChangePercent = 0

	got := FormatAnalysis(q)
	assert.Contains(t, got, "Position in Range: N/A\n")
	assert.Contains(t, got, "Trend: Flat (0%)\n")
	assert.Contains(t, got, "Valuation: N/A\n")
	assert.NotContains(t, got, "Dividend Yield")
}

func TestTrend(t *testing.T) {
	assert.Equal(t, "Strongly bullish", trend(3))
	assert.Equal(t, "Bullish", trend(0.1))
	assert.Equal(t, "Bearish", trend(-0.1))
	assert.Equal(t, "Strongly bearish", trend(-2))
}

func TestValuation(t *testing.T) {
	assert.Equal(t, "P/E 12 (value)", valuation(ptr(12)))
	assert.Equal(t, "P/E 20.13 (fair)", valuation(ptr(20.1299)))
	assert.Equal(t, "P/E -3 (negative earnings)", valuation(ptr(-3)))
}

func TestFormatSearch(t *testing.T) {
	assert.Equal(t, `No symbols found for "zzzz"`, FormatSearch("zzzz", nil))
	assert.Equal(t,
		"Search results for \"apple\":\nAAPL - Apple Inc. (NASDAQ)\nAPLE - Apple Hospitality REIT (Unknown)",
		FormatSearch("apple", []market.SearchResult{
			{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"},
			{Symbol: "APLE", Name: "Apple Hospitality REIT", Exchange: market.UnknownExchange},
		}),
	)
}

func TestFormatPicks(t *testing.T) {
	assert.Equal(t, "Daily Stock Picks: AAPL, GOOGL, MSFT", FormatPicks([]string{"AAPL", "GOOGL", "MSFT"}))
}
