package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nanzhong/tickerbot/market"
)

const notAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// number renders v in its shortest exact decimal form, e.g. 172.35 or -1.2.
func number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func signed(v float64) string {
	if v > 0 {
		return "+" + number(v)
	}
	return number(v)
}

func optional(v *float64, prefix string) string {
	if v == nil {
		return notAvailable
	}
	return prefix + number(*v)
}

func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return v
	}
	return r
}

// FormatQuote renders the multi-line quote reply.
func FormatQuote(q market.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Quote:\n", q.Symbol)
	fmt.Fprintf(&b, "Price: $%s\n", number(q.Price))
	fmt.Fprintf(&b, "Change: %s (%s%%)\n", signed(q.Change), signed(q.ChangePercent))
	fmt.Fprintf(&b, "High: $%s\n", number(q.DailyHigh))
	fmt.Fprintf(&b, "Low: $%s\n", number(q.DailyLow))
	fmt.Fprintf(&b, "Volume: %d\n", q.Volume)
	fmt.Fprintf(&b, "Market Cap: %s\n", optional(q.MarketCap, "$"))
	fmt.Fprintf(&b, "PE Ratio: %s\n", optional(q.PERatio, ""))
	fmt.Fprintf(&b, "Last Updated: %s", q.LastUpdated.UTC().Format(time.RFC3339))
	return b.String()
}

func trend(changePercent float64) string {
	switch {
	case changePercent >= 2:
		return "Strongly bullish"
	case changePercent > 0:
		return "Bullish"
	case changePercent <= -2:
		return "Strongly bearish"
	case changePercent < 0:
		return "Bearish"
	default:
		return "Flat"
	}
}

func valuation(pe *float64) string {
	switch {
	case pe == nil:
		return notAvailable
	case *pe <= 0:
		return fmt.Sprintf("P/E %s (negative earnings)", number(round(*pe, 2)))
	case *pe < 15:
		return fmt.Sprintf("P/E %s (value)", number(round(*pe, 2)))
	case *pe <= 25:
		return fmt.Sprintf("P/E %s (fair)", number(round(*pe, 2)))
	default:
		return fmt.Sprintf("P/E %s (premium)", number(round(*pe, 2)))
	}
}

// FormatAnalysis renders a short technical and valuation summary of q.
func FormatAnalysis(q market.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Analysis:\n", q.Symbol)
	fmt.Fprintf(&b, "Day Range: $%s - $%s\n", number(q.DailyLow), number(q.DailyHigh))

	if spread := q.DailyHigh - q.DailyLow; spread > 0 {
		position := round((q.Price-q.DailyLow)/spread*100, 1)
		fmt.Fprintf(&b, "Position in Range: %s%%\n", number(position))
	} else {
		fmt.Fprintf(&b, "Position in Range: %s\n", notAvailable)
	}

	fmt.Fprintf(&b, "Trend: %s (%s%%)\n", trend(q.ChangePercent), signed(round(q.ChangePercent, 2)))
	fmt.Fprintf(&b, "Valuation: %s\n", valuation(q.PERatio))
	if q.DividendYield != nil {
		fmt.Fprintf(&b, "Dividend Yield: %s%%\n", number(round(*q.DividendYield*100, 2)))
	}
	b.WriteString(printer.Sprintf("Volume: %d", q.Volume))
	return b.String()
}

func FormatPicks(symbols []string) string {
	return "Daily Stock Picks: " + strings.Join(symbols, ", ")
}

func FormatSearch(query string, results []market.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No symbols found for %q", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:", query)
	for _, r := range results {
		fmt.Fprintf(&b, "\n%s - %s (%s)", r.Symbol, r.Name, r.Exchange)
	}
	return b.String()
}
