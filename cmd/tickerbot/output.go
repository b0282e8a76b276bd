package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nanzhong/tickerbot/market"
)

const (
	outputTable = "table"
	outputCSV   = "csv"
	outputJSON  = "json"
)

type quoteRow struct {
	Symbol        string  `csv:"symbol"`
	Price         float64 `csv:"price"`
	Change        float64 `csv:"change"`
	ChangePercent float64 `csv:"change_percent"`
	High          float64 `csv:"high"`
	Low           float64 `csv:"low"`
	Volume        int64   `csv:"volume"`
	Source        string  `csv:"source"`
}

func newQuoteRow(q market.Quote) quoteRow {
	return quoteRow{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		High:          q.DailyHigh,
		Low:           q.DailyLow,
		Volume:        q.Volume,
		Source:        q.Source,
	}
}

func (r quoteRow) record() []string {
	return []string{
		r.Symbol,
		formatFloat(r.Price),
		formatFloat(r.Change),
		formatFloat(r.ChangePercent) + "%",
		formatFloat(r.High),
		formatFloat(r.Low),
		printer.Sprintf("%d", r.Volume),
		r.Source,
	}
}

var printer = message.NewPrinter(language.English)

var quoteHeader = []string{"Symbol", "Price", "Change", "Change %", "High", "Low", "Volume", "Source"}

type searchRow struct {
	Symbol   string `csv:"symbol"`
	Name     string `csv:"name"`
	Exchange string `csv:"exchange"`
}

func (r searchRow) record() []string {
	return []string{r.Symbol, r.Name, r.Exchange}
}

var searchHeader = []string{"Symbol", "Name", "Exchange"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func validOutput(format string) error {
	switch format {
	case outputTable, outputCSV, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q, want table, csv or json", format)
	}
}

// writeRows renders rows in format. raw is what the json format encodes.
func writeRows[R interface{ record() []string }](w io.Writer, format string, header []string, rows []R, raw any) error {
	switch format {
	case outputCSV:
		return gocsv.Marshal(&rows, w)
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	default:
		table := tablewriter.NewWriter(w)
		table.SetHeader(header)
		for _, r := range rows {
			table.Append(r.record())
		}
		table.Render()
		return nil
	}
}
