package alphavantage_test

import (
	"io"
	"net/http"
	"strings"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const globalQuoteAAPL = `{
    "Global Quote": {
        "01. symbol": "AAPL",
        "02. open": "173.0000",
        "03. high": "174.3000",
        "04. low": "171.9600",
        "05. price": "172.3500",
        "06. volume": "58405000",
        "07. latest trading day": "2024-01-02",
        "08. previous close": "173.5500",
        "09. change": "-1.2000",
        "10. change percent": "-0.6914%"
    }
}`

const overviewAAPL = `{
    "Symbol": "AAPL",
    "Name": "Apple Inc",
    "Exchange": "NASDAQ",
    "MarketCapitalization": "2680000000000",
    "PERatio": "28.5",
    "DividendYield": "None"
}`

const symbolSearchTesla = `{
    "bestMatches": [
        {"1. symbol": "TSLA", "2. name": "Tesla Inc", "3. type": "Equity", "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.8889"},
        {"1. symbol": "TL0.DEX", "2. name": "Tesla", "3. type": "Equity", "4. region": "", "8. currency": "EUR", "9. matchScore": "0.7143"}
    ]
}`
