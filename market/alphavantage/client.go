package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://www.alphavantage.co"

var (
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrThrottled is returned when Alpha Vantage answers with a call frequency note.
	ErrThrottled = errors.New("throttled")
	// ErrNoData is returned for well-formed responses that carry nothing for the symbol.
	ErrNoData = errors.New("no data")
	// ErrInvalidCall is returned when Alpha Vantage reports an "Error Message".
	ErrInvalidCall = errors.New("invalid call")
	ErrMalformed   = errors.New("malformed response")
	ErrTransport   = errors.New("transport failure")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// APIError carries an informational message that is not a throttling notice.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Alpha Vantage query API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// ClientOption is a configuration option for the Alpha Vantage client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Alpha Vantage client.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	client.query.Set("apikey", key)
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// GlobalQuote is the GLOBAL_QUOTE payload. Every value arrives as a string.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// Overview is the subset of the OVERVIEW payload used for enrichment.
type Overview struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Exchange             string `json:"Exchange"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	DividendYield        string `json:"DividendYield"`
}

// SymbolMatch is one SYMBOL_SEARCH best match.
type SymbolMatch struct {
	Symbol     string `json:"1. symbol"`
	Name       string `json:"2. name"`
	Type       string `json:"3. type"`
	Region     string `json:"4. region"`
	Currency   string `json:"8. currency"`
	MatchScore string `json:"9. matchScore"`
}

func (c *Client) GlobalQuote(ctx context.Context, symbol string) (GlobalQuote, error) {
	var body struct {
		GlobalQuote GlobalQuote `json:"Global Quote"`
	}
	if err := c.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &body); err != nil {
		return GlobalQuote{}, err
	}
	if body.GlobalQuote.Symbol == "" {
		return GlobalQuote{}, fmt.Errorf("global quote for %s: %w", symbol, ErrNoData)
	}
	return body.GlobalQuote, nil
}

func (c *Client) Overview(ctx context.Context, symbol string) (Overview, error) {
	var body Overview
	if err := c.get(ctx, url.Values{"function": {"OVERVIEW"}, "symbol": {symbol}}, &body); err != nil {
		return Overview{}, err
	}
	if body.Symbol == "" {
		return Overview{}, fmt.Errorf("overview for %s: %w", symbol, ErrNoData)
	}
	return body, nil
}

func (c *Client) SymbolSearch(ctx context.Context, keywords string) ([]SymbolMatch, error) {
	var body struct {
		BestMatches []SymbolMatch `json:"bestMatches"`
	}
	if err := c.get(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {keywords}}, &body); err != nil {
		return nil, err
	}
	return body.BestMatches, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	query := maps.Clone(c.query)
	for k, v := range params {
		query[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode()), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: performing request: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", res.StatusCode, ErrThrottled)
	default:
		return &StatusError{Code: res.StatusCode}
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrMalformed, err)
	}
	if err := checkMessages(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrMalformed, params.Get("function"), err)
	}
	return nil
}

// checkMessages inspects the advisory fields Alpha Vantage returns with status 200.
func checkMessages(raw map[string]json.RawMessage) error {
	message := func(key string) (string, bool) {
		v, ok := raw[key]
		if !ok {
			return "", false
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return string(v), true
		}
		return s, true
	}

	if msg, ok := message("Note"); ok {
		return fmt.Errorf("%w: %s", ErrThrottled, msg)
	}
	if msg, ok := message("Information"); ok {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "rate limit") || strings.Contains(lower, "call frequency") {
			return fmt.Errorf("%w: %s", ErrThrottled, msg)
		}
		return &APIError{Message: msg}
	}
	if msg, ok := message("Error Message"); ok {
		return fmt.Errorf("%w: %s", ErrInvalidCall, msg)
	}
	return nil
}
