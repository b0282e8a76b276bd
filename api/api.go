package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nanzhong/tickerbot/aggregate"
	"github.com/nanzhong/tickerbot/market"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// QuoteService is the subset of aggregate.Service served over HTTP.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	SearchSymbols(ctx context.Context, query string) []market.SearchResult
}

type errorResponse struct {
	Error string   `json:"error"`
	Kinds []string `json:"kinds,omitempty"`
}

type searchResponse struct {
	Results []market.SearchResult `json:"results"`
}

type quoteParams struct {
	Shape string `schema:"shape"`
}

type searchParams struct {
	Query string `schema:"q"`
	Limit int    `schema:"limit"`
}

type handler struct {
	quotes  QuoteService
	log     *log.Entry
	decoder *schema.Decoder
}

// SetupHandler registers the health check and the /api routes on router.
func SetupHandler(router *mux.Router, quotes QuoteService, logger *log.Entry) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &handler{
		quotes:  quotes,
		log:     logger.WithField("component", "api"),
		decoder: decoder,
	}

	router.Handle("/healthz", otelhttp.WithRouteTag("/healthz", http.HandlerFunc(h.health))).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(recoverPanic(h.log), withJSONHeaders)
	apiRouter.Handle("/quote/{symbol}", otelhttp.WithRouteTag("/api/quote/{symbol}", http.HandlerFunc(h.getQuote))).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.Handle("/search", otelhttp.WithRouteTag("/api/search", http.HandlerFunc(h.search))).Methods(http.MethodGet, http.MethodOptions)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	var params quoteParams
	if err := h.decoder.Decode(&params, r.URL.Query()); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid query: %w", err), nil)
		return
	}

	symbol := mux.Vars(r)["symbol"]
	// Provider calls run to completion even if the client goes away.
	q, err := h.quotes.GetQuote(context.WithoutCancel(r.Context()), symbol)
	if err != nil {
		var failed *aggregate.AllProvidersFailedError
		switch {
		case errors.Is(err, aggregate.ErrEmptySymbol):
			h.writeError(w, http.StatusBadRequest, err, nil)
		case errors.As(err, &failed):
			kinds := make([]string, 0, len(failed.Errors))
			for _, k := range failed.Kinds() {
				kinds = append(kinds, k.String())
			}
			h.writeError(w, http.StatusBadGateway, err, kinds)
		default:
			h.writeError(w, http.StatusInternalServerError, err, nil)
		}
		return
	}

	switch strings.ToLower(params.Shape) {
	case "", "canonical":
		h.writeJSON(w, http.StatusOK, q)
	case "legacy":
		h.writeJSON(w, http.StatusOK, market.NewLegacyQuote(q))
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown shape %q", params.Shape), nil)
	}
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var params searchParams
	if err := h.decoder.Decode(&params, r.URL.Query()); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid query: %w", err), nil)
		return
	}
	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("missing q query param"), nil)
		return
	}
	switch {
	case params.Limit < 0:
		h.writeError(w, http.StatusBadRequest, errors.New("limit must not be negative"), nil)
		return
	case params.Limit == 0:
		params.Limit = defaultSearchLimit
	case params.Limit > maxSearchLimit:
		params.Limit = maxSearchLimit
	}

	results := h.quotes.SearchSymbols(context.WithoutCancel(r.Context()), params.Query)
	if len(results) > params.Limit {
		results = results[:params.Limit]
	}
	if results == nil {
		results = []market.SearchResult{}
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.log.WithError(err).Warn("encoding response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error, kinds []string) {
	h.log.WithError(err).WithField("status", status).Warn("request failed")
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Kinds: kinds})
}
