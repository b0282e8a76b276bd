package app

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	slackgo "github.com/slack-go/slack"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nanzhong/tickerbot/aggregate"
	"github.com/nanzhong/tickerbot/api"
	"github.com/nanzhong/tickerbot/cache"
	"github.com/nanzhong/tickerbot/command"
	"github.com/nanzhong/tickerbot/config"
	"github.com/nanzhong/tickerbot/httpx"
	"github.com/nanzhong/tickerbot/market"
	"github.com/nanzhong/tickerbot/market/alphavantage"
	"github.com/nanzhong/tickerbot/market/polygon"
	"github.com/nanzhong/tickerbot/picks"
	"github.com/nanzhong/tickerbot/slack"
)

// App holds the wired components shared by every command.
type App struct {
	Config     config.Config
	Log        *log.Entry
	HTTP       *httpx.Client
	Providers  []market.Provider
	QuoteCache *cache.Memory[market.Quote]
	Service    *aggregate.Service
	Picks      picks.Source
	Router     *command.Router
	Slack      *slackgo.Client
}

type Option func(*App)

// WithProviders replaces the providers built from configuration.
func WithProviders(providers ...market.Provider) Option {
	return func(a *App) {
		a.Providers = providers
	}
}

func New(cfg config.Config, logger *log.Entry, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	a := &App{
		Config: cfg,
		Log:    logger,
		HTTP:   httpx.New(cfg.Server.RequestTimeout),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Providers == nil {
		providers, err := a.buildProviders()
		if err != nil {
			return nil, err
		}
		a.Providers = providers
	}
	if len(a.Providers) == 0 {
		logger.Warn("no market data providers configured, every quote will fail")
	}

	a.QuoteCache = cache.NewMemory[market.Quote](cfg.Cache.MaxItems)
	a.Service = aggregate.NewService(a.Providers, a.QuoteCache,
		aggregate.WithTTLs(cfg.Cache.TTLs()),
		aggregate.WithLogger(logger),
	)
	a.Picks = picks.NewCached(
		picks.NewStatic(cfg.Picks.Symbols),
		cache.NewMemory[[]string](0),
		cfg.Cache.TopPicksTTL,
	)
	a.Router = command.NewRouter(cfg.Command.Prefix, a.Service, a.Picks, logger)
	a.Slack = slackgo.New(cfg.Slack.BotToken,
		slackgo.OptionDebug(cfg.Slack.Debug),
		slackgo.OptionHTTPClient(a.HTTP.HTTP),
	)
	return a, nil
}

func (a *App) buildProviders() ([]market.Provider, error) {
	var providers []market.Provider
	for _, name := range a.Config.Providers.Order {
		p, perMinute, burst, err := a.buildProvider(name)
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", name, err)
		}
		if p == nil {
			continue
		}
		a.Log.WithFields(log.Fields{"provider": name, "max_rpm": perMinute}).Info("enabled market data provider")
		providers = append(providers, market.WithRateLimit(p, perMinute, burst))
	}
	return providers, nil
}

// buildProvider returns a nil provider when name is not configured for use.
func (a *App) buildProvider(name string) (p market.Provider, perMinute, burst int, err error) {
	cfg := a.Config.Providers
	switch name {
	case config.ProviderAlphaVantage:
		if cfg.AlphaVantage.APIKey == "" {
			a.Log.WithField("provider", name).Warn("skipping provider without api key")
			return nil, 0, 0, nil
		}
		opts := []alphavantage.ClientOption{alphavantage.WithHTTPClient(a.HTTP.Doer())}
		if cfg.AlphaVantage.BaseURL != "" {
			opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
		}
		client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey, opts...)
		if err != nil {
			return nil, 0, 0, err
		}
		p = alphavantage.NewProvider(client, alphavantage.Config{Overview: cfg.AlphaVantage.Overview})
		return p, cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst, nil
	case config.ProviderYahoo:
		if !cfg.Yahoo.Enabled {
			a.Log.WithField("provider", name).Info("skipping disabled provider")
			return nil, 0, 0, nil
		}
		p = market.NewYahooProvider(market.YahooConfig{SearchURL: cfg.Yahoo.SearchURL}, a.HTTP.Doer())
		return p, cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst, nil
	case config.ProviderPolygon:
		if cfg.Polygon.APIKey == "" {
			a.Log.WithField("provider", name).Warn("skipping provider without api key")
			return nil, 0, 0, nil
		}
		p = polygon.New(cfg.Polygon.APIKey, a.HTTP.HTTP, polygon.Config{Details: cfg.Polygon.Details})
		return p, cfg.Polygon.MaxRequestsPerMinute, cfg.Polygon.Burst, nil
	default:
		return nil, 0, 0, fmt.Errorf("unknown provider %q", name)
	}
}

// Handler serves the JSON API and the Slack events endpoint. botUserID is the bot's
// own Slack user, whose messages are never answered.
func (a *App) Handler(botUserID string) http.Handler {
	router := mux.NewRouter()
	api.SetupHandler(router, a.Service, a.Log)
	router.Handle("/slack/events", slack.NewEventHandler(
		a.Slack,
		a.Config.Slack.SigningSecret,
		a.Router,
		slack.WithBotUserID(botUserID),
		slack.WithLogger(a.Log),
	))
	return otelhttp.NewHandler(router, "tickerbot")
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg config.Log) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
