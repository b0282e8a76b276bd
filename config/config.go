package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nanzhong/tickerbot/cache"
)

const (
	DefaultFile    = "tickerbot.yaml"
	DefaultEnvFile = ".env"

	ProviderAlphaVantage = "alphavantage"
	ProviderYahoo        = "yahoo"
	ProviderPolygon      = "polygon"
)

var ErrMissingBotToken = errors.New("missing slack bot token")

type Server struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type Slack struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
	Debug         bool   `yaml:"debug"`
}

type Command struct {
	Prefix string `yaml:"prefix"`
}

type Picks struct {
	Symbols []string `yaml:"symbols"`
}

type Cache struct {
	StockTTL    time.Duration `yaml:"stock_ttl"`
	TopPicksTTL time.Duration `yaml:"top_picks_ttl"`
	NewsTTL     time.Duration `yaml:"news_ttl"`
	MaxItems    int           `yaml:"max_items"`
}

func (c Cache) TTLs() cache.TTLs {
	return cache.TTLs{Stock: c.StockTTL, TopPicks: c.TopPicksTTL, News: c.NewsTTL}
}

type AlphaVantage struct {
	APIKey               string `yaml:"api_key"`
	BaseURL              string `yaml:"base_url"`
	Overview             bool   `yaml:"overview"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Yahoo struct {
	Enabled              bool   `yaml:"enabled"`
	SearchURL            string `yaml:"search_url"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Polygon struct {
	APIKey               string `yaml:"api_key"`
	Details              bool   `yaml:"details"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Providers struct {
	// Order is the fallback priority, first entry first.
	Order        []string     `yaml:"order"`
	AlphaVantage AlphaVantage `yaml:"alphavantage"`
	Yahoo        Yahoo        `yaml:"yahoo"`
	Polygon      Polygon      `yaml:"polygon"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Slack     Slack     `yaml:"slack"`
	Command   Command   `yaml:"command"`
	Picks     Picks     `yaml:"picks"`
	Cache     Cache     `yaml:"cache"`
	Providers Providers `yaml:"providers"`
	Log       Log       `yaml:"log"`
}

func Default() Config {
	ttls := cache.DefaultTTLs()
	return Config{
		Server:  Server{Addr: "0.0.0.0:8080", RequestTimeout: 10 * time.Second},
		Command: Command{Prefix: "!"},
		Picks:   Picks{Symbols: []string{"AAPL", "GOOGL", "MSFT"}},
		Cache: Cache{
			StockTTL:    ttls.Stock,
			TopPicksTTL: ttls.TopPicks,
			NewsTTL:     ttls.News,
			MaxItems:    10000,
		},
		Providers: Providers{
			Order: []string{ProviderAlphaVantage, ProviderYahoo, ProviderPolygon},
			AlphaVantage: AlphaVantage{
				Overview: true,
				// Free tier: 5 requests per minute.
				MaxRequestsPerMinute: 5,
				Burst:                5,
			},
			Yahoo: Yahoo{
				Enabled:              true,
				MaxRequestsPerMinute: 60,
				Burst:                10,
			},
			Polygon: Polygon{
				MaxRequestsPerMinute: 5,
				Burst:                5,
			},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path, then a .env
// file in the working directory, then the environment. An empty path falls back to
// $CONFIG_FILE and then tickerbot.yaml; a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitCSV(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &cfg.Server.Addr)
	duration("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	str("SLACK_BOT_TOKEN", &cfg.Slack.BotToken)
	str("SLACK_SIGNING_SECRET", &cfg.Slack.SigningSecret)
	boolean("SLACK_DEBUG", &cfg.Slack.Debug)

	str("COMMAND_PREFIX", &cfg.Command.Prefix)
	list("DAILY_PICKS", &cfg.Picks.Symbols)

	duration("CACHE_STOCK_TTL", &cfg.Cache.StockTTL)
	duration("CACHE_TOP_PICKS_TTL", &cfg.Cache.TopPicksTTL)
	duration("CACHE_NEWS_TTL", &cfg.Cache.NewsTTL)
	integer("CACHE_MAX_ITEMS", &cfg.Cache.MaxItems)

	list("PROVIDER_ORDER", &cfg.Providers.Order)
	str("ALPHAVANTAGE_API_KEY", &cfg.Providers.AlphaVantage.APIKey)
	str("ALPHAVANTAGE_BASE_URL", &cfg.Providers.AlphaVantage.BaseURL)
	boolean("ALPHAVANTAGE_OVERVIEW", &cfg.Providers.AlphaVantage.Overview)
	integer("ALPHAVANTAGE_MAX_RPM", &cfg.Providers.AlphaVantage.MaxRequestsPerMinute)
	boolean("YAHOO_ENABLED", &cfg.Providers.Yahoo.Enabled)
	str("YAHOO_SEARCH_URL", &cfg.Providers.Yahoo.SearchURL)
	integer("YAHOO_MAX_RPM", &cfg.Providers.Yahoo.MaxRequestsPerMinute)
	str("POLYGON_API_KEY", &cfg.Providers.Polygon.APIKey)
	integer("POLYGON_MAX_RPM", &cfg.Providers.Polygon.MaxRequestsPerMinute)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error

	if c.Command.Prefix == "" || strings.ContainsAny(c.Command.Prefix, " \t\r\n") {
		errs = append(errs, fmt.Errorf("command prefix %q must be non-empty without whitespace", c.Command.Prefix))
	}
	for name, ttl := range map[string]time.Duration{
		"cache.stock_ttl":     c.Cache.StockTTL,
		"cache.top_picks_ttl": c.Cache.TopPicksTTL,
		"cache.news_ttl":      c.Cache.NewsTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Cache.MaxItems < 0 {
		errs = append(errs, errors.New("cache.max_items must not be negative"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}

	if len(c.Providers.Order) == 0 {
		errs = append(errs, errors.New("providers.order must name at least one provider"))
	}
	known := []string{ProviderAlphaVantage, ProviderYahoo, ProviderPolygon}
	seen := map[string]bool{}
	for _, name := range c.Providers.Order {
		if !slices.Contains(known, name) {
			errs = append(errs, fmt.Errorf("unknown provider %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("provider %q listed twice", name))
		}
		seen[name] = true
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ValidateServe additionally checks what the Slack server needs.
func (c Config) ValidateServe() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Slack.BotToken == "" {
		errs = append(errs, ErrMissingBotToken)
	}
	return errors.Join(errs...)
}
