package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/nanzhong/tickerbot/aggregate"
	"github.com/nanzhong/tickerbot/market"
	"github.com/nanzhong/tickerbot/picks"
)

const (
	DefaultPrefix = "!"

	StatsPlaceholder = "Performance statistics will be implemented soon"
	GenericError     = "Sorry, I encountered an error processing your request."
)

// QuoteService is the subset of aggregate.Service the router needs.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	SearchSymbols(ctx context.Context, query string) []market.SearchResult
}

type handlerFunc func(ctx context.Context, logger *log.Entry, args []string) (string, error)

type command struct {
	usage   string
	summary string
	run     handlerFunc
}

// Router maps prefixed chat text such as "!stock AAPL" to a reply.
type Router struct {
	prefix   string
	quotes   QuoteService
	picks    picks.Source
	log      *log.Entry
	commands map[string]command
}

func NewRouter(prefix string, quotes QuoteService, picksSource picks.Source, logger *log.Entry) *Router {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	r := &Router{
		prefix: prefix,
		quotes: quotes,
		picks:  picksSource,
		log:    logger.WithField("component", "command"),
	}
	r.commands = map[string]command{
		"stock":   {usage: "stock SYMBOL", summary: "current quote", run: r.stock},
		"analyze": {usage: "analyze SYMBOL", summary: "day range, trend and valuation summary", run: r.analyze},
		"picks":   {usage: "picks", summary: "today's stock picks", run: r.dailyPicks},
		"stats":   {usage: "stats", summary: "performance statistics", run: r.stats},
		"search":  {usage: "search QUERY", summary: "find symbols by name", run: r.search},
		"help":    {usage: "help", summary: "this message", run: r.help},
	}
	return r
}

// Prefix returns the trigger prefix commands must start with.
func (r *Router) Prefix() string {
	return r.prefix
}

// Parse splits text into a lower-cased command name and its arguments. ok is false
// when text does not start with prefix immediately followed by a command token.
func Parse(prefix, text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	rest := text[len(prefix):]
	if rest == "" || strings.TrimLeft(rest, " \t\r\n") != rest {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	return strings.ToLower(fields[0]), fields[1:], true
}

// Handle runs the command in text. ok is false when text is not a recognized command,
// in which case no reply should be sent.
func (r *Router) Handle(ctx context.Context, text string) (reply string, ok bool) {
	name, args, ok := Parse(r.prefix, text)
	if !ok {
		return "", false
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", false
	}

	logger := r.log.WithFields(log.Fields{
		"request_id": uuid.NewString(),
		"command":    name,
	})
	logger.WithField("args", args).Info("handling command")

	reply, err := r.run(ctx, logger, cmd, args)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			logger.WithError(err).Debug("invalid command arguments")
			return cmdErr.Error(), true
		}
		logger.WithError(err).Error("command failed")
		return GenericError, true
	}
	return reply, true
}

func (r *Router) run(ctx context.Context, logger *log.Entry, cmd command, args []string) (reply string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return cmd.run(ctx, logger, args)
}

func (r *Router) symbolUsage(name string) error {
	return newUsageError(name, fmt.Sprintf("Please provide a stock symbol. Usage: %s%s SYMBOL", r.prefix, name))
}

// quote fetches a quote and turns aggregation failures into the user facing reply.
func (r *Router) quote(ctx context.Context, logger *log.Entry, name string, args []string) (market.Quote, string, error) {
	if len(args) < 1 {
		return market.Quote{}, "", r.symbolUsage(name)
	}
	symbol := market.NormalizeSymbol(args[0])

	q, err := r.quotes.GetQuote(ctx, symbol)
	if err != nil {
		var failed *aggregate.AllProvidersFailedError
		if errors.As(err, &failed) {
			logger.WithField("kinds", failed.Kinds()).WithError(err).Warn("no provider could serve quote")
			return market.Quote{}, fmt.Sprintf("Error fetching stock data for %s", symbol), nil
		}
		return market.Quote{}, "", fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return q, "", nil
}

func (r *Router) stock(ctx context.Context, logger *log.Entry, args []string) (string, error) {
	q, failure, err := r.quote(ctx, logger, "stock", args)
	if err != nil || failure != "" {
		return failure, err
	}
	return FormatQuote(q), nil
}

func (r *Router) analyze(ctx context.Context, logger *log.Entry, args []string) (string, error) {
	q, failure, err := r.quote(ctx, logger, "analyze", args)
	if err != nil || failure != "" {
		return failure, err
	}
	return FormatAnalysis(q), nil
}

func (r *Router) dailyPicks(ctx context.Context, _ *log.Entry, _ []string) (string, error) {
	symbols, err := r.picks.DailyPicks(ctx)
	if err != nil {
		return "", err
	}
	return FormatPicks(symbols), nil
}

func (r *Router) stats(context.Context, *log.Entry, []string) (string, error) {
	return StatsPlaceholder, nil
}

func (r *Router) search(ctx context.Context, _ *log.Entry, args []string) (string, error) {
	if len(args) < 1 {
		return "", newUsageError("search", fmt.Sprintf("Please provide a search query. Usage: %ssearch QUERY", r.prefix))
	}
	query := strings.Join(args, " ")
	return FormatSearch(query, r.quotes.SearchSymbols(ctx, query)), nil
}

func (r *Router) help(context.Context, *log.Entry, []string) (string, error) {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range names {
		cmd := r.commands[name]
		fmt.Fprintf(&b, "\n%s%s - %s", r.prefix, cmd.usage, cmd.summary)
	}
	return b.String(), nil
}
