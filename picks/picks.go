package picks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nanzhong/tickerbot/cache"
)

var DefaultSymbols = []string{"AAPL", "GOOGL", "MSFT"}

const DefaultInterval = 24 * time.Hour

// Source produces the daily stock picks.
type Source interface {
	DailyPicks(ctx context.Context) ([]string, error)
}

// Static returns a fixed list of picks. It re-runs its (empty) analysis step at most
// once per Interval and records when it last did so.
type Static struct {
	Symbols  []string
	Interval time.Duration
	Now      func() time.Time

	mu           sync.Mutex
	lastAnalysis time.Time
}

func NewStatic(symbols []string) *Static {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return &Static{
		Symbols:      slices.Clone(symbols),
		Interval:     DefaultInterval,
		Now:          time.Now,
		lastAnalysis: time.Now(),
	}
}

func (s *Static) DailyPicks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if now.Sub(s.lastAnalysis) >= s.Interval {
		s.lastAnalysis = now
	}
	return slices.Clone(s.Symbols), nil
}

func (s *Static) LastAnalysis() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnalysis
}

const dailyKey = "daily"

// Cached memoizes another Source under the topPicks cache category.
type Cached struct {
	source Source
	store  cache.Store[[]string]
	ttl    time.Duration
}

func NewCached(source Source, store cache.Store[[]string], ttl time.Duration) *Cached {
	return &Cached{source: source, store: store, ttl: ttl}
}

func (c *Cached) DailyPicks(ctx context.Context) ([]string, error) {
	key := cache.Key{Category: cache.TopPicks, ID: dailyKey}
	if symbols, ok := c.store.Get(key); ok {
		return slices.Clone(symbols), nil
	}

	symbols, err := c.source.DailyPicks(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting daily picks: %w", err)
	}
	c.store.Set(key, slices.Clone(symbols), c.ttl)
	return symbols, nil
}
