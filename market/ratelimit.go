package market

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a non-blocking token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	return newTokenBucket(tokensPerSecond, burst, time.Now)
}

func newTokenBucket(tokensPerSecond float64, burst int, now func() time.Time) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		now:      now,
		tokens:   float64(burst), // start full to allow an initial burst
		last:     now(),
	}
}

// Allow takes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if that many are available. Nothing is taken otherwise.
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// QuoteCoster is implemented by providers that spend more than one upstream request
// per Quote call.
type QuoteCoster interface {
	QuoteCost() int
}

type limitedProvider struct {
	Provider
	tb        *TokenBucket
	quoteCost int
}

// WithRateLimit guards p with a local request budget of perMinute requests. When the
// budget is spent, calls fail immediately with KindRateLimited instead of waiting so
// callers can move on to another provider. A Quote costs QuoteCost tokens when p
// implements QuoteCoster. perMinute <= 0 returns p unchanged.
func WithRateLimit(p Provider, perMinute, burst int) Provider {
	if perMinute <= 0 {
		return p
	}
	cost := 1
	if c, ok := p.(QuoteCoster); ok && c.QuoteCost() > 1 {
		cost = c.QuoteCost()
	}
	if burst < cost {
		burst = cost
	}
	return &limitedProvider{Provider: p, tb: NewTokenBucket(float64(perMinute)/60.0, burst), quoteCost: cost}
}

func (l *limitedProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	if !l.tb.AllowN(l.quoteCost) {
		return Quote{}, NewError(l.Name(), KindRateLimited, "local request budget exhausted")
	}
	return l.Provider.Quote(ctx, symbol)
}

func (l *limitedProvider) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if !l.tb.Allow() {
		return nil, NewError(l.Name(), KindRateLimited, "local request budget exhausted")
	}
	return l.Provider.Search(ctx, query)
}
