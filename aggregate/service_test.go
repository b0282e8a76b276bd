package aggregate_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nanzhong/tickerbot/aggregate"
	"github.com/nanzhong/tickerbot/cache"
	"github.com/nanzhong/tickerbot/market"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func newMockProvider(ctrl *gomock.Controller, name string) *MockProvider {
	p := NewMockProvider(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	return p
}

var aapl = market.Quote{
	Symbol:        "AAPL",
	Price:         172.35,
	Change:        -1.2,
	ChangePercent: -0.69,
	DailyHigh:     174.3,
	DailyLow:      171.96,
	Volume:        58405000,
	LastUpdated:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	Source:        "primary",
}

func TestGetQuoteCachesWithinTTL(t *testing.T) {
	t.Parallel()

	// Arrange: a single provider that may be called exactly once
	ctrl := gomock.NewController(t)
	primary := newMockProvider(ctrl, "primary")
	primary.EXPECT().Quote(gomock.Any(), "AAPL").Return(aapl, nil).Times(1)

	now := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	store := cache.NewMemory[market.Quote](0)
	store.Now = func() time.Time { return now }

	svc := aggregate.NewService([]market.Provider{primary}, store, aggregate.WithLogger(quietLogger()))

	// Act: ask twice, the second time with a messy symbol
	first, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	second, err := svc.GetQuote(context.Background(), " aapl ")
	require.NoError(t, err)

	// Assert: both answers are identical
	assert.Equal(t, first, second)
	assert.Equal(t, aapl, first)
}

func TestGetQuoteRefetchesAfterTTL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	primary := newMockProvider(ctrl, "primary")
	primary.EXPECT().Quote(gomock.Any(), "AAPL").Return(aapl, nil).Times(2)

	now := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	store := cache.NewMemory[market.Quote](0)
	store.Now = func() time.Time { return now }

	ttls := cache.DefaultTTLs()
	ttls.Stock = time.Minute
	svc := aggregate.NewService([]market.Provider{primary}, store,
		aggregate.WithTTLs(ttls),
		aggregate.WithLogger(quietLogger()),
	)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
}

func TestGetQuoteFallsBack(t *testing.T) {
	t.Parallel()

	kinds := []market.ErrorKind{
		market.KindRateLimited,
		market.KindNotFound,
		market.KindNetwork,
		market.KindParse,
		market.KindUnknown,
	}
	for _, kind := range kinds {
		kind := kind // per-iteration copy (Go <1.22 loop semantics)
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			// Arrange: the primary fails with kind, the secondary succeeds
			ctrl := gomock.NewController(t)
			primary := newMockProvider(ctrl, "primary")
			secondary := newMockProvider(ctrl, "secondary")

			fromSecondary := aapl
			fromSecondary.Source = "secondary"

			gomock.InOrder(
				primary.EXPECT().Quote(gomock.Any(), "AAPL").Return(market.Quote{}, market.NewError("primary", kind, "")),
				secondary.EXPECT().Quote(gomock.Any(), "AAPL").Return(fromSecondary, nil),
			)

			svc := aggregate.NewService([]market.Provider{primary, secondary}, cache.NewMemory[market.Quote](0),
				aggregate.WithLogger(quietLogger()))

			// Act
			q, err := svc.GetQuote(context.Background(), "AAPL")

			// Assert: the secondary's quote is returned with no error
			require.NoError(t, err)
			assert.Equal(t, "secondary", q.Source)
		})
	}
}

func TestGetQuoteAllProvidersFailed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	primary := newMockProvider(ctrl, "primary")
	secondary := newMockProvider(ctrl, "secondary")
	tertiary := newMockProvider(ctrl, "tertiary")

	primary.EXPECT().Quote(gomock.Any(), "ZZZZ").Return(market.Quote{}, market.NewError("primary", market.KindRateLimited, "slow down"))
	secondary.EXPECT().Quote(gomock.Any(), "ZZZZ").Return(market.Quote{}, market.NewError("secondary", market.KindNotFound, ""))
	// Errors that are not ProviderErrors are classified on the way in.
	tertiary.EXPECT().Quote(gomock.Any(), "ZZZZ").Return(market.Quote{}, errors.New("boom"))

	store := cache.NewMemory[market.Quote](0)
	svc := aggregate.NewService([]market.Provider{primary, secondary, tertiary}, store, aggregate.WithLogger(quietLogger()))

	_, err := svc.GetQuote(context.Background(), "zzzz")

	var failed *aggregate.AllProvidersFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "ZZZZ", failed.Target)
	require.Len(t, failed.Errors, 3)
	assert.Equal(t, []market.ErrorKind{market.KindRateLimited, market.KindNotFound, market.KindUnknown}, failed.Kinds())

	var pe *market.ProviderError
	require.ErrorAs(t, failed.Errors[2], &pe)
	assert.Equal(t, "tertiary", pe.Provider)

	assert.False(t, failed.AllKind(market.KindRateLimited))
	assert.Equal(t, 0, store.Len())
}

func TestAllProvidersFailedAllKind(t *testing.T) {
	t.Parallel()

	err := &aggregate.AllProvidersFailedError{
		Op:     "quote",
		Target: "AAPL",
		Errors: []error{
			market.NewError("a", market.KindRateLimited, ""),
			market.NewError("b", market.KindRateLimited, ""),
		},
	}
	assert.True(t, err.AllKind(market.KindRateLimited))
	assert.False(t, err.AllKind(market.KindNotFound))
	assert.Equal(t, "quote AAPL: all providers failed: [a: rate_limited; b: rate_limited]", err.Error())

	assert.False(t, (&aggregate.AllProvidersFailedError{}).AllKind(market.KindNotFound))
}

func TestGetQuoteEmptySymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	primary := newMockProvider(ctrl, "primary")
	primary.EXPECT().Quote(gomock.Any(), gomock.Any()).Times(0)

	svc := aggregate.NewService([]market.Provider{primary}, cache.NewMemory[market.Quote](0), aggregate.WithLogger(quietLogger()))

	_, err := svc.GetQuote(context.Background(), "   ")
	require.ErrorIs(t, err, aggregate.ErrEmptySymbol)
}

func TestSearchSymbols(t *testing.T) {
	t.Parallel()

	apple := []market.SearchResult{{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}}

	t.Run("first non-empty wins", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		primary := newMockProvider(ctrl, "primary")
		secondary := newMockProvider(ctrl, "secondary")
		tertiary := newMockProvider(ctrl, "tertiary")

		gomock.InOrder(
			primary.EXPECT().Search(gomock.Any(), "apple").Return(nil, market.NewError("primary", market.KindRateLimited, "")),
			secondary.EXPECT().Search(gomock.Any(), "apple").Return([]market.SearchResult{}, nil),
			tertiary.EXPECT().Search(gomock.Any(), "apple").Return(apple, nil),
		)

		svc := aggregate.NewService([]market.Provider{primary, secondary, tertiary}, cache.NewMemory[market.Quote](0),
			aggregate.WithLogger(quietLogger()))

		assert.Equal(t, apple, svc.SearchSymbols(context.Background(), "apple"))
	})

	t.Run("stops at first match", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		primary := newMockProvider(ctrl, "primary")
		secondary := newMockProvider(ctrl, "secondary")

		primary.EXPECT().Search(gomock.Any(), "apple").Return(apple, nil)
		secondary.EXPECT().Search(gomock.Any(), gomock.Any()).Times(0)

		svc := aggregate.NewService([]market.Provider{primary, secondary}, cache.NewMemory[market.Quote](0),
			aggregate.WithLogger(quietLogger()))

		assert.Equal(t, apple, svc.SearchSymbols(context.Background(), "apple"))
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		primary := newMockProvider(ctrl, "primary")
		secondary := newMockProvider(ctrl, "secondary")

		primary.EXPECT().Search(gomock.Any(), "zzzz").Return(nil, errors.New("down"))
		secondary.EXPECT().Search(gomock.Any(), "zzzz").Return(nil, nil)

		svc := aggregate.NewService([]market.Provider{primary, secondary}, cache.NewMemory[market.Quote](0),
			aggregate.WithLogger(quietLogger()))

		results := svc.SearchSymbols(context.Background(), "zzzz")
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestProviders(t *testing.T) {
	t.Parallel()

	svc := aggregate.NewService([]market.Provider{
		&market.FakeProvider{ProviderName: "a"},
		&market.FakeProvider{ProviderName: "b"},
	}, cache.NewMemory[market.Quote](0))

	assert.Equal(t, []string{"a", "b"}, svc.Providers())
}
