// Package price resolves symbols to current quotes through a TTL cache,
// coalescing concurrent upstream fetches per symbol.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/coinfolio/internal/cache"
	"github.com/mtlprog/coinfolio/internal/coingecko"
	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/metrics"
)

const metricsName = "price"

// Directory resolves a symbol to the upstream asset id.
type Directory interface {
	Resolve(ctx context.Context, symbol string) string
}

// Upstream fetches the price of one asset id.
type Upstream interface {
	FetchSimplePrice(ctx context.Context, id, vsCurrency string) (coingecko.SimplePrice, error)
}

// Service implements cached, coalesced price lookups.
type Service struct {
	directory Directory
	upstream  Upstream
	currency  string
	cache     *cache.Cache[domain.Symbol, domain.PriceQuote]
	group     singleflight.Group
	now       func() time.Time
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// NewService creates a price Service whose quotes stay fresh for ttl.
func NewService(directory Directory, upstream Upstream, currency string, ttl time.Duration, opts ...Option) *Service {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		directory: directory,
		upstream:  upstream,
		currency:  currency,
		cache:     cache.New[domain.Symbol, domain.PriceQuote](ttl, cache.WithClock(o.now)),
		now:       o.now,
	}
}

// Currency returns the quote currency.
func (s *Service) Currency() string {
	return s.currency
}

// GetPrice returns the quote for symbol. A fresh cached quote is returned
// without touching the directory or the network. Otherwise the caller joins
// the in-flight fetch for the symbol or starts one. When the fetch fails and
// an expired quote exists, that quote is returned with Stale set.
func (s *Service) GetPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	sym, err := domain.ParseSymbol(symbol)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	if entry, ok := s.cache.GetFresh(sym); ok {
		metrics.RecordCacheLookup(metricsName, "hit")
		return entry.Value, nil
	}
	metrics.RecordCacheLookup(metricsName, "miss")

	// The fetch is shared by every caller of this symbol, so it must not
	// inherit one caller's cancellation. The upstream client bounds it.
	ch := s.group.DoChan(string(sym), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), sym)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordCoalesced(metricsName)
		}
		if res.Err != nil {
			return domain.PriceQuote{}, res.Err
		}
		return res.Val.(domain.PriceQuote), nil
	case <-ctx.Done():
		return domain.PriceQuote{}, fmt.Errorf("waiting for %s price: %w", sym, ctx.Err())
	}
}

// fetch runs once per symbol at a time, as the owner of the in-flight slot.
func (s *Service) fetch(ctx context.Context, sym domain.Symbol) (domain.PriceQuote, error) {
	// A fetch that completed between the caller's cache check and joining
	// the group has already stored a newer entry.
	if entry, ok := s.cache.GetFresh(sym); ok {
		return entry.Value, nil
	}

	id := s.directory.Resolve(ctx, string(sym))

	p, err := s.upstream.FetchSimplePrice(ctx, id, s.currency)
	if err != nil {
		return s.fallback(sym, id, err)
	}

	quote := domain.PriceQuote{
		Symbol:    sym,
		ID:        id,
		Price:     p.Price,
		Change24h: p.Change24h,
		Currency:  s.currency,
		FetchedAt: s.now(),
	}
	s.cache.PutAt(sym, quote, quote.FetchedAt)
	return quote, nil
}

// fallback serves the expired quote for sym, if any, after a failed fetch.
func (s *Service) fallback(sym domain.Symbol, id string, fetchErr error) (domain.PriceQuote, error) {
	if entry, ok := s.cache.Get(sym); ok {
		metrics.RecordCacheLookup(metricsName, "stale")
		slog.Warn("price: serving stale quote", "symbol", sym, "id", id, "age", s.cache.Age(entry), "error", fetchErr)
		quote := entry.Value
		quote.Stale = true
		return quote, nil
	}

	if errors.Is(fetchErr, domain.ErrNotFound) {
		return domain.PriceQuote{}, fmt.Errorf("price for %s (id %s): %w", sym, id, fetchErr)
	}
	if !errors.Is(fetchErr, domain.ErrUpstreamUnavailable) {
		fetchErr = fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, fetchErr)
	}
	return domain.PriceQuote{}, fmt.Errorf("price for %s (id %s): %w", sym, id, fetchErr)
}

// Result is the outcome of one symbol in a batch lookup.
type Result struct {
	Quote domain.PriceQuote
	Err   error
}

// GetPrices resolves symbols concurrently. Results are keyed by canonical
// symbol; a failed symbol carries its error instead of failing the batch.
func (s *Service) GetPrices(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]Result {
	results := make(map[domain.Symbol]Result, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := s.GetPrice(ctx, string(sym))
			mu.Lock()
			results[domain.NormalizeSymbol(string(sym))] = Result{Quote: q, Err: err}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// Warm seeds the cache with previously stored quotes at their original
// fetch time. Symbols that already have a newer entry are left alone.
func (s *Service) Warm(quotes []domain.PriceQuote) int {
	n := 0
	for _, q := range quotes {
		sym := domain.NormalizeSymbol(string(q.Symbol))
		if sym == "" || q.Currency != s.currency {
			continue
		}
		if existing, ok := s.cache.Get(sym); ok && !existing.FetchedAt.Before(q.FetchedAt) {
			continue
		}
		q.Symbol = sym
		q.Stale = false
		s.cache.PutAt(sym, q, q.FetchedAt)
		n++
	}
	return n
}
