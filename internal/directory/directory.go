// Package directory maps trading symbols to upstream asset ids.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/coinfolio/internal/cache"
	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/metrics"
)

const (
	listingKey  = "listing"
	metricsName = "directory"
)

// ErrRefreshBackoff is returned while refreshes are suspended after a failure
// and no listing is available.
var ErrRefreshBackoff = errors.New("listing refresh suspended after failure")

// ListingFetcher is the bulk-listing call of the upstream provider.
type ListingFetcher interface {
	FetchMarkets(ctx context.Context, vsCurrency string, perPage int) ([]domain.AssetRecord, error)
}

// Config controls listing size and refresh policy.
type Config struct {
	VSCurrency string
	PageSize   int
	// TTL is how long a fetched listing is reused without a network call.
	TTL time.Duration
	// RetryBackoff suppresses refresh attempts for this long after a failure.
	RetryBackoff time.Duration
}

// Directory resolves symbols to asset ids through an ordered strategy chain.
// The bulk listing is cached as a whole; concurrent callers that find it
// stale or absent share a single refresh.
type Directory struct {
	fetcher     ListingFetcher
	cfg         Config
	listing     *cache.Cache[string, *Listing]
	group       singleflight.Group
	lastFailure atomic.Int64
	strategies  []Strategy
	now         func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithStrategies replaces the default resolution chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(d *Directory) { d.strategies = strategies }
}

// New creates a Directory backed by fetcher.
func New(fetcher ListingFetcher, cfg Config, opts ...Option) *Directory {
	d := &Directory{
		fetcher:    fetcher,
		cfg:        cfg,
		strategies: DefaultStrategies(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.listing = cache.New[string, *Listing](cfg.TTL, cache.WithClock(d.now))
	return d
}

// Resolve returns the upstream id for symbol. It never fails: when neither
// the listing nor the static table knows the symbol, the lowercased symbol
// is returned and the price call will report it as not found.
func (d *Directory) Resolve(ctx context.Context, symbol string) string {
	sym := domain.NormalizeSymbol(symbol)

	listing, err := d.current(ctx)
	if err != nil {
		slog.Debug("directory: resolving without listing", "symbol", sym, "error", err)
	}

	for _, strategy := range d.strategies {
		if id, ok := strategy(sym, listing); ok {
			return id
		}
	}
	return sym.Lower()
}

// Lookup returns the listing record for symbol, if the listing has one.
func (d *Directory) Lookup(ctx context.Context, symbol string) (domain.AssetRecord, bool) {
	listing, _ := d.current(ctx)
	return listing.Lookup(domain.NormalizeSymbol(symbol))
}

// List returns the current listing. It fails only when no listing has ever
// been fetched and the refresh failed.
func (d *Directory) List(ctx context.Context) ([]domain.AssetRecord, error) {
	listing, err := d.current(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return listing.Records(), nil
}

// current returns the fresh listing, refreshing it when needed. On refresh
// failure the previous listing is returned, however old.
func (d *Directory) current(ctx context.Context) (*Listing, error) {
	entry, ok := d.listing.Get(listingKey)
	if ok && d.listing.IsFresh(entry) {
		metrics.RecordCacheLookup(metricsName, "hit")
		return entry.Value, nil
	}

	if d.inBackoff() {
		metrics.RecordCacheLookup(metricsName, "stale")
		if ok {
			return entry.Value, nil
		}
		return nil, ErrRefreshBackoff
	}
	metrics.RecordCacheLookup(metricsName, "miss")

	ch := d.group.DoChan(listingKey, func() (any, error) {
		return d.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordCoalesced(metricsName)
		}
		if res.Err != nil {
			if ok {
				return entry.Value, nil
			}
			return nil, res.Err
		}
		return res.Val.(*Listing), nil
	case <-ctx.Done():
		if ok {
			return entry.Value, nil
		}
		return nil, ctx.Err()
	}
}

// refresh fetches the bulk listing and replaces the cached one on success.
func (d *Directory) refresh(ctx context.Context) (*Listing, error) {
	// A refresh that completed while this caller was queueing is reused.
	if entry, ok := d.listing.GetFresh(listingKey); ok {
		return entry.Value, nil
	}

	records, err := d.fetcher.FetchMarkets(ctx, d.cfg.VSCurrency, d.cfg.PageSize)
	if err == nil && len(records) == 0 {
		err = fmt.Errorf("%w: empty market listing", domain.ErrUpstreamUnavailable)
	}
	if err != nil {
		d.lastFailure.Store(d.now().UnixNano())
		slog.Warn("directory: listing refresh failed", "error", err)
		return nil, err
	}

	listing := NewListing(records)
	d.listing.Put(listingKey, listing)
	d.lastFailure.Store(0)
	slog.Info("directory: listing refreshed", "assets", listing.Len())
	return listing, nil
}

func (d *Directory) inBackoff() bool {
	failed := d.lastFailure.Load()
	if failed == 0 || d.cfg.RetryBackoff <= 0 {
		return false
	}
	return d.now().Sub(time.Unix(0, failed)) < d.cfg.RetryBackoff
}
