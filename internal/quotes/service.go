package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/price"
)

// Symbols lists the symbols worth keeping warm.
type Symbols interface {
	Symbols() []domain.Symbol
}

// Prices resolves quotes through the shared cache.
type Prices interface {
	GetPrices(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]price.Result
	Warm(quotes []domain.PriceQuote) int
	Currency() string
}

// Service refreshes held symbols and archives their quotes.
type Service struct {
	symbols Symbols
	prices  Prices
	repo    Repository
}

// NewService creates a quote service. repo may be nil, in which case
// quotes are refreshed but not archived.
func NewService(symbols Symbols, prices Prices, repo Repository) *Service {
	return &Service{symbols: symbols, prices: prices, repo: repo}
}

// FetchAndStoreQuotes resolves every held symbol and archives the fresh
// results. Stale fallbacks are not archived since the archive already holds
// something at least as new. Per-symbol failures are joined into the
// returned error; the remaining symbols are still processed.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	symbols := lo.Uniq(s.symbols.Symbols())
	if len(symbols) == 0 {
		return nil
	}

	results := s.prices.GetPrices(ctx, symbols)

	var errs []error
	stored := 0
	for _, sym := range symbols {
		res := results[sym]
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		if res.Quote.Stale || s.repo == nil {
			continue
		}
		if err := s.repo.SaveQuote(ctx, res.Quote); err != nil {
			errs = append(errs, fmt.Errorf("storing quote for %s: %w", sym, err))
			continue
		}
		stored++
	}

	slog.Debug("Quotes: refresh finished", "symbols", len(symbols), "stored", stored, "failed", len(errs))
	return errors.Join(errs...)
}

// WarmFromArchive loads archived quotes into the price cache.
func (s *Service) WarmFromArchive(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	archived, err := s.repo.GetAllQuotes(ctx, s.prices.Currency())
	if err != nil {
		return 0, fmt.Errorf("loading archived quotes: %w", err)
	}
	return s.prices.Warm(archived), nil
}
