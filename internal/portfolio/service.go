package portfolio

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/price"
)

// Holdings is the subset of the holdings store used for valuation.
type Holdings interface {
	List() []domain.Holding
}

// Prices resolves quotes for many symbols at once.
type Prices interface {
	GetPrices(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]price.Result
	Currency() string
}

// Catalog supplies display metadata for a symbol.
type Catalog interface {
	Lookup(ctx context.Context, symbol string) (domain.AssetRecord, bool)
}

// Service prices the holdings list.
type Service struct {
	holdings Holdings
	prices   Prices
	catalog  Catalog
}

// NewService creates a valuation service. catalog may be nil.
func NewService(holdings Holdings, prices Prices, catalog Catalog) *Service {
	return &Service{holdings: holdings, prices: prices, catalog: catalog}
}

// Valuate prices every holding. A holding whose quote cannot be resolved
// keeps a zero value and carries the error text; the total covers the
// priced rows only.
func (s *Service) Valuate(ctx context.Context) domain.Valuation {
	held := s.holdings.List()
	symbols := lo.Map(held, func(h domain.Holding, _ int) domain.Symbol { return h.Symbol })
	results := s.prices.GetPrices(ctx, symbols)

	rows := lo.Map(held, func(h domain.Holding, _ int) domain.HoldingValuation {
		return s.row(ctx, h, results[h.Symbol])
	})

	failed := lo.CountBy(rows, func(r domain.HoldingValuation) bool { return r.Error != "" })
	if failed > 0 {
		slog.Warn("Valuation: some holdings could not be priced", "failed", failed, "total", len(rows))
	}

	total := lo.Reduce(rows, func(acc decimal.Decimal, r domain.HoldingValuation, _ int) decimal.Decimal {
		return domain.SafeSum(acc, r.Value)
	}, decimal.Zero)

	return domain.Valuation{
		Currency: s.prices.Currency(),
		Holdings: rows,
		Total:    total,
		Complete: failed == 0,
	}
}

func (s *Service) row(ctx context.Context, h domain.Holding, res price.Result) domain.HoldingValuation {
	row := domain.HoldingValuation{
		Symbol: h.Symbol,
		Name:   string(h.Symbol),
		Amount: h.Amount,
		Value:  decimal.Zero,
	}
	if s.catalog != nil {
		if rec, ok := s.catalog.Lookup(ctx, string(h.Symbol)); ok {
			if rec.Name != "" {
				row.Name = rec.Name
			}
			row.Image = rec.Image
		}
	}

	if res.Err != nil {
		row.Error = res.Err.Error()
		return row
	}

	row.Price = res.Quote.Price
	row.Change24h = res.Quote.Change24h
	row.Stale = res.Quote.Stale
	row.Value = domain.MultiplyWithPrecision(h.Amount, res.Quote.Price)
	return row
}
