// Package export writes the portfolio valuation to a spreadsheet.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// SheetName is the sheet that receives the valuation table.
const SheetName = "VALUATION"

// Writer writes a valuation to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, v domain.Valuation) error
}

// Valuer produces the current valuation.
type Valuer interface {
	Valuate(ctx context.Context) domain.Valuation
}

// Service values the portfolio and hands the result to a Writer.
type Service struct {
	valuer Valuer
	writer Writer
}

// NewService creates a new export Service.
func NewService(valuer Valuer, writer Writer) *Service {
	return &Service{valuer: valuer, writer: writer}
}

// Export computes the valuation and writes it. The valuation is returned
// even when writing fails.
func (s *Service) Export(ctx context.Context) (domain.Valuation, error) {
	v := s.valuer.Valuate(ctx)
	if !v.Complete {
		slog.Warn("export: valuation incomplete, unpriced rows exported with zero value")
	}
	if err := s.writer.Write(ctx, v); err != nil {
		return v, fmt.Errorf("writing valuation: %w", err)
	}
	return v, nil
}

// header columns: Symbol | Name | Amount | Price | 24h % | Value | Stale | Error
var header = []any{"Symbol", "Name", "Amount", "Price", "24h %", "Value", "Stale", "Error"}

// buildRows lays the valuation out as a header, one row per holding and a
// trailing total row.
func buildRows(v domain.Valuation) [][]any {
	data := make([][]any, 0, len(v.Holdings)+2)
	data = append(data, header)

	for _, h := range v.Holdings {
		var priceCell any
		if h.Error == "" {
			priceCell = h.Price
		}
		data = append(data, []any{
			string(h.Symbol),
			h.Name,
			h.Amount,
			priceCell,
			h.Change24h,
			toFloat(h.Value),
			h.Stale,
			h.Error,
		})
	}

	data = append(data, []any{"TOTAL", v.Currency, nil, nil, nil, toFloat(v.Total), nil, nil})
	return data
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
