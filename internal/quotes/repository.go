// Package quotes archives the last known quote per symbol in PostgreSQL so
// that stale fallback survives a restart.
package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// Repository defines persistent storage for archived quotes.
type Repository interface {
	SaveQuote(ctx context.Context, q domain.PriceQuote) error
	GetAllQuotes(ctx context.Context, currency string) ([]domain.PriceQuote, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// SaveQuote upserts the quote for its (symbol, currency) pair. An older
// quote never replaces a newer one.
func (r *PgRepository) SaveQuote(ctx context.Context, q domain.PriceQuote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO price_quotes (symbol, currency, coin_id, price, change_24h, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (symbol, currency) DO UPDATE
		 SET coin_id = $3, price = $4, change_24h = $5, fetched_at = $6
		 WHERE price_quotes.fetched_at <= $6`,
		string(q.Symbol), q.Currency, q.ID,
		domain.SafeFromFloat(q.Price), domain.SafeFromFloat(q.Change24h).Round(8),
		q.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Symbol, err)
	}
	return nil
}

// GetAllQuotes returns every archived quote in currency.
func (r *PgRepository) GetAllQuotes(ctx context.Context, currency string) ([]domain.PriceQuote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, coin_id, price, change_24h, fetched_at
		 FROM price_quotes WHERE currency = $1 ORDER BY symbol`, currency)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []domain.PriceQuote
	for rows.Next() {
		var (
			sym, id       string
			price, change decimal.Decimal
			fetchedAt     time.Time
		)
		if err := rows.Scan(&sym, &id, &price, &change, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, domain.PriceQuote{
			Symbol:    domain.Symbol(sym),
			ID:        id,
			Price:     price.InexactFloat64(),
			Change24h: change.InexactFloat64(),
			Currency:  currency,
			FetchedAt: fetchedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotes: %w", err)
	}
	return quotes, nil
}
