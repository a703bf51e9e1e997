package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/coinfolio/internal/domain"
)

type marketRecord struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// SimplePrice is the per-id result of the simple-price endpoint.
type SimplePrice struct {
	Price     float64
	Change24h float64
}

// FetchMarkets returns the first page of the market listing ordered by market cap.
// Records without an id or symbol are dropped; null numbers become zero.
func (c *Client) FetchMarkets(ctx context.Context, vsCurrency string, perPage int) ([]domain.AssetRecord, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	var raw []marketRecord
	if err := c.getJSON(ctx, "markets", "/coins/markets?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetching market listing: %w", err)
	}

	return lo.FilterMap(raw, func(r marketRecord, _ int) (domain.AssetRecord, bool) {
		if r.ID == "" || strings.TrimSpace(r.Symbol) == "" {
			return domain.AssetRecord{}, false
		}
		return domain.AssetRecord{
			ID:           r.ID,
			Symbol:       domain.NormalizeSymbol(r.Symbol),
			Name:         r.Name,
			Image:        r.Image,
			CurrentPrice: lo.FromPtr(r.CurrentPrice),
			Change24h:    lo.FromPtr(r.PriceChangePercentage24h),
		}, true
	}), nil
}

// FetchSimplePrice returns the price and 24h change of one asset id.
// A response without a price for id is reported as domain.ErrNotFound.
func (c *Client) FetchSimplePrice(ctx context.Context, id, vsCurrency string) (SimplePrice, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vsCurrency)
	q.Set("include_24hr_change", "true")

	// Parse: {"bitcoin":{"usd":45000,"usd_24h_change":-1.2}}
	var raw map[string]map[string]*float64
	if err := c.getJSON(ctx, "simple_price", "/simple/price?"+q.Encode(), &raw); err != nil {
		return SimplePrice{}, fmt.Errorf("fetching price for %s: %w", id, err)
	}

	fields, ok := raw[id]
	if !ok {
		return SimplePrice{}, fmt.Errorf("%w: no price data for %s", domain.ErrNotFound, id)
	}
	price := fields[vsCurrency]
	if price == nil {
		return SimplePrice{}, fmt.Errorf("%w: no %s price for %s", domain.ErrNotFound, vsCurrency, id)
	}

	return SimplePrice{
		Price:     *price,
		Change24h: lo.FromPtr(fields[vsCurrency+"_24h_change"]),
	}, nil
}
