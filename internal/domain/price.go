package domain

import "time"

// PriceQuote is the resolved price of one symbol in the configured currency.
type PriceQuote struct {
	Symbol    Symbol    `json:"symbol"`
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change24h"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetchedAt"`
	// Stale is set when the quote was served from an expired cache entry
	// because the upstream refresh failed.
	Stale bool `json:"stale,omitempty"`
}
