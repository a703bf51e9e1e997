package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Symbol is a trading symbol in canonical (uppercase) form.
type Symbol string

const maxSymbolLength = 20

var symbolPattern = regexp.MustCompile(`^[A-Z0-9._-]+$`)

// NormalizeSymbol trims surrounding whitespace and uppercases s.
// It does not validate; use ParseSymbol at trust boundaries.
func NormalizeSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseSymbol normalizes s and rejects empty, overlong or malformed symbols.
func ParseSymbol(s string) (Symbol, error) {
	sym := NormalizeSymbol(s)
	if sym == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if len(sym) > maxSymbolLength {
		return "", fmt.Errorf("%w: symbol %q exceeds %d characters", ErrValidation, sym, maxSymbolLength)
	}
	if !symbolPattern.MatchString(string(sym)) {
		return "", fmt.Errorf("%w: symbol %q contains invalid characters", ErrValidation, sym)
	}
	return sym, nil
}

// String returns the symbol text.
func (s Symbol) String() string { return string(s) }

// Lower returns the lowercase form, which doubles as the last-resort upstream id.
func (s Symbol) Lower() string { return strings.ToLower(string(s)) }

// AssetRecord is one entry of the upstream bulk market listing.
type AssetRecord struct {
	ID           string  `json:"id"`
	Symbol       Symbol  `json:"symbol"`
	Name         string  `json:"name"`
	Image        string  `json:"image,omitempty"`
	CurrentPrice float64 `json:"currentPrice"`
	Change24h    float64 `json:"change24h"`
}

// CoinSummary is the public projection of an AssetRecord served on /coins.
type CoinSummary struct {
	Symbol Symbol `json:"symbol"`
	Name   string `json:"name"`
	ID     string `json:"id"`
	Image  string `json:"image,omitempty"`
}

// Summary projects the record for listing endpoints.
func (a AssetRecord) Summary() CoinSummary {
	return CoinSummary{Symbol: a.Symbol, Name: a.Name, ID: a.ID, Image: a.Image}
}
