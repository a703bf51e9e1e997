package directory

import (
	"github.com/mtlprog/coinfolio/internal/domain"
)

// Strategy maps a canonical symbol to an upstream id using the current
// listing, which may be nil when no listing was ever obtained.
type Strategy func(sym domain.Symbol, listing *Listing) (string, bool)

// WellKnownIDs maps the symbols of major assets to their CoinGecko ids.
// It is consulted when the bulk listing is unavailable or lacks the symbol.
var WellKnownIDs = map[domain.Symbol]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"XLM":   "stellar",
	"ATOM":  "cosmos",
	"XMR":   "monero",
	"DAI":   "dai",
	"SHIB":  "shiba-inu",
}

// DefaultStrategies is the resolution chain: bulk listing, then the
// well-known table, then the lowercased symbol itself.
func DefaultStrategies() []Strategy {
	return []Strategy{
		ListingStrategy,
		StaticStrategy(WellKnownIDs),
		IdentityStrategy,
	}
}

// ListingStrategy matches the symbol against the bulk listing.
func ListingStrategy(sym domain.Symbol, listing *Listing) (string, bool) {
	rec, ok := listing.Lookup(sym)
	if !ok {
		return "", false
	}
	return rec.ID, true
}

// StaticStrategy matches the symbol against a fixed table.
func StaticStrategy(table map[domain.Symbol]string) Strategy {
	return func(sym domain.Symbol, _ *Listing) (string, bool) {
		id, ok := table[sym]
		return id, ok
	}
}

// IdentityStrategy always succeeds with the lowercased symbol.
func IdentityStrategy(sym domain.Symbol, _ *Listing) (string, bool) {
	return sym.Lower(), true
}
