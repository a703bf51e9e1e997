package directory

import (
	"github.com/mtlprog/coinfolio/internal/domain"
)

// Listing is an immutable snapshot of the bulk market listing.
type Listing struct {
	records  []domain.AssetRecord
	bySymbol map[domain.Symbol]domain.AssetRecord
}

// NewListing indexes records by symbol. The upstream orders records by
// market cap, so when several assets share a symbol the first one wins.
func NewListing(records []domain.AssetRecord) *Listing {
	bySymbol := make(map[domain.Symbol]domain.AssetRecord, len(records))
	for _, r := range records {
		if _, dup := bySymbol[r.Symbol]; dup {
			continue
		}
		bySymbol[r.Symbol] = r
	}
	return &Listing{records: records, bySymbol: bySymbol}
}

// Lookup returns the record for sym. It is safe to call on a nil Listing.
func (l *Listing) Lookup(sym domain.Symbol) (domain.AssetRecord, bool) {
	if l == nil {
		return domain.AssetRecord{}, false
	}
	rec, ok := l.bySymbol[sym]
	return rec, ok
}

// Records returns a copy of the listing in upstream order.
func (l *Listing) Records() []domain.AssetRecord {
	if l == nil {
		return nil
	}
	out := make([]domain.AssetRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}
