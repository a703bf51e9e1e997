package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Holding is a user's position in one asset.
type Holding struct {
	Symbol Symbol  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// ValidateAmount rejects NaN, infinities, zero and negative amounts.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount must be a finite number", ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	return nil
}

// HoldingValuation is a holding priced at its current quote.
type HoldingValuation struct {
	Symbol    Symbol          `json:"symbol"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Amount    float64         `json:"amount"`
	Price     float64         `json:"price"`
	Change24h float64         `json:"change24h"`
	Value     decimal.Decimal `json:"value"`
	Stale     bool            `json:"stale,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Valuation is the priced view of the whole holdings list.
type Valuation struct {
	Currency string             `json:"currency"`
	Holdings []HoldingValuation `json:"holdings"`
	Total    decimal.Decimal    `json:"total"`
	// Complete is false when at least one holding could not be priced.
	Complete bool `json:"complete"`
}
