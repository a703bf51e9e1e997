package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const valuePrecision = 8

// SafeFromFloat converts f to a decimal, returning zero for NaN or infinities.
func SafeFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// MultiplyWithPrecision multiplies amount by price and rounds to 8 decimal places.
func MultiplyWithPrecision(amount, price float64) decimal.Decimal {
	return SafeFromFloat(amount).Mul(SafeFromFloat(price)).Round(valuePrecision)
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}
