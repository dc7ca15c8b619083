// Package money holds the helpers around decimal.Decimal, the only type used
// for monetary amounts from pricing through persistence to receipts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fractional digits kept for persisted amounts.
const MinorUnits = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half-up (away from zero for the non-negative amounts we store)
// to the currency's minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// Percent returns base × rate / 100 without rounding.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// Exact reports whether d has no digits below the minor unit.
func Exact(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(MinorUnits)
}

func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
