// Package pricing computes order totals. It has no dependencies on storage
// and every function is pure.
package pricing

import (
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
	"restoran-pos/internal/money"

	"github.com/shopspring/decimal"
)

var ErrInvalidDiscount = apperr.New(apperr.KindValidation, "invalid_discount", "invalid discount")

var hundred = decimal.NewFromInt(100)

type Modifier struct {
	Name            string
	PriceAdjustment decimal.Decimal
}

type Item struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Modifiers []Modifier
}

// LineTotal is quantity × unit price plus the item's modifier adjustments.
// Adjustments apply once per line, not per unit.
func (i Item) LineTotal() decimal.Decimal {
	total := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	for _, m := range i.Modifiers {
		total = total.Add(m.PriceAdjustment)
	}
	return total
}

type Discount struct {
	Type  models.DiscountType
	Value decimal.Decimal
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// ValidateItems checks shape only: non-empty list, positive quantities and
// non-negative prices.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return apperr.Validation("order must have at least one item")
	}
	for i, it := range items {
		if it.Quantity <= 0 {
			return apperr.Validation("item %d: quantity must be positive", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return apperr.Validation("item %d: unit price must not be negative", i+1)
		}
		for _, m := range it.Modifiers {
			if m.PriceAdjustment.IsNegative() {
				return apperr.Validation("item %d: modifier %q price must not be negative", i+1, m.Name)
			}
		}
	}
	return nil
}

// ValidateDiscount checks the discount against the subtotal it applies to.
func ValidateDiscount(d *Discount, subtotal decimal.Decimal) error {
	if d == nil || d.Type == models.DiscountNone {
		return nil
	}
	switch d.Type {
	case models.DiscountPercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidDiscount)
		}
	case models.DiscountFixed:
		if d.Value.IsNegative() {
			return fmt.Errorf("%w: fixed discount must not be negative", ErrInvalidDiscount)
		}
		if d.Value.GreaterThan(subtotal) {
			return fmt.Errorf("%w: discount cannot exceed subtotal", ErrInvalidDiscount)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidDiscount, d.Type)
	}
	return nil
}

// ComputeTotals rounds each component to the minor unit and derives the total
// from the rounded values, so subtotal - discount + tax == total holds exactly
// on what gets stored.
func ComputeTotals(items []Item, discount *Discount, taxRatePercent decimal.Decimal) (Totals, error) {
	if err := ValidateItems(items); err != nil {
		return Totals{}, err
	}
	if taxRatePercent.IsNegative() || taxRatePercent.GreaterThan(hundred) {
		return Totals{}, apperr.Validation("tax rate must be between 0 and 100")
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = money.Round(subtotal)

	if err := ValidateDiscount(discount, subtotal); err != nil {
		return Totals{}, err
	}

	discountAmount := decimal.Zero
	if discount != nil {
		switch discount.Type {
		case models.DiscountPercentage:
			discountAmount = money.Round(money.Percent(subtotal, discount.Value))
		case models.DiscountFixed:
			discountAmount = money.Round(discount.Value)
		}
	}

	taxable := subtotal.Sub(discountAmount)
	taxAmount := money.Round(money.Percent(taxable, taxRatePercent))

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		Total:          taxable.Add(taxAmount),
	}, nil
}

// Priority ranks orders for the kitchen: larger tickets first.
func Priority(total decimal.Decimal) int {
	switch {
	case total.GreaterThan(decimal.NewFromInt(100)):
		return 10
	case total.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return 5
	default:
		return 1
	}
}
