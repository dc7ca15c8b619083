package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestComputeTotals_EndToEndExample(t *testing.T) {
	items := []Item{
		{Quantity: 2, UnitPrice: d("5.00")},
		{Quantity: 1, UnitPrice: d("10.00")},
	}

	totals, err := ComputeTotals(items, nil, d("10"))
	require.NoError(t, err)

	assertMoney(t, "20.00", totals.Subtotal)
	assertMoney(t, "0", totals.DiscountAmount)
	assertMoney(t, "2.00", totals.TaxAmount)
	assertMoney(t, "22.00", totals.Total)
}

func TestComputeTotals_ModifiersApplyPerLine(t *testing.T) {
	items := []Item{
		{Quantity: 3, UnitPrice: d("4.50"), Modifiers: []Modifier{
			{Name: "extra cheese", PriceAdjustment: d("1.25")},
			{Name: "bacon", PriceAdjustment: d("2.00")},
		}},
	}

	totals, err := ComputeTotals(items, nil, decimal.Zero)
	require.NoError(t, err)

	// 3 × 4.50 + 1.25 + 2.00
	assertMoney(t, "16.75", totals.Subtotal)
	assertMoney(t, "16.75", totals.Total)
}

func TestComputeTotals_SubtotalIndependentOfOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		n := 1 + rng.Intn(8)
		items := make([]Item, n)
		want := decimal.Zero
		for i := range items {
			q := 1 + rng.Intn(5)
			p := decimal.New(int64(rng.Intn(10000)), -2)
			mod := decimal.New(int64(rng.Intn(300)), -2)
			items[i] = Item{Quantity: q, UnitPrice: p, Modifiers: []Modifier{{Name: "m", PriceAdjustment: mod}}}
			want = want.Add(p.Mul(decimal.NewFromInt(int64(q)))).Add(mod)
		}

		first, err := ComputeTotals(items, nil, d("8"))
		require.NoError(t, err)

		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		second, err := ComputeTotals(items, nil, d("8"))
		require.NoError(t, err)

		assert.True(t, first.Subtotal.Equal(second.Subtotal))
		assert.True(t, first.Total.Equal(second.Total))
		assertMoney(t, want.StringFixed(2), first.Subtotal)
	}
}

func TestComputeTotals_PercentageDiscount(t *testing.T) {
	items := []Item{{Quantity: 1, UnitPrice: d("80.00")}}

	for _, pct := range []string{"0", "12.5", "50", "100"} {
		totals, err := ComputeTotals(items, &Discount{Type: models.DiscountPercentage, Value: d(pct)}, d("10"))
		require.NoError(t, err, pct)

		wantDiscount := d("80.00").Mul(d(pct)).Div(decimal.NewFromInt(100)).Round(2)
		assertMoney(t, wantDiscount.String(), totals.DiscountAmount)
		assert.True(t, totals.Total.Equal(totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)))
	}
}

func TestComputeTotals_PercentageOutOfRange(t *testing.T) {
	items := []Item{{Quantity: 1, UnitPrice: d("10.00")}}

	for _, pct := range []string{"100.01", "150", "-1"} {
		_, err := ComputeTotals(items, &Discount{Type: models.DiscountPercentage, Value: d(pct)}, d("10"))
		assert.True(t, errors.Is(err, ErrInvalidDiscount), pct)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestComputeTotals_FixedDiscount(t *testing.T) {
	items := []Item{{Quantity: 2, UnitPrice: d("15.00")}}

	totals, err := ComputeTotals(items, &Discount{Type: models.DiscountFixed, Value: d("5.00")}, d("10"))
	require.NoError(t, err)

	assertMoney(t, "30.00", totals.Subtotal)
	assertMoney(t, "5.00", totals.DiscountAmount)
	assertMoney(t, "2.50", totals.TaxAmount)
	assertMoney(t, "27.50", totals.Total)

	_, err = ComputeTotals(items, &Discount{Type: models.DiscountFixed, Value: d("30.01")}, d("10"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputeTotals(items, &Discount{Type: models.DiscountFixed, Value: d("-1")}, d("10"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	totals, err = ComputeTotals(items, &Discount{Type: models.DiscountFixed, Value: d("30.00")}, d("10"))
	require.NoError(t, err)
	assertMoney(t, "0", totals.Total)
}

func TestComputeTotals_UnknownDiscountType(t *testing.T) {
	items := []Item{{Quantity: 1, UnitPrice: d("10.00")}}

	_, err := ComputeTotals(items, &Discount{Type: "bogo", Value: d("1")}, d("10"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestComputeTotals_RoundsHalfUp(t *testing.T) {
	// 3.35 × 10% = 0.335 -> 0.34
	items := []Item{{Quantity: 1, UnitPrice: d("3.35")}}

	totals, err := ComputeTotals(items, nil, d("10"))
	require.NoError(t, err)

	assertMoney(t, "0.34", totals.TaxAmount)
	assertMoney(t, "3.69", totals.Total)
}

func TestComputeTotals_TotalInvariantHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 100; run++ {
		items := []Item{
			{Quantity: 1 + rng.Intn(4), UnitPrice: decimal.New(int64(rng.Intn(5000)), -2)},
			{Quantity: 1 + rng.Intn(4), UnitPrice: decimal.New(int64(rng.Intn(5000)), -2)},
		}
		disc := &Discount{Type: models.DiscountPercentage, Value: decimal.New(int64(rng.Intn(10001)), -2)}
		rate := decimal.New(int64(rng.Intn(2500)), -2)

		totals, err := ComputeTotals(items, disc, rate)
		require.NoError(t, err)

		assert.True(t, totals.Total.Equal(totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)))
		assert.LessOrEqual(t, totals.Total.Exponent(), int32(0))
		assert.GreaterOrEqual(t, totals.Total.Exponent(), int32(-2))
	}
}

func TestValidateItems(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
	}{
		{"empty", nil},
		{"zero quantity", []Item{{Quantity: 0, UnitPrice: d("1")}}},
		{"negative quantity", []Item{{Quantity: -2, UnitPrice: d("1")}}},
		{"negative price", []Item{{Quantity: 1, UnitPrice: d("-0.01")}}},
		{"negative modifier", []Item{{Quantity: 1, UnitPrice: d("1"), Modifiers: []Modifier{{Name: "x", PriceAdjustment: d("-1")}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateItems(tc.items)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	assert.NoError(t, ValidateItems([]Item{{Quantity: 1, UnitPrice: decimal.Zero}}))
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 1, Priority(d("49.99")))
	assert.Equal(t, 5, Priority(d("50")))
	assert.Equal(t, 10, Priority(d("100.01")))
}
