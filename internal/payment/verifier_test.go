package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2200), toMinorUnits(d("22")))
	assert.Equal(t, int64(2501), toMinorUnits(d("25.005")))
	assert.Equal(t, int64(1), toMinorUnits(d("0.01")))
}

func TestCheckIntent(t *testing.T) {
	ok := &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 2500, Currency: "try"}
	assert.NoError(t, checkIntent(ok, d("25.00"), "TRY"))

	pending := &stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusProcessing, AmountReceived: 0, Currency: "try"}
	assert.ErrorIs(t, checkIntent(pending, d("25.00"), "TRY"), ErrCardNotVerified)

	short := &stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 2400, Currency: "try"}
	assert.ErrorIs(t, checkIntent(short, d("25.00"), "TRY"), ErrCardNotVerified)

	otherCurrency := &stripe.PaymentIntent{ID: "pi_4", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 2500, Currency: "eur"}
	assert.ErrorIs(t, checkIntent(otherCurrency, d("25.00"), "TRY"), ErrCardNotVerified)
}

func TestIntentParams_CarriesCallerContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	params := intentParams(ctx)
	assert.Equal(t, ctx, params.Context)

	deadline, ok := params.Context.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}
