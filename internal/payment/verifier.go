package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/money"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var ErrCardNotVerified = apperr.New(apperr.KindValidation, "card_not_verified", "card payment could not be verified")

// CardVerifier confirms that an external card charge matches the amount being
// settled. It runs before the settlement transaction.
type CardVerifier interface {
	VerifyCard(ctx context.Context, reference string, amount decimal.Decimal, currency string) error
}

// StripeVerifier treats the payment reference as a Stripe PaymentIntent id.
type StripeVerifier struct {
	client *client.API
}

func NewStripeVerifier(secretKey string) *StripeVerifier {
	return &StripeVerifier{client: client.New(secretKey, nil)}
}

func (v *StripeVerifier) VerifyCard(ctx context.Context, reference string, amount decimal.Decimal, currency string) error {
	pi, err := v.client.PaymentIntents.Get(reference, intentParams(ctx))
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode < 500 {
			return fmt.Errorf("%w: %s", ErrCardNotVerified, stripeErr.Msg)
		}
		return fmt.Errorf("stripe lookup failed: %w", err)
	}
	return checkIntent(pi, amount, currency)
}

// intentParams carries the caller's deadline into the Stripe request.
func intentParams(ctx context.Context) *stripe.PaymentIntentParams {
	return &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
}

func checkIntent(pi *stripe.PaymentIntent, amount decimal.Decimal, currency string) error {
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent %s is %s", ErrCardNotVerified, pi.ID, pi.Status)
	}
	if want := toMinorUnits(amount); pi.AmountReceived != want {
		return fmt.Errorf("%w: captured %d, expected %d", ErrCardNotVerified, pi.AmountReceived, want)
	}
	if !strings.EqualFold(string(pi.Currency), currency) {
		return fmt.Errorf("%w: currency %s, expected %s", ErrCardNotVerified, pi.Currency, currency)
	}
	return nil
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return money.Round(amount).Shift(money.MinorUnits).IntPart()
}
