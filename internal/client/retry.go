package client

import (
	"context"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RetryPolicy controls how many times a request is attempted and how long
// the client waits between attempts. Delays grow as BaseDelay × Factor^n,
// capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	Factor       float64
	MaxDelay     time.Duration
	NonRetryable []int
}

// DefaultRetryPolicy retries transport failures, 429 and 5xx responses.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   200 * time.Millisecond,
	Factor:      2,
	MaxDelay:    2 * time.Second,
	NonRetryable: []int{
		fiber.StatusNotImplemented,
		fiber.StatusHTTPVersionNotSupported,
	},
}

// NoRetry makes exactly one attempt.
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait before attempt n+1, where n starts at 1.
func (p RetryPolicy) Delay(n int) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(n-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retryable reports whether a response with the given status (0 when no
// response arrived) is worth another attempt.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.NonRetryable {
		if s == status {
			return false
		}
	}
	return status == 0 || status == fiber.StatusTooManyRequests || status >= 500
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
