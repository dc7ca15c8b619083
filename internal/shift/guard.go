package shift

import (
	"context"
	"fmt"

	"restoran-pos/internal/config"
	"restoran-pos/internal/logger"
)

// Guard applies the configured shift policy to order creation and payment.
type Guard struct {
	svc    *Service
	policy config.ShiftPolicy
	log    *logger.Logger
}

func NewGuard(svc *Service, policy config.ShiftPolicy, log *logger.Logger) *Guard {
	return &Guard{svc: svc, policy: policy, log: log}
}

// Check returns ErrNoActiveShift only under the require policy; under warn it
// logs and lets the operation through.
func (g *Guard) Check(ctx context.Context, staffID uint, op string) error {
	if g.policy == config.ShiftPolicyOff {
		return nil
	}

	cur, err := g.svc.Current(ctx, staffID)
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}

	if g.policy == config.ShiftPolicyRequire {
		return fmt.Errorf("%w: start a shift before %s", ErrNoActiveShift, op)
	}
	g.log.Warnf("SHIFT", "staff %d performed %s without an active shift", staffID, op)
	return nil
}
