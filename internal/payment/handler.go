package payment

import (
	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PayRequest struct {
	Method    models.PaymentMethod `json:"method"`
	Amount    decimal.Decimal      `json:"amount"`
	TipAmount decimal.Decimal      `json:"tip_amount"`
	Tendered  *decimal.Decimal     `json:"tendered_amount"`
	Reference string               `json:"reference"`
}

// POST /api/orders/:id/pay
func PayOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var body PayRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		res, err := svc.Pay(c.UserContext(), PayInput{
			OrderID:   uint(id),
			Method:    body.Method,
			Amount:    body.Amount,
			Tip:       body.TipAmount,
			Tendered:  body.Tendered,
			Reference: body.Reference,
			ActorID:   staffID,
		})
		metrics.RecordOperation("payment", err == nil)
		if err != nil {
			return svc.fail("pay order", err)
		}
		paid, _ := res.Payment.Amount.Add(res.Payment.TipAmount).Float64()
		metrics.RecordPayment(string(res.Payment.Method), paid)
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/orders/:id/receipt
func GetReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		receipt, data, err := svc.GetReceipt(c.UserContext(), uint(id))
		if err != nil {
			return svc.fail("get receipt", err)
		}
		return c.JSON(fiber.Map{
			"receipt": receipt,
			"data":    data,
		})
	}
}

func (s *Service) fail(op string, err error) error {
	if apperr.KindOf(err) == "" {
		s.log.Errorf("PAYMENT", "%s: %v", op, err)
	}
	return apperr.ToFiber(err)
}
