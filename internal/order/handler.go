package order

import (
	"fmt"
	"strings"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/pricing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type DiscountRequest struct {
	Type  models.DiscountType `json:"type"`
	Value decimal.Decimal     `json:"value"`
}

type CreateOrderRequest struct {
	OrderType       models.OrderType `json:"order_type"`
	TableID         *uint            `json:"table_id"`
	Items           []ItemInput      `json:"items"`
	Discount        *DiscountRequest `json:"discount"`
	CustomerName    string           `json:"customer_name"`
	CustomerPhone   string           `json:"customer_phone"`
	DeliveryAddress string           `json:"delivery_address"`
	Notes           string           `json:"notes"`
	SendToKitchen   bool             `json:"send_to_kitchen"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
	Notes  string             `json:"notes"`
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := CreateInput{
			ServerID:        staffID,
			OrderType:       body.OrderType,
			TableID:         body.TableID,
			Items:           body.Items,
			CustomerName:    body.CustomerName,
			CustomerPhone:   body.CustomerPhone,
			DeliveryAddress: body.DeliveryAddress,
			Notes:           body.Notes,
			SendToKitchen:   body.SendToKitchen,
		}
		if body.Discount != nil {
			in.Discount = &pricing.Discount{Type: body.Discount.Type, Value: body.Discount.Value}
		}

		o, err := svc.Create(c.UserContext(), in)
		metrics.RecordOperation("order_create", err == nil)
		if err != nil {
			return svc.fail("create order", err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// GET /api/orders?status=ready,served&type=dine_in&server_id=3&table_id=4&sort=priority&limit=50
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			OrderType:  models.OrderType(c.Query("type")),
			ByPriority: c.Query("sort") == "priority",
			Limit:      c.QueryInt("limit", 100),
		}

		if s := c.Query("status"); s != "" {
			for _, part := range strings.Split(s, ",") {
				st := models.OrderStatus(strings.TrimSpace(part))
				if !st.Valid() {
					return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown status %q", st))
				}
				f.Statuses = append(f.Statuses, st)
			}
		}
		if f.OrderType != "" && !f.OrderType.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "unknown order type")
		}
		if s := c.Query("server_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.ServerID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid server_id")
			}
		}
		if s := c.Query("table_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.TableID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid table_id")
			}
		}

		orders, err := svc.List(c.UserContext(), f)
		if err != nil {
			return svc.fail("list orders", err)
		}
		return c.JSON(orders)
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		o, err := svc.Get(c.UserContext(), uint(id))
		if err != nil {
			return svc.fail("get order", err)
		}
		return c.JSON(o)
	}
}

// PATCH /api/orders/:id/status
func UpdateOrderStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		o, err := svc.Transition(c.UserContext(), TransitionInput{
			OrderID: uint(id),
			Target:  body.Status,
			ActorID: staffID,
			Notes:   body.Notes,
		})
		metrics.RecordOperation("order_transition", err == nil)
		if err != nil {
			return svc.fail("transition order", err)
		}
		return c.JSON(o)
	}
}

func (s *Service) fail(op string, err error) error {
	if apperr.KindOf(err) == "" {
		s.log.Errorf("ORDER", "%s: %v", op, err)
	}
	return apperr.ToFiber(err)
}
