package floor

import (
	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateTableRequest struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

type UpdateStatusRequest struct {
	Status models.TableStatus `json:"status"`
}

// GET /api/tables
func ListTablesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tables, err := svc.List(c.UserContext())
		if err != nil {
			return svc.fail("list tables", err)
		}
		return c.JSON(tables)
	}
}

// POST /api/admin/tables
func CreateTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		t, err := svc.Create(c.UserContext(), body.Number, body.Capacity)
		if err != nil {
			return svc.fail("create table", err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// PUT /api/tables/:id/status
func UpdateTableStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid table id")
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		t, err := svc.SetStatus(c.UserContext(), uint(id), body.Status)
		if err != nil {
			return svc.fail("update table status", err)
		}
		return c.JSON(t)
	}
}

func (s *Service) fail(op string, err error) error {
	if apperr.KindOf(err) == "" {
		s.log.Errorf("FLOOR", "%s: %v", op, err)
	}
	return apperr.ToFiber(err)
}
