package shift

import (
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StartShiftRequest struct {
	StartingCash decimal.Decimal `json:"starting_cash"`
}

type EndShiftRequest struct {
	EndingCash decimal.Decimal `json:"ending_cash"`
	Notes      string          `json:"notes"`
}

// POST /api/shifts/start
func StartShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body StartShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		sh, err := svc.Start(c.UserContext(), staffID, body.StartingCash)
		metrics.RecordOperation("shift_start", err == nil)
		if err != nil {
			return svc.fail("start shift", err)
		}
		return c.Status(fiber.StatusCreated).JSON(sh)
	}
}

// POST /api/shifts/end
func EndShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body EndShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		sh, err := svc.End(c.UserContext(), EndInput{
			StaffID:    staffID,
			EndingCash: body.EndingCash,
			Notes:      body.Notes,
		})
		metrics.RecordOperation("shift_end", err == nil)
		if err != nil {
			return svc.fail("end shift", err)
		}
		return c.JSON(sh)
	}
}

// GET /api/shifts/current
func CurrentShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		sh, err := svc.Current(c.UserContext(), staffID)
		if err != nil {
			return svc.fail("current shift", err)
		}
		return c.JSON(fiber.Map{"shift": sh})
	}
}

// GET /api/shifts?staff_id=3&limit=20
func ListShiftsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var staffID uint
		if s := c.Query("staff_id"); s != "" {
			if _, err := fmt.Sscan(s, &staffID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid staff_id")
			}
		}

		shifts, err := svc.List(c.UserContext(), staffID, c.QueryInt("limit", 50))
		if err != nil {
			return svc.fail("list shifts", err)
		}
		return c.JSON(shifts)
	}
}

// GET /api/shifts/:id/report
func ShiftReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shift id")
		}

		data, filename, err := svc.ExportReport(c.UserContext(), uint(id))
		if err != nil {
			return svc.fail("export shift report", err)
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(data)
	}
}

func (s *Service) fail(op string, err error) error {
	if apperr.KindOf(err) == "" {
		s.log.Errorf("SHIFT", "%s: %v", op, err)
	}
	return apperr.ToFiber(err)
}
