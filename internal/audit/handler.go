package audit

import (
	"fmt"

	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Metadata    string             `json:"metadata"`
}

// GET /api/audit-logs?entity_type=order&entity_id=1&user_id=2&action=payment_processed&limit=50
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f ListFilter

		if s := c.Query("user_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.UserID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
			}
		}
		if s := c.Query("entity_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.EntityID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid entity_id")
			}
		}
		f.EntityType = c.Query("entity_type")
		f.Action = models.AuditAction(c.Query("action"))
		f.Limit = c.QueryInt("limit", 100)

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Metadata:    l.Metadata,
			})
		}

		return c.JSON(resp)
	}
}
