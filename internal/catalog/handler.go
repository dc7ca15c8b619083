package catalog

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/menu?available=true
func ListMenuHandler(r Reader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items := r.Snapshot().Menu()
		if c.QueryBool("available", false) {
			filtered := items[:0]
			for _, it := range items {
				if it.Available {
					filtered = append(filtered, it)
				}
			}
			items = filtered
		}
		return c.JSON(items)
	}
}

// GET /api/settings
func GetSettingsHandler(r Reader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(r.Snapshot().Settings)
	}
}
