package handler

import "github.com/gofiber/fiber/v2"

// ClientConfig is the subset of settings the front desk UI reads at load.
type ClientConfig struct {
	DefaultPractitioner string `json:"defaultPractitioner"`
}

func RegisterConfigRoutes(router fiber.Router, cfg ClientConfig) {
	router.Get("/config", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(cfg)
	})
}
