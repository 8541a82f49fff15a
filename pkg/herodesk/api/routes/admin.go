package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freeflowuniverse/herodesk/pkg/herodesk/api"
)

// UptimeProvider reports how long the service has been running.
type UptimeProvider interface {
	GetUptime() string
}

// AdminHandler serves liveness and service information.
type AdminHandler struct {
	uptime UptimeProvider
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(uptime UptimeProvider) *AdminHandler {
	return &AdminHandler{uptime: uptime}
}

// RegisterRoutes registers admin routes to the fiber app
func (h *AdminHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.health)
}

// @Summary Service health
// @Tags admin
// @Produce json
// @Success 200 {object} api.HealthResponse
// @Router /health [get]
func (h *AdminHandler) health(c *fiber.Ctx) error {
	return c.JSON(api.HealthResponse{
		Status: "ok",
		Uptime: h.uptime.GetUptime(),
	})
}
