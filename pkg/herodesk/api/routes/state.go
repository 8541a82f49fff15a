package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/freeflowuniverse/herodesk/pkg/herodesk/api"
	"github.com/freeflowuniverse/herodesk/pkg/redisclient"
)

// StateHandler exposes read access to the session state store, mainly for
// debugging which documents the desk has persisted.
type StateHandler struct {
	client *redisclient.Client
}

// NewStateHandler creates a new StateHandler
func NewStateHandler(client *redisclient.Client) *StateHandler {
	return &StateHandler{client: client}
}

// RegisterRoutes registers state store routes to the fiber app
func (h *StateHandler) RegisterRoutes(app *fiber.App) {
	group := app.Group("/api/state")

	group.Get("/keys", h.keys)
	group.Get("/get", h.get)
}

// @Summary List state store keys
// @Tags state
// @Produce json
// @Param pattern query string false "Glob pattern, defaults to *"
// @Success 200 {object} api.StateKeysResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/state/keys [get]
func (h *StateHandler) keys(c *fiber.Ctx) error {
	keys, err := h.client.ScanKeys(c.UserContext(), c.Query("pattern", "*"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorResponse{
			Error: "scan failed: " + err.Error(),
		})
	}
	if keys == nil {
		keys = []string{}
	}
	return c.JSON(api.StateKeysResponse{Keys: keys})
}

// @Summary Read a state store value
// @Tags state
// @Produce json
// @Param key query string true "Key"
// @Success 200 {object} api.StateValueResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/state/get [get]
func (h *StateHandler) get(c *fiber.Ctx) error {
	key := c.Query("key")
	value, err := h.client.Client.Get(c.UserContext(), key).Result()
	if err == redis.Nil {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{
			Error: "key not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorResponse{
			Error: "get failed: " + err.Error(),
		})
	}
	return c.JSON(api.StateValueResponse{Key: key, Value: value})
}
