package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"taskchat/internal/database"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Handle responds with server health status
// GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if err := h.db.PingContext(c.Context()); err != nil {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
