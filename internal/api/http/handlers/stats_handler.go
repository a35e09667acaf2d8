package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-board/internal/service"
)

// StatsHandler serves the aggregate statistics endpoint.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{service: statsService}
}

// GetStats GET /stats.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}
