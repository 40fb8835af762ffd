package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zapdesk/zapdesk/internal/observability"
	"github.com/zapdesk/zapdesk/internal/router"
)

// MetricsHandler exposes routing counters to operators.
type MetricsHandler struct {
	metrics  *observability.Metrics
	sessions *router.SessionRegistry
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(metrics *observability.Metrics, sessions *router.SessionRegistry) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, sessions: sessions}
}

// Get GET /metrics.
func (h *MetricsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"counters":         h.metrics.Snapshot(),
		"contact_sessions": h.sessions.Len(),
	}})
}
