package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/classifier"
)

// ClassifierHandler exposes the remote classifier's readiness probe so an
// operator can re-enable remote classification after an outage without
// restarting the service.
type ClassifierHandler struct {
	client *classifier.Client
	logger *zap.Logger
}

// NewClassifierHandler constructs the handler.
func NewClassifierHandler(client *classifier.Client, logger *zap.Logger) *ClassifierHandler {
	return &ClassifierHandler{client: client, logger: logger}
}

// Probe POST /classifier/probe. A failed probe is not an error response;
// the service keeps running on the rule engine either way, so the handler
// reports the outcome instead of failing the request.
func (h *ClassifierHandler) Probe(c *fiber.Ctx) error {
	data := fiber.Map{}
	if err := h.client.Probe(c.UserContext()); err != nil {
		h.logger.Warn("classifier probe failed", zap.Error(err))
		data["error"] = err.Error()
	}
	data["available"] = h.client.Available()
	return c.JSON(fiber.Map{"data": data})
}
