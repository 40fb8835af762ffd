package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/api/dto"
	"github.com/zapdesk/zapdesk/internal/transport"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

// TransportHandler exposes gateway lifecycle and session guard endpoints,
// plus the webhooks the external bridge pushes into.
type TransportHandler struct {
	gateway *transport.BridgeGateway
	guard   *transport.Guard
	logger  *zap.Logger
}

// NewTransportHandler constructs the handler.
func NewTransportHandler(gateway *transport.BridgeGateway, guard *transport.Guard, logger *zap.Logger) *TransportHandler {
	return &TransportHandler{gateway: gateway, guard: guard, logger: logger}
}

// Status GET /transport/status.
func (h *TransportHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.gateway.Status()})
}

// ConnectByCode POST /transport/connect. A successful reconnection resets
// the fault counter; nothing else does.
func (h *TransportHandler) ConnectByCode(c *fiber.Ctx) error {
	var req dto.ConnectByCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Code) == "" {
		return apperrors.NewValidationError("code required", nil)
	}
	if err := h.gateway.ConnectByCode(c.UserContext(), req.Code); err != nil {
		return apperrors.MapError(err)
	}
	h.guard.Reset()
	return c.JSON(fiber.Map{"data": h.gateway.Status()})
}

// StartPairing POST /transport/pair.
func (h *TransportHandler) StartPairing(c *fiber.Ctx) error {
	code, err := h.gateway.ConnectByPairing(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"pairing_code": code,
		"status":       h.gateway.Status(),
	}})
}

// Disconnect POST /transport/disconnect.
func (h *TransportHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.gateway.Disconnect(c.UserContext()); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": h.gateway.Status()})
}

// Inbound POST /transport/inbound. The bridge pushes each received message
// here; ordering per contact is restored by the router's workers.
func (h *TransportHandler) Inbound(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("address and text required", nil)
	}
	if !h.gateway.Push(transport.InboundMessage{
		Address:    req.Address,
		Text:       req.Text,
		ExternalID: req.ExternalID,
	}) {
		return apperrors.NewDomainError("BACKPRESSURE", "inbound buffer full, retry later", fiber.StatusServiceUnavailable, nil)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// Fault POST /transport/fault. The bridge reports decrypt/auth errors here;
// the guard decides whether they are session faults and runs recovery.
func (h *TransportHandler) Fault(c *fiber.Ctx) error {
	var req dto.TransportFaultRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Error) == "" {
		return apperrors.NewValidationError("error required", nil)
	}
	handled := h.guard.ObserveFault(c.UserContext(), errors.New(req.Error))
	return c.JSON(fiber.Map{"data": fiber.Map{
		"handled": handled,
		"stats":   h.guard.Stats(),
	}})
}

// GuardStats GET /transport/guard.
func (h *TransportHandler) GuardStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.guard.Stats()})
}

// GuardReset POST /transport/guard/reset. Administrative action.
func (h *TransportHandler) GuardReset(c *fiber.Ctx) error {
	h.guard.Reset()
	return c.JSON(fiber.Map{"data": h.guard.Stats()})
}
