package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/api/dto"
	"github.com/zapdesk/zapdesk/internal/auth"
	"github.com/zapdesk/zapdesk/internal/domain"
	"github.com/zapdesk/zapdesk/internal/service"
	"github.com/zapdesk/zapdesk/internal/transport"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

// TicketsHandler manages operator ticket endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	gateway   transport.Gateway
	logger    *zap.Logger
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, gateway transport.Gateway, logger *zap.Logger) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, gateway: gateway, logger: logger}
}

// ListOpen GET /queues/:id/tickets.
func (h *TicketsHandler) ListOpen(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	tickets, err := h.lifecycle.ListOpenByQueue(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, msgs, err := h.lifecycle.GetWithThread(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	detail := dto.TicketDetailResponse{
		TicketSummary: dto.NewTicketSummary(ticket),
		Messages:      make([]dto.MessageResponse, 0, len(msgs)),
	}
	for i := range msgs {
		detail.Messages = append(detail.Messages, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": detail})
}

// Assign POST /tickets/:id/assign. Claims the ticket for the caller.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	tech, ok := auth.TechnicianFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("technician required")
	}
	ticket, err := h.lifecycle.Assign(c.UserContext(), tech, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Transfer POST /tickets/:id/transfer.
func (h *TicketsHandler) Transfer(c *fiber.Ctx) error {
	tech, ok := auth.TechnicianFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("technician required")
	}
	var req dto.TransferTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Transfer(c.UserContext(), tech, c.Params("id"), service.TransferInput{
		TechnicianID: req.TechnicianID,
		QueueID:      req.QueueID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	tech, ok := auth.TechnicianFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("technician required")
	}
	ticket, err := h.lifecycle.Close(c.UserContext(), tech, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Reply POST /tickets/:id/messages. Appends a technician message to the
// thread, then relays it to the contact over the transport. The append
// happens first; a transport failure is logged, not escalated, since the
// message of record already exists.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	tech, ok := auth.TechnicianFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("technician required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}

	ticket, _, err := h.lifecycle.GetWithThread(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	msg, err := h.lifecycle.AppendMessage(c.UserContext(), ticket.ID, domain.SenderTechnician, req.Body, nil)
	if err != nil {
		return err
	}

	if err := h.gateway.Send(c.UserContext(), ticket.ContactAddress, req.Body); err != nil {
		h.logger.Warn("relay of technician reply failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("technician_id", tech.ID),
			zap.Error(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(msg)})
}
