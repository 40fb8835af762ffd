package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/broadcast"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/domain"
	"github.com/zapdesk/zapdesk/internal/repository"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

// LifecycleService drives the ticket state machine: pending -> assigned ->
// transferred* -> closed, with closed terminal.
type LifecycleService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	queues      repository.QueueRepository
	technicians repository.TechnicianRepository
	hub         *broadcast.Hub
	routing     config.RoutingConfig
	logger      *zap.Logger
}

// LifecycleDependencies bundles collaborators for the service.
type LifecycleDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	QueueRepo      repository.QueueRepository
	TechnicianRepo repository.TechnicianRepository
	Hub            *broadcast.Hub
	Routing        config.RoutingConfig
	Logger         *zap.Logger
}

// TransferInput carries the optional targets of a transfer. At least one
// must be set.
type TransferInput struct {
	TechnicianID *string
	QueueID      *string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		queues:      deps.QueueRepo,
		technicians: deps.TechnicianRepo,
		hub:         deps.Hub,
		routing:     deps.Routing,
		logger:      deps.Logger,
	}
}

// Open creates a pending ticket for a contact, enforcing the one active
// ticket per contact invariant. The broadcast to queue subscribers is the
// caller's job so persistence stays ordered before notification.
func (s *LifecycleService) Open(ctx context.Context, contactAddress string, queueID *string) (*domain.Ticket, error) {
	if strings.TrimSpace(contactAddress) == "" {
		return nil, apperrors.NewValidationError("contact address required", nil)
	}

	existing, err := s.tickets.FindActiveByContact(ctx, contactAddress)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflict("contact already has an active ticket", map[string]any{
			"ticket_id": existing.ID,
		})
	}

	ticket := &domain.Ticket{
		ContactAddress: contactAddress,
		QueueID:        queueID,
		Status:         domain.TicketStatusPending,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Assign claims a pending ticket for a technician. The check-and-set is a
// single atomic transition so two racing claims cannot both succeed; the
// loser gets a conflict.
func (s *LifecycleService) Assign(ctx context.Context, tech *domain.Technician, ticketID string) (*domain.Ticket, error) {
	if tech == nil {
		return nil, apperrors.NewUnauthorized("technician required")
	}
	if !tech.Active {
		return nil, apperrors.NewConflict("technician inactive", map[string]any{"technician_id": tech.ID})
	}

	claimed, err := s.tickets.AssignIfPending(ctx, ticketID, tech.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !claimed {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewConflict("ticket is no longer pending", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}
	return s.getTicket(ctx, ticketID)
}

// Transfer moves an assigned or transferred ticket to another technician
// and/or queue. Prior thread messages are untouched.
func (s *LifecycleService) Transfer(ctx context.Context, actor *domain.Technician, ticketID string, input TransferInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("technician required")
	}
	if input.TechnicianID == nil && input.QueueID == nil {
		return nil, apperrors.NewValidationError("technician_id or queue_id required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusTransferred {
		return nil, apperrors.NewConflict("ticket cannot be transferred in current status", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}

	if input.TechnicianID != nil {
		target, err := s.technicians.GetByID(ctx, *input.TechnicianID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": *input.TechnicianID})
			}
			return nil, apperrors.MapError(err)
		}
		if !target.Active {
			return nil, apperrors.NewConflict("technician inactive", map[string]any{"technician_id": target.ID})
		}
		ticket.TechnicianID = &target.ID
	}
	if input.QueueID != nil {
		queue, err := s.queues.GetByID(ctx, *input.QueueID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("queue", map[string]any{"queue_id": *input.QueueID})
			}
			return nil, apperrors.MapError(err)
		}
		if !queue.IsActive {
			return nil, apperrors.NewConflict("queue inactive", map[string]any{"queue_id": queue.ID})
		}
		ticket.QueueID = &queue.ID
	}

	ticket.Status = domain.TicketStatusTransferred
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Close ends the ticket. Closed is terminal; the router treats the contact
// as having no active ticket afterwards.
func (s *LifecycleService) Close(ctx context.Context, actor *domain.Technician, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("technician required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket already closed", map[string]any{"ticket_id": ticketID})
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListOpenByQueue returns non-closed tickets for a queue. Pending, assigned
// and transferred all count as open.
func (s *LifecycleService) ListOpenByQueue(ctx context.Context, queueID string, limit, offset int) ([]domain.Ticket, error) {
	if strings.TrimSpace(queueID) == "" {
		return nil, apperrors.NewValidationError("queue_id required", nil)
	}
	tickets, err := s.tickets.ListOpenByQueue(ctx, queueID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetWithThread fetches a ticket and its full message thread.
func (s *LifecycleService) GetWithThread(ctx context.Context, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, msgs, nil
}

// AppendMessage adds one entry to an active ticket's thread and notifies the
// ticket's room. The persistence write happens before the broadcast.
func (s *LifecycleService) AppendMessage(ctx context.Context, ticketID string, sender domain.SenderKind, body string, externalID *string) (*domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID})
	}

	msg := &domain.Message{
		TicketID:   ticket.ID,
		Sender:     sender,
		Kind:       domain.MessageKindText,
		Body:       strings.TrimSpace(body),
		ExternalID: externalID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.hub != nil {
		s.hub.PublishMessageAppended(ticket.ID, msg)
	}
	return msg, nil
}

// SelectQueue picks the queue for a new ticket according to the configured
// policy. With no queues configured the ticket simply stays unqueued.
func (s *LifecycleService) SelectQueue(ctx context.Context, text string) (*string, error) {
	queues, err := s.queues.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(queues) == 0 {
		return nil, nil
	}

	if s.routing.QueuePolicy == config.QueuePolicySkills {
		if best := bestSkillMatch(queues, text); best != nil {
			return &best.ID, nil
		}
	}
	// Policy "first", or no skill overlap found: queues come ordered by
	// creation time.
	return &queues[0].ID, nil
}

// bestSkillMatch scores queues by how many of their skills appear in the
// message text; ties keep the earlier queue.
func bestSkillMatch(queues []domain.Queue, text string) *domain.Queue {
	normalized := strings.ToLower(text)
	var best *domain.Queue
	bestScore := 0
	for i := range queues {
		score := 0
		for _, skill := range queues[i].Skills {
			if skill != "" && strings.Contains(normalized, strings.ToLower(skill)) {
				score++
			}
		}
		if score > bestScore {
			best = &queues[i]
			bestScore = score
		}
	}
	return best
}

func (s *LifecycleService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}
