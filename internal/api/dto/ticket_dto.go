package dto

import (
	"time"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// TransferTicketRequest payload. At least one target must be set.
type TransferTicketRequest struct {
	TechnicianID *string `json:"technician_id"`
	QueueID      *string `json:"queue_id"`
}

// ReplyRequest payload for a technician reply on a ticket thread.
type ReplyRequest struct {
	Body string `json:"body"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string              `json:"id"`
	ContactAddress string              `json:"contact_address"`
	QueueID        *string             `json:"queue_id"`
	TechnicianID   *string             `json:"technician_id"`
	Status         domain.TicketStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides the ticket plus its thread.
type TicketDetailResponse struct {
	TicketSummary
	Messages []MessageResponse `json:"messages"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID         string             `json:"id"`
	Sender     domain.SenderKind  `json:"sender"`
	Kind       domain.MessageKind `json:"kind"`
	Body       string             `json:"body"`
	ExternalID *string            `json:"external_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:             t.ID,
		ContactAddress: t.ContactAddress,
		QueueID:        t.QueueID,
		TechnicianID:   t.TechnicianID,
		Status:         t.Status,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		ClosedAt:       t.ClosedAt,
	}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		Sender:     m.Sender,
		Kind:       m.Kind,
		Body:       m.Body,
		ExternalID: m.ExternalID,
		CreatedAt:  m.CreatedAt,
	}
}
