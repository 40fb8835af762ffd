package broadcast

import (
	"time"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// EventKind enumerates the event identifiers published to operator clients.
type EventKind string

const (
	EventTransportStatus EventKind = "transport_status"
	EventTicketCreated   EventKind = "ticket_created"
	EventMessageAppended EventKind = "message_appended"
	EventHumanRequested  EventKind = "human_requested"
)

// Event is a realtime notification. Delivery is at-most-once and
// non-persistent; clients not subscribed at publish time fetch current state
// through the persistence API instead.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	TicketID  string    `json:"ticket_id,omitempty"`
	QueueID   string    `json:"queue_id,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TransportStatusPayload payload.
type TransportStatusPayload struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ContactAddress string              `json:"contact_address"`
	Status         domain.TicketStatus `json:"status"`
	QueueID        *string             `json:"queue_id,omitempty"`
}

// MessageAppendedPayload payload.
type MessageAppendedPayload struct {
	MessageID   string            `json:"message_id"`
	Sender      domain.SenderKind `json:"sender"`
	BodyPreview string            `json:"body_preview"`
}

// HumanRequestedPayload payload.
type HumanRequestedPayload struct {
	ContactAddress string `json:"contact_address"`
}
