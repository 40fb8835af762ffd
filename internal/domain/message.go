package domain

import "time"

// SenderKind indicates who authored a thread message.
type SenderKind string

const (
	SenderCustomer   SenderKind = "CUSTOMER"
	SenderBot        SenderKind = "BOT"
	SenderTechnician SenderKind = "TECHNICIAN"
)

// MessageKind differentiates message payload types.
type MessageKind string

const (
	MessageKindText MessageKind = "TEXT"
)

// Message captures one entry in a ticket thread. Records are append-only
// and never mutated after creation.
type Message struct {
	ID         string
	TicketID   string
	Sender     SenderKind
	Kind       MessageKind
	Body       string
	ExternalID *string
	CreatedAt  time.Time
}
