package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending     TicketStatus = "PENDING"
	TicketStatusAssigned    TicketStatus = "ASSIGNED"
	TicketStatusTransferred TicketStatus = "TRANSFERRED"
	TicketStatusClosed      TicketStatus = "CLOSED"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed
}

// Ticket is the aggregate for support conversations arriving over the
// messaging transport. At most one non-closed ticket exists per contact
// address at any time.
type Ticket struct {
	ID             string
	ContactAddress string
	QueueID        *string
	TechnicianID   *string
	Status         TicketStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// IsActive reports whether the ticket is still a routing target.
func (t *Ticket) IsActive() bool {
	return t != nil && !t.Status.IsTerminal()
}
