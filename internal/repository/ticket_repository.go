package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapdesk/zapdesk/internal/domain"
)

const ticketColumns = `id, contact_address, queue_id, technician_id, status, created_at, updated_at, closed_at`

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// FindActiveByContact returns the open ticket for a contact address,
	// or nil when the contact has no active ticket.
	FindActiveByContact(ctx context.Context, address string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// AssignIfPending atomically claims a ticket for a technician. It
	// reports claimed=false without error when the ticket exists but is
	// no longer PENDING, so callers can surface a conflict.
	AssignIfPending(ctx context.Context, ticketID, technicianID string) (claimed bool, err error)
	ListOpenByQueue(ctx context.Context, queueID string, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (contact_address, queue_id, technician_id, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ContactAddress,
		ticket.QueueID,
		ticket.TechnicianID,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) FindActiveByContact(ctx context.Context, address string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE contact_address=$1 AND status <> 'CLOSED'`
	ticket, err := r.fetchSingle(ctx, query, address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET queue_id=$1, technician_id=$2, status=$3, closed_at=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.QueueID,
		ticket.TechnicianID,
		ticket.Status,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) AssignIfPending(ctx context.Context, ticketID, technicianID string) (bool, error) {
	const query = `
        UPDATE tickets SET technician_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query,
		technicianID,
		domain.TicketStatusAssigned,
		ticketID,
		domain.TicketStatusPending,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListOpenByQueue(ctx context.Context, queueID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE queue_id=$1 AND status <> 'CLOSED'
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, queueID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ContactAddress,
		&ticket.QueueID,
		&ticket.TechnicianID,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ContactAddress,
			&ticket.QueueID,
			&ticket.TechnicianID,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
