package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// QueueRepository encapsulates queue persistence.
type QueueRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	ListActive(ctx context.Context) ([]domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates the repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	const query = `
        SELECT id, name, description, skills, is_active, created_at, updated_at
        FROM queues WHERE id=$1`
	var q domain.Queue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.Name,
		&q.Description,
		&q.Skills,
		&q.IsActive,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *queueRepository) ListActive(ctx context.Context) ([]domain.Queue, error) {
	const query = `
        SELECT id, name, description, skills, is_active, created_at, updated_at
        FROM queues WHERE is_active ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Queue
	for rows.Next() {
		var q domain.Queue
		if err := rows.Scan(
			&q.ID,
			&q.Name,
			&q.Description,
			&q.Skills,
			&q.IsActive,
			&q.CreatedAt,
			&q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}
