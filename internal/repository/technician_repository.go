package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// TechnicianRepository encapsulates operator persistence.
type TechnicianRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	GetByEmail(ctx context.Context, email string) (*domain.Technician, error)
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates the repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `id, name, email, password_hash, role, skills, active, created_at, updated_at`

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *technicianRepository) GetByEmail(ctx context.Context, email string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Technician, error) {
	var tech domain.Technician
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tech.ID,
		&tech.Name,
		&tech.Email,
		&tech.PasswordHash,
		&tech.Role,
		&tech.Skills,
		&tech.Active,
		&tech.CreatedAt,
		&tech.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tech, nil
}
