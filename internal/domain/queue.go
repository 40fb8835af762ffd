package domain

import "time"

// Queue groups unassigned tickets for technicians with matching skills.
type Queue struct {
	ID          string
	Name        string
	Description string
	Skills      []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
