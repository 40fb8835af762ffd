package domain

import "time"

// TechnicianRole enumerates operator roles.
type TechnicianRole string

const (
	TechnicianRoleAgent TechnicianRole = "AGENT"
	TechnicianRoleAdmin TechnicianRole = "ADMIN"
)

// Technician models an operator who claims and works tickets.
type Technician struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         TechnicianRole
	Skills       []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
