package dto

import (
	"time"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the operator token.
type LoginResponse struct {
	Token      string             `json:"token"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Technician TechnicianResponse `json:"technician"`
}

// TechnicianResponse is the public view of an operator.
type TechnicianResponse struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Email  string                `json:"email"`
	Role   domain.TechnicianRole `json:"role"`
	Skills []string              `json:"skills"`
}

// NewTechnicianResponse maps a domain technician.
func NewTechnicianResponse(t *domain.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:     t.ID,
		Name:   t.Name,
		Email:  t.Email,
		Role:   t.Role,
		Skills: t.Skills,
	}
}
