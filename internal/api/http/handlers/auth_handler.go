package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/zapdesk/zapdesk/internal/api/dto"
	"github.com/zapdesk/zapdesk/internal/service"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

// AuthHandler exposes the technician login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	tech, token, expiresAt, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:      token,
		ExpiresAt:  expiresAt,
		Technician: dto.NewTechnicianResponse(tech),
	}})
}
