package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/zapdesk/zapdesk/internal/domain"
	"github.com/zapdesk/zapdesk/internal/repository"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and loads the technician behind
// them. The routing core trusts the identity it is handed from here on.
type AuthMiddleware struct {
	tokens      *TokenManager
	technicians repository.TechnicianRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, technicians repository.TechnicianRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, technicians: technicians}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	tech, err := m.technicians.GetByID(c.Context(), claims.TechnicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("technician not found")
		}
		return apperrors.MapError(err)
	}
	if !tech.Active {
		return apperrors.NewForbidden("technician deactivated")
	}

	c.Locals(principalKey, tech)
	return c.Next()
}

// TechnicianFromContext retrieves the authenticated technician.
func TechnicianFromContext(c *fiber.Ctx) (*domain.Technician, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	tech, ok := val.(*domain.Technician)
	return tech, ok
}

// RequireAdmin ensures the technician has the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tech, ok := TechnicianFromContext(c)
		if !ok || tech.Role != domain.TechnicianRoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
