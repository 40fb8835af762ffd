package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zapdesk/zapdesk/internal/auth"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/domain"
	"github.com/zapdesk/zapdesk/internal/repository"
	apperrors "github.com/zapdesk/zapdesk/pkg/util/errorutil"
)

// AuthService authenticates technicians at the auth boundary; the routing
// core only ever sees the resolved identity.
type AuthService struct {
	technicians repository.TechnicianRepository
	tokenMgr    *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, technicians repository.TechnicianRepository) *AuthService {
	return &AuthService{
		technicians: technicians,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates a technician and returns a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Technician, string, time.Time, error) {
	tech, err := s.technicians.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !tech.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("technician deactivated")
	}
	if err := auth.ComparePassword(tech.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(tech.ID, tech.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return tech, token, exp, nil
}
