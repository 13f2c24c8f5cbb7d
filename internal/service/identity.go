package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MichaelKMarwa/recupio/internal/auth"
	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// IdentityService turns request credentials into a domain.Identity. It backs
// the authorization middleware: bearer tokens resolve to Authenticated,
// guest session ids to Guest, and RequirePremium gates premium routes.
type IdentityService struct {
	tokens   *auth.TokenManager
	registry auth.Registry
	users    repository.UserRepository
	guests   *GuestService
	logger   *slog.Logger
	now      func() time.Time
}

// NewIdentityService creates a new identity service.
func NewIdentityService(
	tokens *auth.TokenManager,
	registry auth.Registry,
	users repository.UserRepository,
	guests *GuestService,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		tokens:   tokens,
		registry: registry,
		users:    users,
		guests:   guests,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveUser verifies token and confirms its subject still exists. Every
// failure surfaces as Unauthenticated; the reason is only logged.
func (s *IdentityService) ResolveUser(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.InfoContext(ctx, "bearer token rejected",
			slog.String("reason", err.Error()),
		)
		return domain.Anonymous(), apperrors.Unauthenticated("invalid or expired token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "token subject no longer exists",
				slog.String("user_id", claims.UserID),
			)
			return domain.Anonymous(), apperrors.Unauthenticated("invalid or expired token")
		}
		return domain.Anonymous(), fmt.Errorf("load token subject: %w", err)
	}
	if !domain.IsValidRole(user.Role) {
		s.logger.WarnContext(ctx, "token subject has unknown role",
			slog.String("user_id", user.ID),
			slog.String("role", user.Role),
		)
		return domain.Anonymous(), apperrors.Unauthenticated("invalid or expired token")
	}

	s.observe(ctx, user.ID, token, claims.ExpiresAt.Time)
	return domain.Authenticated(user.ID, user.Role), nil
}

// observe records activity and registry bookkeeping. Failures never fail
// the request.
func (s *IdentityService) observe(ctx context.Context, userID, token string, expiresAt time.Time) {
	if err := s.users.TouchActivity(ctx, userID, s.now()); err != nil {
		s.logger.WarnContext(ctx, "failed to update last activity",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.registry.RegisterSeen(ctx, userID, token, expiresAt); err != nil {
		s.logger.WarnContext(ctx, "failed to register token",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// ResolveGuest validates a guest session id. Missing and expired sessions
// both surface as Unauthenticated.
func (s *IdentityService) ResolveGuest(ctx context.Context, sessionID string) (domain.Identity, error) {
	session, err := s.guests.Validate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrExpired) || errors.Is(err, apperrors.ErrInvalidArgument) {
			return domain.Anonymous(), apperrors.Unauthenticated("invalid or expired guest session")
		}
		return domain.Anonymous(), err
	}
	return domain.Guest(session.ID, session.SessionID), nil
}

// RequirePremium re-reads the premium flag of an authenticated identity.
func (s *IdentityService) RequirePremium(ctx context.Context, id domain.Identity) error {
	switch {
	case id.IsGuest():
		return apperrors.PermissionDenied("premium subscription required")
	case !id.IsAuthenticated():
		return apperrors.Unauthenticated("authentication required")
	}

	premium, err := s.users.IsPremium(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthenticated("invalid or expired token")
		}
		return fmt.Errorf("check premium: %w", err)
	}
	if !premium {
		return apperrors.PermissionDenied("premium subscription required")
	}
	return nil
}
