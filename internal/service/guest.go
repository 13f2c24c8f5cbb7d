package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// GuestService manages guest sessions. A session's expiry is fixed when it
// is created; validation only refreshes last_accessed_at.
type GuestService struct {
	repo   repository.GuestSessionRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewGuestService creates a new guest session service.
func NewGuestService(repo repository.GuestSessionRepository, ttl time.Duration, logger *slog.Logger) *GuestService {
	return &GuestService{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a new guest session.
func (s *GuestService) Create(ctx context.Context) (*domain.GuestSession, error) {
	now := s.now()
	session := &domain.GuestSession{
		ID:             uuid.New().String(),
		SessionID:      uuid.New().String(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
		LastAccessedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create guest session: %w", err)
	}

	s.logger.InfoContext(ctx, "guest session created",
		slog.String("session_id", session.SessionID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// Validate returns the session when it exists and has not expired.
func (s *GuestService) Validate(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.InvalidArgument("session id is required")
	}

	session, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.ValidAt(now) {
		return nil, apperrors.Expired("guest session")
	}

	if err := s.repo.TouchLastAccessed(ctx, sessionID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to update guest last access",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	} else {
		session.LastAccessedAt = now
	}
	return session, nil
}

// GuestPreferencesInput holds the preferences a guest may store.
type GuestPreferencesInput struct {
	ZipCode string
	Theme   string
}

// SavePreferences stores preferences for a valid guest session.
func (s *GuestService) SavePreferences(ctx context.Context, sessionID string, input GuestPreferencesInput) (*domain.GuestPreferences, error) {
	if _, err := s.Validate(ctx, sessionID); err != nil {
		return nil, err
	}

	prefs := &domain.GuestPreferences{
		SessionID: sessionID,
		ZipCode:   strings.TrimSpace(input.ZipCode),
		Theme:     strings.TrimSpace(input.Theme),
		CreatedAt: s.now(),
	}
	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("save guest preferences: %w", err)
	}
	return prefs, nil
}

// GetPreferences returns the preferences of a valid guest session.
func (s *GuestService) GetPreferences(ctx context.Context, sessionID string) (*domain.GuestPreferences, error) {
	if _, err := s.Validate(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.GetPreferences(ctx, sessionID)
}
