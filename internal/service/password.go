package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/event"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// PasswordService implements the password reset flow.
type PasswordService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	producer   *event.Producer
	ttl        time.Duration
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

// NewPasswordService creates a new password reset service.
func NewPasswordService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	producer *event.Producer,
	ttl time.Duration,
	bcryptCost int,
	logger *slog.Logger,
) *PasswordService {
	return &PasswordService{
		users:      users,
		resets:     resets,
		producer:   producer,
		ttl:        ttl,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestReset issues a reset token when email belongs to an account. The
// caller sees the same result whether or not it does.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	now := s.now()
	if err := s.resets.InvalidateActive(ctx, user.ID, now); err != nil {
		return fmt.Errorf("invalidate reset tokens: %w", err)
	}

	token := &domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	if err := s.producer.PublishPasswordResetRequested(ctx, user, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish password reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)
	return nil
}

// ConsumeReset sets a new password using a reset token. A token can be
// consumed once.
func (s *PasswordService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		return apperrors.InvalidArgument("invalid or expired reset token")
	}

	now := s.now()
	rt, err := s.resets.GetActive(ctx, token, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidArgument("invalid or expired reset token")
		}
		return fmt.Errorf("load reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.resets.Consume(ctx, rt.ID, rt.UserID, string(hash), now); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", rt.UserID),
	)
	return nil
}
