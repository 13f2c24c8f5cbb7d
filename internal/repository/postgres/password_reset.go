package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// PasswordResetRepository implements repository.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db database.DBTX
}

// NewPasswordResetRepository creates a new PostgreSQL-backed reset token repository.
func NewPasswordResetRepository(db database.DBTX) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// InvalidateActive marks the user's outstanding tokens used.
func (r *PasswordResetRepository) InvalidateActive(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE password_reset_tokens
		SET used_at = $1
		WHERE user_id = $2 AND used_at IS NULL AND expires_at > $1`

	if _, err := r.db.Exec(ctx, query, now, userID); err != nil {
		return fmt.Errorf("invalidate reset tokens: %w", err)
	}
	return nil
}

// Create stores a new reset token.
func (r *PasswordResetRepository) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.Exec(ctx, query, t.ID, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// GetActive returns the token when it is unused and unexpired at now.
func (r *PasswordResetRepository) GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2`

	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, query, token, now).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("reset token not found")
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}
	return &t, nil
}

// Consume marks the token used and sets the new password hash atomically.
// The used_at guard makes a second consume of the same token fail even when
// both race past GetActive.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens
			SET used_at = $1
			WHERE id = $2 AND used_at IS NULL AND expires_at > $1`,
			now, tokenID,
		)
		if err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.InvalidArgument("invalid or expired reset token")
		}

		ct, err = tx.Exec(ctx, `
			UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
			passwordHash, now, userID,
		)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("user", userID)
		}
		return nil
	})
}
