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

// GuestSessionRepository implements repository.GuestSessionRepository using PostgreSQL.
type GuestSessionRepository struct {
	db database.DBTX
}

// NewGuestSessionRepository creates a new PostgreSQL-backed guest session repository.
func NewGuestSessionRepository(db database.DBTX) *GuestSessionRepository {
	return &GuestSessionRepository{db: db}
}

// Create inserts a guest session.
func (r *GuestSessionRepository) Create(ctx context.Context, s *domain.GuestSession) error {
	query := `
		INSERT INTO guest_sessions (id, session_id, created_at, expires_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, s.ID, s.SessionID, s.CreatedAt, s.ExpiresAt, s.LastAccessedAt)
	if err != nil {
		return fmt.Errorf("insert guest session: %w", err)
	}
	return nil
}

// GetBySessionID returns the session regardless of expiry; callers decide
// validity.
func (r *GuestSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	query := `
		SELECT id, session_id, created_at, expires_at, last_accessed_at
		FROM guest_sessions
		WHERE session_id = $1`

	var s domain.GuestSession
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&s.ID,
		&s.SessionID,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.LastAccessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("guest session not found")
		}
		return nil, fmt.Errorf("scan guest session: %w", err)
	}
	return &s, nil
}

// TouchLastAccessed stamps last_accessed_at. Expiry is never changed.
func (r *GuestSessionRepository) TouchLastAccessed(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE guest_sessions SET last_accessed_at = $1 WHERE session_id = $2`
	if _, err := r.db.Exec(ctx, query, at, sessionID); err != nil {
		return fmt.Errorf("touch guest session: %w", err)
	}
	return nil
}

// SavePreferences upserts the preferences of a guest session.
func (r *GuestSessionRepository) SavePreferences(ctx context.Context, p *domain.GuestPreferences) error {
	query := `
		INSERT INTO guest_preferences (session_id, zip_code, theme)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET zip_code = EXCLUDED.zip_code, theme = EXCLUDED.theme`

	if _, err := r.db.Exec(ctx, query, p.SessionID, p.ZipCode, p.Theme); err != nil {
		return fmt.Errorf("upsert guest preferences: %w", err)
	}
	return nil
}

// GetPreferences returns the saved preferences, empty when none exist, and
// the session's creation time.
func (r *GuestSessionRepository) GetPreferences(ctx context.Context, sessionID string) (*domain.GuestPreferences, error) {
	query := `
		SELECT gs.session_id, COALESCE(gp.zip_code, ''), COALESCE(gp.theme, ''), gs.created_at
		FROM guest_sessions gs
		LEFT JOIN guest_preferences gp ON gp.session_id = gs.session_id
		WHERE gs.session_id = $1`

	var p domain.GuestPreferences
	err := r.db.QueryRow(ctx, query, sessionID).Scan(&p.SessionID, &p.ZipCode, &p.Theme, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("guest session not found")
		}
		return nil, fmt.Errorf("scan guest preferences: %w", err)
	}
	return &p, nil
}
