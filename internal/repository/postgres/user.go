package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const userColumns = `id, email, name, password_hash, role, is_premium, last_login, last_activity, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, is_premium, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Role,
		u.IsPremium,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// TouchLastLogin stamps the login and activity times.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $1, last_activity = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// TouchActivity stamps the activity time.
func (r *UserRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_activity = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

// IsPremium reads the premium flag.
func (r *UserRepository) IsPremium(ctx context.Context, id string) (bool, error) {
	var premium bool
	err := r.db.QueryRow(ctx, `SELECT is_premium FROM users WHERE id = $1`, id).Scan(&premium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NotFound("user", id)
		}
		return false, fmt.Errorf("query premium flag: %w", err)
	}
	return premium, nil
}

// UpgradeToPremium promotes the user and records the upgrade payment.
func (r *UserRepository) UpgradeToPremium(ctx context.Context, userID string, p *domain.Payment) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE users
			SET role = $1, is_premium = true, updated_at = $2
			WHERE id = $3`,
			domain.RolePremium, p.CreatedAt, userID,
		)
		if err != nil {
			return fmt.Errorf("upgrade user: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("user", userID)
		}

		if err := insertPayment(ctx, tx, p); err != nil {
			return err
		}
		return nil
	})
}

// GetPreferences returns the stored preference document or an empty object.
func (r *UserRepository) GetPreferences(ctx context.Context, userID string) (json.RawMessage, error) {
	var prefs []byte
	err := r.db.QueryRow(ctx, `SELECT preferences FROM user_preferences WHERE user_id = $1`, userID).Scan(&prefs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return json.RawMessage(`{}`), nil
		}
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	return json.RawMessage(prefs), nil
}

// SavePreferences upserts the preference document.
func (r *UserRepository) SavePreferences(ctx context.Context, userID string, prefs json.RawMessage) error {
	query := `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, userID, []byte(prefs)); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.IsPremium,
		&u.LastLogin,
		&u.LastActivity,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}
