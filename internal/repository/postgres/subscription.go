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

// SubscriptionRepository implements repository.SubscriptionRepository using PostgreSQL.
type SubscriptionRepository struct {
	db database.DBTX
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts an active subscription and marks the user premium.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO subscriptions (id, user_id, plan_id, payment_method_id, status,
			                           current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			s.ID, s.UserID, s.PlanID, s.PaymentMethodID, s.Status,
			s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET is_premium = true, updated_at = $1 WHERE id = $2`, s.CreatedAt, s.UserID); err != nil {
			return fmt.Errorf("mark user premium: %w", err)
		}
		return nil
	})
}

// GetActive returns the user's active subscription and activated features.
func (r *SubscriptionRepository) GetActive(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
		SELECT s.id, s.user_id, s.plan_id, COALESCE(s.payment_method_id::text, ''), s.status,
		       s.current_period_start, s.current_period_end, s.cancel_at_period_end, s.created_at,
		       COALESCE((SELECT array_agg(upf.feature_id::text ORDER BY upf.activated_at)
		                 FROM user_premium_features upf WHERE upf.user_id = s.user_id), '{}')
		FROM subscriptions s
		WHERE s.user_id = $1 AND s.status = $2
		ORDER BY s.created_at DESC
		LIMIT 1`

	var s domain.Subscription
	err := r.db.QueryRow(ctx, query, userID, domain.SubscriptionActive).Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.PaymentMethodID, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt,
		&s.ActiveFeatures,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("no active subscription found")
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &s, nil
}

// Cancel marks the subscription canceled and clears the premium flag.
func (r *SubscriptionRepository) Cancel(ctx context.Context, id, userID string, now time.Time) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE subscriptions
			SET status = $1, cancel_at_period_end = true, updated_at = $2
			WHERE id = $3 AND user_id = $4 AND status = $5`,
			domain.SubscriptionCanceled, now, id, userID, domain.SubscriptionActive,
		)
		if err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFoundMessage("no active subscription found")
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET is_premium = false, updated_at = $1 WHERE id = $2`, now, userID); err != nil {
			return fmt.Errorf("clear premium flag: %w", err)
		}
		return nil
	})
}

// HasActive reports whether the user has an active subscription.
func (r *SubscriptionRepository) HasActive(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND status = $2)`,
		userID, domain.SubscriptionActive,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query active subscription: %w", err)
	}
	return ok, nil
}

// PremiumFeatureRepository implements repository.PremiumFeatureRepository using PostgreSQL.
type PremiumFeatureRepository struct {
	db database.DBTX
}

// NewPremiumFeatureRepository creates a new PostgreSQL-backed premium feature repository.
func NewPremiumFeatureRepository(db database.DBTX) *PremiumFeatureRepository {
	return &PremiumFeatureRepository{db: db}
}

const premiumFeatureColumns = `pf.id, pf.name, COALESCE(pf.description, ''), COALESCE(pf.icon, ''), pf.is_active`

// ListActive returns every active feature ordered by name.
func (r *PremiumFeatureRepository) ListActive(ctx context.Context) ([]domain.PremiumFeature, error) {
	return r.query(ctx, `SELECT `+premiumFeatureColumns+`, NULL::timestamptz
		FROM premium_features pf
		WHERE pf.is_active = true
		ORDER BY pf.name ASC`)
}

// GetActive returns the feature when it exists and is active.
func (r *PremiumFeatureRepository) GetActive(ctx context.Context, id string) (*domain.PremiumFeature, error) {
	var f domain.PremiumFeature
	err := r.db.QueryRow(ctx, `SELECT `+premiumFeatureColumns+`
		FROM premium_features pf
		WHERE pf.id = $1 AND pf.is_active = true`, id,
	).Scan(&f.ID, &f.Name, &f.Description, &f.Icon, &f.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("premium feature", id)
		}
		return nil, fmt.Errorf("scan premium feature: %w", err)
	}
	return &f, nil
}

// Activate enables the feature for the user; repeated calls are no-ops.
func (r *PremiumFeatureRepository) Activate(ctx context.Context, userID, featureID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_premium_features (user_id, feature_id, activated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, feature_id) DO NOTHING`,
		userID, featureID, at,
	)
	if err != nil {
		return fmt.Errorf("activate premium feature: %w", err)
	}
	return nil
}

// ListForUser returns the user's activated, still active features.
func (r *PremiumFeatureRepository) ListForUser(ctx context.Context, userID string) ([]domain.PremiumFeature, error) {
	return r.query(ctx, `SELECT `+premiumFeatureColumns+`, upf.activated_at
		FROM premium_features pf
		JOIN user_premium_features upf ON upf.feature_id = pf.id
		WHERE upf.user_id = $1 AND pf.is_active = true
		ORDER BY upf.activated_at DESC`, userID)
}

// Deactivate disables the feature for the user.
func (r *PremiumFeatureRepository) Deactivate(ctx context.Context, userID, featureID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_premium_features WHERE user_id = $1 AND feature_id = $2`, userID, featureID)
	if err != nil {
		return fmt.Errorf("deactivate premium feature: %w", err)
	}
	return nil
}

func (r *PremiumFeatureRepository) query(ctx context.Context, query string, args ...any) ([]domain.PremiumFeature, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query premium features: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PremiumFeature, 0)
	for rows.Next() {
		var f domain.PremiumFeature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Icon, &f.IsActive, &f.ActivatedAt); err != nil {
			return nil, fmt.Errorf("scan premium feature: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate premium features: %w", err)
	}
	return out, nil
}
