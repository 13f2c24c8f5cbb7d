package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

func TestSubscriptionRepository_Create_MarksPremium(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewSubscriptionRepository(mock)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.Subscription{
		ID: "s-1", UserID: "u-1", PlanID: "premium_monthly", PaymentMethodID: "pm-1",
		Status: domain.SubscriptionActive, CurrentPeriodStart: now, CurrentPeriodEnd: now.AddDate(0, 1, 0), CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE users SET is_premium = true").
		WithArgs(now, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), s))
}

func TestSubscriptionRepository_GetActive_None(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewSubscriptionRepository(mock)

	mock.ExpectQuery("FROM subscriptions s").
		WithArgs("u-1", domain.SubscriptionActive).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetActive(context.Background(), "u-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubscriptionRepository_Cancel(t *testing.T) {
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("clears premium flag", func(t *testing.T) {
		mock := database.NewMockPool(t)
		repo := NewSubscriptionRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE subscriptions").
			WithArgs(domain.SubscriptionCanceled, now, "s-1", "u-1", domain.SubscriptionActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE users SET is_premium = false").
			WithArgs(now, "u-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Cancel(context.Background(), "s-1", "u-1", now))
	})

	t.Run("other user's subscription", func(t *testing.T) {
		mock := database.NewMockPool(t)
		repo := NewSubscriptionRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE subscriptions").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.Cancel(context.Background(), "s-1", "u-2", now)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPremiumFeatureRepository_ListActive(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPremiumFeatureRepository(mock)

	mock.ExpectQuery("FROM premium_features pf").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "icon", "is_active", "activated_at"}).
			AddRow("pf-1", "Advanced Analytics", "", "chart", true, (*time.Time)(nil)))

	features, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Nil(t, features[0].ActivatedAt)
}

func TestPremiumFeatureRepository_Activate_Idempotent(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPremiumFeatureRepository(mock)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("ON CONFLICT \\(user_id, feature_id\\) DO NOTHING").
		WithArgs("u-1", "pf-1", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, repo.Activate(context.Background(), "u-1", "pf-1", at))
}
