package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

func TestPasswordResetRepository_GetActive_NotFound(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM password_reset_tokens").
		WithArgs("tok", now).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetActive(context.Background(), "tok", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPasswordResetRepository_GetActive_Success(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM password_reset_tokens").
		WithArgs("tok", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
			AddRow("t-1", "u-1", "tok", now.Add(time.Hour), now))

	got, err := repo.GetActive(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
}

func TestPasswordResetRepository_InvalidateActive(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs(now, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, repo.InvalidateActive(context.Background(), "u-1", now))
}

func TestPasswordResetRepository_Consume_Success(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs(now, "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", now, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Consume(context.Background(), "t-1", "u-1", "new-hash", now))
}

func TestPasswordResetRepository_Consume_AlreadyUsed(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs(now, "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Consume(context.Background(), "t-1", "u-1", "new-hash", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestPasswordResetRepository_Consume_OwnerGone(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewPasswordResetRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs(now, "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", now, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Consume(context.Background(), "t-1", "u-1", "new-hash", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
